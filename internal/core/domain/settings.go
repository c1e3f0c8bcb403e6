package domain

import (
	"encoding/json"
	"fmt"
)

// LayerType tags the kind of a layer and fixes the shape of its settings.
type LayerType string

const (
	LayerText         LayerType = "text"
	LayerImage        LayerType = "image"
	LayerBarSpectrum  LayerType = "barSpectrum"
	LayerWave         LayerType = "wave"
	LayerWaveSpectrum LayerType = "waveSpectrum"
)

// Valid reports whether t is one of the supported layer kinds.
func (t LayerType) Valid() bool {
	switch t {
	case LayerText, LayerImage, LayerBarSpectrum, LayerWave, LayerWaveSpectrum:
		return true
	}
	return false
}

// NeedsAudio reports whether layers of this kind read an analysis snapshot.
func (t LayerType) NeedsAudio() bool {
	switch t {
	case LayerBarSpectrum, LayerWave, LayerWaveSpectrum:
		return true
	}
	return false
}

// Placement holds the fields every layer type carries. X and Y are pixel offsets
// from the scene center, Rotation is in degrees and Opacity is 0-100.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

// Base returns the common placement fields.
func (p Placement) Base() Placement { return p }

// Analysis holds the analyser range fields shared by the frequency layers.
// MinFrequency doubles as the analyser's minimum decibel level, matching the
// editor's control panels.
type Analysis struct {
	MaxDb        float64 `json:"maxDb"`
	MinFrequency float64 `json:"minFrequency"`
	MaxFrequency float64 `json:"maxFrequency"`
	Smoothing    float64 `json:"smoothing"`
}

// Settings is the sum type over the five per-layer settings records.
type Settings interface {
	Type() LayerType
	Base() Placement
}

type TextSettings struct {
	Placement
	Text     string  `json:"text"`
	Size     float64 `json:"size"`
	Font     string  `json:"font"`
	IsItalic bool    `json:"isItalic"`
	IsBold   bool    `json:"isBold"`
	Color    string  `json:"color"`
}

func (TextSettings) Type() LayerType { return LayerText }

type ImageSettings struct {
	Placement
	URL           string  `json:"url"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Zoom          float64 `json:"zoom"`
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
}

func (ImageSettings) Type() LayerType { return LayerImage }

func (s ImageSettings) aspect() (float64, bool) {
	if s.NaturalWidth <= 0 || s.NaturalHeight <= 0 {
		return 0, false
	}
	return s.NaturalWidth / s.NaturalHeight, true
}

// WithWidth sets the width and, when the natural size is known, recomputes the
// height to keep the natural aspect ratio.
func (s ImageSettings) WithWidth(w float64) ImageSettings {
	s.Width = w
	if ratio, ok := s.aspect(); ok {
		s.Height = w / ratio
	}
	return s
}

// WithHeight is the counterpart of WithWidth.
func (s ImageSettings) WithHeight(h float64) ImageSettings {
	s.Height = h
	if ratio, ok := s.aspect(); ok {
		s.Width = h * ratio
	}
	return s
}

type BarSpectrumSettings struct {
	Placement
	Analysis
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	ShadowHeight     float64 `json:"shadowHeight"`
	BarWidth         float64 `json:"barWidth"`
	IsBarWidthAuto   bool    `json:"isBarWidthAuto"`
	BarSpacing       float64 `json:"barSpacing"`
	IsBarSpacingAuto bool    `json:"isBarSpacingAuto"`
	BarColor         string  `json:"barColor"`
	ShadowColor      string  `json:"shadowColor"`
}

func (BarSpectrumSettings) Type() LayerType { return LayerBarSpectrum }

type WaveSettings struct {
	Placement
	LineWidth   float64 `json:"lineWidth"`
	Wavelength  float64 `json:"wavelength"`
	Smoothing   float64 `json:"smoothing"`
	Stroke      bool    `json:"stroke"`
	StrokeColor string  `json:"strokeColor"`
	Fill        bool    `json:"fill"`
	FillColor   string  `json:"fillColor"`
	TaperEdges  bool    `json:"taperEdges"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

func (WaveSettings) Type() LayerType { return LayerWave }

type WaveSpectrumSettings struct {
	Placement
	Analysis
	Stroke      bool    `json:"stroke"`
	StrokeColor string  `json:"strokeColor"`
	FillColor   string  `json:"fillColor"`
	TaperEdges  bool    `json:"taperEdges"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

func (WaveSpectrumSettings) Type() LayerType { return LayerWaveSpectrum }

var centered = Placement{Opacity: 100}

func DefaultTextSettings() TextSettings {
	return TextSettings{
		Placement: centered,
		Text:      "hello",
		Size:      40,
		Font:      "roboto",
		Color:     "#FFFFFF",
	}
}

func DefaultImageSettings() ImageSettings {
	return ImageSettings{
		Placement: centered,
		Width:     100,
		Height:    100,
		Zoom:      100,
	}
}

func DefaultBarSpectrumSettings() BarSpectrumSettings {
	return BarSpectrumSettings{
		Placement: centered,
		Analysis: Analysis{
			MaxDb:        -10,
			MinFrequency: -100,
			MaxFrequency: 20000,
			Smoothing:    0.8,
		},
		Width:            800,
		Height:           200,
		ShadowHeight:     20,
		BarWidth:         2,
		IsBarWidthAuto:   true,
		BarSpacing:       1,
		IsBarSpacingAuto: true,
		BarColor:         "#6366f1",
		ShadowColor:      "rgba(99, 102, 241, 0.2)",
	}
}

func DefaultWaveSettings() WaveSettings {
	return WaveSettings{
		Placement:   centered,
		LineWidth:   1,
		Stroke:      true,
		StrokeColor: "#FFFFFF",
		FillColor:   "#FFFFFF",
		Width:       854,
		Height:      240,
	}
}

func DefaultWaveSpectrumSettings() WaveSpectrumSettings {
	return WaveSpectrumSettings{
		Placement: centered,
		Analysis: Analysis{
			MaxDb:        -20,
			MinFrequency: -60,
			MaxFrequency: 20000,
			Smoothing:    0.8,
		},
		Stroke:      true,
		StrokeColor: "#ffffff",
		FillColor:   "#ffffff",
		Width:       800,
		Height:      200,
	}
}

// DefaultSettings returns the initial settings for a new layer of type t.
func DefaultSettings(t LayerType) (Settings, error) {
	return DecodeSettings(t, nil)
}

// DecodeSettings decodes raw JSON into the settings record fixed by t. Fields
// absent from raw keep the type's defaults.
func DecodeSettings(t LayerType, raw json.RawMessage) (Settings, error) {
	switch t {
	case LayerText:
		return decodeInto(raw, DefaultTextSettings())
	case LayerImage:
		return decodeInto(raw, DefaultImageSettings())
	case LayerBarSpectrum:
		return decodeInto(raw, DefaultBarSpectrumSettings())
	case LayerWave:
		return decodeInto(raw, DefaultWaveSettings())
	case LayerWaveSpectrum:
		return decodeInto(raw, DefaultWaveSpectrumSettings())
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLayerType, t)
}

func decodeInto[S Settings](raw json.RawMessage, s S) (Settings, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, s.Type(), err)
	}
	return s, nil
}

// MergeSettings shallow-merges the keys of partial over s. Keys that do not
// belong to the settings record are dropped, so the shape never changes.
// Image settings keep their aspect ratio when only one dimension is given.
func MergeSettings(s Settings, partial json.RawMessage) (Settings, error) {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(partial, &patch); err != nil {
		return nil, fmt.Errorf("%w: patch must be a JSON object: %v", ErrInvalidSettings, err)
	}
	if len(patch) == 0 {
		return s, nil
	}

	current, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("domain: encode settings: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &fields); err != nil {
		return nil, fmt.Errorf("domain: encode settings: %w", err)
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("domain: encode settings: %w", err)
	}

	out, err := DecodeSettings(s.Type(), merged)
	if err != nil {
		return nil, err
	}

	if img, ok := out.(ImageSettings); ok {
		_, hasW := patch["width"]
		_, hasH := patch["height"]
		switch {
		case hasW && !hasH:
			out = img.WithWidth(img.Width)
		case hasH && !hasW:
			out = img.WithHeight(img.Height)
		}
	}
	return out, nil
}
