package geometry

import (
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// Generate dispatches on the settings type. Layers that read no audio ignore
// snap.
func Generate(settings domain.Settings, snap domain.Snapshot) Geometry {
	switch s := settings.(type) {
	case domain.TextSettings:
		return Text(s)
	case domain.ImageSettings:
		return Image(s)
	case domain.BarSpectrumSettings:
		return BarSpectrum(s, snap)
	case domain.WaveSettings:
		return Wave(s, snap.TimeDomain)
	case domain.WaveSpectrumSettings:
		return WaveSpectrum(s, snap)
	}
	return Geometry{}
}

// Text centers a styled run on the local origin.
func Text(s domain.TextSettings) Geometry {
	return Geometry{
		Text: &TextRun{
			Text:   s.Text,
			Font:   s.Font,
			Size:   s.Size,
			Bold:   s.IsBold,
			Italic: s.IsItalic,
			Color:  domain.ParseColor(s.Color, domain.White),
		},
	}
}

// Image scales the box by zoom percent about its center.
func Image(s domain.ImageSettings) Geometry {
	w := s.Width * s.Zoom / 100
	h := s.Height * s.Zoom / 100
	g := Geometry{Width: w, Height: h}
	if s.URL != "" && w > 0 && h > 0 {
		g.Image = &ImageFill{URL: s.URL, Width: w, Height: h}
	}
	return g
}
