package analysis

import (
	"math/bits"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

const (
	DefaultWindowSize = 2048
	MinWindowSize     = 32
	MaxWindowSize     = 32768

	DefaultSmoothing = 0.8
	DefaultMinDb     = -100.0
	DefaultMaxDb     = -30.0
)

// Window sizes per layer kind. Bars and the oscilloscope read a small analyser,
// the wave spectrum a full resolution one.
const (
	BarWindowSize          = 256
	WaveWindowSize         = 256
	WaveSpectrumWindowSize = 2048
)

// BarMaxDbFloor is the lowest maxDb a bar spectrum analyser accepts.
const BarMaxDbFloor = -10.0

// Config is the analyser configuration: window size N, smoothing time constant
// and the decibel range mapped onto bytes 0-255.
type Config struct {
	WindowSize int
	Smoothing  float64
	MinDb      float64
	MaxDb      float64
}

// DefaultConfig matches a freshly created Web Audio analyser.
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		Smoothing:  DefaultSmoothing,
		MinDb:      DefaultMinDb,
		MaxDb:      DefaultMaxDb,
	}
}

// Normalize returns the configuration actually applied. Invalid window sizes fall
// back to the default, smoothing is clamped into [0, 1] and a decibel range
// narrower than 1 dB is widened by lowering MinDb to MaxDb-1.
func (c Config) Normalize() Config {
	if !validWindowSize(c.WindowSize) {
		c.WindowSize = DefaultWindowSize
	}
	switch {
	case c.Smoothing != c.Smoothing, c.Smoothing < 0:
		c.Smoothing = 0
	case c.Smoothing > 1:
		c.Smoothing = 1
	}
	if !(c.MaxDb-c.MinDb >= 1) {
		c.MinDb = c.MaxDb - 1
	}
	return c
}

func validWindowSize(n int) bool {
	return n >= MinWindowSize && n <= MaxWindowSize && bits.OnesCount(uint(n)) == 1
}

// ConfigFor derives the analyser configuration of an audio layer from its own
// settings. The layer's minFrequency field is the analyser's minimum decibel
// level. Bar spectrum layers never go below BarMaxDbFloor for maxDb. The
// second result is false for layers that read no audio.
func ConfigFor(l domain.Layer) (Config, bool) {
	switch s := l.Settings.(type) {
	case domain.BarSpectrumSettings:
		return Config{
			WindowSize: BarWindowSize,
			Smoothing:  s.Smoothing,
			MinDb:      s.MinFrequency,
			MaxDb:      max(s.MaxDb, BarMaxDbFloor),
		}.Normalize(), true
	case domain.WaveSettings:
		c := DefaultConfig()
		c.WindowSize = WaveWindowSize
		c.Smoothing = s.Smoothing
		return c.Normalize(), true
	case domain.WaveSpectrumSettings:
		return Config{
			WindowSize: WaveSpectrumWindowSize,
			Smoothing:  s.Smoothing,
			MinDb:      s.MinFrequency,
			MaxDb:      s.MaxDb,
		}.Normalize(), true
	}
	return Config{}, false
}
