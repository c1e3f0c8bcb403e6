package analysis

import (
	"math"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// Source is the decoded signal plus the playback cursor.
type Source struct {
	signal   domain.AudioSignal
	position float64
}

func NewSource(signal domain.AudioSignal) *Source {
	return &Source{signal: signal}
}

func (s *Source) SampleRate() int { return s.signal.SampleRate }

func (s *Source) Duration() float64 { return s.signal.Duration() }

func (s *Source) Position() float64 { return s.position }

// Seek moves the cursor, clamped into [0, duration].
func (s *Source) Seek(t float64) {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if d := s.Duration(); t > d {
		t = d
	}
	s.position = t
}

// Window returns up to n samples ending at the cursor.
func (s *Source) Window(n int) []float32 {
	end := int(math.Round(s.position * float64(s.signal.SampleRate)))
	if end > len(s.signal.Samples) {
		end = len(s.signal.Samples)
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return s.signal.Samples[start:end]
}
