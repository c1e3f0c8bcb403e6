package domain

// Snapshot is one read of the analyser at a playback position. It is rebuilt
// on every render tick and never stored.
type Snapshot struct {
	Time        float64 `json:"time"`
	SampleRate  int     `json:"sampleRate"`
	WindowSize  int     `json:"windowSize"`
	Frequencies []uint8 `json:"frequencies,omitempty"`
	TimeDomain  []uint8 `json:"timeDomain,omitempty"`
}

// Frequency returns bin i, or 0 when i is outside the analysed range.
func (s Snapshot) Frequency(i int) uint8 {
	if i < 0 || i >= len(s.Frequencies) {
		return 0
	}
	return s.Frequencies[i]
}

// BinHz is the width of one frequency bin in Hz.
func (s Snapshot) BinHz() float64 {
	if s.WindowSize <= 0 {
		return 0
	}
	return float64(s.SampleRate) / float64(s.WindowSize)
}
