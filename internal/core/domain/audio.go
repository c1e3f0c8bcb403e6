package domain

// AudioSignal is a decoded track downmixed to mono float samples in [-1, 1].
type AudioSignal struct {
	SampleRate int
	Samples    []float32
}

// Duration is the playback length in seconds.
func (s AudioSignal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Empty reports whether the signal carries no playable audio.
func (s AudioSignal) Empty() bool {
	return s.SampleRate <= 0 || len(s.Samples) == 0
}
