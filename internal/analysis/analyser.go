// Package analysis turns a decoded audio signal into per-tick frequency and
// time-domain snapshots, modelled on the Web Audio AnalyserNode.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/madelynnblue/go-dsp/fft"
	"github.com/madelynnblue/go-dsp/window"
)

// Analyser computes snapshots over a window of N samples. It keeps the
// smoothed magnitudes of the previous frequency snapshot; it is not safe for
// concurrent use.
type Analyser struct {
	cfg    Config
	window []float64
	buf    []float64
	prev   []float64
}

// NewAnalyser returns an analyser with cfg applied.
func NewAnalyser(cfg Config) *Analyser {
	a := &Analyser{}
	a.Configure(cfg)
	return a
}

// Config returns the applied configuration.
func (a *Analyser) Config() Config { return a.cfg }

// Configure applies cfg. Changing the window size drops the smoothing history;
// changing only smoothing or the decibel range keeps it.
func (a *Analyser) Configure(cfg Config) {
	cfg = cfg.Normalize()
	if cfg.WindowSize != a.cfg.WindowSize || a.window == nil {
		a.window = window.Blackman(cfg.WindowSize)
		a.buf = make([]float64, cfg.WindowSize)
		a.prev = make([]float64, cfg.WindowSize/2)
	}
	a.cfg = cfg
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	clear(a.prev)
}

// Frequencies returns N/2 bytes for the given window of N samples, the last
// sample being the current playback position. Each call advances smoothing.
func (a *Analyser) Frequencies(samples []float32) []uint8 {
	n := a.cfg.WindowSize
	a.fill(samples)
	for i := range a.buf {
		a.buf[i] *= a.window[i]
	}
	spectrum := fft.FFTReal(a.buf)

	tau := a.cfg.Smoothing
	scale := 255 / (a.cfg.MaxDb - a.cfg.MinDb)
	out := make([]uint8, n/2)
	for k := range out {
		mag := cmplx.Abs(spectrum[k]) / float64(n)
		s := tau*a.prev[k] + (1-tau)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.prev[k] = s
		if s <= 0 {
			continue
		}
		db := 20 * math.Log10(s)
		out[k] = toByte(scale * (db - a.cfg.MinDb))
	}
	return out
}

// TimeDomain returns N bytes where 128 is silence.
func (a *Analyser) TimeDomain(samples []float32) []uint8 {
	a.fill(samples)
	out := make([]uint8, len(a.buf))
	for i, x := range a.buf {
		out[i] = toByte(128 * (1 + x))
	}
	return out
}

// TimeDomainFloat returns the N raw samples in [-1, 1].
func (a *Analyser) TimeDomainFloat(samples []float32) []float32 {
	a.fill(samples)
	out := make([]float32, len(a.buf))
	for i, x := range a.buf {
		out[i] = float32(x)
	}
	return out
}

// fill copies the last N samples into buf, zero padding at the front when
// fewer are available.
func (a *Analyser) fill(samples []float32) {
	n := len(a.buf)
	clear(a.buf)
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	off := n - len(samples)
	for i, s := range samples {
		a.buf[off+i] = float64(s)
	}
}

func toByte(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
