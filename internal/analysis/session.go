package analysis

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

var (
	// ErrSessionBusy is returned when another driver owns the playback cursor.
	ErrSessionBusy = errors.New("analysis: session is owned by another driver")
	// ErrSessionClosed is returned by any use after Close.
	ErrSessionClosed = errors.New("analysis: session closed")
)

// Session is the single audio graph of one editing or export session: one
// signal, one playback cursor and one analyser per audio layer. Analysers are
// created on first use and keyed by layer id.
type Session struct {
	mu        sync.Mutex
	source    *Source
	analysers map[string]*Analyser
	owner     string
	closed    bool
}

// NewSession wires a session around a decoded signal.
func NewSession(signal domain.AudioSignal) (*Session, error) {
	if signal.Empty() {
		return nil, fmt.Errorf("analysis: new session: %w", domain.ErrMissingAudio)
	}
	return &Session{
		source:    NewSource(signal),
		analysers: make(map[string]*Analyser),
	}, nil
}

// Acquire gives owner exclusive use of the playback cursor. Acquiring again
// with the same owner is a no-op.
func (s *Session) Acquire(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.owner != "" && s.owner != owner {
		return fmt.Errorf("%w (%s)", ErrSessionBusy, s.owner)
	}
	s.owner = owner
	return nil
}

// Release gives the cursor back. Releasing as a non-owner does nothing.
func (s *Session) Release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == owner {
		s.owner = ""
	}
}

// Owner returns the current cursor owner, empty when free.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Duration()
}

func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Position()
}

// Seek moves the shared cursor.
func (s *Session) Seek(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source.Seek(t)
}

// ResetSmoothing clears the history of every analyser.
func (s *Session) ResetSmoothing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.analysers {
		a.Reset()
	}
}

// Snapshots reads one snapshot at the cursor for every visible audio layer of
// the scene, each analyser configured from its own layer. Analysers of layers
// no longer in the scene are dropped.
func (s *Session) Snapshots(scene domain.Scene) (map[string]domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	seen := make(map[string]bool, len(scene.Layers))
	out := make(map[string]domain.Snapshot)
	for _, l := range scene.Layers {
		cfg, ok := ConfigFor(l)
		if !ok {
			continue
		}
		seen[l.ID] = true
		if !l.Visible {
			continue
		}
		a, ok := s.analysers[l.ID]
		if !ok {
			a = NewAnalyser(cfg)
			s.analysers[l.ID] = a
		} else {
			a.Configure(cfg)
		}
		out[l.ID] = s.snapshot(l.Type, a)
	}
	for id := range s.analysers {
		if !seen[id] {
			delete(s.analysers, id)
		}
	}
	return out, nil
}

func (s *Session) snapshot(t domain.LayerType, a *Analyser) domain.Snapshot {
	n := a.Config().WindowSize
	samples := s.source.Window(n)
	snap := domain.Snapshot{
		Time:       s.source.Position(),
		SampleRate: s.source.SampleRate(),
		WindowSize: n,
	}
	if t == domain.LayerWave {
		snap.TimeDomain = a.TimeDomain(samples)
	} else {
		snap.Frequencies = a.Frequencies(samples)
	}
	return snap
}

// Close tears down the analysers and detaches the signal. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.analysers = nil
	s.owner = ""
	s.source = NewSource(domain.AudioSignal{})
	return nil
}
