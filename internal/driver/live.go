package driver

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/ewilliams-labs/visualizer/internal/analysis"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/render"
)

const (
	liveOwner          = "live"
	DefaultRefreshRate = 60.0
)

// Status is the transport state observed by a timeline.
type Status struct {
	State       State   `json:"state"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Volume      float64 `json:"volume"`
}

// Presenter receives every composited live frame. It is called from the
// render loop and must not call back into the driver.
type Presenter interface {
	Present(frame *image.RGBA, status Status)
}

// LiveConfig tunes the live driver. Zero values take defaults.
type LiveConfig struct {
	RefreshRate float64
	Clock       Clock
}

// Live composites one frame per display refresh while the playback clock
// advances in real time.
type Live struct {
	session   *analysis.Session
	scene     func() domain.Scene
	painter   Painter
	presenter Presenter
	clock     Clock
	interval  time.Duration

	mu       sync.Mutex
	state    State
	position float64
	anchor   time.Time
	volume   float64
	last     *image.RGBA
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewLive wires a live driver. scene is read on every tick and must return a
// copy the caller no longer mutates.
func NewLive(session *analysis.Session, scene func() domain.Scene, painter Painter, presenter Presenter, cfg LiveConfig) *Live {
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = DefaultRefreshRate
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Live{
		session:   session,
		scene:     scene,
		painter:   painter,
		presenter: presenter,
		clock:     cfg.Clock,
		interval:  time.Duration(float64(time.Second) / cfg.RefreshRate),
		volume:    1,
	}
}

func (l *Live) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status reports the transport state.
func (l *Live) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

func (l *Live) statusLocked() Status {
	return Status{
		State:       l.state,
		CurrentTime: l.currentLocked(),
		Duration:    l.session.Duration(),
		Volume:      l.volume,
	}
}

// LastFrame is the most recent composite, kept on screen while paused.
func (l *Live) LastFrame() *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *Live) currentLocked() float64 {
	if l.state != Running {
		return l.position
	}
	return l.position + l.clock.Now().Sub(l.anchor).Seconds()
}

// Start takes the session's cursor, primes with one composite at the current
// position and starts playing. Calling Start on a started driver resumes it.
func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case Running:
		return nil
	case Paused:
		l.resumeLocked()
		return nil
	}

	if err := l.session.Acquire(liveOwner); err != nil {
		return fmt.Errorf("driver: start live: %w", err)
	}
	l.state = Priming
	l.session.ResetSmoothing()
	if err := l.renderLocked(ctx, l.position); err != nil {
		l.state = Idle
		l.session.Release(liveOwner)
		return fmt.Errorf("driver: prime live: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.resumeLocked()
	go l.loop(loopCtx, l.done)
	return nil
}

func (l *Live) resumeLocked() {
	l.anchor = l.clock.Now()
	l.state = Running
}

func (l *Live) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := l.Tick(ctx); err != nil && ctx.Err() == nil {
				log.Printf("WARN driver: live tick: %v", err)
			}
		}
	}
}

// Tick reads the playback clock, snapshots, composites and presents. It does
// nothing unless the driver is running. Reaching the end of the audio pauses
// and rewinds to the start.
func (l *Live) Tick(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Running {
		return nil
	}
	pos := l.currentLocked()
	if d := l.session.Duration(); pos >= d {
		l.state = Paused
		l.position = 0
		l.session.Seek(0)
		if l.last != nil && l.presenter != nil {
			l.presenter.Present(l.last, l.statusLocked())
		}
		return nil
	}
	return l.renderLocked(ctx, pos)
}

func (l *Live) renderLocked(ctx context.Context, pos float64) error {
	l.session.Seek(pos)
	scene := l.scene()
	snaps, err := l.session.Snapshots(scene)
	if err != nil {
		return err
	}
	img, err := l.painter.Paint(ctx, render.Describe(scene, snaps))
	if err != nil {
		return err
	}
	l.last = img
	if l.presenter != nil {
		l.presenter.Present(img, l.statusLocked())
	}
	return nil
}

// Pause freezes the playback clock; the last frame stays on screen.
func (l *Live) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Running {
		return
	}
	l.position = l.currentLocked()
	l.state = Paused
}

// Play resumes a paused driver, or starts an idle one.
func (l *Live) Play(ctx context.Context) error {
	return l.Start(ctx)
}

// Seek moves the playback position. A paused driver renders one frame at the
// new position so the preview follows scrubbing.
func (l *Live) Seek(ctx context.Context, t float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.session.Duration()
	if t < 0 {
		t = 0
	}
	if t > d {
		t = d
	}
	l.position = t
	l.anchor = l.clock.Now()
	if l.state == Paused {
		return l.renderLocked(ctx, t)
	}
	return nil
}

// Restart seeks to the start and plays.
func (l *Live) Restart(ctx context.Context) error {
	if err := l.Seek(ctx, 0); err != nil {
		return err
	}
	return l.Play(ctx)
}

// SetVolume sets the transport volume, clamped into [0, 1]. Volume does not
// affect analysis.
func (l *Live) SetVolume(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volume = min(max(v, 0), 1)
}

// Stop ends the loop, releases the cursor and drops the surface.
func (l *Live) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Idle {
		return
	}
	l.session.Release(liveOwner)
	l.state = Idle
	l.last = nil
}
