package driver

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ewilliams-labs/visualizer/internal/analysis"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/render"
)

const exportOwner = "export"

// ProgressFunc is told after every written frame.
type ProgressFunc func(done, total int)

// Export steps the session cursor one frame at a time, capturing each
// composite to the frame store. Frames are strictly sequential because the
// session has a single cursor.
type Export struct {
	session  *analysis.Session
	capturer ports.FrameCapturer
	progress ProgressFunc

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func NewExport(session *analysis.Session, capturer ports.FrameCapturer, progress ProgressFunc) *Export {
	return &Export{session: session, capturer: capturer, progress: progress}
}

func (e *Export) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Export) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run renders domain.FrameCount(duration, fps) frames of scene into store and
// returns the count. On any failure or cancellation the store is discarded.
func (e *Export) Run(ctx context.Context, scene domain.Scene, duration, fps float64, store ports.FrameStore) (int, error) {
	total := domain.FrameCount(duration, fps)
	if total == 0 {
		return 0, fmt.Errorf("driver: export: %w: no frames for %.3fs at %.3f fps", domain.ErrInvalidExport, duration, fps)
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		cancel()
		return 0, fmt.Errorf("driver: export already %s", e.state)
	}
	e.state = Priming
	e.cancel = cancel
	e.mu.Unlock()
	defer e.finish()

	if err := e.session.Acquire(exportOwner); err != nil {
		return 0, fmt.Errorf("driver: export: %w", err)
	}

	e.session.ResetSmoothing()
	e.session.Seek(0)
	if _, err := e.session.Snapshots(scene); err != nil {
		e.discard(store)
		return 0, fmt.Errorf("driver: prime export: %w", err)
	}

	e.setState(Running)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			e.discard(store)
			return i, fmt.Errorf("driver: export canceled at frame %d: %w", i, err)
		}
		if err := e.frame(ctx, scene, i, fps, store); err != nil {
			e.discard(store)
			return i, fmt.Errorf("driver: export frame %d: %w", i, err)
		}
		if e.progress != nil {
			e.progress(i+1, total)
		}
	}
	return total, nil
}

func (e *Export) frame(ctx context.Context, scene domain.Scene, i int, fps float64, store ports.FrameStore) error {
	e.session.Seek(domain.FrameTime(i, fps))
	snaps, err := e.session.Snapshots(scene)
	if err != nil {
		return err
	}
	img, err := e.capturer.Capture(ctx, render.Describe(scene, snaps))
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := store.Put(ctx, i, img); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (e *Export) discard(store ports.FrameStore) {
	if err := store.Discard(); err != nil {
		log.Printf("WARN driver: discard frames: %v", err)
	}
}

// Stop cancels a running export. Run then discards the store and releases
// the cursor before returning.
func (e *Export) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Export) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.session.Release(exportOwner)
	e.state = Idle
}
