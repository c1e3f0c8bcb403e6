package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/visualizer/internal/analysis"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/driver"
)

var (
	// ErrTooManySessions is returned when the editor is at its session limit.
	ErrTooManySessions = errors.New("editor: too many open sessions")
	// ErrUnknownAction is returned for transport commands the editor does not know.
	ErrUnknownAction = errors.New("editor: unknown transport action")
)

const defaultMaxSessions = 16

// EditorConfig tunes live sessions.
type EditorConfig struct {
	RefreshRate float64
	MaxSessions int
	Background  string
	// Clock drives the live loop; nil uses the system clock.
	Clock driver.Clock
}

// Editor owns the open editing sessions: one audio track, one scene and one
// live preview loop each.
type Editor struct {
	decoder ports.AudioDecoder
	painter driver.Painter
	cfg     EditorConfig
	newID   func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEditor constructs an Editor.
func NewEditor(decoder ports.AudioDecoder, painter driver.Painter, cfg EditorConfig) *Editor {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	return &Editor{
		decoder:  decoder,
		painter:  painter,
		cfg:      cfg,
		newID:    uuid.NewString,
		sessions: map[string]*Session{},
	}
}

// Open decodes audio and starts a session around scene. A nil scene starts
// empty at the default size.
func (e *Editor) Open(ctx context.Context, audio io.Reader, scene *domain.Scene) (*Session, error) {
	e.mu.Lock()
	full := len(e.sessions) >= e.cfg.MaxSessions
	e.mu.Unlock()
	if full {
		return nil, ErrTooManySessions
	}
	if audio == nil {
		return nil, fmt.Errorf("editor: %w", domain.ErrMissingAudio)
	}

	signal, err := e.decoder.Decode(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("editor: decode audio: %w", err)
	}
	track, err := analysis.NewSession(signal)
	if err != nil {
		return nil, fmt.Errorf("editor: %w", err)
	}

	if scene == nil {
		scene = domain.NewScene(0, 0)
	} else {
		clone := scene.Clone()
		scene = &clone
		if scene.Width <= 0 {
			scene.Width = domain.DefaultSceneWidth
		}
		if scene.Height <= 0 {
			scene.Height = domain.DefaultSceneHeight
		}
		if scene.Layers, err = domain.AssignLayerIDs(scene.Layers); err != nil {
			_ = track.Close()
			return nil, fmt.Errorf("editor: %w", err)
		}
	}
	if scene.Background == "" {
		scene.Background = e.cfg.Background
	}

	s := &Session{
		ID:    e.newID(),
		scene: scene,
		track: track,
		hub:   newBroadcaster(),
	}
	s.live = driver.NewLive(track, s.Scene, e.painter, s.hub, driver.LiveConfig{
		RefreshRate: e.cfg.RefreshRate,
		Clock:       e.cfg.Clock,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) >= e.cfg.MaxSessions {
		s.close()
		return nil, ErrTooManySessions
	}
	e.sessions[s.ID] = s
	log.Printf("editor: session %s opened (%.1fs of audio)", s.ID, track.Duration())
	return s, nil
}

// Get returns an open session.
func (e *Editor) Get(id string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("editor: session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Close stops a session's preview and releases its audio.
func (e *Editor) Close(id string) error {
	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("editor: session %s: %w", id, domain.ErrNotFound)
	}
	s.close()
	log.Printf("editor: session %s closed", id)
	return nil
}

// CloseAll closes every session; used on shutdown.
func (e *Editor) CloseAll() {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = map[string]*Session{}
	e.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

// Len is the number of open sessions.
func (e *Editor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Session is one open editor: a scene edited through layer operations and
// previewed live against the session's audio.
type Session struct {
	ID string

	mu    sync.Mutex
	scene *domain.Scene

	track *analysis.Session
	live  *driver.Live
	hub   *broadcaster
}

// Scene returns a copy of the current scene.
func (s *Session) Scene() domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Clone()
}

// Duration is the audio length in seconds.
func (s *Session) Duration() float64 { return s.track.Duration() }

// Status reports the transport state.
func (s *Session) Status() driver.Status { return s.live.Status() }

// Subscribe streams presented frames until cancel is called or the session closes.
func (s *Session) Subscribe() (<-chan Preview, func()) { return s.hub.subscribe() }

// edit applies fn to the scene and refreshes a paused preview so it shows the change.
func (s *Session) edit(ctx context.Context, fn func(*domain.Scene) error) error {
	s.mu.Lock()
	err := fn(s.scene)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	// The preview reads the scene under s.mu, so refresh only after unlocking.
	if s.live.State() == driver.Paused {
		if err := s.live.Seek(ctx, s.live.Status().CurrentTime); err != nil {
			log.Printf("WARN editor: refresh preview of %s: %v", s.ID, err)
		}
	}
	return nil
}

func requireLayer(scene *domain.Scene, id string) error {
	if _, ok := scene.Find(id); !ok {
		return fmt.Errorf("editor: layer %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AddLayer adds a layer of type t. settings, when given, is merged over the
// type's defaults.
func (s *Session) AddLayer(ctx context.Context, t domain.LayerType, settings json.RawMessage) (domain.Layer, error) {
	decoded, err := domain.DecodeSettings(t, settings)
	if err != nil {
		return domain.Layer{}, fmt.Errorf("editor: %w", err)
	}
	var added domain.Layer
	err = s.edit(ctx, func(scene *domain.Scene) error {
		added = scene.Add(decoded)
		return nil
	})
	return added, err
}

// UpdateLayer merges partial into a layer's settings.
func (s *Session) UpdateLayer(ctx context.Context, id string, partial json.RawMessage) (domain.Layer, error) {
	var updated domain.Layer
	err := s.edit(ctx, func(scene *domain.Scene) error {
		if err := requireLayer(scene, id); err != nil {
			return err
		}
		if err := scene.Update(id, partial); err != nil {
			return fmt.Errorf("editor: %w", err)
		}
		updated, _ = scene.Find(id)
		return nil
	})
	return updated, err
}

func (s *Session) RemoveLayer(ctx context.Context, id string) error {
	return s.edit(ctx, func(scene *domain.Scene) error {
		if err := requireLayer(scene, id); err != nil {
			return err
		}
		scene.Remove(id)
		return nil
	})
}

func (s *Session) SetVisibility(ctx context.Context, id string, visible bool) error {
	return s.edit(ctx, func(scene *domain.Scene) error {
		if err := requireLayer(scene, id); err != nil {
			return err
		}
		scene.SetVisibility(id, visible)
		return nil
	})
}

func (s *Session) Rename(ctx context.Context, id, name string) error {
	return s.edit(ctx, func(scene *domain.Scene) error {
		if err := requireLayer(scene, id); err != nil {
			return err
		}
		scene.Rename(id, name)
		return nil
	})
}

func (s *Session) SetActive(ctx context.Context, id string) error {
	return s.edit(ctx, func(scene *domain.Scene) error {
		if id != "" {
			if err := requireLayer(scene, id); err != nil {
				return err
			}
		}
		scene.SetActive(id)
		return nil
	})
}

// Reorder moves the layer at index from to index to. Out-of-range indexes
// leave the scene unchanged.
func (s *Session) Reorder(ctx context.Context, from, to int) error {
	return s.edit(ctx, func(scene *domain.Scene) error {
		scene.Reorder(from, to)
		return nil
	})
}

func (s *Session) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 || width > domain.MaxExportDimension || height > domain.MaxExportDimension {
		return fmt.Errorf("editor: %w: scene size %dx%d", domain.ErrInvalidExport, width, height)
	}
	return s.edit(ctx, func(scene *domain.Scene) error {
		scene.Resize(width, height)
		return nil
	})
}

// TransportAction names a playback control.
type TransportAction string

const (
	ActionPlay    TransportAction = "play"
	ActionPause   TransportAction = "pause"
	ActionSeek    TransportAction = "seek"
	ActionRestart TransportAction = "restart"
	ActionVolume  TransportAction = "volume"
	ActionStop    TransportAction = "stop"
)

// TransportCommand is one playback control request.
type TransportCommand struct {
	Action TransportAction `json:"action"`
	Time   float64         `json:"time,omitempty"`
	Volume float64         `json:"volume,omitempty"`
}

// Transport applies cmd to the live preview and returns the resulting status.
func (s *Session) Transport(ctx context.Context, cmd TransportCommand) (driver.Status, error) {
	var err error
	switch cmd.Action {
	case ActionPlay:
		err = s.live.Play(ctx)
	case ActionPause:
		s.live.Pause()
	case ActionSeek:
		err = s.live.Seek(ctx, cmd.Time)
	case ActionRestart:
		err = s.live.Restart(ctx)
	case ActionVolume:
		s.live.SetVolume(cmd.Volume)
	case ActionStop:
		s.live.Stop()
	default:
		return s.live.Status(), fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	if err != nil {
		return s.live.Status(), fmt.Errorf("editor: %s: %w", cmd.Action, err)
	}
	return s.live.Status(), nil
}

func (s *Session) close() {
	s.live.Stop()
	s.hub.close()
	if err := s.track.Close(); err != nil {
		log.Printf("WARN editor: close audio of %s: %v", s.ID, err)
	}
}
