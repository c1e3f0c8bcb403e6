// Package framestore keeps export frames as a zero-padded PNG sequence on disk.
package framestore

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

// Storage creates one temp directory per export under root.
type Storage struct {
	root    string
	encoder png.Encoder
}

var _ ports.FrameStorage = (*Storage)(nil)

// NewStorage returns a storage rooted at root. An empty root uses the system temp dir.
func NewStorage(root string) *Storage {
	return &Storage{
		root:    root,
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Open creates a fresh frame directory for exportID.
func (s *Storage) Open(ctx context.Context, exportID string) (ports.FrameStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.root != "" {
		if err := os.MkdirAll(s.root, 0o750); err != nil {
			return nil, fmt.Errorf("framestore: create root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(s.root, "frames-"+exportID+"-")
	if err != nil {
		return nil, fmt.Errorf("framestore: create frame dir: %w", err)
	}
	return &Store{dir: dir, encoder: &s.encoder}, nil
}

// Store is one export's frame directory.
type Store struct {
	dir     string
	encoder *png.Encoder

	mu        sync.Mutex
	written   int
	discarded bool
}

var _ ports.FrameStore = (*Store)(nil)

func (s *Store) Dir() string     { return s.dir }
func (s *Store) Pattern() string { return domain.FramePattern }

// Written is the number of frames stored so far.
func (s *Store) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Put encodes img as frame i. Frames must arrive in order starting at 0.
func (s *Store) Put(ctx context.Context, i int, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return fmt.Errorf("framestore: put frame %d: store discarded", i)
	}
	if i != s.written {
		return fmt.Errorf("framestore: put frame %d: expected frame %d", i, s.written)
	}

	path := filepath.Join(s.dir, domain.FrameName(i))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("framestore: create frame %d: %w", i, err)
	}
	w := bufio.NewWriter(f)
	if err := s.encoder.Encode(w, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("framestore: encode frame %d: %w", i, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("framestore: flush frame %d: %w", i, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("framestore: close frame %d: %w", i, err)
	}
	s.written++
	return nil
}

// Discard removes the frame directory. Later calls are no-ops.
func (s *Store) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return nil
	}
	s.discarded = true
	if err := os.RemoveAll(s.dir); err != nil {
		log.Printf("WARN framestore: remove %s: %v", s.dir, err)
		return fmt.Errorf("framestore: discard: %w", err)
	}
	return nil
}
