package ports

import (
	"context"
	"image"

	"github.com/ewilliams-labs/visualizer/internal/render"
)

// FrameCapturer renders one described frame to a still image.
type FrameCapturer interface {
	Capture(ctx context.Context, frame render.Frame) (image.Image, error)
}

// FrameStore holds the still images of one export, indexed by frame number.
type FrameStore interface {
	// Put writes frame i. Frames are written strictly in order.
	Put(ctx context.Context, i int, img image.Image) error
	// Dir is the directory holding the frame files.
	Dir() string
	// Pattern is the printf pattern of the frame file names inside Dir.
	Pattern() string
	// Discard removes every frame written so far. Safe to call more than once.
	Discard() error
}

// FrameStorage opens a fresh frame store per export.
type FrameStorage interface {
	Open(ctx context.Context, exportID string) (FrameStore, error)
}

// EncodeJob describes one mux of a frame sequence plus an audio track.
type EncodeJob struct {
	FramesDir    string
	FramePattern string
	AudioPath    string
	FPS          float64
	Width        int
	Height       int
	OutputPath   string
}

// Encoder muxes frames and audio into an H.264/AAC MP4.
type Encoder interface {
	Encode(ctx context.Context, job EncodeJob) error
}
