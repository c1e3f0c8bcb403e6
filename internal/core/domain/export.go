package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	MaxExportDimension = 8192
	MaxExportFPS       = 240
	MaxExportDuration  = 3600
)

// ExportRequest is the JSON "data" part of an export upload.
type ExportRequest struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	Background string  `json:"background,omitempty"`
	Layers     []Layer `json:"layers"`
}

// Validate checks the request bounds.
func (r ExportRequest) Validate() error {
	switch {
	case !(r.Duration > 0) || r.Duration > MaxExportDuration:
		return fmt.Errorf("%w: duration must be in (0, %d] seconds", ErrInvalidExport, MaxExportDuration)
	case r.Width <= 0 || r.Width > MaxExportDimension || r.Height <= 0 || r.Height > MaxExportDimension:
		return fmt.Errorf("%w: width and height must be in [1, %d]", ErrInvalidExport, MaxExportDimension)
	case !(r.FPS > 0) || r.FPS > MaxExportFPS:
		return fmt.Errorf("%w: fps must be in (0, %d]", ErrInvalidExport, MaxExportFPS)
	}
	return nil
}

// Scene builds the scene the request describes.
func (r ExportRequest) Scene() Scene {
	s := NewScene(r.Width, r.Height)
	s.Background = r.Background
	s.Layers = append(s.Layers, r.Layers...)
	return *s
}

// FrameCount is ceil(duration*fps). A tiny tolerance keeps products such as
// 0.1*30 from rounding up to an extra frame.
func FrameCount(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Ceil(duration*fps - 1e-9))
}

// FrameTime is the playback position of frame i.
func FrameTime(i int, fps float64) float64 {
	return float64(i) / fps
}

// FrameName is the zero-padded file name of frame i.
func FrameName(i int) string {
	return fmt.Sprintf("frame-%06d.png", i)
}

// FramePattern is the printf pattern matching FrameName, as the encoder expects it.
const FramePattern = "frame-%06d.png"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ExportJob is the ledger record for one export.
type ExportJob struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FPS        float64   `json:"fps"`
	Duration   float64   `json:"duration"`
	FrameCount int       `json:"frameCount"`
	FramesDone int       `json:"framesDone"`
	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewExportJob creates a queued job for req.
func NewExportJob(id string, req ExportRequest) ExportJob {
	now := time.Now().UTC()
	return ExportJob{
		ID:         id,
		Status:     JobQueued,
		Width:      req.Width,
		Height:     req.Height,
		FPS:        req.FPS,
		Duration:   req.Duration,
		FrameCount: FrameCount(req.Duration, req.FPS),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
