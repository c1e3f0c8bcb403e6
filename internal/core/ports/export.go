package ports

import (
	"context"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// ExportTask is one accepted export: the validated request plus the audio
// spooled to disk.
type ExportTask struct {
	JobID     string
	Request   domain.ExportRequest
	AudioPath string
}

// ExportRunner renders and encodes a task to completion.
type ExportRunner interface {
	RunTask(ctx context.Context, task ExportTask) error
}

// ExportQueue accepts tasks for background processing.
type ExportQueue interface {
	Submit(task ExportTask) error
}
