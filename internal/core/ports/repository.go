package ports

import (
	"context"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

// ExportRepository tracks export jobs and their progress.
type ExportRepository interface {
	Create(ctx context.Context, job domain.ExportJob) error
	GetByID(ctx context.Context, id string) (domain.ExportJob, error)
	UpdateProgress(ctx context.Context, id string, framesDone int) error
	SetStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error
	Complete(ctx context.Context, id string, outputPath string) error
}
