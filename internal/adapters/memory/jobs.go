// Package memory keeps the export job ledger in process, for the CLI and for
// servers started with STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

var _ ports.ExportRepository = (*Jobs)(nil)

type Jobs struct {
	mu   sync.RWMutex
	jobs map[string]domain.ExportJob
}

func NewJobs() *Jobs {
	return &Jobs{jobs: map[string]domain.ExportJob{}}
}

func (j *Jobs) Create(ctx context.Context, job domain.ExportJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.jobs[job.ID]; ok {
		return fmt.Errorf("memory: export job %s already exists", job.ID)
	}
	j.jobs[job.ID] = job
	return nil
}

func (j *Jobs) GetByID(ctx context.Context, id string) (domain.ExportJob, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.jobs[id]
	if !ok {
		return domain.ExportJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (j *Jobs) UpdateProgress(ctx context.Context, id string, framesDone int) error {
	return j.update(id, func(job *domain.ExportJob) {
		job.FramesDone = framesDone
	})
}

func (j *Jobs) SetStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	return j.update(id, func(job *domain.ExportJob) {
		job.Status = status
		job.Error = errMsg
	})
}

func (j *Jobs) Complete(ctx context.Context, id string, outputPath string) error {
	return j.update(id, func(job *domain.ExportJob) {
		job.Status = domain.JobCompleted
		job.OutputPath = outputPath
		job.FramesDone = job.FrameCount
		job.Error = ""
	})
}

func (j *Jobs) update(id string, fn func(*domain.ExportJob)) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	j.jobs[id] = job
	return nil
}
