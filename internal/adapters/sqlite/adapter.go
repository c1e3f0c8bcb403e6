// Package sqlite provides a SQLite-backed implementation of the export job ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
)

var _ ports.ExportRepository = (*Adapter)(nil)

// Adapter implements the export repository port for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) Create(ctx context.Context, job domain.ExportJob) error {
	query := `
		INSERT INTO export_jobs (
			id, status, width, height, fps, duration, frame_count, frames_done,
			error, output_path, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := a.db.ExecContext(
		ctx,
		query,
		job.ID,
		string(job.Status),
		job.Width,
		job.Height,
		job.FPS,
		job.Duration,
		job.FrameCount,
		job.FramesDone,
		job.Error,
		job.OutputPath,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: create export job %s: %w", job.ID, err)
	}
	return nil
}

func (a *Adapter) GetByID(ctx context.Context, id string) (domain.ExportJob, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, status, width, height, fps, duration, frame_count, frames_done,
			IFNULL(error, ''), IFNULL(output_path, ''), created_at, updated_at
		FROM export_jobs
		WHERE id = ?
	`, id)

	var job domain.ExportJob
	var status string
	if err := row.Scan(
		&job.ID,
		&status,
		&job.Width,
		&job.Height,
		&job.FPS,
		&job.Duration,
		&job.FrameCount,
		&job.FramesDone,
		&job.Error,
		&job.OutputPath,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExportJob{}, domain.ErrNotFound
		}
		return domain.ExportJob{}, fmt.Errorf("sqlite: load export job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	return job, nil
}

func (a *Adapter) UpdateProgress(ctx context.Context, id string, framesDone int) error {
	return a.update(ctx, id, "frames_done = ?", framesDone)
}

func (a *Adapter) SetStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	return a.update(ctx, id, "status = ?, error = ?", string(status), errMsg)
}

func (a *Adapter) Complete(ctx context.Context, id string, outputPath string) error {
	return a.update(ctx, id, "status = ?, output_path = ?, frames_done = frame_count, error = ''", string(domain.JobCompleted), outputPath)
}

func (a *Adapter) update(ctx context.Context, id string, set string, args ...any) error {
	args = append(args, time.Now().UTC(), id)
	res, err := a.db.ExecContext(ctx, "UPDATE export_jobs SET "+set+", updated_at = ? WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("sqlite: update export job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update export job %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS export_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		fps REAL NOT NULL,
		duration REAL NOT NULL,
		frame_count INTEGER NOT NULL,
		frames_done INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_export_jobs_status ON export_jobs(status);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first release.
	for _, stmt := range []string{
		"ALTER TABLE export_jobs ADD COLUMN error TEXT",
		"ALTER TABLE export_jobs ADD COLUMN output_path TEXT",
	} {
		if _, err := a.db.Exec(stmt); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
