package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/visualizer/internal/analysis"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/driver"
)

// ExporterConfig holds the directories and scene defaults of the export pipeline.
type ExporterConfig struct {
	// WorkDir holds spooled uploads while an export runs.
	WorkDir string
	// OutputDir holds finished videos.
	OutputDir string
	// Background fills scenes that do not set their own.
	Background string
}

// Exporter renders a scene against an audio track into an MP4: decode, step
// the analysis cursor frame by frame, capture stills, then encode.
type Exporter struct {
	decoder  ports.AudioDecoder
	capturer ports.FrameCapturer
	frames   ports.FrameStorage
	encoder  ports.Encoder
	jobs     ports.ExportRepository
	cfg      ExporterConfig
	newID    func() string
}

var _ ports.ExportRunner = (*Exporter)(nil)

// NewExporter constructs an Exporter.
func NewExporter(decoder ports.AudioDecoder, capturer ports.FrameCapturer, frames ports.FrameStorage, encoder ports.Encoder, jobs ports.ExportRepository, cfg ExporterConfig) *Exporter {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.WorkDir
	}
	return &Exporter{
		decoder:  decoder,
		capturer: capturer,
		frames:   frames,
		encoder:  encoder,
		jobs:     jobs,
		cfg:      cfg,
		newID:    uuid.NewString,
	}
}

// Video is a finished export. Closing it releases the file.
type Video struct {
	io.ReadCloser
	JobID string
	Size  int64
}

// Export runs the whole pipeline synchronously and returns the video. The
// file is removed once the returned Video is closed; no partial video is ever
// returned.
func (e *Exporter) Export(ctx context.Context, req domain.ExportRequest, audio io.Reader) (*Video, error) {
	task, err := e.Prepare(ctx, req, audio)
	if err != nil {
		return nil, err
	}
	if err := e.RunTask(ctx, task); err != nil {
		return nil, err
	}

	job, err := e.Job(ctx, task.JobID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(job.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("exporter: open video: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("exporter: stat video: %w", err)
	}
	return &Video{ReadCloser: &removeOnClose{File: f}, JobID: task.JobID, Size: info.Size()}, nil
}

// Prepare validates req, spools audio into the work directory and records a
// queued job. The returned task is ready for RunTask or a queue.
func (e *Exporter) Prepare(ctx context.Context, req domain.ExportRequest, audio io.Reader) (ports.ExportTask, error) {
	if err := req.Validate(); err != nil {
		return ports.ExportTask{}, fmt.Errorf("exporter: %w", err)
	}
	for _, l := range req.Layers {
		if !l.Type.Valid() {
			return ports.ExportTask{}, fmt.Errorf("exporter: layer %q: %w", l.ID, domain.ErrUnknownLayerType)
		}
	}
	layers, err := domain.AssignLayerIDs(req.Layers)
	if err != nil {
		return ports.ExportTask{}, fmt.Errorf("exporter: %w", err)
	}
	req.Layers = layers
	if audio == nil {
		return ports.ExportTask{}, fmt.Errorf("exporter: %w", domain.ErrMissingAudio)
	}

	id := e.newID()
	audioPath, err := e.spool(id, audio)
	if err != nil {
		return ports.ExportTask{}, err
	}
	task := ports.ExportTask{JobID: id, Request: req, AudioPath: audioPath}

	job := domain.NewExportJob(id, req)
	if err := e.jobs.Create(ctx, job); err != nil {
		e.cleanup(task)
		return ports.ExportTask{}, fmt.Errorf("exporter: record job: %w", err)
	}
	return task, nil
}

func (e *Exporter) spool(id string, audio io.Reader) (string, error) {
	dir := filepath.Join(e.cfg.WorkDir, "export-"+id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("exporter: create work dir: %w", err)
	}
	path := filepath.Join(dir, "audio")
	f, err := os.Create(path) // #nosec G304 -- path built from a generated id
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("exporter: spool audio: %w", err)
	}
	n, copyErr := io.Copy(f, audio)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("exporter: spool audio: %w", err)
	}
	if n == 0 {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("exporter: %w", domain.ErrMissingAudio)
	}
	return path, nil
}

// RunTask renders and encodes task, keeping the ledger current. Failures mark
// the job failed and come back as one joined error.
func (e *Exporter) RunTask(ctx context.Context, task ports.ExportTask) error {
	defer e.cleanup(task)

	if err := e.jobs.SetStatus(ctx, task.JobID, domain.JobRunning, ""); err != nil {
		log.Printf("WARN exporter: mark %s running: %v", task.JobID, err)
	}

	out, err := e.render(ctx, task)
	if err != nil {
		runErr := fmt.Errorf("exporter: export %s: %w", task.JobID, err)
		// The ledger update must survive a canceled request.
		if markErr := e.jobs.SetStatus(context.WithoutCancel(ctx), task.JobID, domain.JobFailed, err.Error()); markErr != nil {
			return errors.Join(runErr, fmt.Errorf("exporter: mark %s failed: %w", task.JobID, markErr))
		}
		return runErr
	}

	if err := e.jobs.Complete(context.WithoutCancel(ctx), task.JobID, out); err != nil {
		return fmt.Errorf("exporter: complete %s: %w", task.JobID, err)
	}
	return nil
}

// Abandon marks a prepared task failed without running it, e.g. when the
// queue rejected it.
func (e *Exporter) Abandon(ctx context.Context, task ports.ExportTask, reason error) {
	defer e.cleanup(task)
	if err := e.jobs.SetStatus(context.WithoutCancel(ctx), task.JobID, domain.JobFailed, reason.Error()); err != nil {
		log.Printf("WARN exporter: abandon %s: %v", task.JobID, err)
	}
}

func (e *Exporter) render(ctx context.Context, task ports.ExportTask) (string, error) {
	req := task.Request

	f, err := os.Open(task.AudioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	signal, err := e.decoder.Decode(ctx, f)
	if closeErr := f.Close(); closeErr != nil {
		log.Printf("WARN exporter: close audio: %v", closeErr)
	}
	if err != nil {
		return "", err
	}

	session, err := analysis.NewSession(signal)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("WARN exporter: close session: %v", err)
		}
	}()

	store, err := e.frames.Open(ctx, task.JobID)
	if err != nil {
		return "", fmt.Errorf("open frame store: %w", err)
	}

	scene := req.Scene()
	if scene.Background == "" {
		scene.Background = e.cfg.Background
	}

	total := domain.FrameCount(req.Duration, req.FPS)
	progress := e.progress(ctx, task.JobID, total)
	n, err := driver.NewExport(session, e.capturer, progress).Run(ctx, scene, req.Duration, req.FPS, store)
	if err != nil {
		return "", err
	}
	// The driver only discards on failure; from here on the frames are ours.
	defer func() {
		if err := store.Discard(); err != nil {
			log.Printf("WARN exporter: discard frames of %s: %v", task.JobID, err)
		}
	}()
	log.Printf("exporter: %s captured %d frames", task.JobID, n)

	if err := os.MkdirAll(e.cfg.OutputDir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(e.cfg.OutputDir, task.JobID+".mp4")
	err = e.encoder.Encode(ctx, ports.EncodeJob{
		FramesDir:    store.Dir(),
		FramePattern: store.Pattern(),
		AudioPath:    task.AudioPath,
		FPS:          req.FPS,
		Width:        req.Width,
		Height:       req.Height,
		OutputPath:   out,
	})
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return out, nil
}

// progress records frames done, at most once per whole percent.
func (e *Exporter) progress(ctx context.Context, id string, total int) driver.ProgressFunc {
	step := max(total/100, 1)
	return func(done, _ int) {
		if done%step != 0 && done != total {
			return
		}
		if err := e.jobs.UpdateProgress(ctx, id, done); err != nil {
			log.Printf("WARN exporter: progress %s: %v", id, err)
		}
	}
}

func (e *Exporter) cleanup(task ports.ExportTask) {
	if task.AudioPath == "" {
		return
	}
	if err := os.RemoveAll(filepath.Dir(task.AudioPath)); err != nil {
		log.Printf("WARN exporter: remove work dir of %s: %v", task.JobID, err)
	}
}

// Job returns the ledger record of an export.
func (e *Exporter) Job(ctx context.Context, id string) (domain.ExportJob, error) {
	job, err := e.jobs.GetByID(ctx, id)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("exporter: job %s: %w", id, err)
	}
	return job, nil
}

// OpenVideo opens the video of a completed export. The file stays on disk.
func (e *Exporter) OpenVideo(ctx context.Context, id string) (*Video, error) {
	job, err := e.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case domain.JobCompleted:
	case domain.JobFailed:
		return nil, fmt.Errorf("exporter: job %s failed: %s: %w", id, job.Error, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("exporter: job %s is %s: %w", id, job.Status, domain.ErrJobNotReady)
	}
	f, err := os.Open(job.OutputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("exporter: video of %s is gone: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("exporter: open video: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("exporter: stat video: %w", err)
	}
	return &Video{ReadCloser: f, JobID: id, Size: info.Size()}, nil
}

type removeOnClose struct {
	*os.File
}

func (r *removeOnClose) Close() error {
	err := r.File.Close()
	if rmErr := os.Remove(r.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		log.Printf("WARN exporter: remove %s: %v", r.Name(), rmErr)
	}
	return err
}
