package services

import (
	"context"
	"errors"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/render"
)

// --- Mocks ---

const testRate = 8000

func toneSignal(seconds float64) domain.AudioSignal {
	samples := make([]float32, int(seconds*testRate))
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate))
	}
	return domain.AudioSignal{SampleRate: testRate, Samples: samples}
}

type mockDecoder struct {
	signal domain.AudioSignal
	err    error
	read   []byte
}

func (m *mockDecoder) Decode(ctx context.Context, r io.Reader) (domain.AudioSignal, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return domain.AudioSignal{}, err
	}
	m.read = b
	if m.err != nil {
		return domain.AudioSignal{}, m.err
	}
	return m.signal, nil
}

// mockCapturer paints a blank still of the frame size and can fail at a given frame.
type mockCapturer struct {
	failAt int
	calls  int
	last   render.Frame
}

func (m *mockCapturer) Capture(ctx context.Context, f render.Frame) (image.Image, error) {
	if m.failAt > 0 && m.calls == m.failAt {
		return nil, errors.New("renderer crashed")
	}
	m.calls++
	m.last = f
	return image.NewRGBA(image.Rect(0, 0, f.Width, f.Height)), nil
}

type mockEncoder struct {
	err        error
	jobs       []ports.EncodeJob
	framesSeen int
}

func (m *mockEncoder) Encode(ctx context.Context, job ports.EncodeJob) error {
	m.jobs = append(m.jobs, job)
	entries, err := os.ReadDir(job.FramesDir)
	if err != nil {
		return err
	}
	m.framesSeen = len(entries)
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(job.OutputPath, []byte("fake-mp4"), 0o600)
}

type mockPainter struct {
	calls atomic.Int32
}

func (m *mockPainter) Paint(ctx context.Context, f render.Frame) (*image.RGBA, error) {
	m.calls.Add(1)
	return image.NewRGBA(image.Rect(0, 0, f.Width, f.Height)), nil
}

// mockJobs is an in-memory ledger that can fail on demand.
type mockJobs struct {
	mu        sync.Mutex
	jobs      map[string]domain.ExportJob
	createErr error
	statusErr error
	progress  []int
}

func newMockJobs() *mockJobs {
	return &mockJobs{jobs: map[string]domain.ExportJob{}}
}

func (m *mockJobs) Create(ctx context.Context, job domain.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobs) GetByID(ctx context.Context, id string) (domain.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ExportJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (m *mockJobs) UpdateProgress(ctx context.Context, id string, framesDone int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	job.FramesDone = framesDone
	m.jobs[id] = job
	m.progress = append(m.progress, framesDone)
	return nil
}

func (m *mockJobs) SetStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil && status == domain.JobFailed {
		return m.statusErr
	}
	job := m.jobs[id]
	job.Status = status
	job.Error = errMsg
	m.jobs[id] = job
	return nil
}

func (m *mockJobs) Complete(ctx context.Context, id string, outputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	job.Status = domain.JobCompleted
	job.OutputPath = outputPath
	job.FramesDone = job.FrameCount
	m.jobs[id] = job
	return nil
}

// workDirEntries lists what the exporter left behind in dir.
func workDirEntries(dir string) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, "export-*"))
	return matches
}
