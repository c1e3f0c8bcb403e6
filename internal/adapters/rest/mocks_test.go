package rest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/ewilliams-labs/visualizer/internal/adapters/framestore"
	"github.com/ewilliams-labs/visualizer/internal/adapters/memory"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/core/services"
	"github.com/ewilliams-labs/visualizer/internal/render"
)

// --- Mocks ---

const testRate = 8000

type mockDecoder struct {
	err error
}

func (m *mockDecoder) Decode(ctx context.Context, r io.Reader) (domain.AudioSignal, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return domain.AudioSignal{}, err
	}
	if m.err != nil {
		return domain.AudioSignal{}, m.err
	}
	samples := make([]float32, 2*testRate)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/testRate))
	}
	return domain.AudioSignal{SampleRate: testRate, Samples: samples}, nil
}

// mockPainter serves both as the export capturer and the live painter.
type mockPainter struct{}

func (mockPainter) Paint(ctx context.Context, f render.Frame) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, f.Width, f.Height)), nil
}

func (p mockPainter) Capture(ctx context.Context, f render.Frame) (image.Image, error) {
	return p.Paint(ctx, f)
}

type mockEncoder struct {
	mu  sync.Mutex
	err error
	n   int
}

func (m *mockEncoder) Encode(ctx context.Context, job ports.EncodeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(job.OutputPath, []byte("fake-mp4"), 0o600)
}

// stubQueue records submitted tasks without running them.
type stubQueue struct {
	err   error
	tasks []ports.ExportTask
}

func (q *stubQueue) Submit(task ports.ExportTask) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

type fixture struct {
	exporter *services.Exporter
	editor   *services.Editor
	decoder  *mockDecoder
	encoder  *mockEncoder
	jobs     *memory.Jobs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		decoder: &mockDecoder{},
		encoder: &mockEncoder{},
		jobs:    memory.NewJobs(),
	}
	f.exporter = services.NewExporter(f.decoder, mockPainter{}, framestore.NewStorage(t.TempDir()), f.encoder, f.jobs, services.ExporterConfig{
		WorkDir:   t.TempDir(),
		OutputDir: t.TempDir(),
	})
	f.editor = services.NewEditor(f.decoder, mockPainter{}, services.EditorConfig{RefreshRate: 30, MaxSessions: 2})
	t.Cleanup(f.editor.CloseAll)
	return f
}

// multipartBody builds a form with plain fields plus an optional audio file part.
func multipartBody(t *testing.T, fields map[string]string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if audio != nil {
		part, err := mw.CreateFormFile("audio", "track.wav")
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doRequest(h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var errEncoderCrashed = errors.New("ffmpeg exited with status 1")
