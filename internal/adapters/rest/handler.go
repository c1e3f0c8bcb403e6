package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ewilliams-labs/visualizer/internal/analysis"
	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/ports"
	"github.com/ewilliams-labs/visualizer/internal/core/services"
	"github.com/ewilliams-labs/visualizer/internal/worker"
)

const defaultMaxUpload = 200 << 20

var errInvalidBody = errors.New("invalid request body")

// Handler manages the HTTP interface for our application.
type Handler struct {
	exporter  *services.Exporter
	editor    *services.Editor
	queue     ports.ExportQueue
	maxUpload int64
	upgrader  websocket.Upgrader
	router    *http.ServeMux
}

// Option tunes a Handler.
type Option func(*Handler)

// WithMaxUpload caps multipart request bodies.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithCheckOrigin sets the websocket origin check for live previews.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Handler) { h.upgrader.CheckOrigin = fn }
}

// NewHandler initializes the HTTP adapter and sets up routes. editor and
// queue may be nil, which disables the session and async export routes.
func NewHandler(exporter *services.Exporter, editor *services.Editor, queue ports.ExportQueue, opts ...Option) *Handler {
	h := &Handler{
		exporter:  exporter,
		editor:    editor,
		queue:     queue,
		maxUpload: defaultMaxUpload,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 << 10,
		},
		router: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	// Exports
	h.router.HandleFunc("POST /video-export", h.ExportVideo)
	h.router.HandleFunc("POST /exports", h.SubmitExport)
	h.router.HandleFunc("GET /exports/{id}", h.GetExport)
	h.router.HandleFunc("GET /exports/{id}/video", h.GetExportVideo)

	// Editor sessions
	h.router.HandleFunc("POST /sessions", h.CreateSession)
	h.router.HandleFunc("DELETE /sessions/{id}", h.CloseSession)
	h.router.HandleFunc("GET /sessions/{id}/scene", h.GetScene)
	h.router.HandleFunc("PUT /sessions/{id}/scene/size", h.ResizeScene)
	h.router.HandleFunc("PUT /sessions/{id}/active", h.SetActiveLayer)
	h.router.HandleFunc("POST /sessions/{id}/layers", h.AddLayer)
	h.router.HandleFunc("POST /sessions/{id}/layers/reorder", h.ReorderLayers)
	h.router.HandleFunc("PATCH /sessions/{id}/layers/{layerID}", h.UpdateLayer)
	h.router.HandleFunc("DELETE /sessions/{id}/layers/{layerID}", h.RemoveLayer)
	h.router.HandleFunc("PUT /sessions/{id}/layers/{layerID}/visibility", h.SetLayerVisibility)
	h.router.HandleFunc("PUT /sessions/{id}/layers/{layerID}/name", h.RenameLayer)
	h.router.HandleFunc("GET /sessions/{id}/status", h.GetStatus)
	h.router.HandleFunc("POST /sessions/{id}/transport", h.Transport)
	h.router.HandleFunc("GET /sessions/{id}/live", h.Live)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.editor != nil {
		body["sessions"] = h.editor.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN rest: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// writeServiceError maps core errors onto status codes.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR rest: %s: %v", msg, err)
	}
	writeError(w, status, msg, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, domain.ErrInvalidExport),
		errors.Is(err, domain.ErrMissingAudio),
		errors.Is(err, domain.ErrInvalidAudio),
		errors.Is(err, domain.ErrUnknownLayerType),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, services.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobNotReady), errors.Is(err, analysis.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopped):
		return http.StatusServiceUnavailable
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}
