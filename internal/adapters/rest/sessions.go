package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
	"github.com/ewilliams-labs/visualizer/internal/core/services"
)

type sessionResponse struct {
	ID       string       `json:"id"`
	Duration float64      `json:"duration"`
	Scene    domain.Scene `json:"scene"`
}

type addLayerRequest struct {
	Type     domain.LayerType `json:"type"`
	Settings json.RawMessage  `json:"settings,omitempty"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type sizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type activeRequest struct {
	ID string `json:"id"`
}

// session resolves {id}, writing the error response when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	if h.editor == nil {
		writeError(w, http.StatusServiceUnavailable, "Live sessions are disabled", "")
		return nil, false
	}
	s, err := h.editor.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "Session not found", err)
		return nil, false
	}
	return s, true
}

// CreateSession handles POST /sessions. The multipart body carries an
// "audio" file and an optional "scene" JSON part.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.editor == nil {
		writeError(w, http.StatusServiceUnavailable, "Live sessions are disabled", "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if !errors.As(err, &maxErr) {
			err = fmt.Errorf("%w: expected multipart form: %v", domain.ErrInvalidExport, err)
		}
		writeServiceError(w, "Invalid session request", err)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("WARN rest: remove multipart temp files: %v", err)
		}
	}()

	var scene *domain.Scene
	if raw, err := formJSON(r, "scene"); err == nil {
		scene = &domain.Scene{}
		if err := json.Unmarshal(raw, scene); err != nil {
			writeServiceError(w, "Invalid scene", fmt.Errorf("%w: scene: %v", domain.ErrInvalidExport, err))
			return
		}
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeServiceError(w, "Invalid session request", fmt.Errorf("%w: audio part is required", domain.ErrMissingAudio))
		return
	}
	defer file.Close()

	s, err := h.editor.Open(r.Context(), file, scene)
	if err != nil {
		writeServiceError(w, "Failed to open session", err)
		return
	}
	w.Header().Set("Location", "/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: s.ID, Duration: s.Duration(), Scene: s.Scene()})
}

// CloseSession handles DELETE /sessions/{id}
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if h.editor == nil {
		writeError(w, http.StatusServiceUnavailable, "Live sessions are disabled", "")
		return
	}
	if err := h.editor.Close(r.PathValue("id")); err != nil {
		writeServiceError(w, "Session not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Scene())
}

func (h *Handler) ResizeScene(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req sizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	if err := s.Resize(r.Context(), req.Width, req.Height); err != nil {
		writeServiceError(w, "Failed to resize scene", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Scene())
}

func (h *Handler) SetActiveLayer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req activeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	if err := s.SetActive(r.Context(), req.ID); err != nil {
		writeServiceError(w, "Failed to select layer", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Scene())
}

// AddLayer handles POST /sessions/{id}/layers. Settings are merged over the
// type's defaults; the new layer becomes active.
func (h *Handler) AddLayer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addLayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	layer, err := s.AddLayer(r.Context(), req.Type, req.Settings)
	if err != nil {
		writeServiceError(w, "Failed to add layer", err)
		return
	}
	writeJSON(w, http.StatusCreated, layer)
}

func (h *Handler) ReorderLayers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	if err := s.Reorder(r.Context(), req.From, req.To); err != nil {
		writeServiceError(w, "Failed to reorder layers", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Scene())
}

// UpdateLayer handles PATCH with a partial settings object.
func (h *Handler) UpdateLayer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var partial json.RawMessage
	if err := decodeJSON(r, &partial); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	layer, err := s.UpdateLayer(r.Context(), r.PathValue("layerID"), partial)
	if err != nil {
		writeServiceError(w, "Failed to update layer", err)
		return
	}
	writeJSON(w, http.StatusOK, layer)
}

func (h *Handler) RemoveLayer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveLayer(r.Context(), r.PathValue("layerID")); err != nil {
		writeServiceError(w, "Failed to remove layer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetLayerVisibility(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	if err := s.SetVisibility(r.Context(), r.PathValue("layerID"), req.Visible); err != nil {
		writeServiceError(w, "Failed to change visibility", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Scene())
}

func (h *Handler) RenameLayer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	if err := s.Rename(r.Context(), r.PathValue("layerID"), req.Name); err != nil {
		writeServiceError(w, "Failed to rename layer", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Scene())
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Status())
}

// Transport handles POST /sessions/{id}/transport with a TransportCommand body.
func (h *Handler) Transport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var cmd services.TransportCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeServiceError(w, "Invalid JSON body", err)
		return
	}
	status, err := s.Transport(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, "Transport command failed", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
