package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/visualizer/internal/core/domain"
)

const (
	multipartMemory = 32 << 20
	videoFilename   = "visualization.mp4"
)

type submitExportResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ExportVideo handles POST /video-export: render synchronously and stream
// the MP4 back as an attachment.
func (h *Handler) ExportVideo(w http.ResponseWriter, r *http.Request) {
	req, audio, cleanup, err := h.parseExportUpload(w, r)
	if err != nil {
		writeServiceError(w, "Invalid export request", err)
		return
	}
	defer cleanup()

	video, err := h.exporter.Export(r.Context(), req, audio)
	if err != nil {
		writeServiceError(w, "Failed to export video", err)
		return
	}
	defer video.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", videoFilename))
	w.Header().Set("Content-Length", strconv.FormatInt(video.Size, 10))
	w.Header().Set("X-Export-Id", video.JobID)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, video); err != nil {
		log.Printf("WARN rest: stream video %s: %v", video.JobID, err)
	}
}

// SubmitExport handles POST /exports: accept the upload and render it in the background.
func (h *Handler) SubmitExport(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Background exports are disabled", "")
		return
	}
	req, audio, cleanup, err := h.parseExportUpload(w, r)
	if err != nil {
		writeServiceError(w, "Invalid export request", err)
		return
	}
	defer cleanup()

	task, err := h.exporter.Prepare(r.Context(), req, audio)
	if err != nil {
		writeServiceError(w, "Failed to accept export", err)
		return
	}
	if err := h.queue.Submit(task); err != nil {
		h.exporter.Abandon(r.Context(), task, err)
		writeServiceError(w, "Failed to queue export", err)
		return
	}

	w.Header().Set("Location", "/exports/"+task.JobID)
	writeJSON(w, http.StatusAccepted, submitExportResponse{ID: task.JobID, URL: "/exports/" + task.JobID})
}

// GetExport handles GET /exports/{id}
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	job, err := h.exporter.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "Failed to load export", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetExportVideo handles GET /exports/{id}/video
func (h *Handler) GetExportVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.exporter.OpenVideo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "Video not available", err)
		return
	}
	defer video.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", videoFilename))
	w.Header().Set("Content-Length", strconv.FormatInt(video.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, video); err != nil {
		log.Printf("WARN rest: stream video %s: %v", video.JobID, err)
	}
}

// parseExportUpload reads the multipart "data" JSON and "audio" file parts.
// The returned cleanup removes any temp files the multipart reader created.
func (h *Handler) parseExportUpload(w http.ResponseWriter, r *http.Request) (domain.ExportRequest, io.Reader, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ExportRequest{}, nil, noop, err
		}
		return domain.ExportRequest{}, nil, noop, fmt.Errorf("%w: expected multipart form: %v", domain.ErrInvalidExport, err)
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("WARN rest: remove multipart temp files: %v", err)
		}
	}

	raw, err := formJSON(r, "data")
	if err != nil {
		cleanup()
		return domain.ExportRequest{}, nil, noop, err
	}
	var req domain.ExportRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cleanup()
		return domain.ExportRequest{}, nil, noop, fmt.Errorf("%w: data: %v", domain.ErrInvalidExport, err)
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		cleanup()
		return domain.ExportRequest{}, nil, noop, fmt.Errorf("%w: audio part is required", domain.ErrMissingAudio)
	}
	return req, file, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

// formJSON returns a JSON part sent either as a plain field or as a file.
func formJSON(r *http.Request, name string) ([]byte, error) {
	if v := r.FormValue(name); v != "" {
		return []byte(v), nil
	}
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s part is required", domain.ErrInvalidExport, name)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s part: %w", name, err)
	}
	return b, nil
}
