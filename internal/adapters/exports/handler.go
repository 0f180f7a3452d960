package exports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler serves the /v1/exports resource.
type Handler struct {
	Exports Scheduler
}

// NewHandler constructs an export HTTP handler.
func NewHandler(s Scheduler) *Handler {
	return &Handler{Exports: s}
}

// Routes mounts the export endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/exports", h.handleCreate)
	r.Get("/v1/exports/{id}", h.handleGet)
	r.Delete("/v1/exports/{id}", h.handleDelete)
	r.Get("/v1/exports/{id}/artifacts/{format}", h.handleArtifact)
}

type exportRequest struct {
	Formats     []Format `json:"formats"`
	Filter      Filter   `json:"filter"`
	RequestedBy string   `json:"requestedBy"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	record, err := h.Exports.EnqueueExport(r.Context(), Input(req))
	switch {
	case errors.Is(err, ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, ok := h.Exports.GetExport(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.Exports.DeleteExport(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrExportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrExportInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	format := Format(chi.URLParam(r, "format"))
	artifact, rc, err := h.Exports.OpenArtifact(r.Context(), chi.URLParam(r, "id"), format)
	switch {
	case errors.Is(err, ErrExportNotFound), errors.Is(err, ErrArtifactNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = rc.Close() }()
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="clients.%s"`, artifact.Format))
	if artifact.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(artifact.ETag))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
