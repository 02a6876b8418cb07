package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cognobserve/labeling/internal/autosave"
	"github.com/cognobserve/labeling/internal/middleware"
	"github.com/cognobserve/labeling/internal/model"
	"github.com/cognobserve/labeling/internal/renderer"
	"github.com/cognobserve/labeling/internal/review"
	"github.com/cognobserve/labeling/internal/tracking"
)

// maxBodyBytes bounds request bodies; traces posted to /v1/normalize can be large
const maxBodyBytes = 8 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	workspaces *review.Manager
	selector   *renderer.Selector
	checks     map[string]HealthCheck
}

// New creates a new Handler
func New(workspaces *review.Manager, selector *renderer.Selector, checks map[string]HealthCheck) *Handler {
	return &Handler{
		workspaces: workspaces,
		selector:   selector,
		checks:     checks,
	}
}

func (h *Handler) workspace(r *http.Request) (*review.Workspace, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return nil, false
	}
	return h.workspaces.Workspace(middleware.GetUserID(r.Context()), id), true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("failed to decode request", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps domain errors to status codes
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *tracking.APIError
	switch {
	case errors.Is(err, review.ErrNoActiveItem), errors.Is(err, autosave.ErrInactive), errors.Is(err, review.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, review.ErrUnknownSchema), errors.Is(err, autosave.ErrUnknownField), errors.Is(err, tracking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidValue):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, renderer.ErrUnknownRenderer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		slog.Warn("tracking service error", "path", r.URL.Path, "status", apiErr.StatusCode, "error", err)
		writeError(w, http.StatusBadGateway, "tracking service error")
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
