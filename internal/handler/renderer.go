package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RenderersResponse struct {
	Renderers []string `json:"renderers"`
	Default   string   `json:"default"`
}

// ListRenderers handles GET /v1/renderers
func (h *Handler) ListRenderers(w http.ResponseWriter, r *http.Request) {
	reg := h.selector.Registry()
	writeJSON(w, http.StatusOK, RenderersResponse{
		Renderers: reg.Names(),
		Default:   reg.Default().Name(),
	})
}

type ResolveResponse struct {
	Tag      string `json:"tag"`
	Renderer string `json:"renderer"`
}

// ResolveRenderer handles GET /v1/renderers/resolve?tag=
func (h *Handler) ResolveRenderer(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	writeJSON(w, http.StatusOK, ResolveResponse{
		Tag:      tag,
		Renderer: h.selector.Registry().Resolve(tag).Name(),
	})
}

type RunRendererResponse struct {
	RunID    string `json:"run_id"`
	Renderer string `json:"renderer"`
}

type RunRendererRequest struct {
	Renderer string `json:"renderer"`
}

// GetRunRenderer handles GET /v1/runs/{runID}/renderer
func (h *Handler) GetRunRenderer(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	writeJSON(w, http.StatusOK, RunRendererResponse{
		RunID:    runID,
		Renderer: h.selector.ForRun(r.Context(), runID).Name(),
	})
}

// SetRunRenderer handles PUT /v1/runs/{runID}/renderer
func (h *Handler) SetRunRenderer(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	var req RunRendererRequest
	if !decode(w, r, &req) {
		return
	}

	strategy, err := h.selector.Select(r.Context(), runID, req.Renderer)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RunRendererResponse{RunID: runID, Renderer: strategy.Name()})
}
