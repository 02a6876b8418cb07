package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type FieldChangeRequest struct {
	Value     any    `json:"value"`
	Rationale string `json:"rationale,omitempty"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

// OpenItem handles POST /v1/sessions/{sessionID}/items/{itemID}/open
func (h *Handler) OpenItem(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	snap, err := ws.Open(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetWorkspace handles GET /v1/workspace
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	snap, err := ws.View()
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ChangeField handles PUT /v1/workspace/assessments/{schema}. The edit is
// applied locally and saved after the debounce window.
func (h *Handler) ChangeField(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req FieldChangeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := ws.OnFieldChange(chi.URLParam(r, "schema"), req.Value, req.Rationale); err != nil {
		writeFailure(w, r, err)
		return
	}
	snap, err := ws.View()
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// RetryField handles POST /v1/workspace/assessments/{schema}/retry
func (h *Handler) RetryField(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := ws.Retry(chi.URLParam(r, "schema")); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.SaveStatus())
}

// SkipItem handles POST /v1/workspace/skip
func (h *Handler) SkipItem(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	item, err := ws.Skip(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SetComment handles PUT /v1/workspace/comment
func (h *Handler) SetComment(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req CommentRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := ws.SetComment(r.Context(), req.Comment)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SaveStatus handles GET /v1/workspace/save-status
func (h *Handler) SaveStatus(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, ws.SaveStatus())
}
