package handler

import (
	"net/http"

	"github.com/cognobserve/labeling/internal/assessment"
	"github.com/cognobserve/labeling/internal/model"
	"github.com/cognobserve/labeling/internal/normalize"
	"github.com/cognobserve/labeling/internal/renderer"
)

type NormalizeResponse struct {
	Conversation model.Conversation `json:"conversation"`
	View         renderer.View      `json:"view"`
}

// Normalize handles POST /v1/normalize?renderer=. The body is a trace; unknown
// renderer tags fall back to the default.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var trace model.Trace
	if !decode(w, r, &trace) {
		return
	}

	conv := normalize.NormalizeTrace(trace)
	strategy := h.selector.Registry().Resolve(r.URL.Query().Get("renderer"))

	writeJSON(w, http.StatusOK, NormalizeResponse{
		Conversation: conv,
		View:         strategy.Render(trace, conv),
	})
}

type MatchRequest struct {
	Schemas     []model.LabelingSchema `json:"schemas"`
	Assessments []model.Assessment     `json:"assessments"`
	User        *assessment.Identity   `json:"user,omitempty"`
}

type MatchResponse struct {
	Rows    []assessment.Row            `json:"rows"`
	Working map[string]model.Assessment `json:"working"`
}

// Match handles POST /v1/match
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decode(w, r, &req) {
		return
	}
	for _, s := range req.Schemas {
		if err := s.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rows := assessment.Match(req.Schemas, req.Assessments, req.User)
	writeJSON(w, http.StatusOK, MatchResponse{
		Rows:    rows,
		Working: assessment.WorkingSet(rows),
	})
}
