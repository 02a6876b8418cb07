package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cognobserve/labeling/internal/config"
)

// HealthCheck reports whether an optional dependency is reachable
type HealthCheck func(ctx context.Context) bool

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health handles GET /health. Optional dependencies degrade the status but
// never fail the check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: config.Version,
	}

	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Dependencies = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if check(ctx) {
				resp.Dependencies[name] = "ok"
				continue
			}
			resp.Dependencies[name] = "unavailable"
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
