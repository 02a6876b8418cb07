package renderer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognobserve/labeling/internal/metrics"
)

// Selector resolves and records the renderer chosen for a run
type Selector struct {
	registry *Registry
	store    TagStore
	logger   *slog.Logger
}

// NewSelector creates a Selector. A nil store always yields the default.
func NewSelector(registry *Registry, store TagStore, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{registry: registry, store: store, logger: logger}
}

func (s *Selector) Registry() *Registry {
	return s.registry
}

// ForRun returns the strategy tagged on runID. Missing runs, missing tags,
// unknown tags and store errors all resolve to the default.
func (s *Selector) ForRun(ctx context.Context, runID string) Strategy {
	if runID == "" || s.store == nil {
		metrics.RendererResolutions.WithLabelValues("default").Inc()
		return s.registry.Default()
	}

	tag, err := s.store.GetRunTag(ctx, runID, TagKey)
	if err != nil {
		metrics.RendererResolutions.WithLabelValues("error").Inc()
		s.logger.Warn("failed to read renderer tag", "run_id", runID, "error", err)
		return s.registry.Default()
	}

	strategy, ok := s.registry.Lookup(tag)
	if !ok {
		metrics.RendererResolutions.WithLabelValues("default").Inc()
		if tag != "" {
			s.logger.Debug("unregistered renderer tag", "run_id", runID, "tag", tag)
		}
		return s.registry.Default()
	}
	metrics.RendererResolutions.WithLabelValues("tagged").Inc()
	return strategy
}

// Select records tag as the renderer for runID
func (s *Selector) Select(ctx context.Context, runID, tag string) (Strategy, error) {
	strategy, ok := s.registry.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, tag)
	}
	if s.store == nil {
		return nil, fmt.Errorf("no tag store configured")
	}
	if err := s.store.SetRunTag(ctx, runID, TagKey, tag); err != nil {
		return nil, fmt.Errorf("failed to set renderer for run %s: %w", runID, err)
	}
	s.logger.Info("renderer selected", "run_id", runID, "tag", tag)
	return strategy, nil
}
