// Package completion moves a labeling item to COMPLETED once every required
// schema has an answer.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cognobserve/labeling/internal/metrics"
	"github.com/cognobserve/labeling/internal/model"
)

// ItemUpdater applies item changes in the tracking service
type ItemUpdater interface {
	UpdateItem(ctx context.Context, sessionID, itemID string, upd model.ItemUpdate) (*model.LabelingItem, error)
}

// Outcome is the result of one evaluation
type Outcome int

const (
	// Terminal means the item is COMPLETED or SKIPPED and is left alone
	Terminal Outcome = iota
	// NoRequirements means the session requires no schemas
	NoRequirements
	// Incomplete means at least one required schema is unanswered
	Incomplete
	// InFlight means a transition for the item is already pending
	InFlight
	// AlreadyCompleted means this pass already completed the item
	AlreadyCompleted
	// Completed means the transition was applied by this call
	Completed
	// Failed means the transition call failed and may be retried
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Terminal:
		return "terminal"
	case NoRequirements:
		return "no_requirements"
	case Incomplete:
		return "incomplete"
	case InFlight:
		return "in_flight"
	case AlreadyCompleted:
		return "already_completed"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Evaluator decides when an item is done. The in-flight marker is keyed by
// item ID, so a burst of saves issues at most one transition per item.
type Evaluator struct {
	api    ItemUpdater
	logger *slog.Logger

	mu        sync.Mutex
	inFlight  map[string]struct{}
	completed map[string]struct{}
}

// New creates an Evaluator
func New(api ItemUpdater, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		api:       api,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
		completed: make(map[string]struct{}),
	}
}

// AllAnswered reports whether every required schema has a non-empty value in
// working. Empty strings, lists and objects are unanswered.
func AllAnswered(required []model.LabelingSchema, working map[string]model.Assessment) bool {
	for _, s := range required {
		a, ok := working[s.Name]
		if !ok || model.IsEmptyValue(a.Value) {
			return false
		}
	}
	return true
}

// Reset forgets the completion made for itemID in the current pass. Call it
// when the reviewer switches to a different item.
func (e *Evaluator) Reset(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.completed, itemID)
}

// Evaluate transitions item to COMPLETED when all required schemas are
// answered. It returns the updated item when the transition happened.
func (e *Evaluator) Evaluate(ctx context.Context, sessionID string, item model.LabelingItem, required []model.LabelingSchema, working map[string]model.Assessment) (Outcome, *model.LabelingItem, error) {
	if item.State.IsTerminal() {
		return Terminal, nil, nil
	}
	if len(required) == 0 {
		return NoRequirements, nil, nil
	}
	if !AllAnswered(required, working) {
		return Incomplete, nil, nil
	}

	e.mu.Lock()
	if _, ok := e.completed[item.ItemID]; ok {
		e.mu.Unlock()
		return AlreadyCompleted, nil, nil
	}
	if _, ok := e.inFlight[item.ItemID]; ok {
		e.mu.Unlock()
		return InFlight, nil, nil
	}
	e.inFlight[item.ItemID] = struct{}{}
	e.mu.Unlock()

	state := model.ItemStateCompleted
	updated, err := e.api.UpdateItem(ctx, sessionID, item.ItemID, model.ItemUpdate{State: &state})

	e.mu.Lock()
	delete(e.inFlight, item.ItemID)
	if err == nil {
		e.completed[item.ItemID] = struct{}{}
	}
	e.mu.Unlock()

	if err != nil {
		metrics.ItemCompletions.WithLabelValues("error").Inc()
		e.logger.Warn("failed to complete item", "session_id", sessionID, "item_id", item.ItemID, "error", err)
		return Failed, nil, fmt.Errorf("failed to complete item %s: %w", item.ItemID, err)
	}

	metrics.ItemCompletions.WithLabelValues("ok").Inc()
	e.logger.Info("item completed", "session_id", sessionID, "item_id", item.ItemID)
	if updated == nil {
		item.State = model.ItemStateCompleted
		updated = &item
	}
	return Completed, updated, nil
}
