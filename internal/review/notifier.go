package review

import (
	"context"
	"errors"

	"github.com/cognobserve/labeling/internal/model"
)

// Notifier is told about persisted judgments. Failures are logged by the
// workspace and never reach the reviewer.
type Notifier interface {
	AssessmentSaved(ctx context.Context, event model.AssessmentEvent) error
	ItemChanged(ctx context.Context, event model.ItemEvent) error
}

// Notifiers fans events out to every notifier
type Notifiers []Notifier

func (ns Notifiers) AssessmentSaved(ctx context.Context, event model.AssessmentEvent) error {
	var errs []error
	for _, n := range ns {
		if err := n.AssessmentSaved(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ns Notifiers) ItemChanged(ctx context.Context, event model.ItemEvent) error {
	var errs []error
	for _, n := range ns {
		if err := n.ItemChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
