// Package review drives one reviewer through labeling items: it loads an
// item's trace, reconciles the reviewer's assessments, autosaves edits and
// completes the item once every required schema is answered.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cognobserve/labeling/internal/assessment"
	"github.com/cognobserve/labeling/internal/autosave"
	"github.com/cognobserve/labeling/internal/completion"
	"github.com/cognobserve/labeling/internal/metrics"
	"github.com/cognobserve/labeling/internal/model"
	"github.com/cognobserve/labeling/internal/normalize"
	"github.com/cognobserve/labeling/internal/renderer"
)

var (
	// ErrNoActiveItem is returned by operations that need an open item
	ErrNoActiveItem = errors.New("no active labeling item")

	// ErrUnknownSchema is returned when editing a schema the session does not require
	ErrUnknownSchema = errors.New("schema not part of labeling session")

	// ErrSuperseded is returned by Open when a later Open replaced it
	ErrSuperseded = errors.New("superseded by a later open")
)

const (
	DefaultItemTimeout = 10 * time.Second
	DefaultIdleTimeout = 30 * time.Minute

	notifyTimeout = 5 * time.Second
)

// API is the subset of the tracking service a workspace needs
type API interface {
	autosave.API
	completion.ItemUpdater
	GetTrace(ctx context.Context, traceID string) (*model.Trace, error)
	GetSession(ctx context.Context, sessionID string) (*model.LabelingSession, error)
	GetItem(ctx context.Context, sessionID, itemID string) (*model.LabelingItem, error)
	ListSchemas(ctx context.Context) ([]model.LabelingSchema, error)
}

// Options configures a Workspace
type Options struct {
	Delay     time.Duration
	Scheduler autosave.Scheduler
	Selector  *renderer.Selector
	Notifier  Notifier
	Logger    *slog.Logger

	// ItemTimeout bounds the item update that completes a reviewed item
	ItemTimeout time.Duration
	// IdleTimeout is how long a Manager keeps an unused workspace
	IdleTimeout time.Duration
}

// Field is a required schema with its reconciled assessment and local edit state
type Field struct {
	Schema     model.LabelingSchema `json:"schema"`
	Assessment *model.Assessment    `json:"assessment,omitempty"`
	Local      autosave.FieldState  `json:"local"`
	Pending    bool                 `json:"pending"`
}

// Snapshot is a point-in-time view of the open item
type Snapshot struct {
	SessionID    string                  `json:"session_id"`
	Item         model.LabelingItem      `json:"item"`
	TraceID      string                  `json:"trace_id"`
	Conversation model.Conversation      `json:"conversation"`
	Fields       []Field                 `json:"fields"`
	View         renderer.View           `json:"view"`
	SaveStatus   autosave.StatusSnapshot `json:"save_status"`
}

type openItem struct {
	seq         uint64
	session     model.LabelingSession
	item        model.LabelingItem
	required    []model.LabelingSchema
	trace       model.Trace
	assessments []model.Assessment
	rows        []assessment.Row
	working     map[string]model.Assessment
	conv        model.Conversation
	strategy    renderer.Strategy
}

// Workspace is the review state of one reviewer
type Workspace struct {
	api      API
	identity assessment.Identity
	ctrl     *autosave.Controller
	eval     *completion.Evaluator
	selector *renderer.Selector
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration

	mu   sync.Mutex
	seq  uint64
	open *openItem
}

// NewWorkspace creates a workspace acting as identity
func NewWorkspace(api API, identity assessment.Identity, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("reviewer", identity.Primary())

	w := &Workspace{
		api:      api,
		identity: identity,
		eval:     completion.New(api, logger),
		selector: opts.Selector,
		notifier: opts.Notifier,
		logger:   logger,
		timeout:  opts.ItemTimeout,
	}
	if w.timeout <= 0 {
		w.timeout = DefaultItemTimeout
	}
	if w.selector == nil {
		w.selector = renderer.NewSelector(renderer.Builtin(), nil, logger)
	}
	w.ctrl = autosave.New(api, autosave.Options{
		Delay:     opts.Delay,
		Scheduler: opts.Scheduler,
		Logger:    logger,
		OnSaved:   w.onSaved,
	})
	return w
}

// Identity returns the reviewer the workspace acts as
func (w *Workspace) Identity() assessment.Identity {
	return w.identity
}

// Open loads an item and makes it the active one. Pending saves for the
// previous item are cancelled first.
func (w *Workspace) Open(ctx context.Context, sessionID, itemID string) (Snapshot, error) {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	prev := w.open
	w.open = nil
	w.ctrl.Close()
	w.mu.Unlock()

	if prev != nil {
		w.eval.Reset(prev.item.ItemID)
	}
	w.eval.Reset(itemID)

	loaded, err := w.load(ctx, sessionID, itemID)
	if err != nil {
		return Snapshot{}, err
	}
	loaded.seq = seq

	w.mu.Lock()
	if seq != w.seq {
		w.mu.Unlock()
		w.logger.Info("discarding superseded open", "session_id", sessionID, "item_id", itemID)
		return Snapshot{}, ErrSuperseded
	}
	w.open = loaded
	w.ctrl.Activate(loaded.trace.TraceID, model.HumanSource(w.identity.Primary()), loaded.rows)
	w.mu.Unlock()

	w.logger.Info("item opened", "session_id", sessionID, "item_id", itemID, "trace_id", loaded.trace.TraceID)
	w.evaluate(ctx)
	return w.View()
}

func (w *Workspace) load(ctx context.Context, sessionID, itemID string) (*openItem, error) {
	session, err := w.api.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	catalogue, err := w.api.ListSchemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	item, err := w.api.GetItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	trace, err := w.api.GetTrace(ctx, item.Source.TraceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}

	required := w.requiredSchemas(session.SchemaNames, catalogue)
	rows := assessment.Match(required, trace.Assessments, &w.identity)

	return &openItem{
		session:     *session,
		item:        *item,
		required:    required,
		trace:       *trace,
		assessments: trace.Assessments,
		rows:        rows,
		working:     assessment.WorkingSet(rows),
		conv:        normalize.NormalizeTrace(*trace),
		strategy:    w.selector.ForRun(ctx, session.RunID),
	}, nil
}

func (w *Workspace) requiredSchemas(names []string, catalogue []model.LabelingSchema) []model.LabelingSchema {
	byName := make(map[string]model.LabelingSchema, len(catalogue))
	for _, s := range catalogue {
		byName[s.Name] = s
	}
	out := make([]model.LabelingSchema, 0, len(names))
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			w.logger.Warn("session references unknown schema", "schema", name)
			continue
		}
		if err := s.Validate(); err != nil {
			w.logger.Warn("skipping invalid schema", "schema", name, "error", err)
			continue
		}
		out = append(out, s)
	}
	return out
}

// OnFieldChange records a reviewer edit. The value is checked against the
// schema and saved after the debounce window.
func (w *Workspace) OnFieldChange(schemaName string, value any, rationale string) error {
	w.mu.Lock()
	if w.open == nil {
		w.mu.Unlock()
		return ErrNoActiveItem
	}
	schema, ok := findSchema(w.open.required, schemaName)
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schemaName)
	}
	if err := schema.CheckValue(value); err != nil {
		w.mu.Unlock()
		return err
	}
	err := w.ctrl.OnFieldChange(schema, value, rationale)
	w.mu.Unlock()
	return err
}

// Retry saves a field now, typically after a failed save
func (w *Workspace) Retry(schemaName string) error {
	w.mu.Lock()
	if w.open == nil {
		w.mu.Unlock()
		return ErrNoActiveItem
	}
	if _, ok := findSchema(w.open.required, schemaName); !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schemaName)
	}
	w.mu.Unlock()
	return w.ctrl.Flush(schemaName)
}

func (w *Workspace) onSaved(res autosave.SaveResult) {
	w.mu.Lock()
	open := w.open
	if open == nil || open.trace.TraceID != res.TraceID {
		w.mu.Unlock()
		metrics.StaleSavesDiscarded.Inc()
		w.logger.Info("discarding save for inactive trace", "trace_id", res.TraceID)
		return
	}

	open.assessments = upsert(open.assessments, res.Assessment)
	open.rows = assessment.Match(open.required, open.assessments, &w.identity)
	open.working = assessment.WorkingSet(open.rows)
	event := model.AssessmentEvent{
		ID:         uuid.NewString(),
		SessionID:  open.session.SessionID,
		ItemID:     open.item.ItemID,
		TraceID:    res.TraceID,
		Assessment: res.Assessment,
		Created:    res.Created,
		Timestamp:  time.Now().UTC(),
	}
	w.mu.Unlock()

	notifyCtx, cancelNotify := context.WithTimeout(context.Background(), notifyTimeout)
	w.notifyAssessment(notifyCtx, event)
	cancelNotify()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	w.evaluate(ctx)
}

// upsert replaces the assessment with the same ID or appends it
func upsert(all []model.Assessment, a model.Assessment) []model.Assessment {
	out := make([]model.Assessment, 0, len(all)+1)
	replaced := false
	for _, cur := range all {
		if a.AssessmentID != "" && cur.AssessmentID == a.AssessmentID {
			out = append(out, a)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, a)
	}
	return out
}

// evaluate runs the completion check for the open item
func (w *Workspace) evaluate(ctx context.Context) {
	w.mu.Lock()
	open := w.open
	if open == nil {
		w.mu.Unlock()
		return
	}
	seq := open.seq
	sessionID := open.session.SessionID
	item := open.item
	required := open.required
	working := open.working
	w.mu.Unlock()

	outcome, updated, err := w.eval.Evaluate(ctx, sessionID, item, required, working)
	if err != nil || outcome != completion.Completed {
		return
	}
	w.applyItem(ctx, seq, *updated)
}

// applyItem stores an updated item if it is still the open one and publishes
// the change
func (w *Workspace) applyItem(ctx context.Context, seq uint64, item model.LabelingItem) {
	w.mu.Lock()
	open := w.open
	if open == nil || open.seq != seq || open.item.ItemID != item.ItemID {
		w.mu.Unlock()
		return
	}
	open.item = item
	event := model.ItemEvent{
		ID:        uuid.NewString(),
		SessionID: open.session.SessionID,
		ItemID:    item.ItemID,
		TraceID:   open.trace.TraceID,
		State:     item.State,
		Comment:   item.Comment,
		Reviewer:  w.identity.Primary(),
		Timestamp: time.Now().UTC(),
	}
	w.mu.Unlock()

	w.notifyItem(ctx, event)
}

// Skip marks the open item SKIPPED
func (w *Workspace) Skip(ctx context.Context) (model.LabelingItem, error) {
	state := model.ItemStateSkipped
	return w.updateItem(ctx, model.ItemUpdate{State: &state})
}

// SetComment replaces the open item's comment
func (w *Workspace) SetComment(ctx context.Context, comment string) (model.LabelingItem, error) {
	return w.updateItem(ctx, model.ItemUpdate{Comment: &comment})
}

func (w *Workspace) updateItem(ctx context.Context, upd model.ItemUpdate) (model.LabelingItem, error) {
	w.mu.Lock()
	open := w.open
	if open == nil {
		w.mu.Unlock()
		return model.LabelingItem{}, ErrNoActiveItem
	}
	seq, sessionID, itemID := open.seq, open.session.SessionID, open.item.ItemID
	w.mu.Unlock()

	updated, err := w.api.UpdateItem(ctx, sessionID, itemID, upd)
	if err != nil {
		return model.LabelingItem{}, fmt.Errorf("failed to update item %s: %w", itemID, err)
	}
	w.logger.Info("item updated", "session_id", sessionID, "item_id", itemID, "mask", upd.UpdateMask())
	w.applyItem(ctx, seq, *updated)
	return *updated, nil
}

// View returns a snapshot of the open item rendered with the run's renderer
func (w *Workspace) View() (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	open := w.open
	if open == nil {
		return Snapshot{}, ErrNoActiveItem
	}

	fields := make([]Field, 0, len(open.rows))
	for _, row := range open.rows {
		f := Field{Schema: row.Schema, Assessment: row.Assessment}
		if local, ok := w.ctrl.Field(row.Schema.Name); ok {
			f.Local = local
		}
		f.Pending = w.ctrl.Pending(row.Schema.Name)
		fields = append(fields, f)
	}

	return Snapshot{
		SessionID:    open.session.SessionID,
		Item:         open.item,
		TraceID:      open.trace.TraceID,
		Conversation: open.conv,
		Fields:       fields,
		View:         open.strategy.Render(open.trace, open.conv),
		SaveStatus:   w.ctrl.Status().Snapshot(),
	}, nil
}

// Idle reports whether the workspace has no save armed or in flight
func (w *Workspace) Idle() bool {
	return w.ctrl.Idle()
}

// SaveStatus returns the shared save indicator state
func (w *Workspace) SaveStatus() autosave.StatusSnapshot {
	return w.ctrl.Status().Snapshot()
}

// Working returns a copy of the working assessment map of the open item
func (w *Workspace) Working() map[string]model.Assessment {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open == nil {
		return nil
	}
	out := make(map[string]model.Assessment, len(w.open.working))
	for k, v := range w.open.working {
		out[k] = v
	}
	return out
}

// Close cancels pending saves and drops the open item
func (w *Workspace) Close() {
	w.mu.Lock()
	w.seq++
	prev := w.open
	w.open = nil
	w.ctrl.Close()
	w.mu.Unlock()

	if prev != nil {
		w.eval.Reset(prev.item.ItemID)
	}
}

func (w *Workspace) notifyAssessment(ctx context.Context, event model.AssessmentEvent) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.AssessmentSaved(ctx, event); err != nil {
		w.logger.Warn("failed to publish assessment event", "trace_id", event.TraceID, "error", err)
	}
}

func (w *Workspace) notifyItem(ctx context.Context, event model.ItemEvent) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.ItemChanged(ctx, event); err != nil {
		w.logger.Warn("failed to publish item event", "item_id", event.ItemID, "error", err)
	}
}

func findSchema(schemas []model.LabelingSchema, name string) (model.LabelingSchema, bool) {
	for _, s := range schemas {
		if s.Name == name {
			return s, true
		}
	}
	return model.LabelingSchema{}, false
}
