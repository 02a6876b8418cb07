// Package autosave persists reviewer edits with a per-field debounce. Local
// state changes immediately; the network only sees the value that survives the
// debounce window.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cognobserve/labeling/internal/assessment"
	"github.com/cognobserve/labeling/internal/metrics"
	"github.com/cognobserve/labeling/internal/model"
)

const (
	DefaultDelay       = 500 * time.Millisecond
	DefaultSaveTimeout = 15 * time.Second
)

var (
	// ErrInactive is returned when no trace is active
	ErrInactive = errors.New("no active trace")

	// ErrUnknownField is returned when flushing a field that was never rendered
	ErrUnknownField = errors.New("unknown field")
)

// API persists assessments in the tracking service
type API interface {
	CreateAssessment(ctx context.Context, traceID string, in model.AssessmentInput) (*model.Assessment, error)
	UpdateAssessment(ctx context.Context, traceID, assessmentID string, in model.AssessmentInput) (*model.Assessment, error)
}

// SaveResult describes a successful save
type SaveResult struct {
	TraceID    string
	Assessment model.Assessment
	Created    bool
}

// Options configures a Controller. Zero values get defaults.
type Options struct {
	Delay       time.Duration
	SaveTimeout time.Duration
	Scheduler   Scheduler
	Status      *Status
	Logger      *slog.Logger

	// OnSaved runs after every successful save of the active trace
	OnSaved func(SaveResult)
	// OnError runs after a failed save; the local edit is kept
	OnError func(traceID, schema string, err error)
}

// FieldState is the local view of one rendered field
type FieldState struct {
	Value        any    `json:"value"`
	Rationale    string `json:"rationale,omitempty"`
	AssessmentID string `json:"assessment_id,omitempty"`
	Saving       bool   `json:"saving"`
	Dirty        bool   `json:"dirty"`
}

type field struct {
	schema       model.LabelingSchema
	value        any
	rationale    string
	assessmentID string
	// saving and dirty serialize saves per field: an edit that lands while a
	// save is in flight is re-saved once that save settles, with its ID.
	saving bool
	dirty  bool
}

// Controller owns the autosave state of the fields of one active trace
type Controller struct {
	api     API
	sched   Scheduler
	status  *Status
	logger  *slog.Logger
	delay   time.Duration
	timeout time.Duration
	onSaved func(SaveResult)
	onError func(traceID, schema string, err error)

	mu      sync.Mutex
	traceID string
	source  model.Source
	gen     uint64
	fields  map[string]*field

	// creating and created survive Activate so that re-opening a trace while
	// a create is in flight never issues a second create for the same field.
	// Both are keyed by fieldKey.
	creating map[string]bool
	created  map[string]string
}

// New creates a Controller
func New(api API, opts Options) *Controller {
	c := &Controller{
		api:     api,
		sched:   opts.Scheduler,
		status:  opts.Status,
		logger:  opts.Logger,
		delay:   opts.Delay,
		timeout: opts.SaveTimeout,
		onSaved: opts.OnSaved,
		onError: opts.OnError,
		fields:  make(map[string]*field),

		creating: make(map[string]bool),
		created:  make(map[string]string),
	}
	if c.sched == nil {
		c.sched = NewTimerScheduler()
	}
	if c.status == nil {
		c.status = NewStatus()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.timeout <= 0 {
		c.timeout = DefaultSaveTimeout
	}
	return c
}

// Status returns the shared save indicator
func (c *Controller) Status() *Status {
	return c.status
}

// Activate switches the controller to traceID. Pending saves of the previous
// trace are cancelled, and field state is rebuilt from rows. Saves already in
// flight complete but their results are discarded, except that an assessment
// created for traceID keeps its ID so later edits update it.
func (c *Controller) Activate(traceID string, source model.Source, rows []assessment.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelPendingLocked()
	c.gen++
	c.traceID = traceID
	c.source = source
	c.fields = make(map[string]*field, len(rows))

	for _, r := range rows {
		f := &field{schema: r.Schema}
		if r.Assessment != nil {
			f.value = r.Assessment.Value
			f.rationale = r.Assessment.Rationale
			f.assessmentID = r.Assessment.AssessmentID
		}
		if id, ok := c.created[fieldKey(traceID, r.Schema.Name)]; ok && f.assessmentID == "" {
			f.assessmentID = id
		}
		c.fields[r.Schema.Name] = f
	}
	// creates that settled while no trace was active only matter to this one
	c.created = make(map[string]string)
}

// Close cancels pending saves and deactivates the controller
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelPendingLocked()
	c.gen++
	c.traceID = ""
	c.fields = make(map[string]*field)
}

func (c *Controller) cancelPendingLocked() {
	for name := range c.fields {
		c.sched.Cancel(fieldKey(c.traceID, name))
	}
}

// ActiveTrace returns the trace the controller saves against
func (c *Controller) ActiveTrace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traceID
}

// OnFieldChange records a local edit and re-arms the field's debounce timer
func (c *Controller) OnFieldChange(schema model.LabelingSchema, value any, rationale string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.traceID == "" {
		return ErrInactive
	}

	f, ok := c.fields[schema.Name]
	if !ok {
		f = &field{}
		c.fields[schema.Name] = f
	}
	f.schema = schema
	f.value = value
	f.rationale = rationale

	gen, name := c.gen, schema.Name
	c.sched.Schedule(fieldKey(c.traceID, name), c.delay, func() {
		_ = c.save(gen, name)
	})
	return nil
}

// Flush saves a field immediately, dropping its pending timer. It is the
// explicit retry after a failed save.
func (c *Controller) Flush(name string) error {
	c.mu.Lock()
	if c.traceID == "" {
		c.mu.Unlock()
		return ErrInactive
	}
	if _, ok := c.fields[name]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	c.sched.Cancel(fieldKey(c.traceID, name))
	gen := c.gen
	c.mu.Unlock()

	return c.save(gen, name)
}

// Field returns the local state of a field
func (c *Controller) Field(name string) (FieldState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.fields[name]
	if !ok {
		return FieldState{}, false
	}
	return FieldState{
		Value:        f.value,
		Rationale:    f.rationale,
		AssessmentID: f.assessmentID,
		Saving:       f.saving,
		Dirty:        f.dirty,
	}, true
}

// Idle reports whether no field has an armed timer, a save in flight or an
// edit waiting to be saved
func (c *Controller) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, f := range c.fields {
		if f.saving || f.dirty || c.sched.Pending(fieldKey(c.traceID, name)) {
			return false
		}
	}
	return len(c.creating) == 0
}

// Pending reports whether a debounced save is armed for the field
func (c *Controller) Pending(name string) bool {
	c.mu.Lock()
	key := fieldKey(c.traceID, name)
	c.mu.Unlock()
	return c.sched.Pending(key)
}

func (c *Controller) save(gen uint64, name string) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	f, ok := c.fields[name]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	if model.IsEmptyValue(f.value) && strings.TrimSpace(f.rationale) == "" {
		c.mu.Unlock()
		metrics.AssessmentSavesSkipped.Inc()
		c.logger.Debug("skipping empty assessment save", "schema", name)
		return nil
	}
	if f.saving {
		f.dirty = true
		c.mu.Unlock()
		return nil
	}

	key := fieldKey(c.traceID, name)
	if f.assessmentID == "" && c.creating[key] {
		// an earlier activation's create is still out; it hands over its ID
		f.dirty = true
		c.mu.Unlock()
		return nil
	}

	f.saving = true
	f.dirty = false
	traceID := c.traceID
	knownID := f.assessmentID
	if knownID == "" {
		c.creating[key] = true
	}
	in := model.AssessmentInput{
		Name:      name,
		Type:      f.schema.Type.AssessmentType(),
		Value:     f.value,
		Rationale: f.rationale,
		Source:    c.source,
	}
	c.mu.Unlock()

	res, err := c.persist(traceID, knownID, in)

	c.mu.Lock()
	if knownID == "" {
		delete(c.creating, key)
	}
	if gen != c.gen {
		return c.settleStale(traceID, name, knownID, res, err)
	}
	f.saving = false
	redo := f.dirty
	f.dirty = false
	if err == nil && res.AssessmentID != "" {
		f.assessmentID = res.AssessmentID
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to save assessment", "trace_id", traceID, "schema", name, "error", err)
		if c.onError != nil {
			c.onError(traceID, name, err)
		}
	} else if c.onSaved != nil {
		c.onSaved(SaveResult{TraceID: traceID, Assessment: *res, Created: knownID == ""})
	}

	if redo {
		return c.save(gen, name)
	}
	return err
}

// settleStale handles a save that outlived its activation. It is called with
// c.mu held and releases it. Results for another trace are discarded. When the
// same trace is active again, a created ID is handed to the new field state
// and a field edit that waited on this create is saved.
func (c *Controller) settleStale(traceID, name, knownID string, res *model.Assessment, err error) error {
	createdID := ""
	if err == nil && knownID == "" {
		createdID = res.AssessmentID
	}

	if c.traceID != traceID {
		if createdID != "" {
			c.created[fieldKey(traceID, name)] = createdID
		}
		c.mu.Unlock()
		metrics.StaleSavesDiscarded.Inc()
		c.logger.Info("discarding save result for inactive trace", "trace_id", traceID, "schema", name)
		return nil
	}

	cur, ok := c.fields[name]
	adopted := false
	redo := false
	if ok {
		if createdID != "" && cur.assessmentID == "" {
			cur.assessmentID = createdID
			adopted = true
		}
		if cur.dirty && !cur.saving {
			cur.dirty = false
			redo = true
		}
	}
	gen := c.gen
	c.mu.Unlock()

	if adopted && c.onSaved != nil {
		c.onSaved(SaveResult{TraceID: traceID, Assessment: *res, Created: true})
	}
	if redo {
		return c.save(gen, name)
	}
	return nil
}

func (c *Controller) persist(traceID, knownID string, in model.AssessmentInput) (*model.Assessment, error) {
	op := "update"
	if knownID == "" {
		op = "create"
	}

	c.status.Begin()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	var (
		res *model.Assessment
		err error
	)
	if knownID == "" {
		res, err = c.api.CreateAssessment(ctx, traceID, in)
	} else {
		res, err = c.api.UpdateAssessment(ctx, traceID, knownID, in)
	}
	if err == nil && res == nil {
		err = fmt.Errorf("failed to %s assessment: empty response", op)
	}
	metrics.AssessmentSaveDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	c.status.Settle(err)

	if err != nil {
		metrics.AssessmentSaves.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	metrics.AssessmentSaves.WithLabelValues(op, "ok").Inc()
	return res, nil
}

func fieldKey(traceID, name string) string {
	return traceID + "\x00" + name
}
