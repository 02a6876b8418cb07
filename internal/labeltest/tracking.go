package labeltest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cognobserve/labeling/internal/model"
	"github.com/cognobserve/labeling/internal/tracking"
)

// Call records one write made against FakeTracking
type Call struct {
	Op           string
	TraceID      string
	AssessmentID string
	Input        model.AssessmentInput
}

// ItemCall records one UpdateItem call
type ItemCall struct {
	SessionID string
	ItemID    string
	Update    model.ItemUpdate
}

// FakeTracking is an in-memory tracking service. Errors set with Fail are
// returned by the matching operation until cleared.
type FakeTracking struct {
	mu       sync.Mutex
	traces   map[string]*model.Trace
	sessions map[string]*model.LabelingSession
	schemas  []model.LabelingSchema
	tags     map[string]string
	nextID   int

	calls     []Call
	itemCalls []ItemCall
	errs      map[string]error

	// Hook runs at the start of every operation, outside the lock
	Hook func(op string)
}

// NewFakeTracking creates an empty FakeTracking. Generated assessment IDs
// start at 1000 so they outrank short seeded IDs.
func NewFakeTracking() *FakeTracking {
	return &FakeTracking{
		traces:   make(map[string]*model.Trace),
		sessions: make(map[string]*model.LabelingSession),
		tags:     make(map[string]string),
		errs:     make(map[string]error),
		nextID:   1000,
	}
}

// AddTrace stores a trace
func (f *FakeTracking) AddTrace(t model.Trace) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.traces[t.TraceID] = &t
}

// AddSession stores a session with its items
func (f *FakeTracking) AddSession(s model.LabelingSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.SessionID] = &s
}

// SetSchemas replaces the schema catalogue
func (f *FakeTracking) SetSchemas(schemas ...model.LabelingSchema) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas = schemas
}

// Calls returns assessment writes in order
func (f *FakeTracking) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CountOp returns how many assessment writes had op ("create" or "update")
func (f *FakeTracking) CountOp(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ItemCalls returns item updates in order
func (f *FakeTracking) ItemCalls() []ItemCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ItemCall(nil), f.itemCalls...)
}

// Item returns the stored state of an item
func (f *FakeTracking) Item(sessionID, itemID string) (model.LabelingItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return model.LabelingItem{}, false
	}
	for _, it := range s.Items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	return model.LabelingItem{}, false
}

// Assessments returns the stored assessments of a trace
func (f *FakeTracking) Assessments(traceID string) []model.Assessment {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.traces[traceID]
	if !ok {
		return nil
	}
	return append([]model.Assessment(nil), t.Assessments...)
}

// Fail makes op return err; a nil err clears it. Ops are get_trace, create,
// update, update_item and tag.
func (f *FakeTracking) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *FakeTracking) hook(op string) {
	if f.Hook != nil {
		f.Hook(op)
	}
}

func (f *FakeTracking) GetTrace(ctx context.Context, traceID string) (*model.Trace, error) {
	f.hook("get_trace")
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.errs["get_trace"]; err != nil {
		return nil, err
	}
	t, ok := f.traces[traceID]
	if !ok {
		return nil, fmt.Errorf("trace %s: %w", traceID, tracking.ErrNotFound)
	}
	cp := *t
	cp.Assessments = append([]model.Assessment(nil), t.Assessments...)
	return &cp, nil
}

func (f *FakeTracking) CreateAssessment(ctx context.Context, traceID string, in model.AssessmentInput) (*model.Assessment, error) {
	f.hook("create")
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: "create", TraceID: traceID, Input: in})
	if err := f.errs["create"]; err != nil {
		return nil, err
	}
	t, ok := f.traces[traceID]
	if !ok {
		return nil, fmt.Errorf("trace %s: %w", traceID, tracking.ErrNotFound)
	}

	now := time.Now()
	a := model.Assessment{
		AssessmentID: strconv.Itoa(f.nextID),
		TraceID:      traceID,
		Name:         in.Name,
		Value:        in.Value,
		Type:         in.Type,
		Rationale:    in.Rationale,
		Source:       in.Source,
		CreateTime:   &now,
	}
	f.nextID++
	t.Assessments = append(t.Assessments, a)
	return &a, nil
}

func (f *FakeTracking) UpdateAssessment(ctx context.Context, traceID, assessmentID string, in model.AssessmentInput) (*model.Assessment, error) {
	f.hook("update")
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: "update", TraceID: traceID, AssessmentID: assessmentID, Input: in})
	if err := f.errs["update"]; err != nil {
		return nil, err
	}
	t, ok := f.traces[traceID]
	if !ok {
		return nil, fmt.Errorf("trace %s: %w", traceID, tracking.ErrNotFound)
	}
	for i := range t.Assessments {
		if t.Assessments[i].AssessmentID != assessmentID {
			continue
		}
		t.Assessments[i].Value = in.Value
		t.Assessments[i].Rationale = in.Rationale
		a := t.Assessments[i]
		return &a, nil
	}
	return nil, fmt.Errorf("assessment %s: %w", assessmentID, tracking.ErrNotFound)
}

func (f *FakeTracking) GetSession(ctx context.Context, sessionID string) (*model.LabelingSession, error) {
	f.hook("get_session")
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, tracking.ErrNotFound)
	}
	cp := *s
	cp.Items = append([]model.LabelingItem(nil), s.Items...)
	return &cp, nil
}

func (f *FakeTracking) GetItem(ctx context.Context, sessionID, itemID string) (*model.LabelingItem, error) {
	f.hook("get_item")
	item, ok := f.Item(sessionID, itemID)
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, tracking.ErrNotFound)
	}
	return &item, nil
}

func (f *FakeTracking) ListSchemas(ctx context.Context) ([]model.LabelingSchema, error) {
	f.hook("list_schemas")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.LabelingSchema(nil), f.schemas...), nil
}

func (f *FakeTracking) UpdateItem(ctx context.Context, sessionID, itemID string, upd model.ItemUpdate) (*model.LabelingItem, error) {
	f.hook("update_item")
	f.mu.Lock()
	defer f.mu.Unlock()

	f.itemCalls = append(f.itemCalls, ItemCall{SessionID: sessionID, ItemID: itemID, Update: upd})
	if err := f.errs["update_item"]; err != nil {
		return nil, err
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, tracking.ErrNotFound)
	}
	for i := range s.Items {
		if s.Items[i].ItemID != itemID {
			continue
		}
		if upd.State != nil {
			s.Items[i].State = *upd.State
		}
		if upd.Comment != nil {
			s.Items[i].Comment = *upd.Comment
		}
		it := s.Items[i]
		return &it, nil
	}
	return nil, fmt.Errorf("item %s: %w", itemID, tracking.ErrNotFound)
}

func (f *FakeTracking) GetRunTag(ctx context.Context, runID, key string) (string, error) {
	f.hook("get_tag")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["tag"]; err != nil {
		return "", err
	}
	return f.tags[runID+"/"+key], nil
}

func (f *FakeTracking) SetRunTag(ctx context.Context, runID, key, value string) error {
	f.hook("set_tag")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["tag"]; err != nil {
		return err
	}
	f.tags[runID+"/"+key] = value
	return nil
}
