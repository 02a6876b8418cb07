package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// SchemaType is the judgment kind a schema collects
type SchemaType string

const (
	SchemaTypeFeedback    SchemaType = "FEEDBACK"
	SchemaTypeExpectation SchemaType = "EXPECTATION"
)

// AssessmentType returns the assessment type produced by answering the schema
func (t SchemaType) AssessmentType() AssessmentType {
	if t == SchemaTypeExpectation {
		return AssessmentTypeExpectation
	}
	return AssessmentTypeFeedback
}

// LabelingSchema is a named judgment definition. Exactly one of Numeric,
// Categorical and Text is set.
type LabelingSchema struct {
	Name          string            `json:"name"`
	Title         string            `json:"title,omitempty"`
	Instruction   string            `json:"instruction,omitempty"`
	Type          SchemaType        `json:"type"`
	Numeric       *NumericInput     `json:"numeric,omitempty"`
	Categorical   *CategoricalInput `json:"categorical,omitempty"`
	Text          *TextInput        `json:"text,omitempty"`
	EnableComment bool              `json:"enable_comment,omitempty"`
}

type NumericInput struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type CategoricalInput struct {
	Options []string `json:"options"`
}

type TextInput struct {
	MaxLength int `json:"max_length,omitempty"`
}

// ErrInvalidValue is returned when a value does not fit its schema
var ErrInvalidValue = errors.New("value does not match schema")

// Validate checks the schema definition itself
func (s LabelingSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if s.Type != SchemaTypeFeedback && s.Type != SchemaTypeExpectation {
		return fmt.Errorf("schema %q: unknown type %q", s.Name, s.Type)
	}

	kinds := 0
	for _, set := range []bool{s.Numeric != nil, s.Categorical != nil, s.Text != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return fmt.Errorf("schema %q: exactly one input kind is required, got %d", s.Name, kinds)
	}
	if s.Numeric != nil && s.Numeric.Min > s.Numeric.Max {
		return fmt.Errorf("schema %q: numeric min %v exceeds max %v", s.Name, s.Numeric.Min, s.Numeric.Max)
	}
	return nil
}

// CheckValue verifies that v is acceptable for the schema's input. Empty values
// are always accepted since a field can be cleared locally.
func (s LabelingSchema) CheckValue(v any) error {
	if IsEmptyValue(v) {
		return nil
	}

	switch {
	case s.Numeric != nil:
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("%w: %s expects a number", ErrInvalidValue, s.Name)
		}
		if f < s.Numeric.Min || f > s.Numeric.Max {
			return fmt.Errorf("%w: %s expects a value in [%v, %v]", ErrInvalidValue, s.Name, s.Numeric.Min, s.Numeric.Max)
		}
	case s.Categorical != nil:
		for _, choice := range asStrings(v) {
			if !slices.Contains(s.Categorical.Options, choice) {
				return fmt.Errorf("%w: %s has no option %q", ErrInvalidValue, s.Name, choice)
			}
		}
		if ValueKind(v) != "string" && ValueKind(v) != "list" && ValueKind(v) != "bool" {
			return fmt.Errorf("%w: %s expects an option", ErrInvalidValue, s.Name)
		}
	case s.Text != nil:
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s expects text", ErrInvalidValue, s.Name)
		}
		if s.Text.MaxLength > 0 && len([]rune(str)) > s.Text.MaxLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidValue, s.Name, s.Text.MaxLength)
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asStrings(v any) []string {
	switch c := v.(type) {
	case string:
		return []string{c}
	case bool:
		// yes/no schemas answer with a boolean and carry no option text
		return nil
	case []string:
		return c
	case []any:
		out := make([]string, 0, len(c))
		for _, e := range c {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// ItemState is the lifecycle state of a labeling item
type ItemState string

const (
	ItemStatePending    ItemState = "PENDING"
	ItemStateInProgress ItemState = "IN_PROGRESS"
	ItemStateCompleted  ItemState = "COMPLETED"
	ItemStateSkipped    ItemState = "SKIPPED"
)

// IsTerminal reports whether no automatic transition may leave this state
func (s ItemState) IsTerminal() bool {
	return s == ItemStateCompleted || s == ItemStateSkipped
}

// LabelingItem pairs a trace with a labeling session
type LabelingItem struct {
	ItemID  string     `json:"item_id"`
	State   ItemState  `json:"state"`
	Comment string     `json:"comment,omitempty"`
	Source  ItemSource `json:"source"`
}

type ItemSource struct {
	TraceID string `json:"trace_id"`
}

// ItemUpdate carries the fields to change on an item; nil fields are untouched
type ItemUpdate struct {
	State   *ItemState `json:"state,omitempty"`
	Comment *string    `json:"comment,omitempty"`
}

// UpdateMask lists the set fields in the tracking service's mask format
func (u ItemUpdate) UpdateMask() string {
	var fields []string
	if u.State != nil {
		fields = append(fields, "state")
	}
	if u.Comment != nil {
		fields = append(fields, "comment")
	}
	return strings.Join(fields, ",")
}

// LabelingSession groups items with the schemas that apply to them. Schemas are
// referenced by name and joined in at read time.
type LabelingSession struct {
	SessionID   string         `json:"labeling_session_id"`
	Name        string         `json:"name"`
	RunID       string         `json:"mlflow_run_id,omitempty"`
	SchemaNames []string       `json:"labeling_schemas,omitempty"`
	Items       []LabelingItem `json:"items,omitempty"`
}
