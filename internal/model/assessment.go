package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// AssessmentType distinguishes opinions about an output from reference values
type AssessmentType string

const (
	AssessmentTypeFeedback    AssessmentType = "feedback"
	AssessmentTypeExpectation AssessmentType = "expectation"
)

// Assessment is a single judgment attached to a trace. Many historical rows can
// share a name; the latest one per author is the current one.
type Assessment struct {
	AssessmentID string         `json:"assessment_id,omitempty"`
	TraceID      string         `json:"trace_id,omitempty"`
	Name         string         `json:"name"`
	Value        any            `json:"value"`
	Type         AssessmentType `json:"type"`
	Rationale    string         `json:"rationale,omitempty"`
	Source       Source         `json:"source"`
	CreateTime   *time.Time     `json:"create_time,omitempty"`
}

// Created returns the server creation time, or the zero time when unknown
func (a Assessment) Created() time.Time {
	if a.CreateTime == nil {
		return time.Time{}
	}
	return *a.CreateTime
}

// Persisted reports whether the server has assigned an ID
func (a Assessment) Persisted() bool {
	return a.AssessmentID != ""
}

// Source identifies the author of an assessment. The tracking service sends it
// either as a bare string or as {source_type, source_id}.
type Source struct {
	SourceType string `json:"source_type,omitempty"`
	SourceID   string `json:"source_id,omitempty"`

	raw string
}

// Source types
const (
	SourceTypeHuman   = "HUMAN"
	SourceTypeLLM     = "LLM_JUDGE"
	SourceTypeCode    = "CODE"
	SourceTypeUnknown = "SOURCE_TYPE_UNSPECIFIED"
)

// HumanSource builds the structured source for a reviewer
func HumanSource(id string) Source {
	return Source{SourceType: SourceTypeHuman, SourceID: id}
}

// StringSource builds a source that serializes as a bare string
func StringSource(s string) Source {
	return Source{raw: s}
}

// String returns the serialized form used for author matching
func (s Source) String() string {
	if s.raw != "" {
		return s.raw
	}
	if s.SourceType == "" && s.SourceID == "" {
		return ""
	}
	b, err := json.Marshal(struct {
		SourceType string `json:"source_type,omitempty"`
		SourceID   string `json:"source_id,omitempty"`
	}{s.SourceType, s.SourceID})
	if err != nil {
		return s.SourceID
	}
	return string(b)
}

func (s *Source) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Source{}
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("failed to decode source: %w", err)
		}
		*s = Source{raw: str}
		return nil
	}

	var structured struct {
		SourceType string `json:"source_type"`
		SourceID   string `json:"source_id"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		// Unknown shapes still take part in author matching by their raw text.
		*s = Source{raw: string(data)}
		return nil
	}
	*s = Source{SourceType: structured.SourceType, SourceID: structured.SourceID}
	return nil
}

func (s Source) MarshalJSON() ([]byte, error) {
	if s.raw != "" {
		return json.Marshal(s.raw)
	}
	return json.Marshal(struct {
		SourceType string `json:"source_type,omitempty"`
		SourceID   string `json:"source_id,omitempty"`
	}{s.SourceType, s.SourceID})
}

// AssessmentInput is the payload of a create or update call
type AssessmentInput struct {
	Name      string         `json:"name"`
	Type      AssessmentType `json:"type"`
	Value     any            `json:"value"`
	Rationale string         `json:"rationale,omitempty"`
	Source    Source         `json:"source"`
}

// ValueKind names the canonical kind of an assessment value: null, number,
// string, bool, list or struct. Values that cannot be represented are "invalid".
func ValueKind(v any) string {
	pv, err := toStructValue(v)
	if err != nil {
		return "invalid"
	}
	switch pv.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "null"
	case *structpb.Value_NumberValue:
		return "number"
	case *structpb.Value_StringValue:
		return "string"
	case *structpb.Value_BoolValue:
		return "bool"
	case *structpb.Value_ListValue:
		return "list"
	case *structpb.Value_StructValue:
		return "struct"
	default:
		return "invalid"
	}
}

// IsEmptyValue reports whether v carries no answer: nil, blank string, empty
// list or empty object. Zero numbers and false are answers.
func IsEmptyValue(v any) bool {
	pv, err := toStructValue(v)
	if err != nil {
		return true
	}
	switch k := pv.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return true
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue) == ""
	case *structpb.Value_ListValue:
		return len(k.ListValue.GetValues()) == 0
	case *structpb.Value_StructValue:
		return len(k.StructValue.GetFields()) == 0
	default:
		return false
	}
}

// toStructValue maps arbitrary Go values (typed slices, structs) to the JSON
// value model before handing them to structpb.
func toStructValue(v any) (*structpb.Value, error) {
	if v == nil {
		return structpb.NewNullValue(), nil
	}
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
