package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Trace represents one recorded agent interaction as served by the tracking service.
// It is read-only to this service.
type Trace struct {
	TraceID           string            `json:"trace_id"`
	RequestTime       Timestamp         `json:"request_time"`
	ExecutionDuration float64           `json:"execution_duration"`
	State             TraceState        `json:"state"`
	Spans             []Span            `json:"spans,omitempty"`
	Assessments       []Assessment      `json:"assessments,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// TraceState represents the terminal status of a trace
type TraceState string

const (
	TraceStateUnspecified TraceState = "STATE_UNSPECIFIED"
	TraceStateOK          TraceState = "OK"
	TraceStateError       TraceState = "ERROR"
	TraceStateInProgress  TraceState = "IN_PROGRESS"
)

// Span represents a span within a trace
type Span struct {
	Name       string         `json:"name"`
	SpanID     string         `json:"span_id"`
	ParentID   *string        `json:"parent_id,omitempty"`
	StartTime  Timestamp      `json:"start_time"`
	EndTime    Timestamp      `json:"end_time"`
	SpanType   string         `json:"span_type,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Events     []SpanEvent    `json:"events,omitempty"`
}

// SpanEvent is a point-in-time annotation on a span, e.g. an exception.
type SpanEvent struct {
	Name       string         `json:"name"`
	Timestamp  Timestamp      `json:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Span types seen across trace sources
const (
	SpanTypeLLM       = "LLM"
	SpanTypeChatModel = "CHAT_MODEL"
	SpanTypeTool      = "TOOL"
	SpanTypeAgent     = "AGENT"
	SpanTypeRetriever = "RETRIEVER"
	SpanTypeUnknown   = "UNKNOWN"
)

// Timestamp is an epoch value whose unit depends on the source (milliseconds or
// nanoseconds). Sources send numbers, numeric strings or null. A malformed value
// decodes to NaN rather than failing the whole trace.
type Timestamp float64

// Valid reports whether the timestamp holds a usable positive value.
func (t Timestamp) Valid() bool {
	f := float64(t)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*t = Timestamp(math.NaN())
			return nil
		}
		data = []byte(s)
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*t = Timestamp(math.NaN())
		return nil
	}
	*t = Timestamp(f)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	f := float64(t)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}
