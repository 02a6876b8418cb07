package model

// Conversation is the display form of a trace derived by the span normalizer.
// It is recomputed on every load and never mutated in place.
type Conversation struct {
	UserRequest       *Message      `json:"user_request"`
	AssistantResponse *Message      `json:"assistant_response"`
	ToolCalls         []ToolCall    `json:"tool_calls"`
	Turns             []Turn        `json:"turns,omitempty"`
	Spans             []SpanSummary `json:"spans,omitempty"`
	Duration          string        `json:"duration"`
}

// Message is one side of the exchange
type Message struct {
	Content string `json:"content"`
}

// ToolCall is a single tool invocation. Identical arguments still produce
// distinct calls.
type ToolCall struct {
	Name     string  `json:"name"`
	SpanID   string  `json:"span_id"`
	Input    any     `json:"input,omitempty"`
	Output   any     `json:"output,omitempty"`
	StartMs  float64 `json:"start_ms"`
	Duration string  `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// Turn is a model exchange found below the root of the trace
type Turn struct {
	SpanID    string `json:"span_id"`
	Name      string `json:"name"`
	SpanType  string `json:"span_type"`
	User      string `json:"user"`
	Assistant string `json:"assistant,omitempty"`
}

// SpanSummary is a flat timeline row
type SpanSummary struct {
	SpanID   string  `json:"span_id"`
	ParentID string  `json:"parent_id,omitempty"`
	Name     string  `json:"name"`
	SpanType string  `json:"span_type"`
	StartMs  float64 `json:"start_ms"`
	Duration string  `json:"duration"`
}
