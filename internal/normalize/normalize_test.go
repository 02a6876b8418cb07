package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognobserve/labeling/internal/model"
)

const baseMs = 1_700_000_000_000

func TestToMillis(t *testing.T) {
	ms, ok := ToMillis(model.Timestamp(baseMs))
	require.True(t, ok)
	assert.Equal(t, float64(baseMs), ms)

	ms, ok = ToMillis(model.Timestamp(float64(baseMs) * 1e6))
	require.True(t, ok)
	assert.InDelta(t, float64(baseMs), ms, 0.001)

	_, ok = ToMillis(model.Timestamp(math.NaN()))
	assert.False(t, ok)
	_, ok = ToMillis(0)
	assert.False(t, ok)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		ms   float64
		want string
	}{
		{0, "0ms"},
		{12.7, "12ms"},
		{999.9, "999ms"},
		{1000, "1.00s"},
		{1234, "1.23s"},
		{65000, "65.00s"},
		{-3, "0ms"},
		{math.NaN(), "0ms"},
		{math.Inf(1), "0ms"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.ms), "input %v", tc.ms)
	}
}

func TestSpanDurationMixedUnits(t *testing.T) {
	nanos := model.Span{StartTime: model.Timestamp(float64(baseMs) * 1e6), EndTime: model.Timestamp(float64(baseMs+1500) * 1e6)}
	assert.Equal(t, "1.50s", FormatDuration(SpanDurationMillis(nanos)))

	millis := model.Span{StartTime: baseMs, EndTime: baseMs + 250}
	assert.Equal(t, "250ms", FormatDuration(SpanDurationMillis(millis)))

	missing := model.Span{StartTime: baseMs}
	assert.Equal(t, "0ms", FormatDuration(SpanDurationMillis(missing)))

	backwards := model.Span{StartTime: baseMs + 10, EndTime: baseMs}
	assert.Equal(t, "0ms", FormatDuration(SpanDurationMillis(backwards)))
}

func TestParseValueNeverFails(t *testing.T) {
	assert.Equal(t, map[string]any{"a": float64(1)}, ParseValue(`{"a": 1}`))
	assert.Equal(t, `{"a": 1`, ParseValue(`{"a": 1`))
	assert.Equal(t, "plain words", ParseValue("plain words"))
	assert.Equal(t, "LLM", ParseValue(`"LLM"`))
	assert.Equal(t, []any{"x"}, ParseValue(`"[\"x\"]"`))
	assert.Nil(t, ParseValue(nil))
	assert.Equal(t, map[string]any{"k": "v"}, ParseValue(map[string]any{"k": "v"}))
}

func TestResolveSpanType(t *testing.T) {
	assert.Equal(t, "CHAT_MODEL", ResolveSpanType(model.Span{SpanType: "chat_model"}))
	assert.Equal(t, "LLM", ResolveSpanType(model.Span{Attributes: map[string]any{"mlflow.spanType": `"LLM"`}}))
	assert.Equal(t, "TOOL", ResolveSpanType(model.Span{Attributes: map[string]any{"openinference.span.kind": "tool"}}))
	assert.Equal(t, "TOOL", ResolveSpanType(model.Span{Name: "search_tool"}))
	assert.Equal(t, "RETRIEVER", ResolveSpanType(model.Span{Name: "VectorRetriever"}))
	assert.Equal(t, "UNKNOWN", ResolveSpanType(model.Span{Name: "step"}))
	// an explicit UNKNOWN falls through to the next resolver
	assert.Equal(t, "AGENT", ResolveSpanType(model.Span{SpanType: "UNKNOWN", Name: "agent_loop"}))
}

func TestNormalizeConversation(t *testing.T) {
	trace := model.Trace{TraceID: "tr-1", ExecutionDuration: 2400}
	spans := []model.Span{
		{
			Name:      "lookup_weather",
			SpanID:    "s3",
			SpanType:  "TOOL",
			StartTime: baseMs + 300,
			EndTime:   baseMs + 420,
			Attributes: map[string]any{
				"mlflow.spanInputs":  `{"city": "Oslo"}`,
				"mlflow.spanOutputs": `{"temp": 4}`,
			},
		},
		{
			Name:      "agent",
			SpanID:    "s1",
			StartTime: model.Timestamp(float64(baseMs) * 1e6),
			EndTime:   model.Timestamp(float64(baseMs+2400) * 1e6),
			Attributes: map[string]any{
				"mlflow.spanType":    `"AGENT"`,
				"mlflow.spanInputs":  `{"messages": [{"role": "system", "content": "be brief"}, {"role": "user", "content": "old"}, {"role": "assistant", "content": "ok"}, {"role": "user", "content": "Weather in Oslo?"}]}`,
				"mlflow.spanOutputs": `{"choices": [{"message": {"role": "assistant", "content": "It is 4C."}}]}`,
			},
		},
		{
			Name:      "ChatOpenAI",
			SpanID:    "s2",
			ParentID:  ptr("s1"),
			StartTime: baseMs + 100,
			EndTime:   baseMs + 250,
			Attributes: map[string]any{
				"mlflow.spanType":   "CHAT_MODEL",
				"mlflow.spanInputs": `[{"role": "user", "content": "Weather in Oslo?"}]`,
			},
		},
	}

	conv := Normalize(trace, spans)

	require.NotNil(t, conv.UserRequest)
	assert.Equal(t, "Weather in Oslo?", conv.UserRequest.Content)
	require.NotNil(t, conv.AssistantResponse)
	assert.Equal(t, "It is 4C.", conv.AssistantResponse.Content)
	assert.Equal(t, "2.40s", conv.Duration)

	require.Len(t, conv.ToolCalls, 1)
	assert.Equal(t, "lookup_weather", conv.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"city": "Oslo"}, conv.ToolCalls[0].Input)
	assert.Equal(t, "120ms", conv.ToolCalls[0].Duration)

	// the chat model span repeats the agent's turn
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, "s1", conv.Turns[0].SpanID)

	require.Len(t, conv.Spans, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{conv.Spans[0].SpanID, conv.Spans[1].SpanID, conv.Spans[2].SpanID})
	assert.Equal(t, "s1", conv.Spans[1].ParentID)
}

func TestNormalizeToolCallsNeverDeduplicated(t *testing.T) {
	args := `{"q": "same"}`
	spans := []model.Span{
		{Name: "search", SpanID: "a", SpanType: "TOOL", StartTime: baseMs + 2, Attributes: map[string]any{"inputs": args}},
		{Name: "search", SpanID: "b", SpanType: "TOOL", StartTime: baseMs + 1, Attributes: map[string]any{"inputs": args}},
	}
	conv := Normalize(model.Trace{}, spans)
	require.Len(t, conv.ToolCalls, 2)
	assert.Equal(t, "b", conv.ToolCalls[0].SpanID)
	assert.Equal(t, "a", conv.ToolCalls[1].SpanID)
}

func TestNormalizeMalformedAttributes(t *testing.T) {
	spans := []model.Span{{
		Name:      "root",
		SpanID:    "r",
		StartTime: model.Timestamp(math.NaN()),
		Attributes: map[string]any{
			"inputs":  `{"query": "unterminated`,
			"outputs": 42,
		},
	}}

	conv := Normalize(model.Trace{ExecutionDuration: math.NaN()}, spans)
	require.NotNil(t, conv.UserRequest)
	assert.Equal(t, `{"query": "unterminated`, conv.UserRequest.Content)
	require.NotNil(t, conv.AssistantResponse)
	assert.Equal(t, "42", conv.AssistantResponse.Content)
	assert.Equal(t, "0ms", conv.Duration)
	assert.Equal(t, "0ms", conv.Spans[0].Duration)
}

func TestNormalizeEmptyTrace(t *testing.T) {
	conv := NormalizeTrace(model.Trace{})
	assert.Nil(t, conv.UserRequest)
	assert.Nil(t, conv.AssistantResponse)
	assert.NotNil(t, conv.ToolCalls)
	assert.Empty(t, conv.ToolCalls)
}

func TestNormalizeKeyedPayloads(t *testing.T) {
	spans := []model.Span{{
		Name:      "chain",
		SpanID:    "c",
		StartTime: baseMs,
		Attributes: map[string]any{
			"inputs":  map[string]any{"question": "What is Go?"},
			"outputs": `{"messages": [{"role": "ai", "content": [{"type": "text", "text": "A language."}]}]}`,
		},
	}}
	conv := Normalize(model.Trace{}, spans)
	assert.Equal(t, "What is Go?", conv.UserRequest.Content)
	assert.Equal(t, "A language.", conv.AssistantResponse.Content)
}

func TestToolCallException(t *testing.T) {
	spans := []model.Span{{
		Name:     "fetch",
		SpanType: "TOOL",
		Events: []model.SpanEvent{
			{Name: "exception", Attributes: map[string]any{"exception.message": "timeout"}},
		},
	}}
	conv := Normalize(model.Trace{}, spans)
	require.Len(t, conv.ToolCalls, 1)
	assert.Equal(t, "timeout", conv.ToolCalls[0].Error)
}

func ptr(s string) *string { return &s }
