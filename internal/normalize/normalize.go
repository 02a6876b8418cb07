// Package normalize turns raw traces into the conversation shown to reviewers.
// Every function here is total: malformed spans degrade to absent fields and
// never abort the trace.
package normalize

import (
	"math"
	"sort"

	"github.com/cognobserve/labeling/internal/metrics"
	"github.com/cognobserve/labeling/internal/model"
)

// NormalizeTrace normalizes a trace using its embedded spans
func NormalizeTrace(trace model.Trace) model.Conversation {
	return Normalize(trace, trace.Spans)
}

// Normalize builds the canonical conversation for trace from spans
func Normalize(trace model.Trace, spans []model.Span) model.Conversation {
	conv := model.Conversation{
		ToolCalls: []model.ToolCall{},
		Duration:  FormatDuration(trace.ExecutionDuration),
	}

	ordered := orderSpans(spans)
	seenUser := make(map[string]struct{})

	for _, s := range ordered {
		spanType := ResolveSpanType(s.span)
		duration := FormatDuration(SpanDurationMillis(s.span))
		input := firstAttribute(s.span.Attributes, inputKeys)
		output := firstAttribute(s.span.Attributes, outputKeys)

		summary := model.SpanSummary{
			SpanID:   s.span.SpanID,
			Name:     s.span.Name,
			SpanType: spanType,
			StartMs:  s.startMs,
			Duration: duration,
		}
		if s.span.ParentID != nil {
			summary.ParentID = *s.span.ParentID
		}
		conv.Spans = append(conv.Spans, summary)

		if isTool(spanType) {
			conv.ToolCalls = append(conv.ToolCalls, model.ToolCall{
				Name:     s.span.Name,
				SpanID:   s.span.SpanID,
				Input:    input.value,
				Output:   output.value,
				StartMs:  s.startMs,
				Duration: duration,
				Error:    exceptionMessage(s.span),
			})
			continue
		}

		user, hasUser := extract(input, userExtractors)
		assistant, hasAssistant := extract(output, assistantExtractors)

		if conv.UserRequest == nil && hasUser {
			conv.UserRequest = &model.Message{Content: user}
		}
		if conv.AssistantResponse == nil && hasAssistant {
			conv.AssistantResponse = &model.Message{Content: assistant}
		}

		if !hasUser {
			continue
		}
		// nested spans repeat the same turn; keep the outermost (earliest)
		if _, dup := seenUser[user]; dup {
			continue
		}
		seenUser[user] = struct{}{}
		conv.Turns = append(conv.Turns, model.Turn{
			SpanID:    s.span.SpanID,
			Name:      s.span.Name,
			SpanType:  spanType,
			User:      user,
			Assistant: assistant,
		})
	}

	metrics.SpansNormalized.Add(float64(len(spans)))
	return conv
}

type orderedSpan struct {
	span    model.Span
	startMs float64
	valid   bool
}

// orderSpans sorts spans by normalized start time. Spans without a usable start
// time go last, and ties keep their source order.
func orderSpans(spans []model.Span) []orderedSpan {
	out := make([]orderedSpan, 0, len(spans))
	for _, s := range spans {
		start, ok := ToMillis(s.StartTime)
		out = append(out, orderedSpan{span: s, startMs: start, valid: ok})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

func sortKey(s orderedSpan) float64 {
	if !s.valid {
		return math.Inf(1)
	}
	return s.startMs
}

func exceptionMessage(span model.Span) string {
	for _, ev := range span.Events {
		if ev.Name != "exception" {
			continue
		}
		if msg, ok := ev.Attributes["exception.message"].(string); ok {
			return msg
		}
	}
	return ""
}
