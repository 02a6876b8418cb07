package renderer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognobserve/labeling/internal/model"
)

// Section kinds
const (
	KindRequest  = "request"
	KindResponse = "response"
	KindTurn     = "turn"
	KindToolCall = "tool_call"
	KindSpans    = "spans"
	KindRaw      = "raw"
	KindSummary  = "summary"
)

// DefaultStrategy shows the request, the response and the tool calls
type DefaultStrategy struct{}

func (DefaultStrategy) Name() string { return "default" }

func (s DefaultStrategy) Render(trace model.Trace, conv model.Conversation) View {
	v := View{Renderer: s.Name()}
	if conv.UserRequest != nil {
		v.Sections = append(v.Sections, Section{Kind: KindRequest, Title: "Request", Body: conv.UserRequest.Content})
	}
	if conv.AssistantResponse != nil {
		v.Sections = append(v.Sections, Section{Kind: KindResponse, Title: "Response", Body: conv.AssistantResponse.Content})
	}
	v.Sections = append(v.Sections, toolSections(conv.ToolCalls)...)
	v.Sections = append(v.Sections, summary(trace, conv))
	return v
}

// ChatStrategy shows every conversational turn in order
type ChatStrategy struct{}

func (ChatStrategy) Name() string { return "chat" }

func (s ChatStrategy) Render(trace model.Trace, conv model.Conversation) View {
	v := View{Renderer: s.Name()}
	for _, turn := range conv.Turns {
		var b strings.Builder
		if turn.User != "" {
			fmt.Fprintf(&b, "user: %s", turn.User)
		}
		if turn.Assistant != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "assistant: %s", turn.Assistant)
		}
		v.Sections = append(v.Sections, Section{Kind: KindTurn, Title: turn.Name, Body: b.String()})
	}
	if len(v.Sections) == 0 {
		return DefaultStrategy{}.Render(trace, conv).withName(s.Name())
	}
	return v
}

// ToolCallsStrategy focuses on tool usage
type ToolCallsStrategy struct{}

func (ToolCallsStrategy) Name() string { return "tool-calls" }

func (s ToolCallsStrategy) Render(trace model.Trace, conv model.Conversation) View {
	v := View{Renderer: s.Name()}
	v.Sections = append(v.Sections, toolSections(conv.ToolCalls)...)
	if len(v.Sections) == 0 {
		v.Sections = append(v.Sections, Section{Kind: KindToolCall, Title: "Tool calls", Body: "no tool calls"})
	}
	v.Sections = append(v.Sections, summary(trace, conv))
	return v
}

// RawStrategy dumps the span timeline and the raw spans
type RawStrategy struct{}

func (RawStrategy) Name() string { return "raw" }

func (s RawStrategy) Render(trace model.Trace, conv model.Conversation) View {
	v := View{Renderer: s.Name()}

	// spans arrive in start order with unusable starts (zero) last
	var base float64
	if len(conv.Spans) > 0 {
		base = conv.Spans[0].StartMs
	}
	var b strings.Builder
	for _, span := range conv.Spans {
		offset := "+?"
		if span.StartMs > 0 && base > 0 {
			offset = fmt.Sprintf("+%.0fms", span.StartMs-base)
		}
		fmt.Fprintf(&b, "%s [%s] %s %s\n", span.Name, span.SpanType, offset, span.Duration)
	}
	v.Sections = append(v.Sections, Section{Kind: KindSpans, Title: "Timeline", Body: strings.TrimRight(b.String(), "\n")})

	raw, err := json.MarshalIndent(trace.Spans, "", "  ")
	if err != nil {
		raw = []byte(err.Error())
	}
	v.Sections = append(v.Sections, Section{Kind: KindRaw, Title: "Spans", Body: string(raw)})
	return v
}

func (v View) withName(name string) View {
	v.Renderer = name
	return v
}

func toolSections(calls []model.ToolCall) []Section {
	out := make([]Section, 0, len(calls))
	for _, call := range calls {
		body := fmt.Sprintf("input: %s\noutput: %s", display(call.Input), display(call.Output))
		if call.Error != "" {
			body += "\nerror: " + call.Error
		}
		out = append(out, Section{Kind: KindToolCall, Title: call.Name, Body: body})
	}
	return out
}

func summary(trace model.Trace, conv model.Conversation) Section {
	return Section{
		Kind:  KindSummary,
		Title: "Trace",
		Body:  fmt.Sprintf("%s %s, %d spans, %s", trace.TraceID, trace.State, len(conv.Spans), conv.Duration),
	}
}

func display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
