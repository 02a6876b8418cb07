package normalize

import (
	"strings"

	"github.com/cognobserve/labeling/internal/model"
)

// typeResolver inspects a span for its type. Resolvers are total and report
// false when they have nothing to say.
type typeResolver func(model.Span) (string, bool)

// typeResolvers run in priority order; the first hit wins.
var typeResolvers = []typeResolver{
	explicitType,
	attributeType,
	nameHeuristicType,
}

var typeAttributeKeys = []string{
	"mlflow.spanType",
	"span_type",
	"openinference.span.kind",
	"type",
}

var nameHints = []struct {
	fragment string
	spanType string
}{
	{"tool", model.SpanTypeTool},
	{"retriev", model.SpanTypeRetriever},
	{"agent", model.SpanTypeAgent},
	{"chat", model.SpanTypeChatModel},
	{"llm", model.SpanTypeLLM},
}

// ResolveSpanType returns the effective, upper-cased type of span
func ResolveSpanType(span model.Span) string {
	for _, resolve := range typeResolvers {
		if t, ok := resolve(span); ok {
			return t
		}
	}
	return model.SpanTypeUnknown
}

func explicitType(span model.Span) (string, bool) {
	return canonicalType(span.SpanType)
}

func attributeType(span model.Span) (string, bool) {
	for _, k := range typeAttributeKeys {
		// values are sometimes JSON-quoted ("\"LLM\"")
		if s, ok := ParseValue(span.Attributes[k]).(string); ok {
			if t, ok := canonicalType(s); ok {
				return t, true
			}
		}
	}
	return "", false
}

func nameHeuristicType(span model.Span) (string, bool) {
	name := strings.ToLower(span.Name)
	for _, hint := range nameHints {
		if strings.Contains(name, hint.fragment) {
			return hint.spanType, true
		}
	}
	return "", false
}

func canonicalType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(s))
	if s == model.SpanTypeUnknown {
		return "", false
	}
	return s, true
}

func isTool(spanType string) bool {
	return spanType == model.SpanTypeTool
}
