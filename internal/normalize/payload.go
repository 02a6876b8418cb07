package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// payload is a span input or output after defensive decoding. When the source
// string is not JSON, value holds the raw string and isJSON is false.
type payload struct {
	raw    string
	value  any
	isJSON bool
}

func (p payload) empty() bool {
	return p.value == nil && p.raw == ""
}

// root returns the parsed JSON document, or an empty result for plain text
func (p payload) root() gjson.Result {
	if !p.isJSON {
		return gjson.Result{}
	}
	return gjson.Parse(p.raw)
}

// ParseValue decodes an attribute value. JSON-encoded strings are parsed; text
// that fails to parse is returned verbatim. It never fails.
func ParseValue(v any) any {
	return parsePayload(v).value
}

func parsePayload(v any) payload {
	switch t := v.(type) {
	case nil:
		return payload{}
	case string:
		return parseString(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return payload{raw: fmt.Sprint(t), value: t}
		}
		return payload{raw: string(b), value: t, isJSON: true}
	}
}

func parseString(s string) payload {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return payload{raw: s, value: s}
	}

	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return payload{raw: s, value: s}
	}

	// Payloads encoded twice arrive as a JSON string holding a document.
	if inner, ok := out.(string); ok {
		innerTrimmed := strings.TrimSpace(inner)
		if strings.HasPrefix(innerTrimmed, "{") || strings.HasPrefix(innerTrimmed, "[") {
			if p := parseString(innerTrimmed); p.isJSON {
				return p
			}
		}
	}
	return payload{raw: trimmed, value: out, isJSON: true}
}

// firstAttribute returns the decoded value of the first present key
func firstAttribute(attrs map[string]any, keys []string) payload {
	for _, k := range keys {
		v, ok := attrs[k]
		if !ok || v == nil {
			continue
		}
		if p := parsePayload(v); !p.empty() {
			return p
		}
	}
	return payload{}
}
