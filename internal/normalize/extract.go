package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// messageExtractor pulls one side of the conversation out of a payload
type messageExtractor func(payload) (string, bool)

var (
	inputKeys  = []string{"mlflow.spanInputs", "inputs", "input.value", "input"}
	outputKeys = []string{"mlflow.spanOutputs", "outputs", "output.value", "output"}

	userKeys      = []string{"query", "question", "input", "prompt", "request", "message"}
	assistantKeys = []string{"content", "output", "response", "answer", "text", "result"}
)

var userExtractors = []messageExtractor{
	plainText,
	lastRoleMessage("user", "human"),
	firstStringKey(userKeys),
	compactJSON,
}

var assistantExtractors = []messageExtractor{
	plainText,
	choicesContent,
	lastRoleMessage("assistant", "ai"),
	firstStringKey(assistantKeys),
	compactJSON,
}

func extract(p payload, extractors []messageExtractor) (string, bool) {
	if p.empty() {
		return "", false
	}
	for _, fn := range extractors {
		if s, ok := fn(p); ok {
			return s, true
		}
	}
	return "", false
}

func plainText(p payload) (string, bool) {
	s, ok := p.value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func choicesContent(p payload) (string, bool) {
	root := p.root()
	for _, path := range []string{"choices.0.message.content", "choices.0.text"} {
		if r := root.Get(path); r.Type == gjson.String && r.Str != "" {
			return r.Str, true
		}
	}
	return "", false
}

// lastRoleMessage finds the last message whose role matches in a role-tagged
// list, either under "messages" or as the payload itself.
func lastRoleMessage(roles ...string) messageExtractor {
	return func(p payload) (string, bool) {
		root := p.root()
		if !root.Exists() {
			return "", false
		}

		var lists []gjson.Result
		for _, path := range []string{"messages", "inputs.messages", "input.messages"} {
			if r := root.Get(path); r.IsArray() {
				lists = append(lists, r)
			}
		}
		if root.IsArray() {
			lists = append(lists, root)
		}
		if root.IsObject() && matchesRole(root, roles) {
			if s := messageContent(root); s != "" {
				return s, true
			}
		}

		for _, list := range lists {
			msgs := list.Array()
			for i := len(msgs) - 1; i >= 0; i-- {
				if !matchesRole(msgs[i], roles) {
					continue
				}
				if s := messageContent(msgs[i]); s != "" {
					return s, true
				}
			}
		}
		return "", false
	}
}

func matchesRole(msg gjson.Result, roles []string) bool {
	role := msg.Get("role").String()
	if role == "" {
		role = msg.Get("type").String()
	}
	for _, r := range roles {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}

// messageContent reads a message's content: a string, or a list of parts
// whose text fields are joined.
func messageContent(msg gjson.Result) string {
	content := msg.Get("content")
	switch {
	case content.Type == gjson.String:
		return content.Str
	case content.IsArray():
		var parts []string
		for _, part := range content.Array() {
			if part.Type == gjson.String {
				parts = append(parts, part.Str)
				continue
			}
			if t := part.Get("text"); t.Type == gjson.String {
				parts = append(parts, t.Str)
			}
		}
		return strings.Join(parts, "\n")
	case content.IsObject():
		return content.Get("text").String()
	}
	return ""
}

func firstStringKey(keys []string) messageExtractor {
	return func(p payload) (string, bool) {
		root := p.root()
		if !root.IsObject() {
			return "", false
		}
		for _, k := range keys {
			if r := root.Get(k); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
				return r.Str, true
			}
		}
		return "", false
	}
}

func compactJSON(p payload) (string, bool) {
	if !p.isJSON {
		return "", false
	}
	s := gjson.Get(p.raw, "@ugly").Raw
	if s == "" {
		s = strings.TrimSpace(p.raw)
	}
	switch s {
	case "", "null", "{}", "[]", `""`:
		return "", false
	}
	return s, true
}
