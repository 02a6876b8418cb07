// Package renderer maps a run's renderer tag to a presentation strategy for
// labeling items.
package renderer

import (
	"errors"
	"sort"
	"sync"

	"github.com/cognobserve/labeling/internal/model"
)

// ErrUnknownRenderer is returned when selecting a tag that is not registered
var ErrUnknownRenderer = errors.New("unknown renderer")

// Section is one block of a rendered view
type Section struct {
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// View is what a strategy produces for one trace
type View struct {
	Renderer string    `json:"renderer"`
	Sections []Section `json:"sections"`
}

// Strategy turns a trace and its normalized conversation into a View
type Strategy interface {
	Name() string
	Render(trace model.Trace, conv model.Conversation) View
}

// Registry is a closed set of strategies with a designated default. It is
// immutable after construction.
type Registry struct {
	def        Strategy
	strategies map[string]Strategy
}

// NewRegistry registers def and others by name. A later strategy with the same
// name replaces an earlier one, but def always stays the fallback.
func NewRegistry(def Strategy, others ...Strategy) *Registry {
	r := &Registry{
		def:        def,
		strategies: make(map[string]Strategy, len(others)+1),
	}
	r.strategies[def.Name()] = def
	for _, s := range others {
		r.strategies[s.Name()] = s
	}
	return r
}

// Resolve returns the strategy registered under tag, or the default
func (r *Registry) Resolve(tag string) Strategy {
	if s, ok := r.strategies[tag]; ok {
		return s
	}
	return r.def
}

func (r *Registry) Lookup(tag string) (Strategy, bool) {
	s, ok := r.strategies[tag]
	return s, ok
}

// Default returns the fallback strategy
func (r *Registry) Default() Strategy {
	return r.def
}

// Names lists the registered tags in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the process-wide registry of built-in strategies
func Builtin() *Registry {
	builtinOnce.Do(func() {
		builtin = NewRegistry(DefaultStrategy{}, ChatStrategy{}, ToolCallsStrategy{}, RawStrategy{})
	})
	return builtin
}
