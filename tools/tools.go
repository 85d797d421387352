// Package tools binds the external API adapters to names and descriptions an
// agent can call during its reasoning loop.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Clip bounds s to at most max bytes, backing off to a rune boundary so a
// multi-byte character is never split.
func Clip(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Args holds the decoded Action Input of one tool invocation.
type Args map[string]any

// String returns the named argument as a string, or def when absent.
func (a Args) String(name, def string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

// StringList returns the named argument as a list of strings. A single string
// becomes a one-element list.
func (a Args) StringList(name string) []string {
	v, ok := a[name]
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case string:
		return []string{s}
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case []string:
		return s
	}
	return []string{fmt.Sprint(v)}
}

// Int returns the named argument as an int. JSON numbers decode as float64.
func (a Args) Int(name string, def int) int {
	v, ok := a[name]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &i); err == nil {
			return i
		}
	}
	return def
}

// Bool returns the named argument as a bool.
func (a Args) Bool(name string, def bool) bool {
	v, ok := a[name]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	}
	return def
}

// Has reports whether the argument was supplied at all, so adapters can tell
// "unset" apart from a zero value.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// Tool pairs an adapter function with the name and description the agent sees.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args Args) (string, error)
}

// Registry is an immutable named set of tools assigned to one agent role.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry preserving the given tool order for prompts.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if _, dup := r.tools[t.Name]; dup {
			continue
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Describe renders the "name: description" listing embedded in agent prompts.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		fmt.Fprintf(&b, "- %s: %s\n", name, r.tools[name].Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Sorted returns the tools sorted by name, for deterministic inspection.
func (r *Registry) Sorted() []Tool {
	names := r.Names()
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}
