package tool

import (
	"fmt"
	"strings"
)

// Registry is an ordered set of tools with unique names.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
}

// NewRegistry creates a registry holding tools, in order.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Tool, len(tools))}
	for _, t := range tools {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends a tool. Names are compared case-insensitively.
func (r *Registry) Add(t *Tool) error {
	key := strings.ToLower(t.Name)
	if _, ok := r.byName[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, t.Name)
	}
	r.tools = append(r.tools, t)
	r.byName[key] = t
	return nil
}

// Get looks a tool up by name, ignoring case.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
