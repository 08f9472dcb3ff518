package command

import (
	"context"
	"sort"
)

// Handler computes the result of one command.
// A nil result is sent to the peer as JSON null.
// Results are JSON-encoded, so they must be marshalable with encoding/json.
type Handler func(ctx context.Context, args Args) (any, error)

// Registry maps command names to handlers.
// It is read-only after construction.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry from the given handlers. The map is copied, so later changes to it are not seen by the registry.
// Nil handlers are skipped.
func NewRegistry(handlers map[string]Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for name, h := range handlers {
		if h == nil {
			continue
		}
		r.handlers[name] = h
	}
	return r
}

// Lookup returns the handler registered for name.
// An unregistered name is not an error, ok is just false.
func (r *Registry) Lookup(name string) (h Handler, ok bool) {
	if r == nil {
		return nil, false
	}
	h, ok = r.handlers[name]
	return h, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handlers)
}
