// Package handlers resolves the dotted handler references a specification
// names to host-registered invocables. The engine never knows how a handler
// is implemented; it only resolves a reference and invokes the result with
// already-validated arguments.
package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Invocable is a resolved event handler. It receives validated payload
// arguments and may return a value to be validated against the message's
// acknowledgement schema.
type Invocable func(ctx context.Context, args []any) (any, error)

// ResolutionError reports a handler reference with no registered invocable.
// Resolution failures are fatal at startup, not at first message.
type ResolutionError struct {
	Path string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no handler registered for %q", e.Path)
}

// Registry maps dotted handler paths to invocables. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Invocable
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Invocable),
	}
}

// Register binds a dotted path to an invocable, replacing any previous
// binding for that path.
func (r *Registry) Register(path string, fn Invocable) error {
	if path == "" {
		return fmt.Errorf("handler path cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("handler for %q cannot be nil", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[path] = fn
	return nil
}

// Resolve returns the invocable registered for path.
func (r *Registry) Resolve(path string) (Invocable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.handlers[path]
	if !ok {
		return nil, &ResolutionError{Path: path}
	}
	return fn, nil
}

// Paths returns the registered handler paths in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.handlers))
	for path := range r.handlers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Noop is an invocable that accepts anything and returns nothing. It backs
// lifecycle hooks a host chooses not to implement.
func Noop(_ context.Context, _ []any) (any, error) {
	return nil, nil
}
