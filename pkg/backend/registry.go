package backend

import "fmt"

// Registry selects an Adapter by name or by auto-detecting the first
// available one. Grounded on pkg/llm/router.go's model-routing shape,
// reshaped from provider routing to backend selection.
type Registry struct {
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry builds a registry over the given adapters, in priority order
// for auto-detection.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: adapters,
		byName:   make(map[string]Adapter, len(adapters)),
	}
	for _, a := range adapters {
		r.byName[a.Name()] = a
	}
	return r
}

// Get returns the named adapter.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Select returns the named adapter if name is non-empty, else the first
// available adapter in registration order. Returns ErrUnavailable, the
// AI-unavailable kind (§7), when the named adapter or every adapter is not
// available; an unregistered name yields a plain error instead.
func (r *Registry) Select(name string) (Adapter, error) {
	if name != "" {
		a, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("backend %q is not registered", name)
		}
		if !a.IsAvailable() {
			return nil, &ErrUnavailable{Requested: name, Hints: r.InstallHints()}
		}
		return a, nil
	}
	for _, a := range r.adapters {
		if a.IsAvailable() {
			return a, nil
		}
	}
	return nil, &ErrUnavailable{Hints: r.InstallHints()}
}

// InstallHints returns every registered adapter's install hint, for
// surfacing in the AI-unavailable error (§7).
func (r *Registry) InstallHints() []string {
	hints := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		hints = append(hints, fmt.Sprintf("%s: %s", a.Name(), a.InstallHint()))
	}
	return hints
}

// ErrUnavailable signals that no configured backend adapter is usable.
// Corresponds to the AI-unavailable (cli-not-found) error kind (§7).
type ErrUnavailable struct {
	Requested string
	Hints     []string
}

func (e *ErrUnavailable) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("backend %q is not available", e.Requested)
	}
	return "no AI backend is available"
}
