// Package cimport accumulates the auxiliary import directives a stub needs.
package cimport

// Registry is a set of import lines that remembers first-seen order.
// The zero value is not usable; call New.
type Registry struct {
	seen  map[string]struct{}
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{seen: map[string]struct{}{}}
}

// Register adds token unless it is already present.
func (r *Registry) Register(token string) {
	if token == "" {
		return
	}
	if _, ok := r.seen[token]; ok {
		return
	}
	r.seen[token] = struct{}{}
	r.order = append(r.order, token)
}

// Flush returns the registered tokens in first-seen order.
func (r *Registry) Flush() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of distinct tokens.
func (r *Registry) Len() int {
	return len(r.order)
}
