package texttag

import (
	"sort"
	"strings"
)

// Accessor reads one exposed field from a model instance.
type Accessor[T any] func(*T) any

// Registry maps lowercase tag names to field accessors for one model type.
// It is built once and is read-only afterwards, so it is safe to share.
type Registry[T any] struct {
	accessors map[string]Accessor[T]
	names     []string
}

// NewRegistry builds a registry from fields. Names are lowercased; a later
// duplicate after lowercasing replaces an earlier one.
func NewRegistry[T any](fields map[string]Accessor[T]) *Registry[T] {
	r := &Registry[T]{accessors: make(map[string]Accessor[T], len(fields))}
	for name, fn := range fields {
		if fn == nil {
			continue
		}
		r.accessors[strings.ToLower(name)] = fn
	}
	r.names = make([]string, 0, len(r.accessors))
	for name := range r.accessors {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup resolves name (any case) against obj.
func (r *Registry[T]) Lookup(obj *T, name string) (any, bool) {
	if r == nil || obj == nil {
		return nil, false
	}
	fn, ok := r.accessors[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return fn(obj), true
}

// Has reports whether name (any case) is a registered tag.
func (r *Registry[T]) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.accessors[strings.ToLower(name)]
	return ok
}

// Names returns the sorted tag names.
func (r *Registry[T]) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Tags returns the sorted tag names in template form, e.g. "[damagetotal]".
func (r *Registry[T]) Tags() []string {
	out := make([]string, len(r.names))
	for i, name := range r.names {
		out[i] = "[" + name + "]"
	}
	return out
}
