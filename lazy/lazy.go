// Package lazy provides deferred, memoized conversions from raw telemetry to
// typed values. Each value is computed at most once, on first access, and the
// result is cached for every later read.
package lazy

import (
	"sync"
	"sync/atomic"
)

// Value holds a value of type T that is produced on first access.
// A nil *Value reads as the zero value of T.
type Value[T any] struct {
	once    sync.Once
	done    atomic.Bool
	produce func() T
	val     T
}

// Of returns an already-resolved Value holding v.
func Of[T any](v T) *Value[T] {
	lv := &Value[T]{val: v}
	lv.once.Do(func() {})
	lv.done.Store(true)
	return lv
}

// From returns a Value that calls fn on first access.
func From[T any](fn func() T) *Value[T] {
	return &Value[T]{produce: fn}
}

// Map returns a Value that applies fn to the resolved src. Both nodes keep
// their own at-most-once evaluation.
func Map[A, B any](src *Value[A], fn func(A) B) *Value[B] {
	return From(func() B { return fn(src.Value()) })
}

// Value resolves and returns the cached value.
func (v *Value[T]) Value() T {
	if v == nil {
		var zero T
		return zero
	}
	v.once.Do(func() {
		if v.produce != nil {
			v.val = v.produce()
			v.produce = nil
		}
		v.done.Store(true)
	})
	return v.val
}

// Resolved reports whether the value has been computed.
func (v *Value[T]) Resolved() bool {
	return v != nil && v.done.Load()
}
