package buffer

import (
	"sync"

	"github.com/c360/actmeter/errors"
)

// Ring is a bounded FIFO. Push evicts the oldest item when full. Index 0 is
// the oldest retained item.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int // index of the oldest item
	size     int
	capacity int

	stats   *Statistics
	metrics *ringMetrics
	opts    *ringOptions[T]
}

// NewRing creates a ring holding at most capacity items; values below 1 are
// raised to 1. It fails only when metrics registration fails.
func NewRing[T any](capacity int, options ...Option[T]) (*Ring[T], error) {
	opts := applyOptions(options...)
	if capacity < 1 {
		capacity = 1
	}

	var metrics *ringMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newRingMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "Ring", "NewRing", "metrics registration")
		}
	}

	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Push appends item, evicting the oldest item if the ring is full.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	var evicted []T
	if r.size == r.capacity {
		evicted = append(evicted, r.popFrontLocked())
	}
	r.items[(r.head+r.size)%r.capacity] = item
	r.size++

	r.stats.recordWrite()
	if r.metrics != nil {
		r.metrics.recordWrite()
	}
	r.afterChangeLocked(len(evicted))
	r.mu.Unlock()

	r.notifyEvicted(evicted)
}

// At returns the item at position i, where 0 is the oldest.
func (r *Ring[T]) At(i int) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= r.size {
		var zero T
		return zero, false
	}
	return r.items[(r.head+i)%r.capacity], true
}

// Last returns the newest item.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.items[(r.head+r.size-1)%r.capacity], true
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the current capacity.
func (r *Ring[T]) Cap() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.capacity
}

// Snapshot copies the items, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	for i := range out {
		out[i] = r.items[(r.head+i)%r.capacity]
	}
	return out
}

// Clear removes every item.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	var evicted []T
	for r.size > 0 {
		evicted = append(evicted, r.popFrontLocked())
	}
	r.head = 0
	r.stats.recordClear()
	r.afterChangeLocked(0)
	r.mu.Unlock()

	r.notifyEvicted(evicted)
}

// Resize changes the capacity, evicting the oldest items that no longer
// fit. Values below 1 are raised to 1.
func (r *Ring[T]) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	r.mu.Lock()
	var evicted []T
	for r.size > capacity {
		evicted = append(evicted, r.popFrontLocked())
	}

	items := make([]T, capacity)
	for i := 0; i < r.size; i++ {
		items[i] = r.items[(r.head+i)%r.capacity]
	}
	r.items = items
	r.head = 0
	r.capacity = capacity
	r.afterChangeLocked(len(evicted))
	r.mu.Unlock()

	r.notifyEvicted(evicted)
}

// Stats returns the ring statistics.
func (r *Ring[T]) Stats() *Statistics {
	return r.stats
}

func (r *Ring[T]) popFrontLocked() T {
	var zero T
	item := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % r.capacity
	r.size--
	return item
}

func (r *Ring[T]) afterChangeLocked(evicted int) {
	if evicted > 0 {
		r.stats.recordEvictions(evicted)
	}
	r.stats.updateSize(r.size)
	if r.metrics != nil {
		if evicted > 0 {
			r.metrics.recordEvictions(evicted)
		}
		r.metrics.updateSize(r.size, r.capacity)
	}
}

func (r *Ring[T]) notifyEvicted(items []T) {
	if r.opts.evictCallback == nil {
		return
	}
	for _, item := range items {
		r.opts.evictCallback(item)
	}
}
