package buffer

import (
	"sync/atomic"
)

// Statistics tracks ring activity. All methods are safe for concurrent use.
type Statistics struct {
	writes    atomic.Int64
	evictions atomic.Int64
	clears    atomic.Int64
	size      atomic.Int64
	maxSize   atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) recordWrite() { s.writes.Add(1) }
func (s *Statistics) recordEvictions(n int) { s.evictions.Add(int64(n)) }
func (s *Statistics) recordClear() { s.clears.Add(1) }

func (s *Statistics) updateSize(size int) {
	s.size.Store(int64(size))
	for {
		cur := s.maxSize.Load()
		if int64(size) <= cur || s.maxSize.CompareAndSwap(cur, int64(size)) {
			return
		}
	}
}

// Writes returns the number of pushed items.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Evictions returns the number of items evicted for capacity.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// Clears returns the number of Clear calls.
func (s *Statistics) Clears() int64 { return s.clears.Load() }

// CurrentSize returns the number of items held.
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// MaxSize returns the most items held at once.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Writes      int64 `json:"writes"`
	Evictions   int64 `json:"evictions"`
	Clears      int64 `json:"clears"`
	CurrentSize int64 `json:"current_size"`
	MaxSize     int64 `json:"max_size"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:      s.Writes(),
		Evictions:   s.Evictions(),
		Clears:      s.Clears(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
	}
}
