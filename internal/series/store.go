// Package series holds the bounded time-series of price samples that feeds the
// chart. The store is a fixed-capacity ring: appending past capacity evicts the
// oldest sample.
package series

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of samples kept when no capacity is configured.
const DefaultCapacity = 1000

// Sample is a single price observation.
type Sample struct {
	Time  time.Time
	Price float64
}

// Store is a thread-safe fixed-capacity FIFO of samples.
type Store struct {
	mu       sync.RWMutex
	buf      []Sample
	head     int // oldest sample
	count    int
	capacity int

	// Stats
	appended int64
	evicted  int64
}

// NewStore creates a store holding at most capacity samples.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{
		buf:      make([]Sample, capacity),
		capacity: capacity,
	}
}

// Append adds a sample at the newest end and evicts the oldest sample if the
// store is over capacity.
func (s *Store) Append(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tail := (s.head + s.count) % s.capacity
	s.buf[tail] = sample
	s.count++
	s.appended++

	s.evictOldestIfOverCapacity()
}

// evictOldestIfOverCapacity drops the oldest sample while the store holds more
// than capacity. Must be called with lock held.
func (s *Store) evictOldestIfOverCapacity() {
	for s.count > s.capacity {
		s.head = (s.head + 1) % s.capacity
		s.count--
		s.evicted++
	}
}

// Clear removes all samples.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.buf)
	s.head = 0
	s.count = 0
}

// Len returns the number of samples held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Cap returns the fixed capacity.
func (s *Store) Cap() int {
	return s.capacity
}

// IsEmpty reports whether the store holds no samples.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Last returns the newest sample.
func (s *Store) Last() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return Sample{}, false
	}
	return s.buf[(s.head+s.count-1)%s.capacity], true
}

// Snapshot returns a copy of all samples, oldest first.
func (s *Store) Snapshot() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sample, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.buf[(s.head+i)%s.capacity]
	}
	return out
}

// Stats returns store statistics.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreStats{
		Count:    s.count,
		Capacity: s.capacity,
		Appended: s.appended,
		Evicted:  s.evicted,
	}
}

// StoreStats contains store statistics.
type StoreStats struct {
	Count    int   `json:"count"`
	Capacity int   `json:"capacity"`
	Appended int64 `json:"appended"`
	Evicted  int64 `json:"evicted"`
}
