package router

import "sync"

// Slot is a thread-safe single-value buffer. Each Deposit replaces any value
// not yet drained, so a reader that falls behind only ever sees the latest.
type Slot[T any] struct {
	mu    sync.Mutex
	value T
	full  bool

	// Stats
	deposited   int64
	drained     int64
	overwritten int64
}

// NewSlot creates an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Deposit stores v, replacing any pending value. It never blocks on the reader.
func (s *Slot[T]) Deposit(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		s.overwritten++
	}
	s.value = v
	s.full = true
	s.deposited++
}

// Drain returns the pending value and empties the slot.
// Returns the zero value and false if nothing is pending.
func (s *Slot[T]) Drain() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if !s.full {
		return zero, false
	}

	v := s.value
	s.value = zero // Clear reference for GC
	s.full = false
	s.drained++
	return v, true
}

// Pending reports whether a value is waiting to be drained.
func (s *Slot[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}

// Stats returns slot statistics.
func (s *Slot[T]) Stats() SlotStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SlotStats{
		Deposited:   s.deposited,
		Drained:     s.drained,
		Overwritten: s.overwritten,
		Pending:     s.full,
	}
}

// SlotStats contains slot statistics. Overwritten counts values replaced before
// a reader drained them.
type SlotStats struct {
	Deposited   int64 `json:"deposited"`
	Drained     int64 `json:"drained"`
	Overwritten int64 `json:"overwritten"`
	Pending     bool  `json:"pending"`
}
