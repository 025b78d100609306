package stats

import "sync"

// Ring is a generic, thread-safe, fixed-capacity circular buffer.
// Once constructed it always holds exactly capacity items; adding a new
// item evicts the oldest.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
}

// NewRing creates a Ring with the given capacity, pre-filled with the
// zero value of T so consumers always see a full window.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items: make([]T, capacity),
	}
}

// Push inserts an item, overwriting the oldest.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
}

// Len returns the capacity of the ring, which is also the number of
// items it holds.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Values returns all items in order from oldest to newest.
func (r *Ring[T]) Values() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]T, len(r.items))
	for i := range r.items {
		result[i] = r.items[(r.head+i)%len(r.items)]
	}
	return result
}

// Last returns the most recently pushed item.
func (r *Ring[T]) Last() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := (r.head - 1 + len(r.items)) % len(r.items)
	return r.items[idx]
}
