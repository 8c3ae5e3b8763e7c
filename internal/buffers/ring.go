package buffers

import "sync"

// Ring is a bounded FIFO buffer. Appending beyond capacity evicts the
// oldest element. Readers get copies, never views into live storage.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Append adds an item, evicting the oldest when the buffer is full.
func (r *Ring[T]) Append(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) >= r.capacity {
		copy(r.items, r.items[1:])
		r.items = r.items[:len(r.items)-1]
	}
	r.items = append(r.items, item)
}

// Snapshot returns a copy of the buffered items in insertion order.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Capacity returns the maximum number of items held.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// Clear drops all buffered items.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = r.items[:0]
}
