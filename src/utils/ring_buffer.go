package utils

import "sync"

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer. Once full, each Append
// overwrites the oldest element. Safe for concurrent use.
// -----------------------------------------------------------------------------

type RingBuffer[T any] struct {
	mu       sync.RWMutex
	data     []T
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 128 // Default reasonable size
	}

	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds an element, evicting the oldest when full
func (rb *RingBuffer[T]) Append(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.index] = item
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n most recent elements, oldest first
func (rb *RingBuffer[T]) GetLatest(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 || n <= 0 {
		return []T{}
	}

	count := min(n, rb.size)
	result := make([]T, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer[T]) GetAll() []T {
	rb.mu.RLock()
	size := rb.size
	rb.mu.RUnlock()

	return rb.GetLatest(size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer[T]) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Filter drops every element for which keep returns false, in one locked
// pass. Survivors keep their order. Returns how many were removed.
func (rb *RingBuffer[T]) Filter(keep func(T) bool) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	kept := make([]T, 0, rb.size)
	start := (rb.index - rb.size + rb.capacity) % rb.capacity
	for i := 0; i < rb.size; i++ {
		item := rb.data[(start+i)%rb.capacity]
		if keep(item) {
			kept = append(kept, item)
		}
	}

	removed := rb.size - len(kept)
	if removed == 0 {
		return 0
	}

	var zero T
	for i := range rb.data {
		rb.data[i] = zero
	}
	copy(rb.data, kept)
	rb.size = len(kept)
	rb.index = rb.size % rb.capacity
	return removed
}
