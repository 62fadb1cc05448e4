// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history provides bounded in-memory containers for recent events.
package history

// RingBuffer is a fixed-size circular buffer.
//
// # Description
//
// Provides O(1) push and bounded memory usage. When full, the oldest item
// is overwritten and Push reports the eviction.
//
// # Thread Safety
//
// NOT safe for concurrent use; caller must synchronize.
type RingBuffer[T any] struct {
	data  []T
	head  int // Next write position
	tail  int // First element position
	count int
}

// NewRingBuffer creates a ring buffer holding at most capacity items.
// A non-positive capacity falls back to 100.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &RingBuffer[T]{
		data: make([]T, capacity),
	}
}

// Push adds an item to the buffer.
//
// # Outputs
//
//   - T: The evicted item, if any.
//   - bool: True if an item was evicted to make room.
func (r *RingBuffer[T]) Push(item T) (T, bool) {
	var evicted T
	overwrote := false
	if r.count == len(r.data) {
		evicted = r.data[r.tail]
		overwrote = true
		r.tail = (r.tail + 1) % len(r.data)
	} else {
		r.count++
	}

	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	return evicted, overwrote
}

// PeekNewest returns the newest item without removing it.
func (r *RingBuffer[T]) PeekNewest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := r.head - 1
	if idx < 0 {
		idx = len(r.data) - 1
	}
	return r.data[idx], true
}

// Slice returns all items from oldest to newest as a copy.
func (r *RingBuffer[T]) Slice() []T {
	result := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		result[i] = r.data[(r.tail+i)%len(r.data)]
	}
	return result
}

// Filter returns the items matching predicate, oldest first.
func (r *RingBuffer[T]) Filter(predicate func(item T) bool) []T {
	var result []T
	for i := 0; i < r.count; i++ {
		item := r.data[(r.tail+i)%len(r.data)]
		if predicate(item) {
			result = append(result, item)
		}
	}
	return result
}

// Len returns the current number of elements.
func (r *RingBuffer[T]) Len() int {
	return r.count
}

// Cap returns the maximum capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// Clear removes all elements from the buffer.
func (r *RingBuffer[T]) Clear() {
	clear(r.data)
	r.head = 0
	r.tail = 0
	r.count = 0
}
