// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stream

import "sync"

// Producer is a cold source of values.
//
// Nothing is delivered until the producer is started by calling it with an
// observer. Each start is independent. A producer that has a finite prefix
// delivers it synchronously before returning, which is what Concat relies on.
type Producer[T any] func(observer Observer[T]) *Subscription

// Start starts the producer. It is equivalent to calling p(observer).
func (p Producer[T]) Start(observer Observer[T]) *Subscription {
	return p(observer)
}

// Values returns a producer that synchronously delivers values in order.
func Values[T any](values ...T) Producer[T] {
	snapshot := make([]T, len(values))
	copy(snapshot, values)

	return func(observer Observer[T]) *Subscription {
		sub := newSubscription(nil)
		for _, v := range snapshot {
			if !sub.Active() {
				break
			}
			observer(v)
		}
		return sub
	}
}

// Concat returns a producer that starts first and, once first has returned,
// starts second with the same observer. Cancelling the returned subscription
// cancels both.
func Concat[T any](first, second Producer[T]) Producer[T] {
	return func(observer Observer[T]) *Subscription {
		sub := newSubscription(nil)
		sub.link(first(observer))
		if !sub.Active() {
			return sub
		}
		sub.link(second(observer))
		return sub
	}
}

// MapProducer returns a producer delivering transform(v) for every v that p
// delivers.
func MapProducer[T, U any](p Producer[T], transform func(T) U) Producer[U] {
	return func(observer Observer[U]) *Subscription {
		return p(func(v T) {
			observer(transform(v))
		})
	}
}

// Recorder collects delivered values. Mostly useful in tests and for
// draining a producer into a slice.
//
// Thread Safety: Recorder is safe for concurrent use.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Observer returns an observer that appends to the recorder.
func (r *Recorder[T]) Observer() Observer[T] {
	return func(v T) {
		r.mu.Lock()
		r.values = append(r.values, v)
		r.mu.Unlock()
	}
}

// Values returns a copy of the recorded values in delivery order.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Reset discards recorded values.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.values = nil
	r.mu.Unlock()
}
