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

// Property is a read-only current value with a change stream.
type Property[T any] interface {
	// Value returns the current value.
	Value() T

	// Observe delivers the current value immediately, then every change.
	Observe(observer Observer[T]) *Subscription

	// Producer returns a cold producer with the same behaviour as Observe.
	Producer() Producer[T]
}

// MutableProperty holds a value and broadcasts every Set.
//
// Description:
//
//	Observe captures the current value and attaches the observer inside the
//	property lock, so an observer sees the value at attach time followed by
//	exactly the values set afterwards.
//
// Thread Safety:
//
//	Safe for concurrent use. Concurrent Set calls are applied in lock order
//	but their notifications may interleave; use a single writer when
//	observers depend on notification order.
type MutableProperty[T any] struct {
	mu     sync.Mutex
	value  T
	signal *Signal[T]
}

// NewMutableProperty creates a property holding initial.
func NewMutableProperty[T any](initial T, opts ...SignalOption) *MutableProperty[T] {
	return &MutableProperty[T]{
		value:  initial,
		signal: NewSignal[T](opts...),
	}
}

// Value returns the current value.
func (p *MutableProperty[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set stores value and notifies observers.
func (p *MutableProperty[T]) Set(value T) {
	p.mu.Lock()
	p.value = value
	recipients := p.signal.Recipients()
	p.mu.Unlock()

	recipients.Send(value)
}

// Observe delivers the current value, then every subsequent Set.
func (p *MutableProperty[T]) Observe(observer Observer[T]) *Subscription {
	p.mu.Lock()
	current := p.value
	held := p.signal.Hold(observer)
	p.mu.Unlock()

	held.Prepend(current)
	return held.Release()
}

// Producer returns a producer equivalent to Observe.
func (p *MutableProperty[T]) Producer() Producer[T] {
	return p.Observe
}
