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

// ReadOnly wraps s so that holders of the result cannot send on it.
func ReadOnly[T any](s *Signal[T]) Source[T] {
	return readOnlySource[T]{signal: s}
}

// ReadOnlyProperty wraps p so that holders of the result cannot set it.
func ReadOnlyProperty[T any](p *MutableProperty[T]) Property[T] {
	return readOnlyProperty[T]{property: p}
}

type readOnlySource[T any] struct {
	signal *Signal[T]
}

func (r readOnlySource[T]) Observe(observer Observer[T]) *Subscription {
	return r.signal.Observe(observer)
}

func (r readOnlySource[T]) Producer() Producer[T] {
	return r.signal.Producer()
}

type readOnlyProperty[T any] struct {
	property *MutableProperty[T]
}

func (r readOnlyProperty[T]) Value() T {
	return r.property.Value()
}

func (r readOnlyProperty[T]) Observe(observer Observer[T]) *Subscription {
	return r.property.Observe(observer)
}

func (r readOnlyProperty[T]) Producer() Producer[T] {
	return r.property.Producer()
}
