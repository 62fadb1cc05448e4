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

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is the handle returned when an observer is attached.
//
// Thread Safety: Subscription is safe for concurrent use.
type Subscription struct {
	id     string
	active atomic.Bool

	once     sync.Once
	mu       sync.Mutex
	onCancel []func()
}

func newSubscription(onCancel func()) *Subscription {
	s := &Subscription{id: uuid.NewString()}
	s.active.Store(true)
	if onCancel != nil {
		s.onCancel = append(s.onCancel, onCancel)
	}
	return s
}

// ID uniquely identifies the subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Active reports whether the subscription still receives values.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Unsubscribe stops delivery to the observer.
//
// Delivery to other subscribers is unaffected. Returns true on the first
// call and false afterwards.
func (s *Subscription) Unsubscribe() bool {
	cancelled := false
	s.once.Do(func() {
		s.active.Store(false)
		cancelled = true

		s.mu.Lock()
		hooks := s.onCancel
		s.onCancel = nil
		s.mu.Unlock()

		for _, fn := range hooks {
			fn()
		}
	})
	return cancelled
}

// link makes cancelling s also cancel other.
func (s *Subscription) link(other *Subscription) {
	if other == nil || other == s {
		return
	}
	s.mu.Lock()
	if s.active.Load() {
		s.onCancel = append(s.onCancel, func() { other.Unsubscribe() })
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	other.Unsubscribe()
}
