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
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Observer receives values delivered by a Signal or Producer.
type Observer[T any] func(value T)

// Source is the read side of a Signal.
//
// Consumers receive a Source so they can observe values without being able
// to send them.
type Source[T any] interface {
	// Observe attaches an observer for values sent from now on.
	Observe(observer Observer[T]) *Subscription

	// Producer returns a cold producer that attaches when started.
	Producer() Producer[T]
}

// SignalOption configures a Signal.
type SignalOption func(*signalConfig)

type signalConfig struct {
	name   string
	logger *slog.Logger
}

// WithName labels the signal in logs and metrics.
func WithName(name string) SignalOption {
	return func(c *signalConfig) {
		c.name = name
	}
}

// WithLogger sets the logger used to report observer panics.
func WithLogger(logger *slog.Logger) SignalOption {
	return func(c *signalConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Signal is a hot multicast emitter.
//
// Description:
//
//	Values sent on a Signal are delivered synchronously, in send order, to
//	every subscriber attached at the time of the send. Subscribers attached
//	later see only later values. A panic in one observer is recovered and
//	logged; delivery continues with the next subscriber.
//
//	A value sent while an earlier one is still being delivered is queued
//	behind it, so every subscriber sees values in send order even when an
//	observer sends re-entrantly. Such a queued send returns before its
//	value is delivered; the outermost send returns once the queue is empty.
//
// Thread Safety:
//
//	Signal is safe for concurrent use. The subscriber list is copy-on-write
//	and no lock is held while observers run, so observers may subscribe,
//	unsubscribe, or send re-entrantly.
type Signal[T any] struct {
	mu          sync.RWMutex
	subscribers []*subscriber[T]
	cfg         signalConfig

	emitMu   sync.Mutex
	queue    []emission[T]
	draining bool
}

type emission[T any] struct {
	subscribers []*subscriber[T]
	value       T
}

// NewSignal creates a Signal with no subscribers.
func NewSignal[T any](opts ...SignalOption) *Signal[T] {
	cfg := signalConfig{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Signal[T]{cfg: cfg}
}

// Observe attaches observer for values sent after this call returns.
//
// Inputs:
//
//	observer - Function called for each value.
//
// Outputs:
//
//	*Subscription - Handle used to detach the observer.
func (s *Signal[T]) Observe(observer Observer[T]) *Subscription {
	sub := s.attach(observer, false)
	return sub.subscription
}

// Hold attaches observer with live delivery suspended.
//
// Description:
//
//	Values sent while the subscriber is held are queued. The caller may
//	deliver a synthetic prefix with Held.Prepend, then call Held.Release to
//	flush the queue and switch to live delivery. Together with Recipients
//	this lets a caller take a snapshot and attach inside one critical
//	section without delivering any value twice or missing one.
func (s *Signal[T]) Hold(observer Observer[T]) *Held[T] {
	return &Held[T]{sub: s.attach(observer, true)}
}

// Send delivers value to every current subscriber.
func (s *Signal[T]) Send(value T) {
	s.Recipients().Send(value)
}

// Recipients captures the current subscriber set.
//
// Description:
//
//	The returned Recipients delivers to exactly the subscribers attached at
//	the time of the call. Callers that guard their own state with a lock
//	capture recipients inside that lock and send after releasing it.
func (s *Signal[T]) Recipients() Recipients[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Recipients[T]{signal: s, subscribers: s.subscribers}
}

// SubscriberCount returns the number of attached subscribers.
func (s *Signal[T]) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Producer returns a cold producer that attaches to s when started.
// It replays nothing.
func (s *Signal[T]) Producer() Producer[T] {
	return func(observer Observer[T]) *Subscription {
		return s.Observe(observer)
	}
}

func (s *Signal[T]) attach(observer Observer[T], held bool) *subscriber[T] {
	sub := &subscriber[T]{
		observer: observer,
		held:     held,
		name:     s.cfg.name,
		logger:   s.cfg.logger,
	}
	sub.subscription = newSubscription(func() {
		s.detach(sub)
	})

	s.mu.Lock()
	next := make([]*subscriber[T], len(s.subscribers), len(s.subscribers)+1)
	copy(next, s.subscribers)
	s.subscribers = append(next, sub)
	s.mu.Unlock()
	return sub
}

func (s *Signal[T]) detach(sub *subscriber[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.subscribers, sub)
	if i < 0 {
		return
	}
	next := slices.Clone(s.subscribers)
	s.subscribers = slices.Delete(next, i, i+1)
}

// dispatch queues value for subs and drains the queue unless another
// dispatch is already draining it.
func (s *Signal[T]) dispatch(subs []*subscriber[T], value T) {
	s.emitMu.Lock()
	s.queue = append(s.queue, emission[T]{subscribers: subs, value: value})
	if s.draining {
		s.emitMu.Unlock()
		return
	}
	s.draining = true
	s.emitMu.Unlock()

	for {
		s.emitMu.Lock()
		if len(s.queue) == 0 {
			s.queue = nil
			s.draining = false
			s.emitMu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.emitMu.Unlock()

		for _, sub := range next.subscribers {
			sub.deliver(next.value)
		}
	}
}

// Recipients is a captured subscriber set. See Signal.Recipients.
type Recipients[T any] struct {
	signal      *Signal[T]
	subscribers []*subscriber[T]
}

// Send delivers value to each captured subscriber that is still attached,
// behind any value the signal is already delivering.
func (r Recipients[T]) Send(value T) {
	if r.signal == nil {
		return
	}
	r.signal.dispatch(r.subscribers, value)
}

// Len returns the number of captured subscribers.
func (r Recipients[T]) Len() int {
	return len(r.subscribers)
}

// Held is a subscriber whose live delivery is suspended. See Signal.Hold.
type Held[T any] struct {
	sub *subscriber[T]
}

// Prepend delivers values to the held observer ahead of any queued value.
// It stops early if the subscription is cancelled.
func (h *Held[T]) Prepend(values ...T) {
	for _, v := range values {
		if !h.sub.subscription.Active() {
			return
		}
		h.sub.invoke(v)
	}
}

// Release flushes queued values in send order and switches the subscriber
// to live delivery.
func (h *Held[T]) Release() *Subscription {
	h.sub.release()
	return h.sub.subscription
}

// Subscription returns the handle of the held subscriber.
func (h *Held[T]) Subscription() *Subscription {
	return h.sub.subscription
}

type subscriber[T any] struct {
	observer     Observer[T]
	subscription *Subscription
	name         string
	logger       *slog.Logger

	mu      sync.Mutex
	held    bool
	pending []T
}

func (s *subscriber[T]) deliver(value T) {
	if !s.subscription.Active() {
		return
	}

	s.mu.Lock()
	if s.held {
		s.pending = append(s.pending, value)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.invoke(value)
}

func (s *subscriber[T]) release() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.held = false
			s.mu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, v := range batch {
			if !s.subscription.Active() {
				break
			}
			s.invoke(v)
		}
	}
}

// invoke calls the observer with panic recovery so one misbehaving observer
// cannot stop delivery to the others.
func (s *subscriber[T]) invoke(value T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stream observer panicked",
				"signal", s.name,
				"subscription_id", s.subscription.ID(),
				"panic", r,
			)
			recordObserverPanic(context.Background(), s.name)
		}
	}()
	s.observer(value)
}
