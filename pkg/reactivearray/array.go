// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reactivearray

import (
	"context"
	"fmt"
	"sync"

	"github.com/AleutianAI/reactivearray/pkg/stream"
)

// Array is an ordered collection that emits an Operation for every mutation.
//
// Description:
//
//	Each mutation method validates its index, applies the operation to the
//	element storage, and then broadcasts the applied operation. By the time
//	a mutation method returns, the storage already reflects the change and
//	every observer has been called, unless the method was called from inside
//	an observer: that operation is delivered right after the one being
//	delivered, so observers always see operations in the order they were
//	applied.
//
//	Observers attach live-only through Signal, or replay-then-live through
//	Producer, which first delivers one Append per stored element.
//
// Thread Safety:
//
//	Storage and attach are guarded by one lock, so a replaying observer
//	never misses or duplicates an operation. Mutations are expected from a
//	single goroutine: concurrent mutators are safe for storage but the
//	order in which observers see their operations is undefined.
type Array[T any] struct {
	mu       sync.Mutex
	elements []T
	upstream *stream.Subscription

	signal *stream.Signal[Operation[T]]
	count  *stream.MutableProperty[int]
	cfg    config
}

// New creates an empty Array.
func New[T any](opts ...Option) *Array[T] {
	return newArray[T](nil, opts)
}

// FromSlice creates an Array holding a copy of elements. The initial
// elements are not announced to observers; Producer replays them.
func FromSlice[T any](elements []T, opts ...Option) *Array[T] {
	return newArray(elements, opts)
}

// FromProducer creates an empty Array driven by producer.
//
// Description:
//
//	The producer is started immediately. Every operation it delivers is
//	applied exactly as if the matching mutation method had been called, and
//	re-emitted to this array's observers. Close detaches the producer.
//	An operation that is out of range for this array panics inside the
//	producer's delivery, where it is recovered and logged.
func FromProducer[T any](producer stream.Producer[Operation[T]], opts ...Option) *Array[T] {
	a := newArray[T](nil, opts)
	sub := producer.Start(func(op Operation[T]) {
		a.Apply(op)
	})

	a.mu.Lock()
	a.upstream = sub
	a.mu.Unlock()
	return a
}

// Mirror returns an Array that holds transform applied to every element of
// src and stays in sync with it.
//
// Description:
//
//	The mirror replays src and then follows its live operations, each
//	passed through Map with transform. It only reads from src. The mirror
//	inherits the insert policy of src unless opts override it. The mirror
//	stays attached until Close is called on it.
func Mirror[T, U any](src *Array[T], transform func(T) U, opts ...Option) *Array[U] {
	inherited := append([]Option{WithInsertPolicy(src.cfg.policy)}, opts...)
	mapped := stream.MapProducer(src.Producer(), func(op Operation[T]) Operation[U] {
		return Map(op, transform)
	})
	return FromProducer(mapped, inherited...)
}

func newArray[T any](elements []T, opts []Option) *Array[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	stored := make([]T, len(elements))
	copy(stored, elements)

	return &Array[T]{
		elements: stored,
		signal: stream.NewSignal[Operation[T]](
			stream.WithName(cfg.name),
			stream.WithLogger(cfg.logger),
		),
		count: stream.NewMutableProperty(len(stored),
			stream.WithName(cfg.name+".count"),
			stream.WithLogger(cfg.logger),
		),
		cfg: cfg,
	}
}

// Append adds value at the end.
func (a *Array[T]) Append(value T) {
	a.Apply(Append(value))
}

// Insert writes value at index according to the array's InsertPolicy.
//
// Under InsertReplaces the index must be in [0, Len()); under InsertShifts
// it must be in [0, Len()]. Panics with *IndexError otherwise.
func (a *Array[T]) Insert(value T, index int) {
	a.Apply(Insert(value, index))
}

// Update replaces the element at index. Panics with *IndexError unless
// index is in [0, Len()).
func (a *Array[T]) Update(value T, index int) {
	a.Apply(Update(value, index))
}

// Set is Update. It goes through the same operation path so observers see
// every write.
func (a *Array[T]) Set(index int, value T) {
	a.Update(value, index)
}

// RemoveAt removes and returns the element at index. Panics with
// *IndexError unless index is in [0, Len()).
func (a *Array[T]) RemoveAt(index int) T {
	applied := a.Apply(Remove[T](index))
	old, _ := applied.OldValue()
	return old
}

// Apply applies op and broadcasts it.
//
// Description:
//
//	This is the single mutation path used by every mutation method. A
//	Remove that carries no value is filled in with the removed element
//	before it is emitted.
//
// Inputs:
//
//	op - The operation to apply.
//
// Outputs:
//
//	Operation[T] - The operation as emitted.
//
// Panics with *IndexError, before any change or notification, if op is out
// of range.
func (a *Array[T]) Apply(op Operation[T]) Operation[T] {
	a.mu.Lock()
	before := len(a.elements)
	if err := checkBounds(op, before, a.cfg.policy); err != nil {
		a.mu.Unlock()
		a.cfg.logger.Warn("rejected out of range operation",
			"array", a.cfg.name,
			"operation", op.String(),
			"length", before,
		)
		recordBoundsViolation(context.Background(), a.cfg.name, op.kind)
		panic(err)
	}

	if op.kind == KindRemove && !op.hasOld {
		op = RemoveValue(op.index, a.elements[op.index])
	}
	a.elements = applyTo(a.elements, op, a.cfg.policy)
	after := len(a.elements)
	recipients := a.signal.Recipients()
	a.mu.Unlock()

	recordOperation(context.Background(), a.cfg.name, op.kind)
	a.cfg.logger.Debug("applied operation",
		"array", a.cfg.name,
		"operation", op.String(),
		"length", after,
		"observers", recipients.Len(),
	)

	if after != before {
		a.count.Set(after)
	}
	recipients.Send(op)
	return op
}

// Get returns the element at index. Panics with *IndexError unless index
// is in [0, Len()).
func (a *Array[T]) Get(index int) T {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.elements) {
		panic(&IndexError{Op: "get", Index: index, Len: len(a.elements)})
	}
	return a.elements[index]
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.elements)
}

// IsEmpty reports whether the array has no elements.
func (a *Array[T]) IsEmpty() bool {
	return a.Len() == 0
}

// First returns the first element, or false if the array is empty.
func (a *Array[T]) First() (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.elements) == 0 {
		var zero T
		return zero, false
	}
	return a.elements[0], true
}

// Last returns the last element, or false if the array is empty.
func (a *Array[T]) Last() (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.elements) == 0 {
		var zero T
		return zero, false
	}
	return a.elements[len(a.elements)-1], true
}

// ToSlice returns a copy of the current elements.
func (a *Array[T]) ToSlice() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]T, len(a.elements))
	copy(out, a.elements)
	return out
}

// String renders the current elements.
func (a *Array[T]) String() string {
	return fmt.Sprintf("%v", a.ToSlice())
}

// Name returns the name given with WithName.
func (a *Array[T]) Name() string {
	return a.cfg.name
}

// InsertPolicy returns the policy the array applies Inserts with.
func (a *Array[T]) InsertPolicy() InsertPolicy {
	return a.cfg.policy
}

// Signal returns the live operation stream. Observers attached through it
// see only operations applied after they attach.
func (a *Array[T]) Signal() stream.Source[Operation[T]] {
	return stream.ReadOnly(a.signal)
}

// Producer returns a replay-then-live producer.
//
// Description:
//
//	When started, the producer delivers one Append per element held at that
//	moment, in order, then every operation applied afterwards. The snapshot
//	and the attach happen under the storage lock; operations applied while
//	the replay is still being delivered are queued behind it.
func (a *Array[T]) Producer() stream.Producer[Operation[T]] {
	return func(observer stream.Observer[Operation[T]]) *stream.Subscription {
		a.mu.Lock()
		replay := make([]Operation[T], len(a.elements))
		for i, v := range a.elements {
			replay[i] = Append(v)
		}
		held := a.signal.Hold(observer)
		a.mu.Unlock()

		held.Prepend(replay...)
		return held.Release()
	}
}

// Count returns the element count as a property. Observers receive the
// current count on attach, then a value whenever the length changes.
func (a *Array[T]) Count() stream.Property[int] {
	return stream.ReadOnlyProperty(a.count)
}

// Close detaches an array built by FromProducer or Mirror from its source.
// It is a no-op for other arrays and safe to call more than once.
func (a *Array[T]) Close() {
	a.mu.Lock()
	upstream := a.upstream
	a.upstream = nil
	a.mu.Unlock()

	if upstream != nil {
		upstream.Unsubscribe()
	}
}
