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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/reactivearray/pkg/history"
	"github.com/AleutianAI/reactivearray/pkg/stream"
)

// Entry is one recorded operation.
type Entry[T any] struct {
	// ID uniquely identifies this entry.
	ID string `json:"id"`

	// Seq is the 1-based position of the entry in the journal.
	Seq uint64 `json:"seq"`

	// Time is when the operation was recorded.
	Time time.Time `json:"time"`

	// Op is the recorded operation.
	Op Operation[T] `json:"op"`
}

// Journal is a bounded in-memory audit trail of operations.
//
// Description:
//
//	Once full, the oldest entry is dropped for every new one and Dropped
//	counts the losses. Nothing is persisted.
//
// Thread Safety:
//
//	Journal is safe for concurrent use.
type Journal[T any] struct {
	mu      sync.RWMutex
	ring    *history.RingBuffer[Entry[T]]
	seq     uint64
	dropped uint64
	now     func() time.Time
}

// NewJournal creates a journal keeping the latest capacity entries.
func NewJournal[T any](capacity int) *Journal[T] {
	return &Journal[T]{
		ring: history.NewRingBuffer[Entry[T]](capacity),
		now:  time.Now,
	}
}

// Attach records every operation src emits from now on.
func (j *Journal[T]) Attach(src stream.Source[Operation[T]]) *stream.Subscription {
	return src.Observe(func(op Operation[T]) {
		j.Record(op)
	})
}

// Record appends op to the journal and returns the new entry.
func (j *Journal[T]) Record(op Operation[T]) Entry[T] {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	entry := Entry[T]{
		ID:   uuid.NewString(),
		Seq:  j.seq,
		Time: j.now(),
		Op:   op,
	}
	if _, evicted := j.ring.Push(entry); evicted {
		j.dropped++
	}
	return entry
}

// Entries returns the retained entries, oldest first.
func (j *Journal[T]) Entries() []Entry[T] {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ring.Slice()
}

// Since returns the retained entries with Seq greater than seq.
func (j *Journal[T]) Since(seq uint64) []Entry[T] {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ring.Filter(func(e Entry[T]) bool {
		return e.Seq > seq
	})
}

// Latest returns the newest entry, or false if nothing was recorded.
func (j *Journal[T]) Latest() (Entry[T], bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ring.PeekNewest()
}

// Len returns the number of retained entries.
func (j *Journal[T]) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ring.Len()
}

// Dropped returns how many entries were evicted for lack of capacity.
func (j *Journal[T]) Dropped() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.dropped
}

// Operations returns the retained operations, oldest first.
//
// When Dropped is zero and the journal was attached before the first
// mutation of an initially empty array, Fold(Operations()) reproduces the
// array's contents.
func (j *Journal[T]) Operations() []Operation[T] {
	entries := j.Entries()
	ops := make([]Operation[T], len(entries))
	for i, e := range entries {
		ops[i] = e.Op
	}
	return ops
}
