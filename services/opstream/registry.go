// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package opstream

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
	"github.com/AleutianAI/reactivearray/pkg/stream"
)

var (
	// ErrArrayExists is returned by Create for a name already in use.
	ErrArrayExists = errors.New("array already exists")

	// ErrArrayNotFound is returned for an unknown array name.
	ErrArrayNotFound = errors.New("array not found")

	// ErrInvalidName is returned by Create for an empty name.
	ErrInvalidName = errors.New("invalid array name")
)

// DefaultJournalSize is the journal capacity used when none is configured.
const DefaultJournalSize = 1024

// Registry holds the named arrays served over HTTP.
//
// Thread Safety: Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	arrays      map[string]*Entry
	journalSize int
	logger      *slog.Logger
}

// NewRegistry creates an empty Registry. Each array gets a journal of
// journalSize entries, or DefaultJournalSize when journalSize <= 0.
func NewRegistry(journalSize int, logger *slog.Logger) *Registry {
	if journalSize <= 0 {
		journalSize = DefaultJournalSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		arrays:      make(map[string]*Entry),
		journalSize: journalSize,
		logger:      logger,
	}
}

// Create registers a new array seeded with elements.
//
// Inputs:
//
//	name - Unique, non-empty array name.
//	seed - Initial elements. They are not journaled.
//	policy - Insert policy of the new array.
//
// Outputs:
//
//	*Entry - The registered array.
//	error - ErrInvalidName or ErrArrayExists.
func (r *Registry) Create(name string, seed []any, policy reactivearray.InsertPolicy) (*Entry, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.arrays[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrArrayExists, name)
	}

	arr := reactivearray.FromSlice(seed,
		reactivearray.WithName(name),
		reactivearray.WithInsertPolicy(policy),
		reactivearray.WithLogger(r.logger),
	)
	journal := reactivearray.NewJournal[any](r.journalSize)
	entry := &Entry{
		name:       name,
		array:      arr,
		journal:    journal,
		journalSub: journal.Attach(arr.Signal()),
	}
	r.arrays[name] = entry
	r.logger.Info("array created",
		"array", name,
		"length", len(seed),
		"insert_policy", policy.String(),
	)
	return entry, nil
}

// Get returns the array registered under name.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.arrays[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArrayNotFound, name)
	}
	return entry, nil
}

// Delete unregisters name and stops its journal. Connected streams keep
// the detached array until they disconnect.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	entry, ok := r.arrays[name]
	delete(r.arrays, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrArrayNotFound, name)
	}
	entry.journalSub.Unsubscribe()
	r.logger.Info("array deleted", "array", name)
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.arrays))
	for name := range r.arrays {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Entry is a registered array together with its journal.
type Entry struct {
	name       string
	array      *reactivearray.Array[any]
	journal    *reactivearray.Journal[any]
	journalSub *stream.Subscription

	// writeMu keeps HTTP writers to one at a time so observers see
	// operations in the order they were applied.
	writeMu sync.Mutex
}

// Name returns the registered name.
func (e *Entry) Name() string {
	return e.name
}

// Array returns the array.
func (e *Entry) Array() *reactivearray.Array[any] {
	return e.array
}

// Journal returns the journal recording the array's operations.
func (e *Entry) Journal() *reactivearray.Journal[any] {
	return e.journal
}

// Apply applies op, converting an out of range operation into an error
// wrapping reactivearray.ErrIndexOutOfRange.
func (e *Entry) Apply(op reactivearray.Operation[any]) (applied reactivearray.Operation[any], err error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	defer reactivearray.RecoverIndexError(&err)

	return e.array.Apply(op), nil
}

// Stream starts a replay-then-live observer on the array. newObserver is
// told how many replayed operations come before the live ones; writers are
// held off until the replay has been delivered, so that count is exact.
func (e *Entry) Stream(newObserver func(replay int) stream.Observer[reactivearray.Operation[any]]) *stream.Subscription {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	observer := newObserver(e.array.Len())
	return e.array.Producer().Start(observer)
}
