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
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is wrapped by every *IndexError.
	ErrIndexOutOfRange = errors.New("reactivearray: index out of range")

	// ErrUnknownKind is returned when an operation kind cannot be decoded.
	ErrUnknownKind = errors.New("reactivearray: unknown operation kind")

	// ErrMalformedOperation is returned when a decoded operation is missing
	// a field its kind requires.
	ErrMalformedOperation = errors.New("reactivearray: malformed operation")

	// ErrNotUndoable is returned by Inverse for operations whose previous
	// state is not recorded.
	ErrNotUndoable = errors.New("reactivearray: operation cannot be undone")
)

// IndexError describes a bounds violation.
//
// Array mutation methods panic with *IndexError before touching storage or
// notifying observers. Len is -1 when the violation was detected while
// constructing an operation with a negative index.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	if e.Len < 0 {
		return fmt.Sprintf("reactivearray: %s at negative index %d", e.Op, e.Index)
	}
	return fmt.Sprintf("reactivearray: %s index %d out of range for length %d", e.Op, e.Index, e.Len)
}

// Unwrap returns ErrIndexOutOfRange.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// RecoverIndexError converts a bounds panic into an error.
//
// Use it with defer at a boundary that must not crash, such as a request
// handler:
//
//	defer reactivearray.RecoverIndexError(&err)
//
// Any other panic is re-raised.
func RecoverIndexError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	var idxErr *IndexError
	if e, ok := r.(error); ok && errors.As(e, &idxErr) {
		*err = idxErr
		return
	}
	panic(r)
}
