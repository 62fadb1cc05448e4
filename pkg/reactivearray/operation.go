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
	"fmt"
	"slices"
)

// Kind identifies the variant of an Operation.
type Kind uint8

const (
	// KindAppend adds a value at the end.
	KindAppend Kind = iota + 1

	// KindInsert writes a value at an index. Whether it replaces or shifts
	// depends on the array's InsertPolicy.
	KindInsert

	// KindUpdate replaces the value at an index.
	KindUpdate

	// KindRemove removes the value at an index.
	KindRemove
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAppend:
		return "append"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "append":
		return KindAppend, nil
	case "insert":
		return KindInsert, nil
	case "update":
		return KindUpdate, nil
	case "remove":
		return KindRemove, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Operation is an immutable record of one mutation.
//
// Description:
//
//	Operation is a closed variant: Append, Insert, Update, or Remove. Build
//	values with the constructors of the same name; the zero Operation is not
//	valid. A Remove may carry the value it removed, which is what arrays
//	emit, so observers can audit or undo removals.
//
// Thread Safety:
//
//	Operations are values and safe to share once constructed.
type Operation[T any] struct {
	kind   Kind
	index  int
	value  T
	old    T
	hasOld bool
}

// Append builds an Append operation.
func Append[T any](value T) Operation[T] {
	return Operation[T]{kind: KindAppend, index: -1, value: value}
}

// Insert builds an Insert operation. Panics with *IndexError if at is negative.
func Insert[T any](value T, at int) Operation[T] {
	mustNonNegative("insert", at)
	return Operation[T]{kind: KindInsert, index: at, value: value}
}

// Update builds an Update operation. Panics with *IndexError if at is negative.
func Update[T any](value T, at int) Operation[T] {
	mustNonNegative("update", at)
	return Operation[T]{kind: KindUpdate, index: at, value: value}
}

// Remove builds a Remove operation that carries no value.
// Panics with *IndexError if at is negative.
func Remove[T any](at int) Operation[T] {
	mustNonNegative("remove", at)
	return Operation[T]{kind: KindRemove, index: at}
}

// RemoveValue builds a Remove operation carrying the removed value.
// Panics with *IndexError if at is negative.
func RemoveValue[T any](at int, old T) Operation[T] {
	mustNonNegative("remove", at)
	return Operation[T]{kind: KindRemove, index: at, old: old, hasOld: true}
}

func mustNonNegative(op string, at int) {
	if at < 0 {
		panic(&IndexError{Op: op, Index: at, Len: -1})
	}
}

// Kind returns the variant.
func (o Operation[T]) Kind() Kind {
	return o.kind
}

// Index returns the target index, or -1 for Append.
func (o Operation[T]) Index() int {
	return o.index
}

// Value returns the payload most relevant to the operation: the appended,
// inserted or updated value, or the removed value when the Remove carries
// one. It returns false for a bare Remove.
func (o Operation[T]) Value() (T, bool) {
	switch o.kind {
	case KindAppend, KindInsert, KindUpdate:
		return o.value, true
	case KindRemove:
		return o.old, o.hasOld
	default:
		var zero T
		return zero, false
	}
}

// OldValue returns the removed value of a Remove that carries one.
func (o Operation[T]) OldValue() (T, bool) {
	if o.kind != KindRemove || !o.hasOld {
		var zero T
		return zero, false
	}
	return o.old, true
}

// String renders the operation for debugging, e.g. ".Insert(value: 5, at: 1)".
func (o Operation[T]) String() string {
	switch o.kind {
	case KindAppend:
		return fmt.Sprintf(".Append(value: %v)", o.value)
	case KindInsert:
		return fmt.Sprintf(".Insert(value: %v, at: %d)", o.value, o.index)
	case KindUpdate:
		return fmt.Sprintf(".Update(value: %v, at: %d)", o.value, o.index)
	case KindRemove:
		if o.hasOld {
			return fmt.Sprintf(".Remove(at: %d, oldValue: %v)", o.index, o.old)
		}
		return fmt.Sprintf(".Remove(at: %d)", o.index)
	default:
		return ".Invalid"
	}
}

// Map applies transform to every payload of op, keeping variant and index.
// A bare Remove stays bare.
func Map[T, U any](op Operation[T], transform func(T) U) Operation[U] {
	out := Operation[U]{kind: op.kind, index: op.index, hasOld: op.hasOld}
	switch op.kind {
	case KindAppend, KindInsert, KindUpdate:
		out.value = transform(op.value)
	case KindRemove:
		if op.hasOld {
			out.old = transform(op.old)
		}
	}
	return out
}

// Equal reports whether a and b are the same variant with equal payloads.
func Equal[T comparable](a, b Operation[T]) bool {
	return EqualFunc(a, b, func(x, y T) bool { return x == y })
}

// EqualFunc is Equal with a caller supplied payload comparison.
func EqualFunc[T any](a, b Operation[T], eq func(T, T) bool) bool {
	if a.kind != b.kind || a.index != b.index {
		return false
	}
	switch a.kind {
	case KindAppend, KindInsert, KindUpdate:
		return eq(a.value, b.value)
	case KindRemove:
		if a.hasOld != b.hasOld {
			return false
		}
		return !a.hasOld || eq(a.old, b.old)
	default:
		return true
	}
}

// EqualSlices reports whether a and b have the same length and are pointwise
// Equal in order.
func EqualSlices[T comparable](a, b []Operation[T]) bool {
	return slices.EqualFunc(a, b, Equal[T])
}

// InsertPolicy selects what an Insert does to the array.
type InsertPolicy uint8

const (
	// InsertReplaces overwrites the element at the index. Length is
	// unchanged and the index must be in [0, len).
	InsertReplaces InsertPolicy = iota

	// InsertShifts inserts before the element at the index, shifting later
	// elements right. The index must be in [0, len].
	InsertShifts
)

// String returns "replace" or "shift".
func (p InsertPolicy) String() string {
	if p == InsertShifts {
		return "shift"
	}
	return "replace"
}

// ParseInsertPolicy parses "replace" or "shift". The empty string means
// InsertReplaces.
func ParseInsertPolicy(s string) (InsertPolicy, error) {
	switch s {
	case "", "replace":
		return InsertReplaces, nil
	case "shift":
		return InsertShifts, nil
	default:
		return 0, fmt.Errorf("unknown insert policy %q", s)
	}
}

// checkBounds returns an *IndexError if op cannot be applied to a sequence
// of length n.
func checkBounds[T any](op Operation[T], n int, policy InsertPolicy) error {
	upper := n
	switch op.kind {
	case KindAppend:
		return nil
	case KindInsert:
		if policy == InsertShifts {
			upper = n + 1
		}
	case KindUpdate, KindRemove:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, op.kind)
	}
	if op.index < 0 || op.index >= upper {
		return &IndexError{Op: op.kind.String(), Index: op.index, Len: n}
	}
	return nil
}

// applyTo applies a bounds-checked op to elements and returns the result.
func applyTo[T any](elements []T, op Operation[T], policy InsertPolicy) []T {
	switch op.kind {
	case KindAppend:
		return append(elements, op.value)
	case KindInsert:
		if policy == InsertShifts {
			return slices.Insert(elements, op.index, op.value)
		}
		elements[op.index] = op.value
	case KindUpdate:
		elements[op.index] = op.value
	case KindRemove:
		return slices.Delete(elements, op.index, op.index+1)
	}
	return elements
}

// Fold applies ops in order to an empty sequence using the same rules as
// Array. Panics with *IndexError on the first operation that is out of
// range.
func Fold[T any](ops []Operation[T], policy InsertPolicy) []T {
	elements := make([]T, 0, len(ops))
	for _, op := range ops {
		if err := checkBounds(op, len(elements), policy); err != nil {
			panic(err)
		}
		elements = applyTo(elements, op, policy)
	}
	return elements
}

// Inverse returns the operation that undoes op, given the array length
// after op was applied and the policy it was applied under.
//
// Append, Insert under InsertShifts, and a Remove carrying its value under
// InsertShifts can be undone. Everything else returns ErrNotUndoable,
// because the overwritten value is not recorded.
func Inverse[T any](op Operation[T], lengthAfter int, policy InsertPolicy) (Operation[T], error) {
	switch op.kind {
	case KindAppend:
		if lengthAfter < 1 {
			return Operation[T]{}, fmt.Errorf("%w: append into empty array", ErrNotUndoable)
		}
		return RemoveValue(lengthAfter-1, op.value), nil
	case KindInsert:
		if policy == InsertShifts {
			return RemoveValue(op.index, op.value), nil
		}
	case KindRemove:
		if policy == InsertShifts && op.hasOld {
			return Insert(op.old, op.index), nil
		}
	}
	return Operation[T]{}, fmt.Errorf("%w: %s", ErrNotUndoable, op)
}
