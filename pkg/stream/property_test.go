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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutableProperty_ObserveEmitsCurrentThenChanges(t *testing.T) {
	prop := NewMutableProperty(4)
	rec := NewRecorder[int]()

	prop.Observe(rec.Observer())
	prop.Set(5)
	prop.Set(3)

	assert.Equal(t, []int{4, 5, 3}, rec.Values())
	assert.Equal(t, 3, prop.Value())
}

func TestMutableProperty_SetDuringInitialDelivery(t *testing.T) {
	prop := NewMutableProperty(0)
	rec := NewRecorder[int]()

	prop.Observe(func(v int) {
		rec.Observer()(v)
		if v == 0 {
			prop.Set(1)
		}
	})

	assert.Equal(t, []int{0, 1}, rec.Values())
}

func TestMutableProperty_Unsubscribe(t *testing.T) {
	prop := NewMutableProperty("a")
	rec := NewRecorder[string]()

	sub := prop.Producer().Start(rec.Observer())
	prop.Set("b")
	sub.Unsubscribe()
	prop.Set("c")

	assert.Equal(t, []string{"a", "b"}, rec.Values())
}

var _ Property[int] = (*MutableProperty[int])(nil)
var _ Source[int] = (*Signal[int])(nil)

func TestReadOnlyWrappers(t *testing.T) {
	sig := NewSignal[int]()
	src := ReadOnly(sig)
	_, isSignal := src.(*Signal[int])
	assert.False(t, isSignal)

	rec := NewRecorder[int]()
	src.Observe(rec.Observer())
	sig.Send(1)
	assert.Equal(t, []int{1}, rec.Values())

	prop := NewMutableProperty(2)
	view := ReadOnlyProperty(prop)
	_, isMutable := view.(*MutableProperty[int])
	assert.False(t, isMutable)
	prop.Set(3)
	assert.Equal(t, 3, view.Value())
}
