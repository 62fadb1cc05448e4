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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/reactivearray/pkg/stream"
)

func plusTen(v int) int { return v + 10 }

func TestMirror_HoldsTransformedElements(t *testing.T) {
	src := newTestArray()
	mirror := Mirror(src, plusTen)
	defer mirror.Close()

	assert.Equal(t, []int{11, 12, 13, 14}, mirror.ToSlice())
	assert.Equal(t, 4, mirror.Count().Value())
}

func TestMirror_FollowsAppend(t *testing.T) {
	src := newTestArray()
	mirror := Mirror(src, plusTen)
	defer mirror.Close()
	rec := observeLive(mirror)

	src.Append(5)

	assertOps(t, []Operation[int]{Append(15)}, rec.Values())
	assert.Equal(t, 5, mirror.Len())
	assert.Equal(t, 15, mirror.Get(4))
}

func TestMirror_FollowsEveryKind(t *testing.T) {
	src := newTestArray()
	mirror := Mirror(src, plusTen)
	defer mirror.Close()
	rec := observeLive(mirror)

	src.Insert(7, 0)
	src.Update(8, 1)
	src.RemoveAt(3)

	assert.Equal(t, []int{17, 18, 13}, mirror.ToSlice())
	assertOps(t, []Operation[int]{Insert(17, 0), Update(18, 1), RemoveValue(3, 14)}, rec.Values())
}

func TestMirror_InheritsInsertPolicy(t *testing.T) {
	src := FromSlice([]int{1, 2}, WithInsertPolicy(InsertShifts))
	mirror := Mirror(src, plusTen)
	defer mirror.Close()

	src.Insert(5, 0)

	assert.Equal(t, InsertShifts, mirror.InsertPolicy())
	assert.Equal(t, []int{15, 11, 12}, mirror.ToSlice())
}

func TestMirror_ChangesElementType(t *testing.T) {
	src := newTestArray()
	labels := Mirror(src, strconv.Itoa, WithName("labels"))
	defer labels.Close()

	src.Append(5)

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, labels.ToSlice())
	assert.Equal(t, "labels", labels.Name())
}

func TestMirror_OfMirror(t *testing.T) {
	src := newTestArray()
	first := Mirror(src, plusTen)
	defer first.Close()
	second := Mirror(first, strconv.Itoa)
	defer second.Close()

	src.Append(5)
	src.RemoveAt(0)

	assert.Equal(t, []string{"12", "13", "14", "15"}, second.ToSlice())
}

func TestMirror_DoesNotWriteBack(t *testing.T) {
	src := newTestArray()
	mirror := Mirror(src, plusTen)
	defer mirror.Close()

	mirror.Append(100)

	assert.Equal(t, []int{1, 2, 3, 4}, src.ToSlice())
	assert.Equal(t, []int{11, 12, 13, 14, 100}, mirror.ToSlice())
}

func TestMirror_CloseStopsSync(t *testing.T) {
	src := newTestArray()
	mirror := Mirror(src, plusTen)

	mirror.Close()
	src.Append(5)

	assert.Equal(t, []int{11, 12, 13, 14}, mirror.ToSlice())
}

func TestMirror_PanickingTransformIsIsolated(t *testing.T) {
	src := newTestArray()
	mirror := Mirror(src, func(v int) int {
		if v == 99 {
			panic("cannot map 99")
		}
		return v + 10
	})
	defer mirror.Close()
	other := stream.NewRecorder[Operation[int]]()
	src.Signal().Observe(other.Observer())

	assert.NotPanics(t, func() { src.Append(99) })

	assert.Equal(t, 5, src.Len())
	assert.Equal(t, 4, mirror.Len())
	assertOps(t, []Operation[int]{Append(99)}, other.Values())
}

func TestMirror_MatchesSourceAfterRandomEdits(t *testing.T) {
	src := New[int](WithInsertPolicy(InsertShifts))
	mirror := Mirror(src, plusTen)
	defer mirror.Close()

	for i := 0; i < 50; i++ {
		switch {
		case i%7 == 3 && src.Len() > 0:
			src.RemoveAt(src.Len() / 2)
		case i%5 == 0:
			src.Insert(i, src.Len()/2)
		case i%3 == 0 && src.Len() > 0:
			src.Update(i, 0)
		default:
			src.Append(i)
		}
	}

	want := src.ToSlice()
	for i := range want {
		want[i] += 10
	}
	assert.Equal(t, want, mirror.ToSlice())
}
