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
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reactivearray/pkg/stream"
)

func newTestArray() *Array[int] {
	return FromSlice([]int{1, 2, 3, 4}, WithName("test"))
}

func observeLive(arr *Array[int]) *stream.Recorder[Operation[int]] {
	rec := stream.NewRecorder[Operation[int]]()
	arr.Signal().Observe(rec.Observer())
	return rec
}

func assertOps(t *testing.T, want, got []Operation[int]) {
	t.Helper()
	assert.True(t, EqualSlices(want, got), "operations = %v, want %v", got, want)
}

func TestArray_Append(t *testing.T) {
	arr := newTestArray()
	rec := observeLive(arr)

	arr.Append(5)

	assert.Equal(t, 5, arr.Len())
	assert.Equal(t, 5, arr.Get(arr.Len()-1))
	assertOps(t, []Operation[int]{Append(5)}, rec.Values())
}

func TestArray_InsertReplacesByDefault(t *testing.T) {
	arr := newTestArray()
	rec := observeLive(arr)

	arr.Insert(5, 1)

	assert.Equal(t, []int{1, 5, 3, 4}, arr.ToSlice())
	assertOps(t, []Operation[int]{Insert(5, 1)}, rec.Values())
}

func TestArray_InsertShifts(t *testing.T) {
	arr := FromSlice([]int{1, 2, 3, 4}, WithInsertPolicy(InsertShifts))
	rec := observeLive(arr)

	arr.Insert(5, 1)
	arr.Insert(6, arr.Len())

	assert.Equal(t, []int{1, 5, 2, 3, 4, 6}, arr.ToSlice())
	assertOps(t, []Operation[int]{Insert(5, 1), Insert(6, 5)}, rec.Values())
	assert.Equal(t, InsertShifts, arr.InsertPolicy())
}

func TestArray_Update(t *testing.T) {
	arr := newTestArray()
	rec := observeLive(arr)

	arr.Update(7, 3)

	assert.Equal(t, []int{1, 2, 3, 7}, arr.ToSlice())
	assertOps(t, []Operation[int]{Update(7, 3)}, rec.Values())
}

func TestArray_SetGoesThroughOperations(t *testing.T) {
	arr := newTestArray()
	rec := observeLive(arr)

	arr.Set(1, 5)

	assert.Equal(t, 5, arr.Get(1))
	assertOps(t, []Operation[int]{Update(5, 1)}, rec.Values())
}

func TestArray_RemoveAt(t *testing.T) {
	arr := newTestArray()
	rec := observeLive(arr)

	removed := arr.RemoveAt(1)

	assert.Equal(t, 2, removed)
	assert.Equal(t, []int{1, 3, 4}, arr.ToSlice())
	assertOps(t, []Operation[int]{RemoveValue(1, 2)}, rec.Values())
}

func TestArray_Get(t *testing.T) {
	arr := newTestArray()
	assert.Equal(t, 3, arr.Get(2))
}

func TestArray_BoundsViolationsAreFatalAndSilent(t *testing.T) {
	tests := []struct {
		name   string
		policy InsertPolicy
		mutate func(arr *Array[int])
	}{
		{"get past end", InsertReplaces, func(a *Array[int]) { a.Get(4) }},
		{"get negative", InsertReplaces, func(a *Array[int]) { a.Get(-1) }},
		{"update past end", InsertReplaces, func(a *Array[int]) { a.Update(0, 4) }},
		{"set past end", InsertReplaces, func(a *Array[int]) { a.Set(10, 0) }},
		{"remove past end", InsertReplaces, func(a *Array[int]) { a.RemoveAt(4) }},
		{"replace insert at len", InsertReplaces, func(a *Array[int]) { a.Insert(0, 4) }},
		{"shift insert past len", InsertShifts, func(a *Array[int]) { a.Insert(0, 5) }},
		{"negative insert", InsertShifts, func(a *Array[int]) { a.Insert(0, -1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := FromSlice([]int{1, 2, 3, 4}, WithInsertPolicy(tt.policy))
			rec := observeLive(arr)
			counts := stream.NewRecorder[int]()
			arr.Count().Observe(counts.Observer())

			assertIndexPanic(t, func() { tt.mutate(arr) })

			assert.Equal(t, []int{1, 2, 3, 4}, arr.ToSlice(), "storage must be untouched")
			assert.Empty(t, rec.Values(), "nothing may be broadcast")
			assert.Equal(t, []int{4}, counts.Values())
		})
	}
}

func TestArray_ShiftInsertAtLenIsAllowed(t *testing.T) {
	arr := New[int](WithInsertPolicy(InsertShifts))
	arr.Insert(1, 0)
	assert.Equal(t, []int{1}, arr.ToSlice())
}

func TestArray_Accessors(t *testing.T) {
	empty := New[int]()
	assert.True(t, empty.IsEmpty())
	_, ok := empty.First()
	assert.False(t, ok)
	_, ok = empty.Last()
	assert.False(t, ok)

	arr := newTestArray()
	assert.False(t, arr.IsEmpty())
	first, ok := arr.First()
	assert.True(t, ok)
	assert.Equal(t, 1, first)
	last, ok := arr.Last()
	assert.True(t, ok)
	assert.Equal(t, 4, last)
	assert.Equal(t, "[1 2 3 4]", arr.String())
	assert.Equal(t, "test", arr.Name())
}

func TestArray_ToSliceDoesNotAlias(t *testing.T) {
	seed := []int{1, 2, 3}
	arr := FromSlice(seed)
	seed[0] = 100

	snapshot := arr.ToSlice()
	snapshot[1] = 200

	assert.Equal(t, []int{1, 2, 3}, arr.ToSlice())
}

func TestArray_InitialElementsAreNotAnnounced(t *testing.T) {
	arr := newTestArray()
	rec := observeLive(arr)
	assert.Empty(t, rec.Values())
}

func TestArray_Count(t *testing.T) {
	t.Run("returns the initial count", func(t *testing.T) {
		counts := stream.NewRecorder[int]()
		newTestArray().Count().Observe(counts.Observer())
		assert.Equal(t, []int{4}, counts.Values())
	})

	t.Run("insert and update do not change the count", func(t *testing.T) {
		arr := newTestArray()
		counts := stream.NewRecorder[int]()
		arr.Count().Observe(counts.Observer())

		arr.Insert(9, 0)
		arr.Update(8, 1)
		arr.Append(5)

		assert.Equal(t, []int{4, 5}, counts.Values())
	})

	t.Run("append and remove update the count", func(t *testing.T) {
		arr := newTestArray()
		counts := stream.NewRecorder[int]()
		arr.Count().Observe(counts.Observer())

		arr.Append(5)
		arr.RemoveAt(0)
		arr.RemoveAt(0)

		assert.Equal(t, []int{4, 5, 4, 3}, counts.Values())
		assert.Equal(t, 3, arr.Count().Value())
	})

	t.Run("shifting insert changes the count", func(t *testing.T) {
		arr := FromSlice([]int{1}, WithInsertPolicy(InsertShifts))
		counts := stream.NewRecorder[int]()
		arr.Count().Observe(counts.Observer())

		arr.Insert(0, 0)
		arr.Update(2, 0)

		assert.Equal(t, []int{1, 2}, counts.Values())
	})

	t.Run("count is updated before observers see the operation", func(t *testing.T) {
		arr := newTestArray()
		var seen []int
		arr.Signal().Observe(func(op Operation[int]) {
			seen = append(seen, arr.Count().Value())
		})

		arr.Append(5)
		arr.RemoveAt(0)

		assert.Equal(t, []int{5, 4}, seen)
	})
}

func TestArray_ProducerReplaysThenForwards(t *testing.T) {
	arr := newTestArray()
	rec := stream.NewRecorder[Operation[int]]()

	arr.Producer().Start(rec.Observer())
	assertOps(t, []Operation[int]{Append(1), Append(2), Append(3), Append(4)}, rec.Values())

	arr.Append(5)
	arr.Insert(6, 0)
	arr.RemoveAt(0)

	assertOps(t, []Operation[int]{
		Append(1), Append(2), Append(3), Append(4),
		Append(5), Insert(6, 0), RemoveValue(0, 6),
	}, rec.Values())
}

func TestArray_ProducerOnEmptyArray(t *testing.T) {
	arr := New[int]()
	rec := stream.NewRecorder[Operation[int]]()

	arr.Producer().Start(rec.Observer())
	assert.Empty(t, rec.Values())

	arr.Append(1)
	assertOps(t, []Operation[int]{Append(1)}, rec.Values())
}

func TestArray_ProducerQueuesMutationsDuringReplay(t *testing.T) {
	arr := FromSlice([]int{1, 2})
	rec := stream.NewRecorder[Operation[int]]()

	arr.Producer().Start(func(op Operation[int]) {
		rec.Observer()(op)
		if v, _ := op.Value(); v == 1 && op.Kind() == KindAppend && arr.Len() == 2 {
			arr.Append(3)
		}
	})

	// The append made during replay is delivered once, after the replay.
	assertOps(t, []Operation[int]{Append(1), Append(2), Append(3)}, rec.Values())
	assert.Equal(t, []int{1, 2, 3}, arr.ToSlice())
}

func TestArray_ProducerUnsubscribe(t *testing.T) {
	arr := newTestArray()
	first := stream.NewRecorder[Operation[int]]()
	second := stream.NewRecorder[Operation[int]]()

	sub := arr.Producer().Start(first.Observer())
	arr.Producer().Start(second.Observer())

	arr.Append(5)
	sub.Unsubscribe()
	arr.Append(6)

	assert.Len(t, first.Values(), 5)
	assert.Len(t, second.Values(), 6)
}

func TestArray_SubscriberPanicDoesNotStopOthers(t *testing.T) {
	arr := newTestArray()
	arr.Signal().Observe(func(op Operation[int]) {
		panic("observer failure")
	})
	rec := observeLive(arr)

	assert.NotPanics(t, func() { arr.Append(5) })
	assert.Equal(t, 5, arr.Len())
	assertOps(t, []Operation[int]{Append(5)}, rec.Values())
}

func TestArray_MutationFromObserverKeepsOrder(t *testing.T) {
	arr := New[int](WithName("reentrant"))
	arr.Signal().Observe(func(op Operation[int]) {
		if v, _ := op.Value(); op.Kind() == KindAppend && v == 1 {
			arr.Append(2)
			arr.Update(20, 1)
		}
	})
	rec := observeLive(arr)
	mirror := Mirror(arr, func(v int) int { return v })
	defer mirror.Close()

	arr.Append(1)
	arr.Append(3)

	assert.Equal(t, []int{1, 20, 3}, arr.ToSlice())
	assertOps(t, []Operation[int]{Append(1), Append(2), Update(20, 1), Append(3)}, rec.Values())
	assert.Equal(t, arr.ToSlice(), Fold(rec.Values(), arr.InsertPolicy()))
	assert.Equal(t, arr.ToSlice(), mirror.ToSlice())
}

func TestArray_FromProducer(t *testing.T) {
	sig := stream.NewSignal[Operation[int]]()
	arr := FromProducer(stream.Concat(stream.Values(Append(1), Append(2)), sig.Producer()))
	rec := observeLive(arr)

	assert.Equal(t, []int{1, 2}, arr.ToSlice())

	sig.Send(Update(5, 0))
	sig.Send(Remove[int](1))

	assert.Equal(t, []int{5}, arr.ToSlice())
	assertOps(t, []Operation[int]{Update(5, 0), RemoveValue(1, 2)}, rec.Values())

	arr.Close()
	arr.Close()
	sig.Send(Append(9))
	assert.Equal(t, []int{5}, arr.ToSlice())
	assert.Equal(t, 0, sig.SubscriberCount())
}

func TestArray_FromProducerSurvivesOutOfRangeOperation(t *testing.T) {
	sig := stream.NewSignal[Operation[int]]()
	arr := FromProducer(sig.Producer())

	assert.NotPanics(t, func() { sig.Send(Remove[int](3)) })
	sig.Send(Append(1))

	assert.Equal(t, []int{1}, arr.ToSlice())
}

func TestArray_CloseOnPlainArrayIsNoop(t *testing.T) {
	arr := newTestArray()
	assert.NotPanics(t, arr.Close)
	arr.Append(5)
	assert.Equal(t, 5, arr.Len())
}

// TestArray_ToSliceMatchesFoldOfOperations checks, for random mutation
// sequences, that the contents always equal the fold of emitted operations.
func TestArray_ToSliceMatchesFoldOfOperations(t *testing.T) {
	for _, policy := range []InsertPolicy{InsertReplaces, InsertShifts} {
		t.Run(policy.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			arr := New[int](WithInsertPolicy(policy))
			rec := observeLive(arr)

			for step := 0; step < 500; step++ {
				n := arr.Len()
				switch choice := rng.Intn(4); {
				case choice == 0 || n == 0:
					before := n
					arr.Append(step)
					require.Equal(t, before+1, arr.Len())
					require.Equal(t, step, arr.Get(arr.Len()-1))
				case choice == 1:
					upper := n
					if policy == InsertShifts {
						upper = n + 1
					}
					arr.Insert(step, rng.Intn(upper))
				case choice == 2:
					arr.Update(step, rng.Intn(n))
				default:
					i := rng.Intn(n)
					before := arr.ToSlice()
					removed := arr.RemoveAt(i)
					require.Equal(t, before[i], removed)
					require.Equal(t, append(before[:i:i], before[i+1:]...), arr.ToSlice())
				}
				require.Equal(t, Fold(rec.Values(), policy), arr.ToSlice(), "step %d", step)
			}
		})
	}
}

func TestArray_ConcurrentReplayAttachSeesEveryOperationOnce(t *testing.T) {
	arr := New[int](WithInsertPolicy(InsertShifts))
	const writes = 2000

	var wg sync.WaitGroup
	recorders := make([]*stream.Recorder[Operation[int]], 8)
	for i := range recorders {
		recorders[i] = stream.NewRecorder[Operation[int]]()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			arr.Append(i)
		}
	}()
	for _, rec := range recorders {
		wg.Add(1)
		go func(rec *stream.Recorder[Operation[int]]) {
			defer wg.Done()
			arr.Producer().Start(rec.Observer())
		}(rec)
	}
	wg.Wait()

	want := arr.ToSlice()
	require.Len(t, want, writes)
	for _, rec := range recorders {
		assert.Equal(t, want, Fold(rec.Values(), InsertShifts))
	}
}
