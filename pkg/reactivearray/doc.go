// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reactivearray provides Array, an ordered collection that emits a
// structured Operation for every mutation.
//
// Observers can rebuild the collection's evolution from the operation
// stream without polling:
//
//	arr := reactivearray.FromSlice([]int{1, 2, 3, 4})
//	arr.Producer().Start(func(op reactivearray.Operation[int]) {
//	    fmt.Println(op) // .Append(value: 1) ... .Append(value: 4), then live ops
//	})
//	arr.Append(5)
//
// Mirror derives a second array that follows a source through a transform:
//
//	labels := reactivearray.Mirror(arr, strconv.Itoa)
//
// # Insert semantics
//
// Insert either overwrites the element at its index (InsertReplaces, the
// default) or shifts later elements right (InsertShifts). Update always
// overwrites. Pick the policy per array with WithInsertPolicy.
//
// # Bounds
//
// An out of range index is a programming error. Mutation methods panic with
// *IndexError before changing storage or notifying anyone. Boundaries that
// accept untrusted indexes recover with RecoverIndexError.
package reactivearray
