// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stream provides the publish/subscribe primitives used by
// reactivearray.
//
// A Signal is a hot multicast emitter: subscribers receive values sent after
// they attach, synchronously and in order. A Producer is cold: it does
// nothing until started, and each start delivers independently. Concat joins
// a finite prefix with a live tail, and MutableProperty pairs a current value
// with its change stream.
//
// Thread Safety:
//
//	All types in this package are safe for concurrent use. Delivery order
//	across concurrent senders is undefined; callers that need a total order
//	send from a single goroutine.
package stream
