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
	"encoding/json"
	"fmt"
)

// wireOperation is the JSON form of an Operation.
//
//	{"kind":"append","value":5}
//	{"kind":"insert","value":5,"index":1}
//	{"kind":"update","value":5,"index":1}
//	{"kind":"remove","index":1,"old_value":2}
type wireOperation struct {
	Kind     string          `json:"kind"`
	Value    json.RawMessage `json:"value,omitempty"`
	Index    *int            `json:"index,omitempty"`
	OldValue json.RawMessage `json:"old_value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o Operation[T]) MarshalJSON() ([]byte, error) {
	w := wireOperation{Kind: o.kind.String()}

	switch o.kind {
	case KindAppend, KindInsert, KindUpdate:
		raw, err := json.Marshal(o.value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s value: %w", o.kind, err)
		}
		w.Value = raw
	case KindRemove:
		if o.hasOld {
			raw, err := json.Marshal(o.old)
			if err != nil {
				return nil, fmt.Errorf("marshal removed value: %w", err)
			}
			w.OldValue = raw
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, o.kind)
	}

	if o.kind != KindAppend {
		index := o.index
		w.Index = &index
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Operation[T]) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	kind, err := ParseKind(w.Kind)
	if err != nil {
		return err
	}

	out := Operation[T]{kind: kind, index: -1}
	if kind != KindAppend {
		if w.Index == nil {
			return fmt.Errorf("%w: %s requires an index", ErrMalformedOperation, kind)
		}
		if *w.Index < 0 {
			return &IndexError{Op: kind.String(), Index: *w.Index, Len: -1}
		}
		out.index = *w.Index
	}

	switch kind {
	case KindAppend, KindInsert, KindUpdate:
		if len(w.Value) == 0 {
			return fmt.Errorf("%w: %s requires a value", ErrMalformedOperation, kind)
		}
		if err := json.Unmarshal(w.Value, &out.value); err != nil {
			return fmt.Errorf("decode %s value: %w", kind, err)
		}
	case KindRemove:
		if len(w.OldValue) > 0 {
			if err := json.Unmarshal(w.OldValue, &out.old); err != nil {
				return fmt.Errorf("decode removed value: %w", err)
			}
			out.hasOld = true
		}
	}

	*o = out
	return nil
}
