package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaybeBatched holds either a single value or a batch of values. The JSON
// form is untagged: a single value encodes bare, a batch encodes as an array.
type MaybeBatched[T any] struct {
	single  T
	items   []T
	batched bool
}

// Single wraps one value.
func Single[T any](v T) MaybeBatched[T] {
	return MaybeBatched[T]{single: v}
}

// Batched wraps a batch. An empty batch is still a batch.
func Batched[T any](vs ...T) MaybeBatched[T] {
	if vs == nil {
		vs = []T{}
	}
	return MaybeBatched[T]{items: vs, batched: true}
}

// IsBatched reports whether m holds a batch.
func (m MaybeBatched[T]) IsBatched() bool { return m.batched }

// Single returns the value when m is not batched.
func (m MaybeBatched[T]) Single() (T, bool) {
	if m.batched {
		var zero T
		return zero, false
	}
	return m.single, true
}

// Items returns the values in order; a single value yields one item.
func (m MaybeBatched[T]) Items() []T {
	if m.batched {
		return m.items
	}
	return []T{m.single}
}

// Len returns the number of items.
func (m MaybeBatched[T]) Len() int {
	if m.batched {
		return len(m.items)
	}
	return 1
}

// MapBatched applies fn to every item, preserving single versus batch.
func MapBatched[T, R any](m MaybeBatched[T], fn func(T) R) MaybeBatched[R] {
	if !m.batched {
		return Single(fn(m.single))
	}
	out := make([]R, len(m.items))
	for i, v := range m.items {
		out[i] = fn(v)
	}
	return Batched(out...)
}

// Rebatch rebuilds a MaybeBatched shaped like m from a flat list of
// results, failing when the counts disagree.
func Rebatch[T, R any](m MaybeBatched[T], results []R) (MaybeBatched[R], error) {
	if len(results) != m.Len() {
		return MaybeBatched[R]{}, fmt.Errorf("rebatch: expected %d results, got %d", m.Len(), len(results))
	}
	if !m.batched {
		return Single(results[0]), nil
	}
	return Batched(results...), nil
}

func (m MaybeBatched[T]) MarshalJSON() ([]byte, error) {
	if m.batched {
		return json.Marshal(m.items)
	}
	return json.Marshal(m.single)
}

// UnmarshalJSON tries the single form first and falls back to a batch.
// When T itself encodes as an array (for example []float32) the single
// attempt fails on a nested array, so nesting depth decides the arity.
func (m *MaybeBatched[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var single T
	singleErr := json.Unmarshal(data, &single)
	if singleErr == nil {
		*m = Single(single)
		return nil
	}
	if len(data) == 0 || data[0] != '[' {
		return singleErr
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("maybe batched: neither single (%v) nor batch (%w)", singleErr, err)
	}
	*m = Batched(items...)
	return nil
}
