// Package offsetmap is an ordered associative container keyed by byte
// offset. It backs both the slice partition (keyed by a slice's starting
// offset) and the label map (keyed by jump target), where stable
// ascending iteration order is what makes emitted output reproducible.
//
// Grounded on _examples/original_source/core/offset-map.h: a sorted
// vector of (offset, value) pairs with binary-search lookup, reimplemented
// here as a sorted slice rather than a wrapped std::vector subclass.
package offsetmap

import "sort"

// Map is an ordered map from byte offset to a value of type V.
type Map[V any] struct {
	entries []entry[V]
}

type entry[V any] struct {
	offset int
	value  V
}

// Set inserts a new entry, or replaces the value of an existing one with
// the same offset. Ordering is maintained automatically.
func (m *Map[V]) Set(offset int, value V) {
	i := m.search(offset)
	if i < len(m.entries) && m.entries[i].offset == offset {
		m.entries[i].value = value
		return
	}
	m.entries = append(m.entries, entry[V]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry[V]{offset: offset, value: value}
}

// Get looks up the value stored at offset.
func (m *Map[V]) Get(offset int) (V, bool) {
	i := m.search(offset)
	if i < len(m.entries) && m.entries[i].offset == offset {
		return m.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Has reports whether offset has an entry.
func (m *Map[V]) Has(offset int) bool {
	_, ok := m.Get(offset)
	return ok
}

// ForAt invokes fn with the value stored at offset, if any.
func (m *Map[V]) ForAt(offset int, fn func(V)) {
	if v, ok := m.Get(offset); ok {
		fn(v)
	}
}

// Len returns the number of entries.
func (m *Map[V]) Len() int { return len(m.entries) }

// Each calls fn once per entry in ascending offset order.
func (m *Map[V]) Each(fn func(offset int, value V)) {
	for _, e := range m.entries {
		fn(e.offset, e.value)
	}
}

// Offsets returns the keys in ascending order.
func (m *Map[V]) Offsets() []int {
	result := make([]int, len(m.entries))
	for i, e := range m.entries {
		result[i] = e.offset
	}
	return result
}

func (m *Map[V]) search(offset int) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].offset >= offset
	})
}
