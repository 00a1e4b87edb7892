// Package ordermap implements the generic sorted map backing
// NavigableIndex. It keeps keys in a single sorted slice of entries so
// range scans stay O(log n + k) via binary search, without needing a
// full external B+-tree dependency for an in-memory structure.
package ordermap

import "sort"

// Comparator orders two keys the way sort.Interface-style comparators
// do: negative if a < b, zero if equal, positive if a > b.
type Comparator[K any] func(a, b K) int

// entry is a single key/value pair, kept sorted by Cmp.
type entry[K any, V any] struct {
	key K
	val V
}

// Map is a generic sorted map parameterized by a key comparator.
// Iteration order always matches Cmp order.
type Map[K any, V any] struct {
	cmp     Comparator[K]
	entries []entry[K, V]
}

// New creates an empty Map ordered by cmp.
func New[K any, V any](cmp Comparator[K]) *Map[K, V] {
	return &Map[K, V]{cmp: cmp}
}

// search returns the index of key if present, and whether it was found.
// When not found, the index is the insertion point that keeps entries
// sorted.
func (m *Map[K, V]) search(key K) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.cmp(m.entries[i].key, key) >= 0
	})
	if i < len(m.entries) && m.cmp(m.entries[i].key, key) == 0 {
		return i, true
	}
	return i, false
}

// Set upserts key->value and returns the map for chaining, matching the
// teacher's fluent mutation style (datalog/storage.Transaction methods).
func (m *Map[K, V]) Set(key K, val V) *Map[K, V] {
	i, found := m.search(key)
	if found {
		m.entries[i].val = val
		return m
	}
	m.entries = append(m.entries, entry[K, V]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry[K, V]{key: key, val: val}
	return m
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	i, found := m.search(key)
	if !found {
		var zero V
		return zero, false
	}
	return m.entries[i].val, true
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, found := m.search(key)
	return found
}

// Delete removes key if present and reports whether it was removed.
func (m *Map[K, V]) Delete(key K) bool {
	i, found := m.search(key)
	if !found {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return true
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.entries) }

// GetOrSet returns the existing value for key, or stores and returns
// factory()'s result if absent.
func (m *Map[K, V]) GetOrSet(key K, factory func() V) V {
	i, found := m.search(key)
	if found {
		return m.entries[i].val
	}
	v := factory()
	m.entries = append(m.entries, entry[K, V]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry[K, V]{key: key, val: v}
	return v
}

// Update applies updater to the value at key, no-op if key is absent.
func (m *Map[K, V]) Update(key K, updater func(V) V) {
	i, found := m.search(key)
	if !found {
		return
	}
	m.entries[i].val = updater(m.entries[i].val)
}

// MinKey returns the smallest key, if any.
func (m *Map[K, V]) MinKey() (K, bool) {
	if len(m.entries) == 0 {
		var zero K
		return zero, false
	}
	return m.entries[0].key, true
}

// MaxKey returns the largest key, if any.
func (m *Map[K, V]) MaxKey() (K, bool) {
	if len(m.entries) == 0 {
		var zero K
		return zero, false
	}
	return m.entries[len(m.entries)-1].key, true
}

// RangeOptions controls inclusivity of Range's bounds.
type RangeOptions struct {
	FromInclusive bool
	ToInclusive   bool
}

// DefaultRangeOptions returns the conventional default: from-inclusive,
// to-exclusive.
func DefaultRangeOptions() RangeOptions {
	return RangeOptions{FromInclusive: true, ToInclusive: false}
}

// Range returns entries with from <= key <= to (subject to opts'
// inclusivity), in ascending order. Empty if from > to.
func (m *Map[K, V]) Range(from, to K, opts RangeOptions) []KV[K, V] {
	if m.cmp(from, to) > 0 {
		return nil
	}
	lo := sort.Search(len(m.entries), func(i int) bool {
		c := m.cmp(m.entries[i].key, from)
		if opts.FromInclusive {
			return c >= 0
		}
		return c > 0
	})
	hi := sort.Search(len(m.entries), func(i int) bool {
		c := m.cmp(m.entries[i].key, to)
		if opts.ToInclusive {
			return c > 0
		}
		return c >= 0
	})
	if hi < lo {
		return nil
	}
	return toKV(m.entries[lo:hi])
}

// GreaterThan returns entries with key > from (or >= if inclusive),
// ascending.
func (m *Map[K, V]) GreaterThan(from K, inclusive bool) []KV[K, V] {
	lo := sort.Search(len(m.entries), func(i int) bool {
		c := m.cmp(m.entries[i].key, from)
		if inclusive {
			return c >= 0
		}
		return c > 0
	})
	return toKV(m.entries[lo:])
}

// LessThan returns entries with key < to (or <= if inclusive), ascending.
func (m *Map[K, V]) LessThan(to K, inclusive bool) []KV[K, V] {
	hi := sort.Search(len(m.entries), func(i int) bool {
		c := m.cmp(m.entries[i].key, to)
		if inclusive {
			return c > 0
		}
		return c >= 0
	})
	return toKV(m.entries[:hi])
}

// FloorKey returns the largest key <= key.
func (m *Map[K, V]) FloorKey(key K) (K, bool) {
	i, found := m.search(key)
	if found {
		return m.entries[i].key, true
	}
	if i == 0 {
		var zero K
		return zero, false
	}
	return m.entries[i-1].key, true
}

// CeilingKey returns the smallest key >= key.
func (m *Map[K, V]) CeilingKey(key K) (K, bool) {
	i, found := m.search(key)
	if found || i < len(m.entries) {
		if i < len(m.entries) {
			return m.entries[i].key, true
		}
	}
	var zero K
	return zero, false
}

// LowerKey returns the largest key strictly < key.
func (m *Map[K, V]) LowerKey(key K) (K, bool) {
	i, _ := m.search(key)
	if i == 0 {
		var zero K
		return zero, false
	}
	return m.entries[i-1].key, true
}

// HigherKey returns the smallest key strictly > key.
func (m *Map[K, V]) HigherKey(key K) (K, bool) {
	i, found := m.search(key)
	if found {
		i++
	}
	if i >= len(m.entries) {
		var zero K
		return zero, false
	}
	return m.entries[i].key, true
}

// At returns the entry at a 0-based positional index, ordered by Cmp.
func (m *Map[K, V]) At(index int) (KV[K, V], bool) {
	if index < 0 || index >= len(m.entries) {
		return KV[K, V]{}, false
	}
	e := m.entries[index]
	return KV[K, V]{Key: e.key, Val: e.val}, true
}

// KV is a key/value pair returned from iteration helpers.
type KV[K any, V any] struct {
	Key K
	Val V
}

func toKV[K any, V any](es []entry[K, V]) []KV[K, V] {
	out := make([]KV[K, V], len(es))
	for i, e := range es {
		out[i] = KV[K, V]{Key: e.key, Val: e.val}
	}
	return out
}

// Entries returns all entries in ascending order.
func (m *Map[K, V]) Entries() []KV[K, V] { return toKV(m.entries) }

// Keys returns all keys in ascending order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Values returns all values in key-ascending order.
func (m *Map[K, V]) Values() []V {
	vals := make([]V, len(m.entries))
	for i, e := range m.entries {
		vals[i] = e.val
	}
	return vals
}

// EntriesReversed returns all entries in descending order.
func (m *Map[K, V]) EntriesReversed() []KV[K, V] {
	out := make([]KV[K, V], len(m.entries))
	for i, e := range m.entries {
		out[len(m.entries)-1-i] = KV[K, V]{Key: e.key, Val: e.val}
	}
	return out
}

// Clear removes all entries.
func (m *Map[K, V]) Clear() { m.entries = nil }
