package ordermap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func TestSetGetDelete(t *testing.T) {
	m := New[int, string](intCmp)
	m.Set(5, "five").Set(1, "one").Set(3, "three")

	v, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	assert.True(t, m.Has(3))
	assert.False(t, m.Has(99))

	assert.True(t, m.Delete(3))
	assert.False(t, m.Has(3))
	assert.False(t, m.Delete(3))
}

func TestIterationOrder(t *testing.T) {
	m := New[int, int](intCmp)
	for _, k := range []int{5, 1, 9, 3, 7} {
		m.Set(k, k*10)
	}
	keys := m.Keys()
	assert.Equal(t, []int{1, 3, 5, 7, 9}, keys)

	rev := m.EntriesReversed()
	assert.Equal(t, 9, rev[0].Key)
	assert.Equal(t, 1, rev[len(rev)-1].Key)
}

func TestRange(t *testing.T) {
	m := New[int, int](intCmp)
	for i := 0; i < 10; i++ {
		m.Set(i, i)
	}

	r := m.Range(3, 7, DefaultRangeOptions())
	assert.Equal(t, []int{3, 4, 5, 6}, keysOf(r))

	r = m.Range(3, 7, RangeOptions{FromInclusive: true, ToInclusive: true})
	assert.Equal(t, []int{3, 4, 5, 6, 7}, keysOf(r))

	// empty when from > to
	assert.Empty(t, m.Range(7, 3, DefaultRangeOptions()))
}

func TestGreaterLessThan(t *testing.T) {
	m := New[int, int](intCmp)
	for i := 0; i < 5; i++ {
		m.Set(i, i)
	}
	assert.Equal(t, []int{3, 4}, keysOf(m.GreaterThan(2, false)))
	assert.Equal(t, []int{2, 3, 4}, keysOf(m.GreaterThan(2, true)))
	assert.Equal(t, []int{0, 1}, keysOf(m.LessThan(2, false)))
	assert.Equal(t, []int{0, 1, 2}, keysOf(m.LessThan(2, true)))
}

func TestFloorCeilingLowerHigher(t *testing.T) {
	m := New[int, int](intCmp)
	for _, k := range []int{2, 4, 6, 8} {
		m.Set(k, k)
	}

	fk, ok := m.FloorKey(5)
	require.True(t, ok)
	assert.Equal(t, 4, fk)

	ck, ok := m.CeilingKey(5)
	require.True(t, ok)
	assert.Equal(t, 6, ck)

	lk, ok := m.LowerKey(4)
	require.True(t, ok)
	assert.Equal(t, 2, lk)

	hk, ok := m.HigherKey(4)
	require.True(t, ok)
	assert.Equal(t, 6, hk)

	_, ok = m.FloorKey(1)
	assert.False(t, ok)

	_, ok = m.HigherKey(8)
	assert.False(t, ok)
}

func TestAtPositionalAccess(t *testing.T) {
	m := New[int, string](intCmp)
	m.Set(3, "c").Set(1, "a").Set(2, "b")

	kv, ok := m.At(1)
	require.True(t, ok)
	assert.Equal(t, 2, kv.Key)
	assert.Equal(t, "b", kv.Val)

	_, ok = m.At(99)
	assert.False(t, ok)
	_, ok = m.At(-1)
	assert.False(t, ok)
}

func TestGetOrSetAndUpdate(t *testing.T) {
	m := New[int, int](intCmp)
	v := m.GetOrSet(1, func() int { return 100 })
	assert.Equal(t, 100, v)
	v = m.GetOrSet(1, func() int { return 999 })
	assert.Equal(t, 100, v, "GetOrSet must not overwrite an existing value")

	m.Update(1, func(v int) int { return v + 1 })
	got, _ := m.Get(1)
	assert.Equal(t, 101, got)

	// update on missing key is a no-op
	m.Update(42, func(v int) int { return v + 1 })
	assert.False(t, m.Has(42))
}

func TestMinMax(t *testing.T) {
	m := New[int, int](intCmp)
	_, ok := m.MinKey()
	assert.False(t, ok)

	m.Set(5, 0).Set(1, 0).Set(9, 0)
	mn, _ := m.MinKey()
	mx, _ := m.MaxKey()
	assert.Equal(t, 1, mn)
	assert.Equal(t, 9, mx)
}

func TestReverseComparator(t *testing.T) {
	m := New[int, int](func(a, b int) int { return b - a })
	m.Set(1, 0).Set(2, 0).Set(3, 0)
	assert.Equal(t, []int{3, 2, 1}, m.Keys())
}

func keysOf(kvs []KV[int, int]) []int {
	out := make([]int, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Key
	}
	return out
}
