package index

import (
	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/queryerr"
	"github.com/wbrown/kvqueryengine/value"
)

// HashIndex maps attribute-value -> set of keys. It is the
// cheapest single-attribute non-standing index (cost 30) and supports
// equal/in/has.
type HashIndex struct {
	attrName string
	extract  attribute.Values
	buckets  map[string]map[Key]struct{} // canonicalString(value) -> keyset
}

// NewHashIndex creates a HashIndex over the given attribute.
func NewHashIndex(attrName string, extract attribute.Values) *HashIndex {
	return &HashIndex{
		attrName: attrName,
		extract:  extract,
		buckets:  make(map[string]map[Key]struct{}),
	}
}

func (h *HashIndex) Type() Type        { return TypeHash }
func (h *HashIndex) Attribute() string { return h.attrName }

func (h *HashIndex) SupportsQuery(kind QueryKind) bool {
	switch kind {
	case QueryEqual, QueryIn, QueryHas:
		return true
	default:
		return false
	}
}

func (h *HashIndex) RetrievalCost() uint32 { return CostHash }

func (h *HashIndex) Retrieve(q IndexQuery) (ResultSet, error) {
	switch q.Kind {
	case QueryEqual:
		return NewResultSet(h.keysFor(q.Value)), nil
	case QueryIn:
		seen := make(map[Key]struct{})
		var keys []Key
		for _, v := range q.Values {
			for _, k := range h.keysFor(v) {
				if _, dup := seen[k]; !dup {
					seen[k] = struct{}{}
					keys = append(keys, k)
				}
			}
		}
		return NewResultSet(keys), nil
	case QueryHas:
		seen := make(map[Key]struct{})
		var keys []Key
		for _, bucket := range h.buckets {
			for k := range bucket {
				if _, dup := seen[k]; !dup {
					seen[k] = struct{}{}
					keys = append(keys, k)
				}
			}
		}
		return NewResultSet(keys), nil
	default:
		return ResultSet{}, queryerr.New(queryerr.KindUnsupportedQuery, "HashIndex does not support "+string(q.Kind))
	}
}

func (h *HashIndex) keysFor(v value.Value) []Key {
	bucket, ok := h.buckets[canonicalString(v)]
	if !ok {
		return nil
	}
	keys := make([]Key, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	return keys
}

func (h *HashIndex) Add(key Key, record map[string]interface{}) {
	for _, v := range h.extract(record) {
		h.insert(key, v)
	}
}

func (h *HashIndex) insert(key Key, v value.Value) {
	cs := canonicalString(v)
	bucket, ok := h.buckets[cs]
	if !ok {
		bucket = make(map[Key]struct{})
		h.buckets[cs] = bucket
	}
	bucket[key] = struct{}{}
}

func (h *HashIndex) Remove(key Key, record map[string]interface{}) {
	for _, v := range h.extract(record) {
		h.removeValue(key, v)
	}
}

func (h *HashIndex) removeValue(key Key, v value.Value) {
	cs := canonicalString(v)
	bucket, ok := h.buckets[cs]
	if !ok {
		return
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(h.buckets, cs)
	}
}

func (h *HashIndex) Update(key Key, oldRecord, newRecord map[string]interface{}) {
	oldValues := h.extract(oldRecord)
	newValues := h.extract(newRecord)
	if sameValueSet(oldValues, newValues) {
		return
	}
	for _, v := range oldValues {
		h.removeValue(key, v)
	}
	for _, v := range newValues {
		h.insert(key, v)
	}
}

func sameValueSet(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	as := make(map[string]int)
	for _, v := range a {
		as[canonicalString(v)]++
	}
	for _, v := range b {
		cs := canonicalString(v)
		if as[cs] == 0 {
			return false
		}
		as[cs]--
	}
	return true
}

func (h *HashIndex) Clear() { h.buckets = make(map[string]map[Key]struct{}) }

func (h *HashIndex) BuildFromData(entries []Entry) {
	h.Clear()
	for _, e := range entries {
		h.Add(e.Key, e.Record)
	}
}

func (h *HashIndex) GetStats() Stats {
	total := 0
	for _, bucket := range h.buckets {
		total += len(bucket)
	}
	avg := 0.0
	if len(h.buckets) > 0 {
		avg = float64(total) / float64(len(h.buckets))
	}
	return Stats{
		DistinctValues:     len(h.buckets),
		TotalEntries:       total,
		AvgEntriesPerValue: avg,
	}
}
