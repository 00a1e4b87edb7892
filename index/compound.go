package index

import (
	"strings"

	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/compoundkey"
	"github.com/wbrown/kvqueryengine/queryerr"
	"github.com/wbrown/kvqueryengine/value"
)

// CompoundIndex is keyed by the composite tuple of >=2 attributes, in
// declared order. Two compound indexes over the same attribute set in
// different orders are distinct indexes; CanAnswerQuery only matches
// the exact declared order.
type CompoundIndex struct {
	attrNames []string
	extracts  []attribute.Values
	byKey     map[string]map[Key]struct{} // compoundkey.Encode(values) -> keyset
	wireKeys  map[Key]string              // key -> its length-prefixed L85 composite key, also the byKey map key
}

// NewCompoundIndex creates a CompoundIndex over attrNames in the given
// order, each with its extractor. Fewer than two attributes is an
// invariant violation.
func NewCompoundIndex(attrNames []string, extracts []attribute.Values) (*CompoundIndex, error) {
	if len(attrNames) < 2 || len(attrNames) != len(extracts) {
		return nil, queryerr.New(queryerr.KindCompoundArity, "CompoundIndex requires >=2 attributes with matching extractors")
	}
	return &CompoundIndex{
		attrNames: append([]string(nil), attrNames...),
		extracts:  extracts,
		byKey:     make(map[string]map[Key]struct{}),
		wireKeys:  make(map[Key]string),
	}, nil
}

func (c *CompoundIndex) Type() Type { return TypeCompound }

// Attribute returns the declared attribute names joined for display;
// compound indexes are looked up by the full ordered set, not a single
// name (see CanAnswerQuery / AttributeNames).
func (c *CompoundIndex) Attribute() string { return strings.Join(c.attrNames, "+") }

// AttributeNames returns the declared attribute order.
func (c *CompoundIndex) AttributeNames() []string { return append([]string(nil), c.attrNames...) }

// CanAnswerQuery reports whether attrNames equals the declared order
// exactly.
func (c *CompoundIndex) CanAnswerQuery(attrNames []string) bool {
	if len(attrNames) != len(c.attrNames) {
		return false
	}
	for i, n := range attrNames {
		if n != c.attrNames[i] {
			return false
		}
	}
	return true
}

func (c *CompoundIndex) SupportsQuery(kind QueryKind) bool { return kind == QueryCompound }

func (c *CompoundIndex) RetrievalCost() uint32 { return CostCompoundDefault }

func (c *CompoundIndex) Retrieve(q IndexQuery) (ResultSet, error) {
	if q.Kind != QueryCompound {
		return ResultSet{}, queryerr.New(queryerr.KindUnsupportedQuery, "CompoundIndex only supports compound")
	}
	if len(q.CompoundValues) != len(c.attrNames) {
		return ResultSet{}, queryerr.New(queryerr.KindCompoundMismatch, "compound value count does not match declared attributes")
	}
	cs := compoundkey.Encode(q.CompoundValues, allPresent(len(q.CompoundValues)))
	bucket, ok := c.byKey[cs]
	if !ok {
		return NewResultSet(nil), nil
	}
	keys := make([]Key, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	return NewResultSet(keys), nil
}

func allPresent(n int) []bool {
	p := make([]bool, n)
	for i := range p {
		p[i] = true
	}
	return p
}

// extractRow returns the per-attribute value list and whether every
// attribute was present. If any attribute is absent the record is not
// indexed.
func (c *CompoundIndex) extractRow(record map[string]interface{}) ([]value.Value, bool) {
	values := make([]value.Value, len(c.extracts))
	for i, ex := range c.extracts {
		vs := ex(record)
		if len(vs) == 0 {
			return nil, false
		}
		// Compound indexes are defined over simple attributes; first
		// extracted value wins if a multi-valued extractor is misused.
		values[i] = vs[0]
	}
	return values, true
}

func (c *CompoundIndex) Add(key Key, record map[string]interface{}) {
	values, ok := c.extractRow(record)
	if !ok {
		return
	}
	cs := compoundkey.Encode(values, allPresent(len(values)))
	bucket, found := c.byKey[cs]
	if !found {
		bucket = make(map[Key]struct{})
		c.byKey[cs] = bucket
	}
	bucket[key] = struct{}{}
	c.wireKeys[key] = cs
}

func (c *CompoundIndex) Remove(key Key, record map[string]interface{}) {
	values, ok := c.extractRow(record)
	if !ok {
		return
	}
	cs := compoundkey.Encode(values, allPresent(len(values)))
	if bucket, found := c.byKey[cs]; found {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(c.byKey, cs)
		}
	}
	delete(c.wireKeys, key)
}

func (c *CompoundIndex) Update(key Key, oldRecord, newRecord map[string]interface{}) {
	c.Remove(key, oldRecord)
	c.Add(key, newRecord)
}

func (c *CompoundIndex) Clear() {
	c.byKey = make(map[string]map[Key]struct{})
	c.wireKeys = make(map[Key]string)
}

func (c *CompoundIndex) BuildFromData(entries []Entry) {
	c.Clear()
	for _, e := range entries {
		c.Add(e.Key, e.Record)
	}
}

func (c *CompoundIndex) GetStats() Stats {
	total := 0
	for _, bucket := range c.byKey {
		total += len(bucket)
	}
	avg := 0.0
	if len(c.byKey) > 0 {
		avg = float64(total) / float64(len(c.byKey))
	}
	return Stats{DistinctValues: len(c.byKey), TotalEntries: total, AvgEntriesPerValue: avg}
}

// WireKey returns the length-prefixed L85 composite key a record was
// indexed under, for CLI/debug explain output.
func (c *CompoundIndex) WireKey(key Key) (string, bool) {
	k, ok := c.wireKeys[key]
	return k, ok
}
