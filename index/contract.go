// Package index implements the secondary-index family: Hash,
// Navigable, Compound, and Standing indexes behind a uniform contract.
// (The fifth variant, Inverted/FTS, lives in package fts because its
// contract — onSet/onRemove/search/scoreSingleDocument — is
// deliberately different.)
package index

import "github.com/wbrown/kvqueryengine/value"

// Key is the type of collection record keys.
type Key = string

// QueryKind enumerates the index-query kinds an Index may support,
// the mapped form of the simple query operators after the
// optimizer's kind translation.
type QueryKind string

const (
	QueryEqual    QueryKind = "equal"
	QueryIn       QueryKind = "in"
	QueryHas      QueryKind = "has"
	QueryGt       QueryKind = "gt"
	QueryGte      QueryKind = "gte"
	QueryLt       QueryKind = "lt"
	QueryLte      QueryKind = "lte"
	QueryBetween  QueryKind = "between"
	QueryCompound QueryKind = "compound"
	QueryAny      QueryKind = "any" // standing indexes answer any kind
)

// Type enumerates the five index variants.
type Type string

const (
	TypeHash      Type = "hash"
	TypeNavigable Type = "navigable"
	TypeCompound  Type = "compound"
	TypeInverted  Type = "inverted"
	TypeStanding  Type = "standing"
)

// Retrieval costs, ordered cheapest to most expensive: standing < hash
// < navigable < fallback.
const (
	CostStanding        uint32 = 10
	CostHash            uint32 = 30
	CostNavigable       uint32 = 40
	CostCompoundDefault uint32 = 20
	CostFallback        uint32 = 1<<32 - 1
)

// IndexQuery is the argument Retrieve receives: which kind of lookup,
// plus the value(s)/inclusivity it carries.
type IndexQuery struct {
	Kind             QueryKind
	Value            value.Value
	Values           []value.Value
	From, To         value.Value
	FromIncl, ToIncl bool
	CompoundValues   []value.Value
}

// ResultSet is a lazy set of keys with a size estimate. Scored results
// additionally carry a Score map and an optional MatchedTerms map.
type ResultSet struct {
	keys         []Key
	Scores       map[Key]float64
	MatchedTerms map[Key][]string
}

// NewResultSet wraps keys as an unscored ResultSet.
func NewResultSet(keys []Key) ResultSet { return ResultSet{keys: keys} }

// Keys returns the backing key slice. Callers must not mutate it.
func (rs ResultSet) Keys() []Key { return rs.keys }

// Size returns the number of keys in the result set.
func (rs ResultSet) Size() int { return len(rs.keys) }

// Entry is a single record snapshot indexes read attribute values from.
// V is intentionally opaque.
type Entry struct {
	Key    Key
	Record map[string]interface{}
}

// Stats is the observability surface every index exposes.
type Stats struct {
	DistinctValues    int
	TotalEntries      int
	AvgEntriesPerValue float64
}

// Index is the shared contract every non-FTS secondary index satisfies.
type Index interface {
	Type() Type
	Attribute() string // "*" for wildcard/standing indexes
	SupportsQuery(kind QueryKind) bool
	RetrievalCost() uint32
	Retrieve(q IndexQuery) (ResultSet, error)

	Add(key Key, record map[string]interface{})
	Remove(key Key, record map[string]interface{})
	Update(key Key, oldRecord, newRecord map[string]interface{})
	Clear()

	// BuildFromData seeds the index from a snapshot, clearing prior
	// state first.
	BuildFromData(entries []Entry)

	GetStats() Stats
}
