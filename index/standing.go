package index

import (
	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/predicate"
	"github.com/wbrown/kvqueryengine/queryast"
)

// changeKind classifies how a single record transition affects a
// standing predicate's membership.
type changeKind uint8

const (
	changeNone changeKind = iota
	changeAdded
	changeRemoved
	changeUpdated
)

// StandingQueryIndex precomputes the key set matching one fixed
// predicate, refreshed incrementally on every Add/Remove/Update rather
// than scanned at query time. It is the cheapest index to retrieve
// from (cost 10) because Retrieve ignores its IndexQuery argument
// entirely and just returns the membership set as of the last mutation.
type StandingQueryIndex struct {
	query     queryast.Query
	evaluator *predicate.Evaluator
	members   map[Key]struct{}
}

// NewStandingQueryIndex builds a StandingQueryIndex over q. Attribute
// lookups inside q resolve against records via dotted-path traversal,
// the same resolution attribute.ByPath uses.
func NewStandingQueryIndex(q queryast.Query) *StandingQueryIndex {
	extract := func(record map[string]interface{}, attrName string) (interface{}, bool) {
		return attribute.MapPath(record, attrName)
	}
	evaluator := predicate.New(extract, predicate.DefaultFTSFallback(extract))
	return &StandingQueryIndex{
		query:     q,
		evaluator: evaluator,
		members:   make(map[Key]struct{}),
	}
}

func (s *StandingQueryIndex) Type() Type        { return TypeStanding }
func (s *StandingQueryIndex) Attribute() string { return "*" }

// SupportsQuery is always true: a standing index answers its fixed
// predicate regardless of what kind of lookup is asked of it.
func (s *StandingQueryIndex) SupportsQuery(kind QueryKind) bool { return true }

func (s *StandingQueryIndex) RetrievalCost() uint32 { return CostStanding }

// Retrieve ignores q and returns the full current membership set.
func (s *StandingQueryIndex) Retrieve(q IndexQuery) (ResultSet, error) {
	keys := make([]Key, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	return NewResultSet(keys), nil
}

// Contains reports whether key is currently a member, an O(1) lookup
// for callers (standing.Registry, live.StandingLiveIndex) that need to
// diff membership across a mutation without materializing Retrieve's
// full key slice.
func (s *StandingQueryIndex) Contains(key Key) bool {
	_, ok := s.members[key]
	return ok
}

// matches evaluates the standing predicate against record, treating
// any evaluation error (e.g. a malformed regex baked into the
// predicate at registration time) as non-matching rather than
// propagating — a standing index must never fail a write path.
func (s *StandingQueryIndex) matches(record map[string]interface{}) bool {
	ok, err := s.evaluator.Eval(record, s.query)
	if err != nil {
		return false
	}
	return ok
}

// determineChange classifies how key's membership changes given its
// old and new record. oldRecord/newRecord may be nil to signal the
// key did not exist before/after.
func (s *StandingQueryIndex) determineChange(key Key, oldRecord, newRecord map[string]interface{}) changeKind {
	wasMember := oldRecord != nil && s.matches(oldRecord)
	isMember := newRecord != nil && s.matches(newRecord)
	switch {
	case !wasMember && isMember:
		return changeAdded
	case wasMember && !isMember:
		return changeRemoved
	case wasMember && isMember:
		return changeUpdated
	default:
		return changeNone
	}
}

func (s *StandingQueryIndex) Add(key Key, record map[string]interface{}) {
	switch s.determineChange(key, nil, record) {
	case changeAdded:
		s.members[key] = struct{}{}
	}
}

func (s *StandingQueryIndex) Remove(key Key, record map[string]interface{}) {
	switch s.determineChange(key, record, nil) {
	case changeRemoved:
		delete(s.members, key)
	}
}

func (s *StandingQueryIndex) Update(key Key, oldRecord, newRecord map[string]interface{}) {
	switch s.determineChange(key, oldRecord, newRecord) {
	case changeAdded:
		s.members[key] = struct{}{}
	case changeRemoved:
		delete(s.members, key)
	case changeUpdated:
		s.members[key] = struct{}{}
	}
}

func (s *StandingQueryIndex) Clear() {
	s.members = make(map[Key]struct{})
}

func (s *StandingQueryIndex) BuildFromData(entries []Entry) {
	s.Clear()
	for _, e := range entries {
		if s.matches(e.Record) {
			s.members[e.Key] = struct{}{}
		}
	}
}

func (s *StandingQueryIndex) GetStats() Stats {
	return Stats{DistinctValues: 1, TotalEntries: len(s.members), AvgEntriesPerValue: float64(len(s.members))}
}
