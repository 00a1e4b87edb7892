// Package registry implements IndexRegistry, the per-collection owner
// of secondary indexes: it routes mutation notifications to every
// registered index and answers "which index should I use" for the
// optimizer.
package registry

import (
	"github.com/wbrown/kvqueryengine/crdt"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/queryerr"
)

var _ crdt.Listener = (*Registry)(nil)

// Stats summarizes every index owned by a Registry.
type Stats struct {
	PerAttribute map[string][]index.Stats
	Compound     map[string]index.Stats
	TotalIndexes int
}

// Registry owns the indexes for one collection.
type Registry struct {
	byAttribute map[string][]index.Index
	compound    map[string]*index.CompoundIndex // key: joined declared attribute names
	fallback    index.Index                     // optional wildcard index, e.g. a standing or hash index over "*"
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byAttribute: make(map[string][]index.Index),
		compound:    make(map[string]*index.CompoundIndex),
	}
}

// Register adds idx under its declared attribute(s). Registering the
// same index value twice for the same attribute is rejected.
func (r *Registry) Register(idx index.Index) error {
	if ci, ok := idx.(*index.CompoundIndex); ok {
		key := ci.Attribute()
		if _, exists := r.compound[key]; exists {
			return queryerr.New(queryerr.KindDuplicateIndex, "compound index already registered for "+key)
		}
		r.compound[key] = ci
		return nil
	}

	attr := idx.Attribute()
	for _, existing := range r.byAttribute[attr] {
		if existing == idx {
			return queryerr.New(queryerr.KindDuplicateIndex, "index already registered for "+attr)
		}
	}
	r.byAttribute[attr] = append(r.byAttribute[attr], idx)
	return nil
}

// RegisterFallback installs idx as the wildcard index consulted when
// no attribute-specific index answers a query.
func (r *Registry) RegisterFallback(idx index.Index) {
	r.fallback = idx
}

// OnRecordAdded dispatches an add notification to every registered
// index, including compound indexes.
func (r *Registry) OnRecordAdded(key index.Key, record map[string]interface{}) {
	r.forEachIndex(func(idx index.Index) { idx.Add(key, record) })
}

// OnRecordUpdated dispatches an update notification to every
// registered index.
func (r *Registry) OnRecordUpdated(key index.Key, oldRecord, newRecord map[string]interface{}) {
	r.forEachIndex(func(idx index.Index) { idx.Update(key, oldRecord, newRecord) })
}

// OnRecordRemoved dispatches a removal notification to every
// registered index.
func (r *Registry) OnRecordRemoved(key index.Key, record map[string]interface{}) {
	r.forEachIndex(func(idx index.Index) { idx.Remove(key, record) })
}

func (r *Registry) forEachIndex(fn func(index.Index)) {
	for _, indexes := range r.byAttribute {
		for _, idx := range indexes {
			fn(idx)
		}
	}
	for _, ci := range r.compound {
		fn(ci)
	}
	if r.fallback != nil {
		fn(r.fallback)
	}
}

// FindBestIndex returns the registered index over attr that supports
// kind with the lowest retrieval cost, or nil if none does.
func (r *Registry) FindBestIndex(attr string, kind index.QueryKind) index.Index {
	var best index.Index
	var bestCost uint32 = index.CostFallback

	for _, idx := range r.byAttribute[attr] {
		if !idx.SupportsQuery(kind) {
			continue
		}
		if idx.RetrievalCost() < bestCost {
			best = idx
			bestCost = idx.RetrievalCost()
		}
	}

	if best == nil && r.fallback != nil && r.fallback.SupportsQuery(kind) {
		return r.fallback
	}
	return best
}

// FindCompoundIndex returns the compound index whose declared
// attribute order exactly equals attrNames, or nil.
func (r *Registry) FindCompoundIndex(attrNames []string) *index.CompoundIndex {
	for _, ci := range r.compound {
		if ci.CanAnswerQuery(attrNames) {
			return ci
		}
	}
	return nil
}

// FindCompoundIndexBySet returns a registered compound index whose
// declared attribute set equals attrNames as a set, regardless of
// order — used by the AND optimizer's compound fast-path, which
// assembles attrNames from an AND's eq children in encounter order.
// CanAnswerQuery/FindCompoundIndex remain order-exact for direct
// compound queries; this is a separate, looser lookup.
func (r *Registry) FindCompoundIndexBySet(attrNames []string) *index.CompoundIndex {
	want := make(map[string]struct{}, len(attrNames))
	for _, n := range attrNames {
		want[n] = struct{}{}
	}
	for _, ci := range r.compound {
		declared := ci.AttributeNames()
		if len(declared) != len(want) {
			continue
		}
		match := true
		for _, n := range declared {
			if _, ok := want[n]; !ok {
				match = false
				break
			}
		}
		if match {
			return ci
		}
	}
	return nil
}

// Indexes returns every index registered for attr, for diagnostics.
func (r *Registry) Indexes(attr string) []index.Index {
	return append([]index.Index(nil), r.byAttribute[attr]...)
}

// Clear clears every owned index's data without unregistering them.
func (r *Registry) Clear() {
	r.forEachIndex(func(idx index.Index) { idx.Clear() })
}

// GetStats summarizes every owned index.
func (r *Registry) GetStats() Stats {
	stats := Stats{
		PerAttribute: make(map[string][]index.Stats),
		Compound:     make(map[string]index.Stats),
	}
	for attr, indexes := range r.byAttribute {
		for _, idx := range indexes {
			stats.PerAttribute[attr] = append(stats.PerAttribute[attr], idx.GetStats())
			stats.TotalIndexes++
		}
	}
	for key, ci := range r.compound {
		stats.Compound[key] = ci.GetStats()
		stats.TotalIndexes++
	}
	if r.fallback != nil {
		stats.TotalIndexes++
	}
	return stats
}
