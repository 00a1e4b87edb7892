// Package standing implements the ref-counted registry of materialized
// predicate indexes keyed by canonical query hash, converting CRDT
// record events into per-query deltas.
package standing

import (
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/queryast"
)

// Change mirrors index.changeKind at the registry boundary, since that
// type is unexported.
type Change string

const (
	ChangeAdded   Change = "added"
	ChangeRemoved Change = "removed"
	ChangeUpdated Change = "updated"
)

type entry struct {
	idx      *index.StandingQueryIndex
	refCount int
}

// Registry maintains queryHash -> (StandingQueryIndex, refCount).
type Registry struct {
	byHash map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byHash: make(map[string]*entry)}
}

// Register increments the refcount for q's canonical hash, creating
// and seeding a new StandingQueryIndex from entries on first
// registration. Returns the index and whether it was newly created.
func (r *Registry) Register(q queryast.Query, entries []index.Entry) (*index.StandingQueryIndex, bool) {
	h := queryast.CanonicalHash(q)
	if e, ok := r.byHash[h]; ok {
		e.refCount++
		return e.idx, false
	}
	idx := index.NewStandingQueryIndex(q)
	idx.BuildFromData(entries)
	r.byHash[h] = &entry{idx: idx, refCount: 1}
	return idx, true
}

// Lookup returns the StandingQueryIndex registered for q's exact
// canonical hash, if any, without affecting its refcount.
func (r *Registry) Lookup(q queryast.Query) (*index.StandingQueryIndex, bool) {
	e, ok := r.byHash[queryast.CanonicalHash(q)]
	if !ok {
		return nil, false
	}
	return e.idx, true
}

// Unregister decrements q's refcount; at zero it removes the index
// and returns true. Unregistering a query with no registration is a
// no-op that returns false.
func (r *Registry) Unregister(q queryast.Query) bool {
	h := queryast.CanonicalHash(q)
	e, ok := r.byHash[h]
	if !ok {
		return false
	}
	e.refCount--
	if e.refCount <= 0 {
		delete(r.byHash, h)
		return true
	}
	return false
}

// OnRecordAdded applies an add to every registered standing index and
// returns the set of changes keyed by query hash, omitting unchanged
// queries.
func (r *Registry) OnRecordAdded(key index.Key, record map[string]interface{}) map[string]Change {
	return r.dispatch(key, nil, record)
}

// OnRecordUpdated applies an update to every registered standing index.
func (r *Registry) OnRecordUpdated(key index.Key, oldRecord, newRecord map[string]interface{}) map[string]Change {
	return r.dispatch(key, oldRecord, newRecord)
}

// OnRecordRemoved applies a removal to every registered standing index.
func (r *Registry) OnRecordRemoved(key index.Key, record map[string]interface{}) map[string]Change {
	return r.dispatch(key, record, nil)
}

func (r *Registry) dispatch(key index.Key, oldRecord, newRecord map[string]interface{}) map[string]Change {
	changes := make(map[string]Change)
	for hash, e := range r.byHash {
		before := containsKey(e.idx, key)
		applyTransition(e.idx, key, oldRecord, newRecord)
		after := containsKey(e.idx, key)
		switch {
		case !before && after:
			changes[hash] = ChangeAdded
		case before && !after:
			changes[hash] = ChangeRemoved
		case before && after:
			if newRecord != nil {
				changes[hash] = ChangeUpdated
			}
		}
	}
	return changes
}

func applyTransition(idx *index.StandingQueryIndex, key index.Key, oldRecord, newRecord map[string]interface{}) {
	switch {
	case oldRecord == nil && newRecord != nil:
		idx.Add(key, newRecord)
	case oldRecord != nil && newRecord == nil:
		idx.Remove(key, oldRecord)
	default:
		idx.Update(key, oldRecord, newRecord)
	}
}

func containsKey(idx *index.StandingQueryIndex, key index.Key) bool {
	return idx.Contains(key)
}

// Size returns the number of distinct standing queries currently
// registered.
func (r *Registry) Size() int { return len(r.byHash) }

// listenerAdapter discards the per-query change map so a Registry can
// satisfy crdt.Listener's void-return notification contract; callers
// that need the deltas should call OnRecordAdded/_Updated/_Removed
// directly instead of going through the adapter.
type listenerAdapter struct{ r *Registry }

// AsListener adapts r to crdt.Listener for hosts that only need
// standing indexes kept in sync and don't consume per-query deltas
// directly (e.g. via a separate live-query dispatch path).
func AsListener(r *Registry) *listenerAdapter { return &listenerAdapter{r: r} }

func (a *listenerAdapter) OnRecordAdded(key string, record map[string]interface{}) {
	a.r.OnRecordAdded(key, record)
}

func (a *listenerAdapter) OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{}) {
	a.r.OnRecordUpdated(key, oldRecord, newRecord)
}

func (a *listenerAdapter) OnRecordRemoved(key string, record map[string]interface{}) {
	a.r.OnRecordRemoved(key, record)
}
