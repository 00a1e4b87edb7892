// Package live implements standing subscriptions that emit incremental
// deltas as records mutate, rather than requiring a caller to re-run a
// query: the two concrete index kinds (StandingLiveIndex, LiveFTSIndex)
// behind a common ILiveQueryIndex-shaped contract, and
// UnifiedLiveQueryRegistry, which ref-counts registrations by query
// hash the same way standing.Registry does for one-shot standing
// indexes (datalog has no live-subscription analogue; this package
// generalizes standing.Registry's ref-counting/hashing pattern to a
// delta-emitting contract instead of a snapshot-retrieval one).
package live

import (
	"sort"

	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/queryast"
)

// DeltaKind classifies how a live index's membership/ranking changed
// for one key after a mutation.
type DeltaKind string

const (
	DeltaAdded   DeltaKind = "added"
	DeltaRemoved DeltaKind = "removed"
	DeltaUpdated DeltaKind = "updated"
)

// Delta is the per-key notification a live index emits; nil means "no
// observable change for this query". Score/OldScore/MatchedTerms are
// populated only by ranked (LiveFTSIndex) results.
type Delta struct {
	Kind         DeltaKind
	Score        *float64
	OldScore     *float64
	MatchedTerms []string
}

// Result is one entry of a live index's current result set.
type Result struct {
	Key          string
	Score        *float64
	MatchedTerms []string
}

// Index is the common contract both live index kinds satisfy.
type Index interface {
	OnRecordAdded(key string, record map[string]interface{}) (*Delta, error)
	OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{}) (*Delta, error)
	OnRecordRemoved(key string, record map[string]interface{}) (*Delta, error)
	GetResults() []Result
	GetResultCount() int
	Contains(key string) bool
	BuildFromData(entries []index.Entry)
	Clear()
}

// StandingLiveIndex wraps a StandingQueryIndex to emit added/removed/
// updated deltas as records mutate, instead of only answering
// point-in-time Retrieve calls.
type StandingLiveIndex struct {
	idx *index.StandingQueryIndex
}

// NewStandingLiveIndex creates a StandingLiveIndex over q.
func NewStandingLiveIndex(q queryast.Query) *StandingLiveIndex {
	return &StandingLiveIndex{idx: index.NewStandingQueryIndex(q)}
}

func (l *StandingLiveIndex) OnRecordAdded(key string, record map[string]interface{}) (*Delta, error) {
	before := l.idx.Contains(key)
	l.idx.Add(key, record)
	return diffMembership(before, l.idx.Contains(key)), nil
}

func (l *StandingLiveIndex) OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{}) (*Delta, error) {
	before := l.idx.Contains(key)
	l.idx.Update(key, oldRecord, newRecord)
	return diffMembership(before, l.idx.Contains(key)), nil
}

func (l *StandingLiveIndex) OnRecordRemoved(key string, record map[string]interface{}) (*Delta, error) {
	before := l.idx.Contains(key)
	l.idx.Remove(key, record)
	return diffMembership(before, l.idx.Contains(key)), nil
}

func diffMembership(before, after bool) *Delta {
	switch {
	case !before && after:
		return &Delta{Kind: DeltaAdded}
	case before && !after:
		return &Delta{Kind: DeltaRemoved}
	case before && after:
		return &Delta{Kind: DeltaUpdated}
	default:
		return nil
	}
}

func (l *StandingLiveIndex) GetResults() []Result {
	rs, _ := l.idx.Retrieve(index.IndexQuery{})
	keys := rs.Keys()
	out := make([]Result, len(keys))
	for i, k := range keys {
		out[i] = Result{Key: k}
	}
	return out
}

func (l *StandingLiveIndex) GetResultCount() int {
	rs, _ := l.idx.Retrieve(index.IndexQuery{})
	return rs.Size()
}

func (l *StandingLiveIndex) Contains(key string) bool { return l.idx.Contains(key) }

func (l *StandingLiveIndex) BuildFromData(entries []index.Entry) { l.idx.BuildFromData(entries) }

func (l *StandingLiveIndex) Clear() { l.idx.Clear() }

// LiveFTSIndex holds a ranked top-K view of a single atomic match/
// matchPhrase/matchPrefix query over a shared fts.Index. Each mutated
// key is re-scored by running the query's full search and taking that
// key's hit. Eviction under maxResults always drops the lowest-scoring
// member, never an arbitrary one.
type LiveFTSIndex struct {
	query      queryast.FTSQuery
	fts        *fts.Index
	maxResults int
	minScore   float64

	scores       map[string]float64
	matchedTerms map[string][]string
}

// NewLiveFTSIndex creates a LiveFTSIndex over ftsIdx for query q.
// maxResults<=0 means unbounded; results scoring below minScore are
// excluded.
func NewLiveFTSIndex(q queryast.FTSQuery, ftsIdx *fts.Index, maxResults int, minScore float64) *LiveFTSIndex {
	return &LiveFTSIndex{
		query:        q,
		fts:          ftsIdx,
		maxResults:   maxResults,
		minScore:     minScore,
		scores:       make(map[string]float64),
		matchedTerms: make(map[string][]string),
	}
}

func (l *LiveFTSIndex) OnRecordAdded(key string, record map[string]interface{}) (*Delta, error) {
	return l.rescore(key)
}

func (l *LiveFTSIndex) OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{}) (*Delta, error) {
	return l.rescore(key)
}

func (l *LiveFTSIndex) OnRecordRemoved(key string, record map[string]interface{}) (*Delta, error) {
	oldScore, wasIn := l.scores[key]
	if !wasIn {
		return nil, nil
	}
	delete(l.scores, key)
	delete(l.matchedTerms, key)
	old := oldScore
	return &Delta{Kind: DeltaRemoved, OldScore: &old}, nil
}

// rescore re-reads key's current score from the shared index (assumed
// already updated by the host's fts.Index.OnSet/OnRemove call for this
// mutation) and reports the resulting membership/ranking transition.
func (l *LiveFTSIndex) rescore(key string) (*Delta, error) {
	score, terms, found, err := l.scoreAndTerms(key)
	if err != nil {
		return nil, err
	}
	oldScore, wasIn := l.scores[key]
	passes := found && score >= l.minScore

	switch {
	case !wasIn && passes:
		l.scores[key] = score
		if len(terms) > 0 {
			l.matchedTerms[key] = terms
		}
		if evicted := l.evictIfOverCapacity(); evicted == key {
			return nil, nil
		}
		s := score
		return &Delta{Kind: DeltaAdded, Score: &s}, nil
	case wasIn && passes:
		if score == oldScore {
			return nil, nil
		}
		l.scores[key] = score
		if len(terms) > 0 {
			l.matchedTerms[key] = terms
		}
		s, old := score, oldScore
		return &Delta{Kind: DeltaUpdated, Score: &s, OldScore: &old}, nil
	case wasIn && !passes:
		delete(l.scores, key)
		delete(l.matchedTerms, key)
		old := oldScore
		return &Delta{Kind: DeltaRemoved, OldScore: &old}, nil
	default:
		return nil, nil
	}
}

func (l *LiveFTSIndex) scoreAndTerms(key string) (float64, []string, bool, error) {
	matches, err := l.fts.Search(l.query, 0)
	if err != nil {
		return 0, nil, false, err
	}
	for _, m := range matches {
		if m.DocID == key {
			return m.Score, m.MatchedTerms, true, nil
		}
	}
	return 0, nil, false, nil
}

// evictIfOverCapacity drops the lowest-scoring member if maxResults is
// exceeded, returning its key (or "" if nothing was evicted).
func (l *LiveFTSIndex) evictIfOverCapacity() string {
	if l.maxResults <= 0 || len(l.scores) <= l.maxResults {
		return ""
	}
	var worstKey string
	worstScore := 0.0
	first := true
	for k, s := range l.scores {
		if first || s < worstScore {
			worstKey, worstScore = k, s
			first = false
		}
	}
	delete(l.scores, worstKey)
	delete(l.matchedTerms, worstKey)
	return worstKey
}

func (l *LiveFTSIndex) GetResults() []Result {
	out := make([]Result, 0, len(l.scores))
	for k, s := range l.scores {
		score := s
		out = append(out, Result{Key: k, Score: &score, MatchedTerms: l.matchedTerms[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Score > *out[j].Score })
	return out
}

func (l *LiveFTSIndex) GetResultCount() int { return len(l.scores) }

func (l *LiveFTSIndex) Contains(key string) bool {
	_, ok := l.scores[key]
	return ok
}

func (l *LiveFTSIndex) BuildFromData(entries []index.Entry) {
	l.Clear()
	matches, err := l.fts.Search(l.query, 0)
	if err != nil {
		return
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	for _, m := range matches {
		if m.Score < l.minScore {
			continue
		}
		l.scores[m.DocID] = m.Score
		if len(m.MatchedTerms) > 0 {
			l.matchedTerms[m.DocID] = m.MatchedTerms
		}
		if l.maxResults > 0 && len(l.scores) >= l.maxResults {
			break
		}
	}
}

func (l *LiveFTSIndex) Clear() {
	l.scores = make(map[string]float64)
	l.matchedTerms = make(map[string][]string)
}

var _ Index = (*StandingLiveIndex)(nil)
var _ Index = (*LiveFTSIndex)(nil)

type liveEntry struct {
	idx      Index
	refCount int
}

// UnifiedLiveQueryRegistry ref-counts live subscriptions by canonical
// query hash, the same pattern standing.Registry uses for one-shot
// standing indexes, but selecting between the two live index kinds:
// a query carrying a single atomic FTS clause with a full-text index
// registered for its field gets a ranked LiveFTSIndex, everything else
// gets a StandingLiveIndex.
type UnifiedLiveQueryRegistry struct {
	byHash   map[string]*liveEntry
	fullText map[string]*fts.Index
}

// NewUnifiedLiveQueryRegistry creates a registry that consults
// fullText to decide, per query, whether a LiveFTSIndex can be used.
func NewUnifiedLiveQueryRegistry(fullText map[string]*fts.Index) *UnifiedLiveQueryRegistry {
	return &UnifiedLiveQueryRegistry{byHash: make(map[string]*liveEntry), fullText: fullText}
}

// Register increments the refcount for q's canonical hash, creating
// and seeding a new live index from entries on first registration.
// Returns the index and whether it was newly created.
func (r *UnifiedLiveQueryRegistry) Register(q queryast.Query, entries []index.Entry) (Index, bool) {
	h := queryast.CanonicalHash(q)
	if e, ok := r.byHash[h]; ok {
		e.refCount++
		return e.idx, false
	}
	idx := r.build(q)
	idx.BuildFromData(entries)
	r.byHash[h] = &liveEntry{idx: idx, refCount: 1}
	return idx, true
}

func (r *UnifiedLiveQueryRegistry) build(q queryast.Query) Index {
	if q.FTS != nil {
		if ftsIdx, ok := r.fullText[q.FTS.Field]; ok {
			return NewLiveFTSIndex(*q.FTS, ftsIdx, 0, 0)
		}
	}
	return NewStandingLiveIndex(q)
}

// Lookup returns the live index registered for q's exact canonical
// hash, if any, without affecting its refcount.
func (r *UnifiedLiveQueryRegistry) Lookup(q queryast.Query) (Index, bool) {
	e, ok := r.byHash[queryast.CanonicalHash(q)]
	if !ok {
		return nil, false
	}
	return e.idx, true
}

// Unregister decrements q's refcount; at zero it removes the index and
// returns true. Unregistering a query with no registration is a no-op
// that returns false.
func (r *UnifiedLiveQueryRegistry) Unregister(q queryast.Query) bool {
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

// Deltas is the per-query-hash notification map one mutation produces
// across every registered live index, omitting queries with no change.
type Deltas map[string]*Delta

// OnRecordAdded applies an add to every registered live index.
func (r *UnifiedLiveQueryRegistry) OnRecordAdded(key string, record map[string]interface{}) Deltas {
	out := make(Deltas)
	for hash, e := range r.byHash {
		d, err := e.idx.OnRecordAdded(key, record)
		if err == nil && d != nil {
			out[hash] = d
		}
	}
	return out
}

// OnRecordUpdated applies an update to every registered live index.
func (r *UnifiedLiveQueryRegistry) OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{}) Deltas {
	out := make(Deltas)
	for hash, e := range r.byHash {
		d, err := e.idx.OnRecordUpdated(key, oldRecord, newRecord)
		if err == nil && d != nil {
			out[hash] = d
		}
	}
	return out
}

// OnRecordRemoved applies a removal to every registered live index.
func (r *UnifiedLiveQueryRegistry) OnRecordRemoved(key string, record map[string]interface{}) Deltas {
	out := make(Deltas)
	for hash, e := range r.byHash {
		d, err := e.idx.OnRecordRemoved(key, record)
		if err == nil && d != nil {
			out[hash] = d
		}
	}
	return out
}

// Size returns the number of distinct live queries currently registered.
func (r *UnifiedLiveQueryRegistry) Size() int { return len(r.byHash) }

// Clear removes every registered live index.
func (r *UnifiedLiveQueryRegistry) Clear() {
	r.byHash = make(map[string]*liveEntry)
}

// listenerAdapter discards the per-query delta map so a registry can
// satisfy crdt.Listener's void-return notification contract for hosts
// that dispatch deltas to subscribers through a separate channel
// rather than consuming OnRecordAdded/_Updated/_Removed's return value
// directly (mirrors standing.AsListener).
type listenerAdapter struct{ r *UnifiedLiveQueryRegistry }

// AsListener adapts r to crdt.Listener.
func AsListener(r *UnifiedLiveQueryRegistry) *listenerAdapter { return &listenerAdapter{r: r} }

func (a *listenerAdapter) OnRecordAdded(key string, record map[string]interface{}) {
	a.r.OnRecordAdded(key, record)
}

func (a *listenerAdapter) OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{}) {
	a.r.OnRecordUpdated(key, oldRecord, newRecord)
}

func (a *listenerAdapter) OnRecordRemoved(key string, record map[string]interface{}) {
	a.r.OnRecordRemoved(key, record)
}
