// Package executor runs a queryast.Plan against a K->V snapshot,
// re-resolving the descriptive index references a Plan carries (to
// avoid a queryast<->index import cycle) against the same registries
// the optimizer was configured with, then applies predicate filtering,
// ordering, cursor-filtering, and limit — the same execute/hydrate/
// sort/paginate shape datalog/executor/executor.go runs a compiled
// Datalog plan through, generalized from EAVT joins to flat key sets.
package executor

import (
	"sort"
	"time"

	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/cursor"
	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/optimizer"
	"github.com/wbrown/kvqueryengine/predicate"
	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/registry"
	"github.com/wbrown/kvqueryengine/rrf"
	"github.com/wbrown/kvqueryengine/standing"
	"github.com/wbrown/kvqueryengine/value"
)

// Snapshot is the K->V view the executor reads from; a collection host
// (e.g. crdtstore.Store.Snapshot) produces it fresh per query.
type Snapshot map[string]map[string]interface{}

// KeyUniverse supplies the "all keys" set a not plan subtracts its
// source from. Threaded explicitly rather than implied from the
// snapshot so a caller running against a partial or filtered view can
// still define what "universe" means for negation.
type KeyUniverse interface {
	Keys() []string
}

// SnapshotUniverse adapts a Snapshot to KeyUniverse using its own key
// set, the common case of "negation is relative to everything in the
// store".
type SnapshotUniverse Snapshot

func (u SnapshotUniverse) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	return keys
}

// Options configures an Executor.
type Options struct {
	Optimizer *optimizer.Optimizer
	Registry  *registry.Registry
	Standing  *standing.Registry    // optional, must match optimizer's
	FullText  map[string]*fts.Index // optional, must match optimizer's
	RRFK      int                   // optional, default rrf.DefaultK
}

// Executor turns a queryast.Query into results against a Snapshot.
type Executor struct {
	opts Options
	eval *predicate.Evaluator
}

// New creates an Executor. Attribute resolution for full-scan/filter
// predicate evaluation uses dotted-path traversal, the same resolution
// attribute.ByPath/MapPath gives every other component.
func New(opts Options) *Executor {
	if opts.RRFK <= 0 {
		opts.RRFK = rrf.DefaultK
	}
	extract := func(record map[string]interface{}, attrName string) (value.Value, bool) {
		return attribute.MapPath(record, attrName)
	}
	eval := predicate.New(extract, predicate.DefaultFTSFallback(extract))
	return &Executor{opts: opts, eval: eval}
}

// Row is one hydrated result: a key, its live record, and an optional
// score/matched-terms carried from a ranked plan step.
type Row struct {
	Key          string
	Record       map[string]interface{}
	Score        *float64
	MatchedTerms []string
}

// QueryOptions carries the per-call ordering/limit/cursor knobs.
type QueryOptions struct {
	Order       *queryast.Ordering
	Limit       *int
	CursorToken string
	MaxAgeMs    int64
	Now         func() (unixMillis int64)
}

// Response is the full answer to one Execute call.
type Response struct {
	Rows         []Row
	CursorStatus cursor.Status
	NextCursor   string
	HasMore      bool
}

// Execute optimizes q, runs the resulting plan against snapshot, and
// applies the execute->hydrate->sort->cursor-filter->limit pipeline.
func (e *Executor) Execute(snapshot Snapshot, universe KeyUniverse, q queryast.Query, qopts QueryOptions) (Response, error) {
	plan, err := e.opts.Optimizer.Optimize(q)
	if err != nil {
		return Response{}, err
	}

	scored, err := e.run(plan, snapshot, universe)
	if err != nil {
		return Response{}, err
	}

	rows := e.hydrate(scored, snapshot)
	order, direction := resolveOrder(qopts.Order, rows)
	sortRows(rows, order, direction)

	return e.paginate(rows, q, order, direction, qopts)
}

func resolveOrder(order *queryast.Ordering, rows []Row) (string, bool) {
	if order != nil {
		return order.Field, order.Ascending
	}
	for _, r := range rows {
		if r.Score != nil {
			return "_score", false
		}
	}
	return "", true
}

func sortRows(rows []Row, field string, ascending bool) {
	if field == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := sortValue(rows[i], field), sortValue(rows[j], field)
		c := value.Compare(a, b)
		if c == 0 {
			if ascending {
				return rows[i].Key < rows[j].Key
			}
			return rows[i].Key > rows[j].Key
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}

func sortValue(r Row, field string) value.Value {
	if field == "_score" {
		if r.Score == nil {
			return float64(0)
		}
		return *r.Score
	}
	v, _ := attribute.MapPath(r.Record, field)
	return v
}

func (e *Executor) paginate(rows []Row, q queryast.Query, order string, ascending bool, qopts QueryOptions) (Response, error) {
	status := cursor.StatusNone
	direction := "asc"
	if !ascending {
		direction = "desc"
	}

	filtered := rows
	if qopts.CursorToken != "" {
		decoded, ok := cursor.Decode(qopts.CursorToken)
		if !ok {
			status = cursor.StatusInvalid
		} else {
			now := nowMillis(qopts.Now)
			status = cursor.Validate(decoded, q, order, direction, timeFromMillis(now), qopts.MaxAgeMs)
			if status == cursor.StatusValid {
				filtered = filterAfterCursor(rows, decoded, order, ascending)
			}
		}
	}

	total := len(filtered)
	hasMore := false
	if qopts.Limit != nil && *qopts.Limit < total {
		filtered = filtered[:*qopts.Limit]
		hasMore = true
	}

	var nextCursor string
	if hasMore && len(filtered) > 0 {
		last := filtered[len(filtered)-1]
		c := cursor.FromResults([]cursor.PositionedResult{
			{NodeID: cursor.DefaultNodeID, Key: last.Key, Value: sortValue(last, order)},
		}, order, direction, q, timeFromMillis(nowMillis(qopts.Now)))
		token, err := cursor.Encode(c)
		if err != nil {
			return Response{}, err
		}
		nextCursor = token
	}

	return Response{Rows: filtered, CursorStatus: status, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func filterAfterCursor(rows []Row, c cursor.Cursor, order string, ascending bool) []Row {
	cv, hasValue := c.NodeValues[cursor.DefaultNodeID]
	ck, hasKey := c.NodeKeys[cursor.DefaultNodeID]
	if !hasValue || !hasKey {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		v := sortValue(r, order)
		cmp := value.Compare(v, cv)
		var after bool
		if ascending {
			after = cmp > 0 || (cmp == 0 && r.Key > ck)
		} else {
			after = cmp < 0 || (cmp == 0 && r.Key < ck)
		}
		if after {
			out = append(out, r)
		}
	}
	return out
}

// nowMillis resolves the caller-supplied clock, defaulting to the real
// wall clock so a test harness can inject a fixed time but production
// callers need not.
func nowMillis(now func() int64) int64 {
	if now != nil {
		return now()
	}
	return time.Now().UnixMilli()
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
