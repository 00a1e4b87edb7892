// Package optimizer turns a queryast.Query into a queryast.Plan,
// choosing the cheapest available index path the way
// datalog/planner/planner.go chooses storage indexes and join order for
// a Datalog query, generalized from EAVT-style pattern matching to flat
// attribute predicates over a registry of secondary indexes.
package optimizer

import (
	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/queryerr"
	"github.com/wbrown/kvqueryengine/registry"
	"github.com/wbrown/kvqueryengine/standing"
)

// primaryKeyAttrs names the attributes a point-lookup may match against.
var primaryKeyAttrs = map[string]bool{"_key": true, "key": true, "id": true}

// Options configures an Optimizer.
type Options struct {
	Registry *registry.Registry
	Standing *standing.Registry // optional
	FullText map[string]*fts.Index // field name -> index, optional
	Cache    *PlanCache             // optional
}

// Optimizer is a pure function of (query, registries) that also
// memoizes plans in an optional PlanCache.
type Optimizer struct {
	opts Options
}

// New creates an Optimizer over opts.
func New(opts Options) *Optimizer {
	return &Optimizer{opts: opts}
}

// Optimize builds a plan for q, consulting the plan cache first if one
// is configured.
func (o *Optimizer) Optimize(q queryast.Query) (queryast.Plan, error) {
	var cacheKey string
	if o.opts.Cache != nil {
		cacheKey = queryast.CanonicalHash(q)
		if cached, ok := o.opts.Cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	plan, err := o.optimizeTop(q)
	if err != nil {
		return queryast.Plan{}, err
	}

	if o.opts.Cache != nil {
		o.opts.Cache.Set(cacheKey, plan)
	}
	return plan, nil
}

func (o *Optimizer) optimizeTop(q queryast.Query) (queryast.Plan, error) {
	if plan, ok := tryPointLookup(q); ok {
		return plan, nil
	}
	if o.opts.Standing != nil {
		if _, ok := o.opts.Standing.Lookup(q); ok {
			return queryast.Plan{
				Kind:      queryast.PlanIndexScan,
				IndexKind: "standing",
				IndexCost: index.CostStanding,
				Predicate: q,
			}, nil
		}
	}
	return o.optimizeNode(q)
}

// tryPointLookup detects eq/in over a primary-key attribute.
func tryPointLookup(q queryast.Query) (queryast.Plan, bool) {
	if q.Simple == nil || !primaryKeyAttrs[q.Simple.Attribute] {
		return queryast.Plan{}, false
	}
	switch q.Simple.Kind {
	case queryast.OpEq:
		return queryast.Plan{Kind: queryast.PlanPointLookup, Key: q.Simple.Value}, true
	case queryast.OpIn:
		return queryast.Plan{Kind: queryast.PlanMultiPointLookup, Keys: q.Simple.Values}, true
	default:
		return queryast.Plan{}, false
	}
}

func (o *Optimizer) optimizeNode(q queryast.Query) (queryast.Plan, error) {
	switch {
	case q.Simple != nil:
		return o.optimizeSimple(q)
	case q.Logical != nil:
		return o.optimizeLogical(q)
	case q.FTS != nil:
		return o.optimizeFTS(q)
	default:
		return queryast.Plan{}, queryerr.New(queryerr.KindEmptyJunction, "query carries no predicate")
	}
}

func fullScan(q queryast.Query) queryast.Plan {
	return queryast.Plan{Kind: queryast.PlanFullScan, Predicate: q}
}

// mapSimpleKind maps a simple-predicate operator to the index-query kind
// the registry's indexes understand. Operators with no index-capable
// form (like/regex/contains family) return ok=false and always fall
// back to full-scan.
func mapSimpleKind(k queryast.SimpleKind) (index.QueryKind, bool) {
	switch k {
	case queryast.OpEq, queryast.OpNeq:
		return index.QueryEqual, true
	case queryast.OpGt:
		return index.QueryGt, true
	case queryast.OpGte:
		return index.QueryGte, true
	case queryast.OpLt:
		return index.QueryLt, true
	case queryast.OpLte:
		return index.QueryLte, true
	case queryast.OpBetween:
		return index.QueryBetween, true
	case queryast.OpIn:
		return index.QueryIn, true
	case queryast.OpHas:
		return index.QueryHas, true
	default:
		return "", false
	}
}

func buildIndexArg(kind index.QueryKind, sq *queryast.SimpleQuery) queryast.IndexQueryArg {
	switch kind {
	case index.QueryIn:
		return queryast.IndexQueryArg{Kind: string(kind), Values: sq.Values}
	case index.QueryBetween:
		return queryast.IndexQueryArg{Kind: string(kind), From: sq.From, To: sq.To, FromIncl: sq.FromIncl, ToIncl: sq.ToIncl}
	case index.QueryHas:
		return queryast.IndexQueryArg{Kind: string(kind)}
	default:
		return queryast.IndexQueryArg{Kind: string(kind), Value: sq.Value}
	}
}

// optimizeSimple implements the "Simple query" optimization rule. A
// neq predicate that finds a supporting index is answered by negating
// an equal-kind index-scan: not(index-scan(equal, v)) is exactly
// {k : data[k] is absent or data[k][attr] != v}, the same set the
// predicate evaluator's neq rule defines, and reuses the not step's
// existing universe-difference semantics instead of inventing a
// dedicated not-equal index-query kind.
func (o *Optimizer) optimizeSimple(q queryast.Query) (queryast.Plan, error) {
	sq := q.Simple
	mapped, ok := mapSimpleKind(sq.Kind)
	if !ok {
		return fullScan(q), nil
	}

	idx := o.opts.Registry.FindBestIndex(sq.Attribute, mapped)
	if idx == nil {
		return fullScan(q), nil
	}

	scan := queryast.Plan{
		Kind:      queryast.PlanIndexScan,
		IndexName: sq.Attribute,
		IndexCost: idx.RetrievalCost(),
		IndexKind: string(mapped),
		IndexArg:  buildIndexArg(mapped, sq),
	}
	if sq.Kind == queryast.OpNeq {
		return queryast.Plan{Kind: queryast.PlanNot, Source: &scan}, nil
	}
	return scan, nil
}

func (o *Optimizer) optimizeFTS(q queryast.Query) (queryast.Plan, error) {
	idx, ok := o.opts.FullText[q.FTS.Field]
	if !ok {
		return fullScan(q), nil
	}
	return queryast.Plan{
		Kind:          queryast.PlanFTSScan,
		FTSField:      q.FTS.Field,
		FTSQuery:      *q.FTS,
		ReturnsScored: true,
		EstCost:       idx.RetrievalCost(),
	}, nil
}

func (o *Optimizer) optimizeLogical(q queryast.Query) (queryast.Plan, error) {
	lq := q.Logical
	switch lq.Op {
	case queryast.LogicalAnd:
		return o.optimizeAnd(lq.Children)
	case queryast.LogicalOr:
		return o.optimizeOr(lq.Children)
	case queryast.LogicalNot:
		return o.optimizeNot(lq.Children)
	default:
		return queryast.Plan{}, queryerr.New(queryerr.KindEmptyJunction, "unknown logical operator")
	}
}

func (o *Optimizer) optimizeNot(children []queryast.Query) (queryast.Plan, error) {
	if len(children) != 1 {
		return queryast.Plan{}, queryerr.New(queryerr.KindMissingNotChild, "NOT requires exactly one child")
	}
	child, err := o.optimizeNode(children[0])
	if err != nil {
		return queryast.Plan{}, err
	}
	return queryast.Plan{Kind: queryast.PlanNot, Source: &child}, nil
}
