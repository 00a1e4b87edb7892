package optimizer

import (
	"sort"

	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/queryerr"
	"github.com/wbrown/kvqueryengine/value"
)

// optimizeAnd implements the AND optimization order: single-child
// passthrough, the compound fast-path, then the general indexed/
// full-scan combination rule.
func (o *Optimizer) optimizeAnd(children []queryast.Query) (queryast.Plan, error) {
	if len(children) == 0 {
		return queryast.Plan{}, queryerr.New(queryerr.KindEmptyJunction, "AND requires at least one child")
	}
	if len(children) == 1 {
		return o.optimizeNode(children[0])
	}

	if plan, ok := o.tryCompoundFastPath(children); ok {
		return plan, nil
	}

	plans := make([]queryast.Plan, len(children))
	for i, c := range children {
		p, err := o.optimizeNode(c)
		if err != nil {
			return queryast.Plan{}, err
		}
		plans[i] = p
	}

	var idxSteps []queryast.Plan
	var restQueries []queryast.Query
	for i, p := range plans {
		if p.UsesIndexes() {
			idxSteps = append(idxSteps, p)
		} else {
			restQueries = append(restQueries, children[i])
		}
	}

	sort.SliceStable(idxSteps, func(i, j int) bool {
		return EstimateCost(idxSteps[i]) < EstimateCost(idxSteps[j])
	})

	switch len(idxSteps) {
	case 0:
		return queryast.Plan{Kind: queryast.PlanFullScan, Predicate: queryast.And(children...)}, nil
	case 1:
		scan := idxSteps[0]
		if len(restQueries) == 0 {
			return scan, nil
		}
		return queryast.Plan{Kind: queryast.PlanFilter, Source: &scan, Predicate: queryast.And(restQueries...)}, nil
	default:
		combined := combineScans(idxSteps)
		if len(restQueries) == 0 {
			return combined, nil
		}
		return queryast.Plan{Kind: queryast.PlanFilter, Source: &combined, Predicate: queryast.And(restQueries...)}, nil
	}
}

// combineScans applies the fusion strategy selection rule: unscored
// steps intersect, all-scored steps score-filter, mixed steps fuse via
// reciprocal rank fusion.
func combineScans(steps []queryast.Plan) queryast.Plan {
	anyScored, allScored := false, true
	for _, s := range steps {
		if s.StepReturnsScored() {
			anyScored = true
		} else {
			allScored = false
		}
	}
	if !anyScored {
		return queryast.Plan{Kind: queryast.PlanIntersection, Steps: steps}
	}
	strategy := queryast.FusionRRF
	if allScored {
		strategy = queryast.FusionScoreFilter
	}
	return queryast.Plan{Kind: queryast.PlanFusion, Strategy: strategy, Steps: steps, ReturnsScored: true}
}

// tryCompoundFastPath matches the AND compound fast-path: every child
// must be a simple eq predicate, and the registry must have a compound
// index whose declared attribute set equals exactly the set of eq
// attributes.
func (o *Optimizer) tryCompoundFastPath(children []queryast.Query) (queryast.Plan, bool) {
	eqByAttr := make(map[string]queryast.Query, len(children))
	attrNames := make([]string, 0, len(children))
	for _, c := range children {
		if c.Simple == nil || c.Simple.Kind != queryast.OpEq {
			return queryast.Plan{}, false
		}
		eqByAttr[c.Simple.Attribute] = c
		attrNames = append(attrNames, c.Simple.Attribute)
	}

	ci := o.opts.Registry.FindCompoundIndexBySet(attrNames)
	if ci == nil {
		return queryast.Plan{}, false
	}

	declared := ci.AttributeNames()
	values := make([]value.Value, len(declared))
	for i, attr := range declared {
		c, ok := eqByAttr[attr]
		if !ok {
			return queryast.Plan{}, false
		}
		values[i] = c.Simple.Value
	}

	scan := queryast.Plan{
		Kind:          queryast.PlanIndexScan,
		IndexKind:     "compound",
		CompoundAttrs: declared,
		IndexCost:     ci.RetrievalCost(),
		IndexArg:      queryast.IndexQueryArg{Kind: "compound", CompoundValues: values},
	}
	return scan, true
}

// optimizeOr implements the OR optimization order.
func (o *Optimizer) optimizeOr(children []queryast.Query) (queryast.Plan, error) {
	if len(children) == 0 {
		return queryast.Plan{}, queryerr.New(queryerr.KindEmptyJunction, "OR requires at least one child")
	}
	if len(children) == 1 {
		return o.optimizeNode(children[0])
	}

	plans := make([]queryast.Plan, len(children))
	allFullScan := true
	for i, c := range children {
		p, err := o.optimizeNode(c)
		if err != nil {
			return queryast.Plan{}, err
		}
		plans[i] = p
		if p.Kind != queryast.PlanFullScan {
			allFullScan = false
		}
	}

	if allFullScan {
		return queryast.Plan{Kind: queryast.PlanFullScan, Predicate: queryast.Or(children...)}, nil
	}
	return queryast.Plan{Kind: queryast.PlanUnion, Steps: plans}, nil
}
