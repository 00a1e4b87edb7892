package optimizer

import (
	"math"

	"github.com/wbrown/kvqueryengine/queryast"
)

// EstimateCost is the local cost model: a pure bottom-up function of
// plan shape, independent of distribution.
func EstimateCost(p queryast.Plan) float64 {
	switch p.Kind {
	case queryast.PlanPointLookup:
		return 1
	case queryast.PlanMultiPointLookup:
		return float64(len(p.Keys))
	case queryast.PlanIndexScan:
		return float64(p.IndexCost)
	case queryast.PlanFullScan:
		return math.Inf(1)
	case queryast.PlanIntersection:
		return minCost(p.Steps)
	case queryast.PlanUnion:
		return sumCost(p.Steps)
	case queryast.PlanFilter:
		if p.Source == nil {
			return 10
		}
		return EstimateCost(*p.Source) + 10
	case queryast.PlanNot:
		if p.Source == nil {
			return 100
		}
		return EstimateCost(*p.Source) + 100
	case queryast.PlanFTSScan:
		return p.EstCost
	case queryast.PlanFusion:
		return sumCost(p.Steps) + 20
	default:
		return math.Inf(1)
	}
}

func minCost(steps []queryast.Plan) float64 {
	if len(steps) == 0 {
		return 0
	}
	m := EstimateCost(steps[0])
	for _, s := range steps[1:] {
		if c := EstimateCost(s); c < m {
			m = c
		}
	}
	return m
}

func sumCost(steps []queryast.Plan) float64 {
	sum := 0.0
	for _, s := range steps {
		sum += EstimateCost(s)
	}
	return sum
}

// QueryContext carries the information an external distributed router
// supplies when costing a plan across a cluster.
type QueryContext struct {
	IsDistributed bool
	NodeCount     int
	UsesStorage   bool
}

// networkCost is the distributed cost model's network term.
func networkCost(p queryast.Plan, ctx QueryContext) float64 {
	if !ctx.IsDistributed {
		return 0
	}
	switch p.Kind {
	case queryast.PlanFullScan:
		return float64(ctx.NodeCount) * 10
	case queryast.PlanPointLookup, queryast.PlanIndexScan:
		return 5
	case queryast.PlanMultiPointLookup:
		n := len(p.Keys)
		if ctx.NodeCount < n {
			n = ctx.NodeCount
		}
		return float64(n) * 5
	case queryast.PlanIntersection, queryast.PlanUnion:
		return float64(len(p.Steps)) * 5
	case queryast.PlanNot:
		return float64(ctx.NodeCount) * 5
	case queryast.PlanFTSScan:
		return math.Ceil(float64(ctx.NodeCount)/2) * 5
	case queryast.PlanFusion:
		sum := 0.0
		for _, s := range p.Steps {
			sum += networkCost(s, ctx)
		}
		return sum
	case queryast.PlanFilter:
		if p.Source == nil {
			return 0
		}
		return networkCost(*p.Source, ctx)
	default:
		return 0
	}
}

// GetTotalDistributedCost augments the local cost model with a network
// term, exposed as a pure function for an external router per
// "totalCost = rows*0.001 + cpu*1 + network*10 + io*5".
//
// There is no cardinality/statistics subsystem in this engine (out of
// scope), so rows is approximated by the same local-cost value used as
// cpu; this keeps the function monotonic and pure without fabricating a
// fake statistics component.
func GetTotalDistributedCost(p queryast.Plan, ctx QueryContext) float64 {
	cpu := EstimateCost(p)
	rows := cpu
	var io float64
	if ctx.UsesStorage {
		io = cpu * 0.5
	}
	network := networkCost(p, ctx)
	return rows*0.001 + cpu*1 + network*10 + io*5
}
