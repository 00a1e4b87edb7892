package queryast

import "github.com/wbrown/kvqueryengine/value"

// PlanKind enumerates the plan node variants.
type PlanKind string

const (
	PlanPointLookup      PlanKind = "point-lookup"
	PlanMultiPointLookup PlanKind = "multi-point-lookup"
	PlanIndexScan        PlanKind = "index-scan"
	PlanFullScan         PlanKind = "full-scan"
	PlanIntersection     PlanKind = "intersection"
	PlanUnion            PlanKind = "union"
	PlanFilter           PlanKind = "filter"
	PlanNot              PlanKind = "not"
	PlanFTSScan          PlanKind = "fts-scan"
	PlanFusion           PlanKind = "fusion"
)

// FusionStrategy enumerates how Plan nodes combine multiple result sets
// when at least one of them is ranked.
type FusionStrategy string

const (
	FusionIntersection FusionStrategy = "intersection"
	FusionRRF          FusionStrategy = "rrf"
	FusionScoreFilter  FusionStrategy = "score-filter"
)

// Ordering is the plan-level sort annotation a Plan may carry; plans
// may also carry a limit and a cursor.
type Ordering struct {
	Field     string
	Ascending bool
}

// Plan is an immutable execution plan tree node. Exactly the fields
// relevant to Kind are populated; the rest are zero.
type Plan struct {
	Kind PlanKind

	// point-lookup / multi-point-lookup
	Key  value.Value
	Keys []value.Value

	// index-scan
	IndexName     string
	IndexCost     uint32
	IndexKind     string
	IndexArg      IndexQueryArg
	CompoundAttrs []string // index-scan with IndexKind=="compound": declared attribute order

	// full-scan / filter
	Predicate Query

	// intersection / union / fusion
	Steps []Plan

	// filter / not
	Source *Plan

	// fts-scan
	FTSField    string
	FTSQuery    FTSQuery
	ReturnsScored bool
	EstCost       float64

	// fusion
	Strategy FusionStrategy

	// optional plan-level annotations
	Order *Ordering
	Limit *int
}

// IndexQueryArg carries the value(s)/inclusivity an index-scan passes to
// Index.Retrieve.
type IndexQueryArg struct {
	Kind     string
	Value    value.Value
	Values   []value.Value
	From, To value.Value
	FromIncl, ToIncl bool
	CompoundValues []value.Value
}

// UsesIndexes reports whether any leaf of the plan is a point-lookup,
// multi-point-lookup, index-scan, or fts-scan.
func (p Plan) UsesIndexes() bool {
	switch p.Kind {
	case PlanPointLookup, PlanMultiPointLookup, PlanIndexScan, PlanFTSScan:
		return true
	case PlanFilter, PlanNot:
		return p.Source != nil && p.Source.UsesIndexes()
	case PlanIntersection, PlanUnion, PlanFusion:
		for _, s := range p.Steps {
			if s.UsesIndexes() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// StepReturnsScored reports whether executing this plan node yields
// per-key scores.
func (p Plan) StepReturnsScored() bool {
	switch p.Kind {
	case PlanFTSScan:
		return true
	case PlanFusion:
		return p.ReturnsScored
	default:
		return false
	}
}
