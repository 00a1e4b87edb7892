package optimizer

import (
	"fmt"
	"strings"

	"github.com/wbrown/kvqueryengine/queryast"
)

// Explain renders plan as an indented tree annotated with each node's
// estimated cost, the same shape datalog/annotations renders a query
// plan's phases in.
func Explain(plan queryast.Plan) string {
	var sb strings.Builder
	explainNode(&sb, plan, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, p queryast.Plan, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (cost=%.2f)\n", indent, describe(p), EstimateCost(p))

	if p.Source != nil {
		explainNode(sb, *p.Source, depth+1)
	}
	for _, s := range p.Steps {
		explainNode(sb, s, depth+1)
	}
}

func describe(p queryast.Plan) string {
	switch p.Kind {
	case queryast.PlanPointLookup:
		return fmt.Sprintf("point-lookup(%v)", p.Key)
	case queryast.PlanMultiPointLookup:
		return fmt.Sprintf("multi-point-lookup(%d keys)", len(p.Keys))
	case queryast.PlanIndexScan:
		if p.IndexKind == "compound" {
			return fmt.Sprintf("index-scan(compound[%s])", strings.Join(p.CompoundAttrs, ","))
		}
		if p.IndexKind == "standing" {
			return "index-scan(standing)"
		}
		return fmt.Sprintf("index-scan(%s %s)", p.IndexName, p.IndexKind)
	case queryast.PlanFullScan:
		return "full-scan"
	case queryast.PlanIntersection:
		return fmt.Sprintf("intersection(%d steps)", len(p.Steps))
	case queryast.PlanUnion:
		return fmt.Sprintf("union(%d steps)", len(p.Steps))
	case queryast.PlanFilter:
		return "filter"
	case queryast.PlanNot:
		return "not"
	case queryast.PlanFTSScan:
		return fmt.Sprintf("fts-scan(%s %s %q)", p.FTSField, p.FTSQuery.Kind, p.FTSQuery.Query)
	case queryast.PlanFusion:
		return fmt.Sprintf("fusion(%s, %d steps)", p.Strategy, len(p.Steps))
	default:
		return string(p.Kind)
	}
}
