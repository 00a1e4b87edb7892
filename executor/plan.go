package executor

import (
	"sort"

	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/queryerr"
	"github.com/wbrown/kvqueryengine/rrf"
)

// execResult is a key set with optional per-key scores/matched-terms,
// the executor's internal analogue of index.ResultSet extended with
// fusion bookkeeping.
type execResult struct {
	keys         []string
	scores       map[string]float64
	matchedTerms map[string][]string
	scored       bool
}

func unscored(keys []string) execResult { return execResult{keys: keys} }

func (r execResult) score(key string) (float64, bool) {
	if !r.scored {
		return 0, false
	}
	s, ok := r.scores[key]
	return s, ok
}

// run executes plan against snapshot, re-resolving any index-scan/
// fts-scan/standing node's actual backing object from the same
// registries the optimizer consulted when building the plan.
func (e *Executor) run(plan queryast.Plan, snapshot Snapshot, universe KeyUniverse) (execResult, error) {
	switch plan.Kind {
	case queryast.PlanPointLookup:
		return e.runPointLookup(plan, snapshot), nil
	case queryast.PlanMultiPointLookup:
		return e.runMultiPointLookup(plan, snapshot), nil
	case queryast.PlanIndexScan:
		return e.runIndexScan(plan)
	case queryast.PlanFullScan:
		return e.runFullScan(plan, snapshot)
	case queryast.PlanIntersection:
		return e.runIntersection(plan, snapshot, universe)
	case queryast.PlanUnion:
		return e.runUnion(plan, snapshot, universe)
	case queryast.PlanFilter:
		return e.runFilter(plan, snapshot, universe)
	case queryast.PlanNot:
		return e.runNot(plan, snapshot, universe)
	case queryast.PlanFTSScan:
		return e.runFTSScan(plan)
	case queryast.PlanFusion:
		return e.runFusion(plan, snapshot, universe)
	default:
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: unknown plan kind "+string(plan.Kind))
	}
}

func (e *Executor) runPointLookup(plan queryast.Plan, snapshot Snapshot) execResult {
	key, ok := plan.Key.(string)
	if !ok {
		return unscored(nil)
	}
	if _, present := snapshot[key]; !present {
		return unscored(nil)
	}
	return unscored([]string{key})
}

func (e *Executor) runMultiPointLookup(plan queryast.Plan, snapshot Snapshot) execResult {
	var keys []string
	for _, k := range plan.Keys {
		s, ok := k.(string)
		if !ok {
			continue
		}
		if _, present := snapshot[s]; present {
			keys = append(keys, s)
		}
	}
	return unscored(keys)
}

func (e *Executor) runFullScan(plan queryast.Plan, snapshot Snapshot) (execResult, error) {
	var keys []string
	for key, record := range snapshot {
		ok, err := e.eval.Eval(record, plan.Predicate)
		if err != nil {
			return execResult{}, err
		}
		if ok {
			keys = append(keys, key)
		}
	}
	return unscored(keys), nil
}

func (e *Executor) runIndexScan(plan queryast.Plan) (execResult, error) {
	switch plan.IndexKind {
	case "standing":
		return e.runStandingScan(plan)
	case "compound":
		return e.runCompoundScan(plan)
	default:
		return e.runAttributeScan(plan)
	}
}

func (e *Executor) runStandingScan(plan queryast.Plan) (execResult, error) {
	if e.opts.Standing == nil {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: standing scan with no standing registry configured")
	}
	idx, ok := e.opts.Standing.Lookup(plan.Predicate)
	if !ok {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: no standing index registered for plan predicate")
	}
	rs, err := idx.Retrieve(index.IndexQuery{})
	if err != nil {
		return execResult{}, err
	}
	return resultSetToExec(rs), nil
}

func (e *Executor) runCompoundScan(plan queryast.Plan) (execResult, error) {
	if e.opts.Registry == nil {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: compound scan with no registry configured")
	}
	ci := e.opts.Registry.FindCompoundIndexBySet(plan.CompoundAttrs)
	if ci == nil {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: no compound index matches plan attributes")
	}
	rs, err := ci.Retrieve(index.IndexQuery{Kind: index.QueryCompound, CompoundValues: plan.IndexArg.CompoundValues})
	if err != nil {
		return execResult{}, err
	}
	return resultSetToExec(rs), nil
}

func (e *Executor) runAttributeScan(plan queryast.Plan) (execResult, error) {
	if e.opts.Registry == nil {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: index scan with no registry configured")
	}
	kind := index.QueryKind(plan.IndexKind)
	idx := e.opts.Registry.FindBestIndex(plan.IndexName, kind)
	if idx == nil {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: no index supports "+plan.IndexName+" "+plan.IndexKind)
	}
	iq := index.IndexQuery{
		Kind:     kind,
		Value:    plan.IndexArg.Value,
		Values:   plan.IndexArg.Values,
		From:     plan.IndexArg.From,
		To:       plan.IndexArg.To,
		FromIncl: plan.IndexArg.FromIncl,
		ToIncl:   plan.IndexArg.ToIncl,
	}
	rs, err := idx.Retrieve(iq)
	if err != nil {
		return execResult{}, err
	}
	return resultSetToExec(rs), nil
}

func resultSetToExec(rs index.ResultSet) execResult {
	r := execResult{keys: rs.Keys()}
	if rs.Scores != nil {
		r.scored = true
		r.scores = rs.Scores
		r.matchedTerms = rs.MatchedTerms
	}
	return r
}

func (e *Executor) runFTSScan(plan queryast.Plan) (execResult, error) {
	idx, ok := e.opts.FullText[plan.FTSField]
	if !ok {
		return execResult{}, queryerr.New(queryerr.KindUnsupportedQuery, "executor: no full-text index registered for field "+plan.FTSField)
	}
	matches, err := idx.Search(plan.FTSQuery, 0)
	if err != nil {
		return execResult{}, err
	}
	r := execResult{scored: true, scores: make(map[string]float64, len(matches)), matchedTerms: make(map[string][]string, len(matches))}
	for _, m := range matches {
		r.keys = append(r.keys, m.DocID)
		r.scores[m.DocID] = m.Score
		if len(m.MatchedTerms) > 0 {
			r.matchedTerms[m.DocID] = m.MatchedTerms
		}
	}
	return r, nil
}

func (e *Executor) runIntersection(plan queryast.Plan, snapshot Snapshot, universe KeyUniverse) (execResult, error) {
	steps := make([]execResult, len(plan.Steps))
	for i, s := range plan.Steps {
		r, err := e.run(s, snapshot, universe)
		if err != nil {
			return execResult{}, err
		}
		steps[i] = r
	}
	if len(steps) == 0 {
		return unscored(nil), nil
	}
	sort.SliceStable(steps, func(i, j int) bool { return len(steps[i].keys) < len(steps[j].keys) })

	sets := make([]map[string]struct{}, len(steps))
	for i, s := range steps {
		sets[i] = toSet(s.keys)
	}

	var out []string
	for _, k := range steps[0].keys {
		inAll := true
		for i := 1; i < len(sets); i++ {
			if _, ok := sets[i][k]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, k)
		}
	}
	return unscored(out), nil
}

func (e *Executor) runUnion(plan queryast.Plan, snapshot Snapshot, universe KeyUniverse) (execResult, error) {
	var out execResult
	seen := make(map[string]struct{})
	for _, s := range plan.Steps {
		r, err := e.run(s, snapshot, universe)
		if err != nil {
			return execResult{}, err
		}
		for _, k := range r.keys {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				out.keys = append(out.keys, k)
			}
			if score, ok := r.score(k); ok {
				if !out.scored {
					out.scored = true
					out.scores = make(map[string]float64)
				}
				if existing, has := out.scores[k]; !has || score > existing {
					out.scores[k] = score
				}
			}
			if terms, ok := r.matchedTerms[k]; ok {
				if out.matchedTerms == nil {
					out.matchedTerms = make(map[string][]string)
				}
				out.matchedTerms[k] = terms
			}
		}
	}
	return out, nil
}

func (e *Executor) runFilter(plan queryast.Plan, snapshot Snapshot, universe KeyUniverse) (execResult, error) {
	if plan.Source == nil {
		return unscored(nil), nil
	}
	source, err := e.run(*plan.Source, snapshot, universe)
	if err != nil {
		return execResult{}, err
	}
	out := execResult{scored: source.scored, scores: source.scores, matchedTerms: source.matchedTerms}
	for _, k := range source.keys {
		record, present := snapshot[k]
		if !present {
			continue
		}
		ok, err := e.eval.Eval(record, plan.Predicate)
		if err != nil {
			return execResult{}, err
		}
		if ok {
			out.keys = append(out.keys, k)
		}
	}
	return out, nil
}

func (e *Executor) runNot(plan queryast.Plan, snapshot Snapshot, universe KeyUniverse) (execResult, error) {
	if plan.Source == nil {
		return unscored(universe.Keys()), nil
	}
	source, err := e.run(*plan.Source, snapshot, universe)
	if err != nil {
		return execResult{}, err
	}
	excluded := toSet(source.keys)
	var out []string
	for _, k := range universe.Keys() {
		if _, ok := excluded[k]; !ok {
			out = append(out, k)
		}
	}
	return unscored(out), nil
}

func (e *Executor) runFusion(plan queryast.Plan, snapshot Snapshot, universe KeyUniverse) (execResult, error) {
	steps := make([]execResult, len(plan.Steps))
	for i, s := range plan.Steps {
		r, err := e.run(s, snapshot, universe)
		if err != nil {
			return execResult{}, err
		}
		steps[i] = r
	}

	switch plan.Strategy {
	case queryast.FusionScoreFilter:
		return fuseScoreFilter(steps), nil
	case queryast.FusionRRF:
		return fuseRRF(steps, e.opts.RRFK), nil
	default:
		return fuseIntersectionKeepingScores(steps), nil
	}
}

// fuseScoreFilter intersects every step's key set and sums the
// per-step scores for the surviving keys.
func fuseScoreFilter(steps []execResult) execResult {
	if len(steps) == 0 {
		return unscored(nil)
	}
	sets := make([]map[string]struct{}, len(steps))
	for i, s := range steps {
		sets[i] = toSet(s.keys)
	}
	out := execResult{scored: true, scores: make(map[string]float64)}
	for _, k := range steps[0].keys {
		inAll := true
		sum := 0.0
		for i, s := range steps {
			if i > 0 {
				if _, ok := sets[i][k]; !ok {
					inAll = false
					break
				}
			}
			if sc, ok := s.score(k); ok {
				sum += sc
			}
		}
		if inAll {
			out.keys = append(out.keys, k)
			out.scores[k] = sum
		}
	}
	return out
}

// fuseRRF converts each step into a rank-ordered list (scored steps by
// descending score, unscored steps by key for determinism) and merges
// them with reciprocal rank fusion.
func fuseRRF(steps []execResult, k int) execResult {
	lists := make([][]rrf.Ranked, len(steps))
	for i, s := range steps {
		keys := append([]string(nil), s.keys...)
		if s.scored {
			sort.SliceStable(keys, func(a, b int) bool {
				return s.scores[keys[a]] > s.scores[keys[b]]
			})
		} else {
			sort.Strings(keys)
		}
		ranked := make([]rrf.Ranked, len(keys))
		for j, key := range keys {
			score, _ := s.score(key)
			ranked[j] = rrf.Ranked{DocID: key, Score: score}
		}
		lists[i] = ranked
	}

	weights := make([]float64, len(lists))
	for i := range weights {
		weights[i] = 1
	}
	if k <= 0 {
		k = rrf.DefaultK
	}
	fused := rrf.MergeWeighted(lists, weights, k)

	out := execResult{scored: true, scores: make(map[string]float64, len(fused))}
	for _, f := range fused {
		out.keys = append(out.keys, f.DocID)
		out.scores[f.DocID] = f.Score
	}
	for _, s := range steps {
		for key, terms := range s.matchedTerms {
			if out.matchedTerms == nil {
				out.matchedTerms = make(map[string][]string)
			}
			out.matchedTerms[key] = terms
		}
	}
	return out
}

func fuseIntersectionKeepingScores(steps []execResult) execResult {
	sets := make([]map[string]struct{}, len(steps))
	for i, s := range steps {
		sets[i] = toSet(s.keys)
	}
	out := execResult{}
	if len(steps) == 0 {
		return out
	}
	for _, k := range steps[0].keys {
		inAll := true
		for i := 1; i < len(sets); i++ {
			if _, ok := sets[i][k]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out.keys = append(out.keys, k)
		}
	}
	return out
}

func toSet(keys []string) map[string]struct{} {
	s := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// hydrate attaches live records (and carried score/matched-terms) to
// an execResult's keys, dropping any key no longer present in the
// snapshot.
func (e *Executor) hydrate(r execResult, snapshot Snapshot) []Row {
	rows := make([]Row, 0, len(r.keys))
	for _, k := range r.keys {
		record, present := snapshot[k]
		if !present {
			continue
		}
		row := Row{Key: k, Record: record}
		if score, ok := r.score(k); ok {
			s := score
			row.Score = &s
		}
		if terms, ok := r.matchedTerms[k]; ok {
			row.MatchedTerms = terms
		}
		rows = append(rows, row)
	}
	return rows
}
