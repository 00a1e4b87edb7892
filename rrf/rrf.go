// Package rrf implements Reciprocal Rank Fusion, a pure function that
// merges N ranked result lists into one combined ranking.
package rrf

import "sort"

// DefaultK is the default rank-damping constant.
const DefaultK = 60

// Ranked is one entry of an input list, in rank order (rank 0 = best).
type Ranked struct {
	DocID  string
	Score  float64 // original score from this list, for OriginalScores bookkeeping
	Source string  // which list this came from, e.g. an index or field name
}

// Fused is one entry of the merged output.
type Fused struct {
	DocID          string
	Score          float64
	Source         string             // alphabetical join of contributing sources
	OriginalScores map[string]float64 // source -> original score
}

// Merge fuses lists with equal weight 1 for each list, k=DefaultK.
func Merge(lists [][]Ranked) []Fused {
	weights := make([]float64, len(lists))
	for i := range weights {
		weights[i] = 1
	}
	return MergeWeighted(lists, weights, DefaultK)
}

// MergeWeighted fuses lists with per-list weights and rank-damping
// constant k. len(weights) must equal len(lists). Each list may
// contain duplicate docIDs; each occurrence contributes its own rank
// term independently. Returns [] for empty input, never nil in a way
// that would be observably different.
func MergeWeighted(lists [][]Ranked, weights []float64, k int) []Fused {
	if len(lists) == 0 {
		return []Fused{}
	}

	type acc struct {
		score          float64
		sources        map[string]struct{}
		originalScores map[string]float64
	}
	byDoc := make(map[string]*acc)
	var order []string

	for i, list := range lists {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		for rank, r := range list {
			a, ok := byDoc[r.DocID]
			if !ok {
				a = &acc{sources: make(map[string]struct{}), originalScores: make(map[string]float64)}
				byDoc[r.DocID] = a
				order = append(order, r.DocID)
			}
			a.score += w * (1.0 / float64(k+rank+1))
			source := r.Source
			if source == "" {
				source = listLabel(i)
			}
			a.sources[source] = struct{}{}
			if existing, has := a.originalScores[source]; !has || r.Score > existing {
				a.originalScores[source] = r.Score
			}
		}
	}

	out := make([]Fused, 0, len(order))
	for _, docID := range order {
		a := byDoc[docID]
		sources := make([]string, 0, len(a.sources))
		for s := range a.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		out = append(out, Fused{
			DocID:          docID,
			Score:          a.score,
			Source:         joinSorted(sources),
			OriginalScores: a.originalScores,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func listLabel(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "list"
}

func joinSorted(sources []string) string {
	out := ""
	for i, s := range sources {
		if i > 0 {
			out += "+"
		}
		out += s
	}
	return out
}
