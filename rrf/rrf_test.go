package rrf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/kvqueryengine/rrf"
)

func TestMergeEmptyInputReturnsEmpty(t *testing.T) {
	out := rrf.Merge(nil)
	assert.Empty(t, out)
}

func TestMergeRanksDocInMoreListsHigher(t *testing.T) {
	lists := [][]rrf.Ranked{
		{{DocID: "a", Score: 0.9, Source: "s1"}, {DocID: "b", Score: 0.5, Source: "s1"}},
		{{DocID: "b", Score: 0.8, Source: "s2"}, {DocID: "a", Score: 0.1, Source: "s2"}},
		{{DocID: "c", Score: 0.99, Source: "s3"}},
	}
	out := rrf.Merge(lists)
	require.Len(t, out, 3)
	// a and b both appear in 2 lists, c only in 1 - a/b should outrank c.
	ranked := map[string]int{}
	for i, f := range out {
		ranked[f.DocID] = i
	}
	assert.Less(t, ranked["a"], ranked["c"])
	assert.Less(t, ranked["b"], ranked["c"])
}

func TestMergeWeightedEqualWeightsMatchesUnweighted(t *testing.T) {
	lists := [][]rrf.Ranked{
		{{DocID: "a", Score: 1}, {DocID: "b", Score: 0.5}},
		{{DocID: "b", Score: 1}, {DocID: "a", Score: 0.5}},
	}
	unweighted := rrf.Merge(lists)
	weighted := rrf.MergeWeighted(lists, []float64{1, 1}, rrf.DefaultK)
	require.Equal(t, len(unweighted), len(weighted))
	for i := range unweighted {
		assert.Equal(t, unweighted[i].DocID, weighted[i].DocID)
		assert.InDelta(t, unweighted[i].Score, weighted[i].Score, 1e-9)
	}
}

func TestMergeDuplicateDocIDsWithinAList(t *testing.T) {
	lists := [][]rrf.Ranked{
		{{DocID: "a", Score: 1}, {DocID: "a", Score: 0.5}},
	}
	out := rrf.Merge(lists)
	require.Len(t, out, 1)
	expected := 1.0/float64(rrf.DefaultK+1) + 1.0/float64(rrf.DefaultK+2)
	assert.InDelta(t, expected, out[0].Score, 1e-9)
}

func TestMergeSourceIsAlphabeticalJoin(t *testing.T) {
	lists := [][]rrf.Ranked{
		{{DocID: "a", Score: 1, Source: "fts"}},
		{{DocID: "a", Score: 1, Source: "exact"}},
	}
	out := rrf.Merge(lists)
	require.Len(t, out, 1)
	assert.Equal(t, "exact+fts", out[0].Source)
}
