package fts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/queryast"
)

func TestSearchMatchRanksByRelevance(t *testing.T) {
	idx, err := fts.New([]string{"title", "body"})
	require.NoError(t, err)

	require.NoError(t, idx.OnSet("d1", map[string]interface{}{
		"title": "Intro to Machine Learning",
		"body":  "machine learning machine learning basics",
	}))
	require.NoError(t, idx.OnSet("d2", map[string]interface{}{
		"title": "Gardening Tips",
		"body":  "how to plant machine learning is not mentioned much here",
	}))

	matches, err := idx.Search(queryast.FTSQuery{Kind: queryast.FTSMatch, Field: "body", Query: "machine learning"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d1", matches[0].DocID)
}

func TestMatchPrefix(t *testing.T) {
	idx, err := fts.New([]string{"title"})
	require.NoError(t, err)
	require.NoError(t, idx.OnSet("d1", map[string]interface{}{"title": "machine learning"}))
	require.NoError(t, idx.OnSet("d2", map[string]interface{}{"title": "gardening"}))

	matches, err := idx.Search(queryast.FTSQuery{Kind: queryast.FTSMatchPrefix, Field: "title", Prefix: "mach"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "d1", matches[0].DocID)
}

func TestOnRemoveRetractsDocument(t *testing.T) {
	idx, err := fts.New([]string{"body"})
	require.NoError(t, err)
	require.NoError(t, idx.OnSet("d1", map[string]interface{}{"body": "hello world"}))
	assert.Equal(t, 1, idx.GetSize())

	require.NoError(t, idx.OnRemove("d1"))
	assert.Equal(t, 0, idx.GetSize())
}

func TestScoreSingleDocument(t *testing.T) {
	idx, err := fts.New([]string{"body"})
	require.NoError(t, err)
	require.NoError(t, idx.OnSet("d1", map[string]interface{}{"body": "hello world"}))
	require.NoError(t, idx.OnSet("d2", map[string]interface{}{"body": "goodbye world"}))

	score, found, err := idx.ScoreSingleDocument("d1", queryast.FTSQuery{Kind: queryast.FTSMatch, Field: "body", Query: "hello"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Greater(t, score, 0.0)

	_, found, err = idx.ScoreSingleDocument("d2", queryast.FTSQuery{Kind: queryast.FTSMatch, Field: "body", Query: "hello"})
	require.NoError(t, err)
	assert.False(t, found)
}
