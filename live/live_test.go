package live_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/live"
	"github.com/wbrown/kvqueryengine/queryast"
)

func activeQuery() queryast.Query {
	return queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "status", Value: "active"})
}

func TestStandingLiveIndexEmitsAddedRemovedUpdated(t *testing.T) {
	li := live.NewStandingLiveIndex(activeQuery())

	d, err := li.OnRecordAdded("k1", map[string]interface{}{"status": "active"})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, live.DeltaAdded, d.Kind)
	assert.True(t, li.Contains("k1"))

	d, err = li.OnRecordUpdated("k1", map[string]interface{}{"status": "active"}, map[string]interface{}{"status": "active", "name": "a"})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, live.DeltaUpdated, d.Kind)

	d, err = li.OnRecordUpdated("k1", map[string]interface{}{"status": "active"}, map[string]interface{}{"status": "inactive"})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, live.DeltaRemoved, d.Kind)
	assert.False(t, li.Contains("k1"))

	d, err = li.OnRecordAdded("k2", map[string]interface{}{"status": "inactive"})
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestStandingLiveIndexBuildFromData(t *testing.T) {
	li := live.NewStandingLiveIndex(activeQuery())
	li.BuildFromData([]index.Entry{
		{Key: "k1", Record: map[string]interface{}{"status": "active"}},
		{Key: "k2", Record: map[string]interface{}{"status": "inactive"}},
	})
	assert.Equal(t, 1, li.GetResultCount())
	assert.True(t, li.Contains("k1"))
	assert.False(t, li.Contains("k2"))

	li.Clear()
	assert.Equal(t, 0, li.GetResultCount())
}

func TestStandingLiveIndexFTSFallback(t *testing.T) {
	q := queryast.And(
		activeQuery(),
		queryast.FTS(queryast.FTSQuery{Kind: queryast.FTSMatch, Field: "bio", Query: "engineer"}),
	)
	li := live.NewStandingLiveIndex(q)
	d, err := li.OnRecordAdded("k1", map[string]interface{}{"status": "active", "bio": "Senior Engineer"})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, live.DeltaAdded, d.Kind)
}

func newFTSIndex(t *testing.T) *fts.Index {
	idx, err := fts.New([]string{"bio"})
	require.NoError(t, err)
	return idx
}

func bioQuery() queryast.FTSQuery {
	return queryast.FTSQuery{Kind: queryast.FTSMatch, Field: "bio", Query: "engineer"}
}

func TestLiveFTSIndexAddedUpdatedRemoved(t *testing.T) {
	idx := newFTSIndex(t)
	li := live.NewLiveFTSIndex(bioQuery(), idx, 0, 0)

	require.NoError(t, idx.OnSet("k1", map[string]interface{}{"bio": "a senior engineer"}))
	d, err := li.OnRecordAdded("k1", map[string]interface{}{"bio": "a senior engineer"})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, live.DeltaAdded, d.Kind)
	require.NotNil(t, d.Score)
	assert.True(t, li.Contains("k1"))

	require.NoError(t, idx.OnSet("k1", map[string]interface{}{"bio": "a senior staff engineer engineer"}))
	d, err = li.OnRecordUpdated("k1", map[string]interface{}{"bio": "a senior engineer"}, map[string]interface{}{"bio": "a senior staff engineer engineer"})
	require.NoError(t, err)
	if d != nil {
		assert.Equal(t, live.DeltaUpdated, d.Kind)
	}

	require.NoError(t, idx.OnRemove("k1"))
	d, err = li.OnRecordRemoved("k1", map[string]interface{}{"bio": "a senior staff engineer engineer"})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, live.DeltaRemoved, d.Kind)
	assert.False(t, li.Contains("k1"))
}

func TestLiveFTSIndexNoMatchEmitsNoDelta(t *testing.T) {
	idx := newFTSIndex(t)
	li := live.NewLiveFTSIndex(bioQuery(), idx, 0, 0)

	require.NoError(t, idx.OnSet("k1", map[string]interface{}{"bio": "a baker"}))
	d, err := li.OnRecordAdded("k1", map[string]interface{}{"bio": "a baker"})
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.False(t, li.Contains("k1"))
}

func TestLiveFTSIndexEvictsLowestScoreOverCapacity(t *testing.T) {
	idx := newFTSIndex(t)
	li := live.NewLiveFTSIndex(bioQuery(), idx, 1, 0)

	require.NoError(t, idx.OnSet("k1", map[string]interface{}{"bio": "engineer engineer engineer"}))
	_, err := li.OnRecordAdded("k1", map[string]interface{}{"bio": "engineer engineer engineer"})
	require.NoError(t, err)
	require.True(t, li.Contains("k1"))

	require.NoError(t, idx.OnSet("k2", map[string]interface{}{"bio": "engineer"}))
	_, err = li.OnRecordAdded("k2", map[string]interface{}{"bio": "engineer"})
	require.NoError(t, err)

	assert.Equal(t, 1, li.GetResultCount())
}

func TestLiveFTSIndexBuildFromDataRanksAndBounds(t *testing.T) {
	idx := newFTSIndex(t)
	require.NoError(t, idx.OnSet("k1", map[string]interface{}{"bio": "engineer engineer engineer"}))
	require.NoError(t, idx.OnSet("k2", map[string]interface{}{"bio": "engineer"}))
	require.NoError(t, idx.OnSet("k3", map[string]interface{}{"bio": "baker"}))

	li := live.NewLiveFTSIndex(bioQuery(), idx, 1, 0)
	li.BuildFromData(nil)

	results := li.GetResults()
	require.Len(t, results, 1)
	assert.Equal(t, "k1", results[0].Key)
}

func TestUnifiedLiveQueryRegistrySelectsFTSIndexWhenFieldIndexed(t *testing.T) {
	idx := newFTSIndex(t)
	reg := live.NewUnifiedLiveQueryRegistry(map[string]*fts.Index{"bio": idx})

	q := queryast.FTS(bioQuery())
	got, created := reg.Register(q, nil)
	assert.True(t, created)
	_, isFTS := got.(*live.LiveFTSIndex)
	assert.True(t, isFTS)
}

func TestUnifiedLiveQueryRegistryFallsBackToStandingWithoutFTSIndex(t *testing.T) {
	reg := live.NewUnifiedLiveQueryRegistry(nil)

	q := queryast.FTS(bioQuery())
	got, created := reg.Register(q, nil)
	assert.True(t, created)
	_, isStanding := got.(*live.StandingLiveIndex)
	assert.True(t, isStanding)
}

func TestUnifiedLiveQueryRegistryRefCountingAndDispatch(t *testing.T) {
	reg := live.NewUnifiedLiveQueryRegistry(nil)
	_, created1 := reg.Register(activeQuery(), nil)
	_, created2 := reg.Register(activeQuery(), nil)
	assert.True(t, created1)
	assert.False(t, created2)
	assert.Equal(t, 1, reg.Size())

	deltas := reg.OnRecordAdded("k1", map[string]interface{}{"status": "active"})
	assert.Len(t, deltas, 1)

	assert.False(t, reg.Unregister(activeQuery()))
	assert.Equal(t, 1, reg.Size())
	assert.True(t, reg.Unregister(activeQuery()))
	assert.Equal(t, 0, reg.Size())
}

func TestUnifiedLiveQueryRegistryLookupDoesNotAffectRefCount(t *testing.T) {
	reg := live.NewUnifiedLiveQueryRegistry(nil)
	reg.Register(activeQuery(), nil)
	got, ok := reg.Lookup(activeQuery())
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Equal(t, 1, reg.Size())
}

func TestUnifiedLiveQueryRegistryClear(t *testing.T) {
	reg := live.NewUnifiedLiveQueryRegistry(nil)
	reg.Register(activeQuery(), nil)
	reg.Clear()
	assert.Equal(t, 0, reg.Size())
}
