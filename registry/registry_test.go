package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/registry"
)

func categoryExtract(record map[string]interface{}) []interface{} {
	v, ok := attribute.MapPath(record, "category")
	if !ok {
		return nil
	}
	return []interface{}{v}
}

func priceExtract(record map[string]interface{}) []interface{} {
	v, ok := attribute.MapPath(record, "price")
	if !ok {
		return nil
	}
	return []interface{}{v}
}

func TestFindBestIndexPrefersLowestCost(t *testing.T) {
	r := registry.New()
	hashIdx := index.NewHashIndex("category", categoryExtract)
	navIdx := index.NewNavigableIndex("category", categoryExtract)
	require.NoError(t, r.Register(hashIdx))
	require.NoError(t, r.Register(navIdx))

	best := r.FindBestIndex("category", index.QueryEqual)
	assert.Same(t, index.Index(hashIdx), best)

	best = r.FindBestIndex("category", index.QueryGt)
	assert.Same(t, index.Index(navIdx), best)

	assert.Nil(t, r.FindBestIndex("nonexistent", index.QueryEqual))
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := registry.New()
	idx := index.NewHashIndex("category", categoryExtract)
	require.NoError(t, r.Register(idx))
	assert.Error(t, r.Register(idx))
}

func TestDispatchReachesAllIndexes(t *testing.T) {
	r := registry.New()
	hashIdx := index.NewHashIndex("category", categoryExtract)
	navIdx := index.NewNavigableIndex("price", priceExtract)
	ci, err := index.NewCompoundIndex([]string{"category", "price"}, []attribute.Values{categoryExtract, priceExtract})
	require.NoError(t, err)
	require.NoError(t, r.Register(hashIdx))
	require.NoError(t, r.Register(navIdx))
	require.NoError(t, r.Register(ci))

	record := map[string]interface{}{"category": "Electronics", "price": int64(500)}
	r.OnRecordAdded("p1", record)

	rs, err := hashIdx.Retrieve(index.IndexQuery{Kind: index.QueryEqual, Value: "Electronics"})
	require.NoError(t, err)
	assert.Contains(t, rs.Keys(), "p1")

	rs, err = navIdx.Retrieve(index.IndexQuery{Kind: index.QueryGte, Value: int64(100)})
	require.NoError(t, err)
	assert.Contains(t, rs.Keys(), "p1")

	rs, err = ci.Retrieve(index.IndexQuery{Kind: index.QueryCompound, CompoundValues: []interface{}{"Electronics", int64(500)}})
	require.NoError(t, err)
	assert.Contains(t, rs.Keys(), "p1")
}

func TestFindCompoundIndexExactOrderOnly(t *testing.T) {
	r := registry.New()
	ci, err := index.NewCompoundIndex([]string{"category", "price"}, []attribute.Values{categoryExtract, priceExtract})
	require.NoError(t, err)
	require.NoError(t, r.Register(ci))

	assert.NotNil(t, r.FindCompoundIndex([]string{"category", "price"}))
	assert.Nil(t, r.FindCompoundIndex([]string{"price", "category"}))
	assert.Nil(t, r.FindCompoundIndex([]string{"category"}))
}
