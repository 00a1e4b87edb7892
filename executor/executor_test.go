package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/kvqueryengine/attribute"
	"github.com/wbrown/kvqueryengine/executor"
	"github.com/wbrown/kvqueryengine/fts"
	"github.com/wbrown/kvqueryengine/index"
	"github.com/wbrown/kvqueryengine/optimizer"
	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/registry"
)

func extractAttr(name string) func(map[string]interface{}) []interface{} {
	return func(record map[string]interface{}) []interface{} {
		v, ok := attribute.MapPath(record, name)
		if !ok {
			return nil
		}
		return []interface{}{v}
	}
}

func sampleSnapshot() executor.Snapshot {
	return executor.Snapshot{
		"p1": {"category": "Electronics", "price": int64(500), "name": "Widget Pro"},
		"p2": {"category": "Electronics", "price": int64(900), "name": "Gadget Max"},
		"p3": {"category": "Garden", "price": int64(150), "name": "Hose"},
	}
}

func newExecutor(t *testing.T, snapshot executor.Snapshot) *executor.Executor {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Register(index.NewHashIndex("category", extractAttr("category"))))
	require.NoError(t, r.Register(index.NewNavigableIndex("price", extractAttr("price"))))
	for key, record := range snapshot {
		r.OnRecordAdded(key, record)
	}
	opt := optimizer.New(optimizer.Options{Registry: r})
	return executor.New(executor.Options{Optimizer: opt, Registry: r})
}

func TestExecutePointLookupByKey(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "_key", Value: "p1"}),
		executor.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "p1", resp.Rows[0].Key)
}

func TestExecuteSimpleEqUsesHashIndex(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "category", Value: "Electronics"}),
		executor.QueryOptions{})
	require.NoError(t, err)
	keys := rowKeys(resp.Rows)
	assert.ElementsMatch(t, []string{"p1", "p2"}, keys)
}

func TestExecuteNeqExcludesMatchingRecord(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpNeq, Attribute: "category", Value: "Electronics"}),
		executor.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p3"}, rowKeys(resp.Rows))
}

func TestExecuteRangeQueryUsesNavigableIndex(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpGte, Attribute: "price", Value: int64(500)}),
		executor.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, rowKeys(resp.Rows))
}

func TestExecuteANDIntersectsIndexedSteps(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	q := queryast.And(
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "category", Value: "Electronics"}),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpGte, Attribute: "price", Value: int64(600)}),
	)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot), q, executor.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p2"}, rowKeys(resp.Rows))
}

func TestExecuteFullScanLike(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpLike, Attribute: "name", Value: "%Max"}),
		executor.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p2"}, rowKeys(resp.Rows))
}

func TestExecuteOrderByAscending(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "category", Value: "Electronics"}),
		executor.QueryOptions{Order: &queryast.Ordering{Field: "price", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "p1", resp.Rows[0].Key)
	assert.Equal(t, "p2", resp.Rows[1].Key)
}

func TestExecuteLimitSetsHasMoreAndCursor(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	limit := 1
	q := queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "category", Value: "Electronics"})
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot), q,
		executor.QueryOptions{Order: &queryast.Ordering{Field: "price", Ascending: true}, Limit: &limit})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.True(t, resp.HasMore)
	assert.NotEmpty(t, resp.NextCursor)

	resp2, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot), q,
		executor.QueryOptions{Order: &queryast.Ordering{Field: "price", Ascending: true}, CursorToken: resp.NextCursor})
	require.NoError(t, err)
	require.Len(t, resp2.Rows, 1)
	assert.Equal(t, "p2", resp2.Rows[0].Key)
}

func TestExecuteDescendingPaginationHandlesSortFieldTies(t *testing.T) {
	snapshot := executor.Snapshot{
		"a": {"category": "Electronics", "price": int64(500)},
		"b": {"category": "Electronics", "price": int64(500)},
	}
	exec := newExecutor(t, snapshot)
	limit := 1
	q := queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "category", Value: "Electronics"})
	opts := executor.QueryOptions{Order: &queryast.Ordering{Field: "price", Ascending: false}, Limit: &limit}

	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot), q, opts)
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "b", resp.Rows[0].Key)
	assert.True(t, resp.HasMore)
	require.NotEmpty(t, resp.NextCursor)

	opts.CursorToken = resp.NextCursor
	resp2, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot), q, opts)
	require.NoError(t, err)
	require.Len(t, resp2.Rows, 1)
	assert.Equal(t, "a", resp2.Rows[0].Key)
	assert.False(t, resp2.HasMore)
}

func TestExecuteNotReturnsComplement(t *testing.T) {
	snapshot := sampleSnapshot()
	exec := newExecutor(t, snapshot)
	q := queryast.Not(queryast.Simple(queryast.SimpleQuery{Kind: queryast.OpEq, Attribute: "category", Value: "Electronics"}))
	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot), q, executor.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p3"}, rowKeys(resp.Rows))
}

func TestExecuteFTSScanReturnsScoredRow(t *testing.T) {
	snapshot := executor.Snapshot{
		"a1": {"body": "machine learning is fascinating"},
		"a2": {"body": "gardening tips for spring"},
	}
	idx, err := fts.New([]string{"body"})
	require.NoError(t, err)
	require.NoError(t, idx.OnSet("a1", snapshot["a1"]))
	require.NoError(t, idx.OnSet("a2", snapshot["a2"]))

	r := registry.New()
	opt := optimizer.New(optimizer.Options{Registry: r, FullText: map[string]*fts.Index{"body": idx}})
	exec := executor.New(executor.Options{Optimizer: opt, Registry: r, FullText: map[string]*fts.Index{"body": idx}})

	resp, err := exec.Execute(snapshot, executor.SnapshotUniverse(snapshot),
		queryast.FTS(queryast.FTSQuery{Kind: queryast.FTSMatch, Field: "body", Query: "machine learning"}),
		executor.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "a1", resp.Rows[0].Key)
	require.NotNil(t, resp.Rows[0].Score)
}

func rowKeys(rows []executor.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out
}
