package querylang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/querylang"
)

func TestParseSimpleEq(t *testing.T) {
	q, err := querylang.Parse(`(eq status "active")`)
	require.NoError(t, err)
	require.NotNil(t, q.Simple)
	assert.Equal(t, queryast.OpEq, q.Simple.Kind)
	assert.Equal(t, "status", q.Simple.Attribute)
	assert.Equal(t, "active", q.Simple.Value)
}

func TestParseNumericComparison(t *testing.T) {
	q, err := querylang.Parse(`(gt age 25)`)
	require.NoError(t, err)
	require.NotNil(t, q.Simple)
	assert.Equal(t, queryast.OpGt, q.Simple.Kind)
	assert.Equal(t, int64(25), q.Simple.Value)
}

func TestParseBetweenDefaultsInclusivity(t *testing.T) {
	q, err := querylang.Parse(`(between age 20 30)`)
	require.NoError(t, err)
	require.NotNil(t, q.Simple)
	assert.Equal(t, queryast.OpBetween, q.Simple.Kind)
	assert.Equal(t, int64(20), q.Simple.From)
	assert.Equal(t, int64(30), q.Simple.To)
	assert.True(t, q.Simple.FromIncl)
	assert.False(t, q.Simple.ToIncl)
}

func TestParseInValues(t *testing.T) {
	q, err := querylang.Parse(`(in city "New York" "Boston")`)
	require.NoError(t, err)
	require.NotNil(t, q.Simple)
	assert.Equal(t, queryast.OpIn, q.Simple.Kind)
	assert.Equal(t, []interface{}{"New York", "Boston"}, q.Simple.Values)
}

func TestParseAndOfTwoClauses(t *testing.T) {
	q, err := querylang.Parse(`(and (eq status "active") (gt age 25))`)
	require.NoError(t, err)
	require.NotNil(t, q.Logical)
	assert.Equal(t, queryast.LogicalAnd, q.Logical.Op)
	require.Len(t, q.Logical.Children, 2)
	assert.Equal(t, "status", q.Logical.Children[0].Simple.Attribute)
	assert.Equal(t, "age", q.Logical.Children[1].Simple.Attribute)
}

func TestParseNotWrapsSingleChild(t *testing.T) {
	q, err := querylang.Parse(`(not (eq status "inactive"))`)
	require.NoError(t, err)
	require.NotNil(t, q.Logical)
	assert.Equal(t, queryast.LogicalNot, q.Logical.Op)
	require.Len(t, q.Logical.Children, 1)
}

func TestParseMatchBuildsFTSQuery(t *testing.T) {
	q, err := querylang.Parse(`(match bio "engineer")`)
	require.NoError(t, err)
	require.NotNil(t, q.FTS)
	assert.Equal(t, queryast.FTSMatch, q.FTS.Kind)
	assert.Equal(t, "bio", q.FTS.Field)
	assert.Equal(t, "engineer", q.FTS.Query)
}

func TestParseMatchPrefixUsesPrefixField(t *testing.T) {
	q, err := querylang.Parse(`(matchPrefix bio "eng")`)
	require.NoError(t, err)
	require.NotNil(t, q.FTS)
	assert.Equal(t, queryast.FTSMatchPrefix, q.FTS.Kind)
	assert.Equal(t, "eng", q.FTS.Prefix)
}

func TestParseUnknownOperatorErrors(t *testing.T) {
	_, err := querylang.Parse(`(bogus status "x")`)
	assert.Error(t, err)
}

func TestParseNonListErrors(t *testing.T) {
	_, err := querylang.Parse(`"just a string"`)
	assert.Error(t, err)
}

func TestParseHas(t *testing.T) {
	q, err := querylang.Parse(`(has bio)`)
	require.NoError(t, err)
	require.NotNil(t, q.Simple)
	assert.Equal(t, queryast.OpHas, q.Simple.Kind)
	assert.Equal(t, "bio", q.Simple.Attribute)
}
