// Package queryast defines the query AST — the three disjoint families
// (simple, logical, FTS) — and the plan node tree the optimizer builds
// from them. It mirrors the shape of a Datalog query package
// (Query/Pattern/Clause) but replaces Datalog patterns with flat
// attribute predicates.
package queryast

import "github.com/wbrown/kvqueryengine/value"

// SimpleKind enumerates the simple-predicate operators.
type SimpleKind string

const (
	OpEq           SimpleKind = "eq"
	OpNeq          SimpleKind = "neq"
	OpGt           SimpleKind = "gt"
	OpGte          SimpleKind = "gte"
	OpLt           SimpleKind = "lt"
	OpLte          SimpleKind = "lte"
	OpBetween      SimpleKind = "between"
	OpIn           SimpleKind = "in"
	OpHas          SimpleKind = "has"
	OpLike         SimpleKind = "like"
	OpRegex        SimpleKind = "regex"
	OpContains     SimpleKind = "contains"
	OpContainsAll  SimpleKind = "containsAll"
	OpContainsAny  SimpleKind = "containsAny"
)

// Query is the root of the AST: exactly one of Simple, Logical, or FTS
// is non-nil.
type Query struct {
	Simple  *SimpleQuery
	Logical *LogicalQuery
	FTS     *FTSQuery
}

// SimpleQuery is an exact/range/membership predicate over one attribute.
type SimpleQuery struct {
	Kind      SimpleKind
	Attribute string
	Value     value.Value   // eq, neq, gt, gte, lt, lte, like, regex, contains
	Values    []value.Value // in, containsAll, containsAny
	From, To  value.Value   // between
	FromIncl  bool          // between: default true
	ToIncl    bool          // between: default false
}

// LogicalOp enumerates AND/OR/NOT.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "and"
	LogicalOr  LogicalOp = "or"
	LogicalNot LogicalOp = "not"
)

// LogicalQuery combines child queries with AND, OR, or NOT.
// NOT must have exactly one child; AND/OR must have at least one.
type LogicalQuery struct {
	Op       LogicalOp
	Children []Query
}

// FTSKind enumerates the full-text query forms.
type FTSKind string

const (
	FTSMatch       FTSKind = "match"
	FTSMatchPhrase FTSKind = "matchPhrase"
	FTSMatchPrefix FTSKind = "matchPrefix"
)

// FTSQuery is a full-text predicate over one field.
type FTSQuery struct {
	Kind          FTSKind
	Field         string
	Query         string // match, matchPhrase
	Prefix        string // matchPrefix
	Slop          int    // matchPhrase
	MaxExpansions int    // matchPrefix
	Boost         float64
}

// Simple builds a Query wrapping a SimpleQuery.
func Simple(q SimpleQuery) Query { return Query{Simple: &q} }

// And builds an AND Query over children.
func And(children ...Query) Query {
	return Query{Logical: &LogicalQuery{Op: LogicalAnd, Children: children}}
}

// Or builds an OR Query over children.
func Or(children ...Query) Query {
	return Query{Logical: &LogicalQuery{Op: LogicalOr, Children: children}}
}

// Not builds a NOT Query over a single child.
func Not(child Query) Query {
	return Query{Logical: &LogicalQuery{Op: LogicalNot, Children: []Query{child}}}
}

// FTS builds a Query wrapping an FTSQuery.
func FTS(q FTSQuery) Query { return Query{FTS: &q} }

// IsZero reports whether q carries no AST at all.
func (q Query) IsZero() bool { return q.Simple == nil && q.Logical == nil && q.FTS == nil }
