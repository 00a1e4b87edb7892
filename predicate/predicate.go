// Package predicate evaluates a queryast.Query against a single
// record for full-scan, filter, and standing-index matching. It is
// split out from package executor so that package index's
// StandingQueryIndex can depend on it without creating an
// index<->executor import cycle: both the executor's full-scan/filter
// plan nodes and the standing-index's determineChange need the exact
// same "does this record satisfy Q" rule.
package predicate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/queryerr"
	"github.com/wbrown/kvqueryengine/value"
)

// AttributeExtractor resolves a dotted attribute path against a record
// to either a single value or (for containsAll/containsAny/contains) a
// slice value.
type AttributeExtractor func(record map[string]interface{}, attrName string) (value.Value, bool)

// FTSFallback evaluates an FTS predicate against a record when no
// full-text index is registered for its field; the default fallback
// is case-insensitive substring match against the text field.
type FTSFallback func(record map[string]interface{}, q *queryast.FTSQuery) bool

// Evaluator evaluates queries against records using an injected
// attribute extractor.
type Evaluator struct {
	Extract AttributeExtractor
	FTS     FTSFallback
}

// New creates an Evaluator. If fts is nil, FTS predicates in a full
// scan always evaluate to false.
func New(extract AttributeExtractor, fts FTSFallback) *Evaluator {
	if fts == nil {
		fts = func(map[string]interface{}, *queryast.FTSQuery) bool { return false }
	}
	return &Evaluator{Extract: extract, FTS: fts}
}

// DefaultFTSFallback builds the standard "no full-text index registered"
// fallback: case-insensitive substring match of the query (or, for
// matchPrefix, the prefix) against the string value extract resolves
// for the predicate's field. Shared by every caller that evaluates FTS
// predicates without a real inverted index backing them (standing
// indexes, full-scan execution).
func DefaultFTSFallback(extract AttributeExtractor) FTSFallback {
	return func(record map[string]interface{}, q *queryast.FTSQuery) bool {
		v, ok := extract(record, q.Field)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		needle := q.Query
		if needle == "" {
			needle = q.Prefix
		}
		return containsFold(s, needle)
	}
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Eval reports whether record satisfies q. Predicate evaluation errors
// (e.g. an invalid regex) are returned rather than panicking and are
// fatal only for the plan step that raised them.
func (e *Evaluator) Eval(record map[string]interface{}, q queryast.Query) (bool, error) {
	switch {
	case q.Simple != nil:
		return e.evalSimple(record, q.Simple)
	case q.Logical != nil:
		return e.evalLogical(record, q.Logical)
	case q.FTS != nil:
		return e.FTS(record, q.FTS), nil
	default:
		return false, nil
	}
}

func (e *Evaluator) evalLogical(record map[string]interface{}, q *queryast.LogicalQuery) (bool, error) {
	switch q.Op {
	case queryast.LogicalAnd:
		if len(q.Children) == 0 {
			return false, queryerr.New(queryerr.KindEmptyJunction, "AND requires at least one child")
		}
		for _, c := range q.Children {
			ok, err := e.Eval(record, c)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case queryast.LogicalOr:
		if len(q.Children) == 0 {
			return false, queryerr.New(queryerr.KindEmptyJunction, "OR requires at least one child")
		}
		for _, c := range q.Children {
			ok, err := e.Eval(record, c)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case queryast.LogicalNot:
		if len(q.Children) != 1 {
			return false, queryerr.New(queryerr.KindMissingNotChild, "NOT requires exactly one child")
		}
		ok, err := e.Eval(record, q.Children[0])
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, nil
	}
}

func (e *Evaluator) evalSimple(record map[string]interface{}, q *queryast.SimpleQuery) (bool, error) {
	v, present := e.Extract(record, q.Attribute)

	switch q.Kind {
	case queryast.OpHas:
		return present && !value.IsNull(v) && v != nil, nil
	case queryast.OpEq:
		return present && value.Equal(v, q.Value), nil
	case queryast.OpNeq:
		return !present || !value.Equal(v, q.Value), nil
	case queryast.OpGt:
		return present && value.Compare(v, q.Value) > 0, nil
	case queryast.OpGte:
		return present && value.Compare(v, q.Value) >= 0, nil
	case queryast.OpLt:
		return present && value.Compare(v, q.Value) < 0, nil
	case queryast.OpLte:
		return present && value.Compare(v, q.Value) <= 0, nil
	case queryast.OpBetween:
		if !present {
			return false, nil
		}
		fromOK := q.FromIncl && value.Compare(v, q.From) >= 0 || !q.FromIncl && value.Compare(v, q.From) > 0
		toOK := q.ToIncl && value.Compare(v, q.To) <= 0 || !q.ToIncl && value.Compare(v, q.To) < 0
		return fromOK && toOK, nil
	case queryast.OpIn:
		if !present {
			return false, nil
		}
		for _, cand := range q.Values {
			if value.Equal(v, cand) {
				return true, nil
			}
		}
		return false, nil
	case queryast.OpLike:
		if !present {
			return false, nil
		}
		s, ok := v.(string)
		if !ok {
			return false, nil
		}
		pattern, ok := q.Value.(string)
		if !ok {
			return false, nil
		}
		re, err := likeToRegexp(pattern)
		if err != nil {
			return false, queryerr.Wrap(queryerr.KindInvalidPredicate, "invalid like pattern", err)
		}
		return re.MatchString(s), nil
	case queryast.OpRegex:
		if !present {
			return false, nil
		}
		s, ok := v.(string)
		if !ok {
			return false, nil
		}
		pattern, ok := q.Value.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, queryerr.Wrap(queryerr.KindInvalidPredicate, "invalid regex", err)
		}
		return re.MatchString(s), nil
	case queryast.OpContains:
		return arrayContains(v, q.Value), nil
	case queryast.OpContainsAll:
		if !present {
			return false, nil
		}
		for _, cand := range q.Values {
			if !arrayContains(v, cand) {
				return false, nil
			}
		}
		return true, nil
	case queryast.OpContainsAny:
		if !present {
			return false, nil
		}
		for _, cand := range q.Values {
			if arrayContains(v, cand) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func arrayContains(v, target value.Value) bool {
	arr, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, e := range arr {
		if value.Equal(e, target) {
			return true
		}
	}
	return false
}

// likeToRegexp converts a SQL-like pattern to an anchored,
// case-insensitive regexp: '%' -> '.*', '_' -> '.'.
func likeToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// ParseNumberLiteral is a small helper the optimizer/CLI use when a
// query literal arrives as a string that should be compared numerically.
func ParseNumberLiteral(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
