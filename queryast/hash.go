package queryast

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/wbrown/kvqueryengine/value"
)

// CanonicalHash returns a deterministic hex digest of q such that two
// structurally-equal ASTs hash equal regardless of slice ordering that
// is not semantically significant: it builds a deterministic
// fmt.Fprintf-based digest of the query's structure, additionally
// sorting the `in`/`containsAny` literal sets so that value ordering
// (which `in` treats as unordered) does not change the hash.
func CanonicalHash(q Query) string {
	h := sha256.New()
	writeQuery(h, q)
	return hex.EncodeToString(h.Sum(nil))
}

type writer interface {
	Write(p []byte) (int, error)
}

func writeQuery(h writer, q Query) {
	switch {
	case q.Simple != nil:
		fmt.Fprintf(h, "S(%s,%s,", q.Simple.Kind, q.Simple.Attribute)
		writeValue(h, q.Simple.Value)
		fmt.Fprintf(h, ",")
		writeSortedValues(h, q.Simple.Values)
		fmt.Fprintf(h, ",")
		writeValue(h, q.Simple.From)
		fmt.Fprintf(h, ",")
		writeValue(h, q.Simple.To)
		fmt.Fprintf(h, ",%v,%v)", q.Simple.FromIncl, q.Simple.ToIncl)
	case q.Logical != nil:
		fmt.Fprintf(h, "L(%s,[", q.Logical.Op)
		children := make([]string, len(q.Logical.Children))
		for i, c := range q.Logical.Children {
			children[i] = CanonicalHash(c)
		}
		if q.Logical.Op != LogicalNot {
			sort.Strings(children)
		}
		for _, c := range children {
			fmt.Fprintf(h, "%s;", c)
		}
		fmt.Fprintf(h, "])")
	case q.FTS != nil:
		fmt.Fprintf(h, "F(%s,%s,%s,%s,%d,%d,%v)",
			q.FTS.Kind, q.FTS.Field, q.FTS.Query, q.FTS.Prefix,
			q.FTS.Slop, q.FTS.MaxExpansions, q.FTS.Boost)
	default:
		fmt.Fprintf(h, "Z()")
	}
}

func writeValue(h writer, v value.Value) {
	fmt.Fprintf(h, "%v", v)
}

func writeSortedValues(h writer, vs []value.Value) {
	strs := make([]string, len(vs))
	for i, v := range vs {
		strs[i] = fmt.Sprintf("%v", v)
	}
	sort.Strings(strs)
	for _, s := range strs {
		fmt.Fprintf(h, "%s,", s)
	}
}
