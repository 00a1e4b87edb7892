package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wbrown/kvqueryengine/value"
)

// canonicalString renders a value.Value as a bucket key for hash-style
// indexes. It type-tags the rendering so that, e.g., the string "1" and
// the int64 1 never collide.
func canonicalString(v value.Value) string {
	if v == nil || value.IsNull(v) {
		return "n:"
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case bool:
		if t {
			return "b:1"
		}
		return "b:0"
	case int64:
		return fmt.Sprintf("i:%d", t)
	case int:
		return fmt.Sprintf("i:%d", t)
	case float64:
		return fmt.Sprintf("f:%g", t)
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = canonicalString(e)
		}
		return "a:[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("x:%v", t)
	}
}

// sortedStrings returns a sorted copy of ss, used where a deterministic
// MatchedTerms/key ordering is useful for tests and CLI output.
func sortedStrings(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}
