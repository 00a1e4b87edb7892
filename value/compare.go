package value

import (
	"strings"
	"time"
)

// Compare compares two values and returns -1, 0, or 1 the way
// sort.Interface-style comparators do. Nil and the explicit Null
// sentinel both sort before every non-null value.
//
// Values of differing kinds compare by Kind order, so comparisons
// between incompatible types are total (never panic) but otherwise
// arbitrary — predicate evaluation is expected to only ever compare
// like-typed attribute values.
func Compare(left, right Value) int {
	leftNull := left == nil || IsNull(left)
	rightNull := right == nil || IsNull(right)
	if leftNull && rightNull {
		return 0
	}
	if leftNull {
		return -1
	}
	if rightNull {
		return 1
	}

	lk, rk := KindOf(left), KindOf(right)
	if lk != rk {
		// Try numeric cross-comparison (int vs float) before giving up.
		if (lk == KindInt || lk == KindFloat) && (rk == KindInt || rk == KindFloat) {
			lf, _ := AsFloat64(left)
			rf, _ := AsFloat64(right)
			return compareFloat(lf, rf)
		}
		if lk < rk {
			return -1
		}
		return 1
	}

	switch lk {
	case KindBool:
		lb, rb := left.(bool), right.(bool)
		if lb == rb {
			return 0
		}
		if !lb {
			return -1
		}
		return 1
	case KindInt:
		li, _ := AsInt64(left)
		ri, _ := AsInt64(right)
		if li < ri {
			return -1
		} else if li > ri {
			return 1
		}
		return 0
	case KindFloat:
		lf, _ := AsFloat64(left)
		rf, _ := AsFloat64(right)
		return compareFloat(lf, rf)
	case KindString:
		return strings.Compare(left.(string), right.(string))
	case KindTime:
		lt, rt := left.(time.Time), right.(time.Time)
		if lt.Before(rt) {
			return -1
		} else if lt.After(rt) {
			return 1
		}
		return 0
	case KindBytes:
		lb, rb := left.([]byte), right.([]byte)
		return compareBytes(lb, rb)
	case KindArray:
		la, ra := left.([]Value), right.([]Value)
		for i := 0; i < len(la) && i < len(ra); i++ {
			if c := Compare(la[i], ra[i]); c != 0 {
				return c
			}
		}
		return compareInt(len(la), len(ra))
	default:
		return strings.Compare(String(left), String(right))
	}
}

func compareFloat(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareInt(a, b int) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return compareInt(len(a), len(b))
}

// Equal reports whether two values are equal under Compare's rules,
// without paying for a full three-way comparison where a fast path
// exists.
func Equal(a, b Value) bool {
	if a == nil && b == nil {
		return true
	}
	if KindOf(a) == KindString && KindOf(b) == KindString {
		return a.(string) == b.(string)
	}
	return Compare(a, b) == 0
}

// Less reports whether a sorts strictly before b.
func Less(a, b Value) bool { return Compare(a, b) < 0 }

// Natural is the default comparator: ascending by Compare.
func Natural(a, b Value) int { return Compare(a, b) }

// Numeric compares two values as numbers, coercing ints/floats.
func Numeric(a, b Value) int {
	af, _ := AsFloat64(a)
	bf, _ := AsFloat64(b)
	return compareFloat(af, bf)
}

// LocaleString compares two values as case-folded strings, approximating
// locale-aware ordering without pulling in a full collation library.
func LocaleString(a, b Value) int {
	return strings.Compare(strings.ToLower(String(a)), strings.ToLower(String(b)))
}

// Reverse returns the comparator that orders opposite to cmp.
func Reverse(cmp func(a, b Value) int) func(a, b Value) int {
	return func(a, b Value) int { return -cmp(a, b) }
}
