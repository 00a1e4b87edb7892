// Package queryerr holds the typed errors returned for programmer-error
// invariant violations and index-kind mismatches. These propagate to
// the caller rather than being recovered locally, unlike cursor decode
// failures or missing attributes.
package queryerr

import (
	"errors"
	"fmt"
)

// Kind classifies a QueryError for callers that want to switch on it
// without string-matching messages.
type Kind string

const (
	KindEmptyJunction     Kind = "empty_junction"      // AND/OR with no children
	KindMissingNotChild   Kind = "missing_not_child"    // NOT without a child
	KindCompoundArity     Kind = "compound_arity"       // CompoundIndex built with <2 attributes
	KindCompoundMismatch  Kind = "compound_mismatch"    // compound value-count mismatch
	KindUnsupportedQuery  Kind = "unsupported_query"    // index.Retrieve called with unsupported kind
	KindInvalidPredicate  Kind = "invalid_predicate"    // e.g. bad regex
	KindDuplicateIndex    Kind = "duplicate_index"      // registry rejects a duplicate index
	KindBadAttributeOrder Kind = "bad_attribute_order"  // compound index attrs don't match declared order
)

// QueryError is the typed error every optimizer/executor entry point
// returns instead of panicking.
type QueryError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// New creates a QueryError of the given kind.
func New(kind Kind, message string) *QueryError {
	return &QueryError{Kind: kind, Message: message}
}

// Wrap creates a QueryError of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *QueryError {
	return &QueryError{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *QueryError of the given kind, following
// the chain via errors.As semantics without requiring the errors
// package at call sites.
func Is(err error, kind Kind) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Kind == kind
}
