// Package cursor implements the opaque pagination token the executor's
// cursor-filter step consumes and produces: a base64url-encoded JSON
// envelope recording, per result-source node, the last value/key pair a
// page ended on, plus enough hashing to detect that the underlying
// query or sort order changed out from under a stale cursor.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/wbrown/kvqueryengine/queryast"
	"github.com/wbrown/kvqueryengine/value"
)

// DefaultMaxAgeMs is the default cursor expiry window.
const DefaultMaxAgeMs int64 = 600_000

// DefaultNodeID is the node id a single-process executor records
// results under.
const DefaultNodeID = "local"

// Status classifies the outcome of decoding and validating a cursor
// against the query it is about to filter.
type Status string

const (
	StatusNone    Status = "none"
	StatusValid   Status = "valid"
	StatusExpired Status = "expired"
	StatusInvalid Status = "invalid"
)

// Cursor is the decoded pagination token.
type Cursor struct {
	NodeValues    map[string]value.Value `json:"nodeValues"`
	NodeKeys      map[string]string      `json:"nodeKeys"`
	SortField     string                 `json:"sortField"`
	SortDirection string                 `json:"sortDirection"` // "asc" or "desc"
	PredicateHash string                 `json:"predicateHash"`
	SortHash      string                 `json:"sortHash"`
	Timestamp     int64                  `json:"timestamp"` // unix millis
}

// PositionedResult is the minimal shape fromResults needs from a page's
// last entry.
type PositionedResult struct {
	NodeID string
	Key    string
	Value  value.Value
}

// FromResults builds a Cursor recording the last PositionedResult per
// node, defaulting a bare single-source page to DefaultNodeID.
func FromResults(results []PositionedResult, sortField, sortDirection string, predicate queryast.Query, now time.Time) Cursor {
	c := Cursor{
		NodeValues:    make(map[string]value.Value),
		NodeKeys:      make(map[string]string),
		SortField:     sortField,
		SortDirection: sortDirection,
		PredicateHash: queryast.CanonicalHash(predicate),
		SortHash:      SortHash(sortField, sortDirection),
		Timestamp:     now.UnixMilli(),
	}
	for _, r := range results {
		nodeID := r.NodeID
		if nodeID == "" {
			nodeID = DefaultNodeID
		}
		c.NodeValues[nodeID] = r.Value
		c.NodeKeys[nodeID] = r.Key
	}
	return c
}

// Merge combines cursors into one, keeping the furthest position per
// node under direction: for "desc" the smallest value wins (furthest
// into a descending scan), otherwise the largest value wins.
func Merge(cursors []Cursor, direction string) Cursor {
	if len(cursors) == 0 {
		return Cursor{}
	}
	out := Cursor{
		NodeValues:    make(map[string]value.Value),
		NodeKeys:      make(map[string]string),
		SortField:     cursors[0].SortField,
		SortDirection: cursors[0].SortDirection,
		PredicateHash: cursors[0].PredicateHash,
		SortHash:      cursors[0].SortHash,
		Timestamp:     cursors[0].Timestamp,
	}
	for _, c := range cursors {
		if c.Timestamp > out.Timestamp {
			out.Timestamp = c.Timestamp
		}
		for node, v := range c.NodeValues {
			existing, has := out.NodeValues[node]
			if !has || isFurther(v, existing, direction) {
				out.NodeValues[node] = v
				out.NodeKeys[node] = c.NodeKeys[node]
			}
		}
	}
	return out
}

func isFurther(candidate, current value.Value, direction string) bool {
	if direction == "desc" {
		return value.Compare(candidate, current) < 0
	}
	return value.Compare(candidate, current) > 0
}

// Encode serializes c as base64url JSON.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode parses an encoded cursor token. Malformed tokens decode with
// ok=false rather than an error — a bad cursor is never fatal to the
// query, only to the cursor's own validity.
func Decode(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, false
	}
	if c.NodeValues == nil || c.NodeKeys == nil {
		return Cursor{}, false
	}
	return c, true
}

// Validate checks a decoded cursor against the query it is about to
// filter, returning the status that should flow back to the caller.
func Validate(c Cursor, predicate queryast.Query, sortField, sortDirection string, now time.Time, maxAgeMs int64) Status {
	if maxAgeMs <= 0 {
		maxAgeMs = DefaultMaxAgeMs
	}
	if c.PredicateHash != queryast.CanonicalHash(predicate) {
		return StatusInvalid
	}
	if c.SortHash != SortHash(sortField, sortDirection) {
		return StatusInvalid
	}
	age := now.UnixMilli() - c.Timestamp
	if age > maxAgeMs {
		return StatusExpired
	}
	if age < 0 {
		return StatusInvalid
	}
	return StatusValid
}

// SortHash is a digest of the sort key: xxhash of field and direction
// joined by "|", as 16 hex digits. Field and direction alone determine
// it, so cursors produced under the same sort spec always match.
func SortHash(sortField, sortDirection string) string {
	b := canonicalizeScalar(sortField) + "|" + canonicalizeScalar(sortDirection)
	sum := xxhash.Sum64String(b)
	return encodeUint64(sum)
}

func canonicalizeScalar(s string) string {
	return s
}

func encodeUint64(v uint64) string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexdigits[v&0xF]
		v >>= 4
	}
	return string(buf)
}
