// Package attribute implements pure record->value extractors.
// Attributes are the only way indexes ever look inside a record:
// extraction must be pure and observationally stable per record
// version.
package attribute

import (
	"strconv"
	"strings"

	"github.com/wbrown/kvqueryengine/value"
)

// Simple is a single-valued attribute: a record either contributes
// exactly one value, or does not participate at all.
type Simple[V any] struct {
	name    string
	extract func(V) (value.Value, bool)
}

// NewSimple creates a simple attribute from a raw extractor.
func NewSimple[V any](name string, extract func(V) (value.Value, bool)) Simple[V] {
	return Simple[V]{name: name, extract: extract}
}

// Name returns the attribute's dotted name.
func (a Simple[V]) Name() string { return a.name }

// Extract returns the record's value for this attribute, or
// (nil, false) if the record does not participate.
func (a Simple[V]) Extract(v V) (value.Value, bool) { return a.extract(v) }

// Multi is a multi-valued attribute: a record may contribute any number
// of values (e.g. tags, memberships). An empty sequence is equivalent
// to "missing".
type Multi[V any] struct {
	name    string
	extract func(V) []value.Value
}

// NewMulti creates a multi-valued attribute from a raw extractor.
func NewMulti[V any](name string, extract func(V) []value.Value) Multi[V] {
	return Multi[V]{name: name, extract: extract}
}

// Name returns the attribute's dotted name.
func (a Multi[V]) Name() string { return a.name }

// Extract returns the sequence of values the record contributes. A nil
// or empty slice means "does not participate".
func (a Multi[V]) Extract(v V) []value.Value { return a.extract(v) }

// MapPath looks up a dotted path (e.g. "profile.settings.theme") inside
// a nested map[string]any record, the shape most host CRDT values take.
// Returns (nil, false) if any path segment is missing or not a map.
func MapPath(record map[string]interface{}, path string) (value.Value, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = record
	for i, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, found := m[seg]
		if !found {
			return nil, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		cur = v
	}
	return nil, false
}

// ByPath builds a Simple attribute over map[string]any records using a
// dotted path.
func ByPath(path string) Simple[map[string]interface{}] {
	return NewSimple(path, func(r map[string]interface{}) (value.Value, bool) {
		return MapPath(r, path)
	})
}

// TypeTag names the coercion a ByType attribute applies after extraction.
type TypeTag uint8

const (
	TypeString TypeTag = iota
	TypeNumber
	TypeBoolean
)

// ByType builds a Simple attribute over map[string]any records using a
// dotted path plus a coercion to the declared type tag. Values that fail to coerce are treated as
// absent rather than erroring — missing/malformed attribute data is
// never a fault.
func ByType(path string, tag TypeTag) Simple[map[string]interface{}] {
	return NewSimple(path, func(r map[string]interface{}) (value.Value, bool) {
		raw, ok := MapPath(r, path)
		if !ok {
			return nil, false
		}
		switch tag {
		case TypeString:
			switch s := raw.(type) {
			case string:
				return s, true
			default:
				return nil, false
			}
		case TypeNumber:
			switch n := raw.(type) {
			case float64:
				return n, true
			case int64:
				return n, true
			case int:
				return n, true
			case string:
				if f, err := strconv.ParseFloat(n, 64); err == nil {
					return f, true
				}
				return nil, false
			default:
				return nil, false
			}
		case TypeBoolean:
			switch b := raw.(type) {
			case bool:
				return b, true
			default:
				return nil, false
			}
		}
		return nil, false
	})
}

// ArrayOf builds a Multi attribute over map[string]any records whose
// value at path is a []interface{}.
func ArrayOf(path string) Multi[map[string]interface{}] {
	return NewMulti(path, func(r map[string]interface{}) []value.Value {
		raw, ok := MapPath(r, path)
		if !ok {
			return nil
		}
		arr, ok := raw.([]interface{})
		if !ok {
			return nil
		}
		out := make([]value.Value, len(arr))
		copy(out, arr)
		return out
	})
}

// Schema is a named set of typed attributes built once per collection.
// It is a plain record of extractors rather than a registry: callers
// hold concrete Simple[V]/Multi[V] values.
type Schema struct {
	simples map[string]Simple[map[string]interface{}]
	multis  map[string]Multi[map[string]interface{}]
}

// NewSchema creates an empty Schema.
func NewSchema() *Schema {
	return &Schema{
		simples: make(map[string]Simple[map[string]interface{}]),
		multis:  make(map[string]Multi[map[string]interface{}]),
	}
}

// AddSimple registers a as part of the schema and returns the Schema for
// chaining.
func (s *Schema) AddSimple(a Simple[map[string]interface{}]) *Schema {
	s.simples[a.Name()] = a
	return s
}

// AddMulti registers a as part of the schema and returns the Schema for
// chaining.
func (s *Schema) AddMulti(a Multi[map[string]interface{}]) *Schema {
	s.multis[a.Name()] = a
	return s
}

// Simple looks up a registered simple attribute by name.
func (s *Schema) Simple(name string) (Simple[map[string]interface{}], bool) {
	a, ok := s.simples[name]
	return a, ok
}

// Multi looks up a registered multi-valued attribute by name.
func (s *Schema) Multi(name string) (Multi[map[string]interface{}], bool) {
	a, ok := s.multis[name]
	return a, ok
}

// Values is the uniform shape indexes consume: every attribute,
// simple or multi-valued, extracts to a sequence of values where an
// empty sequence means "does not participate".
type Values func(record map[string]interface{}) []value.Value

// AsValues adapts a Simple attribute to the uniform Values shape.
func AsValues(a Simple[map[string]interface{}]) Values {
	return func(r map[string]interface{}) []value.Value {
		v, ok := a.Extract(r)
		if !ok {
			return nil
		}
		return []value.Value{v}
	}
}

// MultiAsValues adapts a Multi attribute to the uniform Values shape.
func MultiAsValues(a Multi[map[string]interface{}]) Values {
	return func(r map[string]interface{}) []value.Value { return a.Extract(r) }
}
