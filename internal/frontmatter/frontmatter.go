// Package frontmatter models the structured metadata block at the top of a
// task document and serializes it back to canonical text.
//
// A block looks like:
//
//	---
//	status: In Progress
//	order: 2
//	tags: [backend, 'needs: review']
//	startDate: 2024-03-04
//	notes: |-
//	  first line
//	  second line
//	---
//
// Parsing lives in the metacache package; this package owns the in-memory
// shape ([Map], [Value]), the field kinds ([Kind], [Schema]) and the write
// side: [Merge], [Serialize] and [Rewrite].
//
// Keys keep their insertion order. A key whose value is null is omitted when
// serialized, which is how a patch deletes a field.
package frontmatter

import (
	"slices"
	"strconv"
	"strings"
)

// ScalarKind distinguishes scalar values inside a metadata block.
type ScalarKind uint8

// ScalarKind values enumerate the scalar subset we accept.
const (
	ScalarString ScalarKind = iota
	ScalarInt
	ScalarFloat
	ScalarBool
)

// Scalar keeps the scalar types explicit for downstream coercion.
type Scalar struct {
	Kind   ScalarKind // Kind describes which scalar value is populated.
	String string     // String holds the value when Kind == ScalarString.
	Int    int64      // Int holds the value when Kind == ScalarInt.
	Float  float64    // Float holds the value when Kind == ScalarFloat.
	Bool   bool       // Bool holds the value when Kind == ScalarBool.
}

// Text renders the scalar the way a user would type it.
func (s Scalar) Text() string {
	switch s.Kind {
	case ScalarInt:
		return strconv.FormatInt(s.Int, 10)
	case ScalarFloat:
		return strconv.FormatFloat(s.Float, 'f', -1, 64)
	case ScalarBool:
		return strconv.FormatBool(s.Bool)
	default:
		return s.String
	}
}

// ValueKind describes the supported value shapes.
type ValueKind uint8

// ValueKind values enumerate the supported shapes. The zero Value is null.
const (
	ValueNull ValueKind = iota
	ValueScalar
	ValueList
)

// Value is a single field value.
type Value struct {
	Kind   ValueKind // Kind describes which Value shape is populated.
	Scalar Scalar    // Scalar holds the value when Kind == ValueScalar.
	List   []string  // List holds the value when Kind == ValueList.
}

// NullValue returns the null value. Patching a key to null deletes it.
func NullValue() Value {
	return Value{}
}

// StringValue creates a Value with a string scalar.
func StringValue(s string) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarString, String: s}}
}

// IntValue creates a Value with an integer scalar.
func IntValue(i int64) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarInt, Int: i}}
}

// FloatValue creates a Value with a float scalar.
func FloatValue(f float64) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarFloat, Float: f}}
}

// BoolValue creates a Value with a boolean scalar.
func BoolValue(b bool) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarBool, Bool: b}}
}

// ListValue creates a Value with a string list. A nil slice is an empty
// list, not null.
func ListValue(items []string) Value {
	if items == nil {
		items = []string{}
	}

	return Value{Kind: ValueList, List: items}
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool {
	return v.Kind == ValueNull
}

// Equal reports whether two values are identical in kind and content.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case ValueScalar:
		return v.Scalar == other.Scalar
	case ValueList:
		return slices.Equal(v.List, other.List)
	default:
		return true
	}
}

// Map is an ordered key/value mapping. Keys keep insertion order; setting an
// existing key keeps its position.
//
// A nil *Map reads as empty.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty mapping.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Len returns the number of keys, including keys holding null.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys returns a copy of the keys in order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}

	return slices.Clone(m.keys)
}

// Get returns the value for key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}

	v, ok := m.values[key]

	return v, ok
}

// Set stores v under key. New keys are appended.
func (m *Map) Set(key string, v Value) *Map {
	if m.values == nil {
		m.values = make(map[string]Value)
	}

	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.values[key] = v

	return m
}

// Delete removes key from the mapping entirely.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}

	if _, ok := m.values[key]; !ok {
		return
	}

	delete(m.values, key)

	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}

	for _, k := range m.keys {
		v := m.values[k]
		if v.Kind == ValueList {
			v.List = slices.Clone(v.List)
		}

		out.Set(k, v)
	}

	return out
}

// GetString returns the string value for key.
// Returns ("", false) if key is missing or not a string scalar.
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != ValueScalar || v.Scalar.Kind != ScalarString {
		return "", false
	}

	return v.Scalar.String, true
}

// GetText returns any scalar rendered as text.
// Returns ("", false) if key is missing or not a scalar.
func (m *Map) GetText(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != ValueScalar {
		return "", false
	}

	return v.Scalar.Text(), true
}

// GetInt returns the integer value for key. Integral floats and numeric
// strings are accepted.
// Returns (0, false) if key is missing or not an integer.
func (m *Map) GetInt(key string) (int64, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != ValueScalar {
		return 0, false
	}

	switch v.Scalar.Kind {
	case ScalarInt:
		return v.Scalar.Int, true
	case ScalarFloat:
		if v.Scalar.Float == float64(int64(v.Scalar.Float)) {
			return int64(v.Scalar.Float), true
		}
	case ScalarString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Scalar.String), 10, 64)
		if err == nil {
			return n, true
		}
	case ScalarBool:
	}

	return 0, false
}

// GetBool returns the bool value for key.
// Returns (false, false) if key is missing or not a bool scalar.
func (m *Map) GetBool(key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != ValueScalar || v.Scalar.Kind != ScalarBool {
		return false, false
	}

	return v.Scalar.Bool, true
}

// GetList returns the string slice for key.
// Returns (nil, false) if key is missing or not a list.
func (m *Map) GetList(key string) ([]string, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != ValueList {
		return nil, false
	}

	return v.List, true
}
