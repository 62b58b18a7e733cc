package domain

import (
	"encoding/json"
	"fmt"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	KindInt ValueKind = iota
	KindString
	KindBool
	KindArray
)

// String returns the string representation of the kind
func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a device configuration value. The device config document mixes
// numbers, strings, booleans, string-encoded booleans and arrays, and the
// web client's config parser is tested against exactly that mix, so each
// variant is kept distinct instead of collapsing into interface{}.
type Value struct {
	kind  ValueKind
	i     int64
	s     string
	b     bool
	items []Value
}

// Int creates an integer value
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String creates a string value
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool creates a boolean value
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Array creates an array value
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Kind returns the variant tag
func (v Value) Kind() ValueKind { return v.kind }

// AsInt returns the integer payload; ok is false for other kinds
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsString returns the string payload; ok is false for other kinds
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the boolean payload; ok is false for other kinds
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsArray returns the array payload; ok is false for other kinds
func (v Value) AsArray() ([]Value, bool) { return v.items, v.kind == KindArray }

// MarshalJSON encodes the value as its plain JSON form
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	case KindArray:
		items := v.items
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// ConfigEntry is one key of a device configuration document
type ConfigEntry struct {
	Key   string
	Value Value
}

// ConfigDocument is an ordered key/value configuration document
type ConfigDocument []ConfigEntry

// MarshalJSON encodes the document as a JSON object preserving key order
func (d ConfigDocument) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range d {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", e.Key, err)
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// ExampleConfig returns the fixed document served by the mock /config
// endpoint: a number, a string, a boolean, a string-encoded boolean and an
// array the client is expected to reject.
func ExampleConfig() ConfigDocument {
	return ConfigDocument{
		{Key: "a.b.c", Value: Int(123)},
		{Key: "a.b.d", Value: String("adsf")},
		{Key: "e.f.g", Value: Bool(true)},
		{Key: "e.h.i", Value: String("1")},
		{Key: "x.y.z", Value: Array(Int(1), Int(2))},
	}
}
