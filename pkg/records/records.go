// Package records defines the typed values and records produced by a parse.
//
// A Value is a small tagged union over string, int, bool and float. A Record
// is one accepted input row, either positional (Keys == nil) or keyed by
// output name (Keys[i] names Values[i]).
package records

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind tags the active member of a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a coerced field. Only the member selected by Kind is meaningful.
// Encoding is set for string values only and carries the tag of the buffer
// the text came from.
//
// Value is comparable, so it can be used as a map key.
type Value struct {
	Kind     Kind
	Text     string
	Encoding string
	Int      int64
	Bool     bool
	Float    float64
}

// StringValue returns a string Value carrying text and its source encoding.
func StringValue(text, encoding string) Value {
	return Value{Kind: KindString, Text: text, Encoding: encoding}
}

// IntValue returns an int Value.
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }

// BoolValue returns a bool Value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// FloatValue returns a float Value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Equal reports whether v and o hold the same kind and payload. String
// values compare by text only; the encoding tag does not take part.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Text == o.Text
	case KindInt:
		return v.Int == o.Int
	case KindBool:
		return v.Bool == o.Bool
	case KindFloat:
		return v.Float == o.Float
	}
	return false
}

// Interface returns the payload as a plain Go value: string, int64, bool or
// float64.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindBool:
		return v.Bool
	case KindFloat:
		return v.Float
	default:
		return v.Text
	}
}

// String renders the payload as text.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Text
	}
}

// MarshalJSON encodes the payload as the matching JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Record is one emitted row. In positional mode Keys is nil; in mapping mode
// Keys has the same length as Values and holds unique output keys.
type Record struct {
	Keys   []string
	Values []Value
}

// IsHash reports whether r is a name-keyed record.
func (r Record) IsHash() bool { return r.Keys != nil }

// Get returns the value stored under key. It always fails for positional
// records.
func (r Record) Get(key string) (Value, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// Map returns the record as a key to value map, or nil for positional
// records.
func (r Record) Map() map[string]Value {
	if r.Keys == nil {
		return nil
	}
	m := make(map[string]Value, len(r.Keys))
	for i, k := range r.Keys {
		m[k] = r.Values[i]
	}
	return m
}

// MarshalJSON encodes positional records as arrays and keyed records as
// objects with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Keys == nil {
		if r.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.Values)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.Values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
