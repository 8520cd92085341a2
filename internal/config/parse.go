package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// HeaderMode selects how the first input row is treated.
type HeaderMode uint8

const (
	// HeaderUnset behaves as HeaderNone unless columns are keyed by name,
	// in which case the first row supplies the names.
	HeaderUnset HeaderMode = iota
	// HeaderUse consumes the first row as column names.
	HeaderUse
	// HeaderNone treats every row as data.
	HeaderNone
	// HeaderSkip consumes the first row without using it for names.
	HeaderSkip
)

func (m HeaderMode) String() string {
	switch m {
	case HeaderUse:
		return "use"
	case HeaderNone:
		return "none"
	case HeaderSkip:
		return "skip"
	default:
		return "unset"
	}
}

// UnmarshalJSON accepts true, false, "use", "true", "none", "false" and "skip".
func (m *HeaderMode) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*m = HeaderUnset
	case bool:
		if x {
			*m = HeaderUse
		} else {
			*m = HeaderNone
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "unset":
			*m = HeaderUnset
		case "use", "true":
			*m = HeaderUse
		case "none", "false":
			*m = HeaderNone
		case "skip":
			*m = HeaderSkip
		default:
			return fmt.Errorf("header: unknown mode %q", x)
		}
	default:
		return fmt.Errorf("header: expected bool or string, got %s", b)
	}
	return nil
}

// Parse holds the options that drive one parse invocation.
type Parse struct {
	Header  HeaderMode `json:"header"`
	Columns Columns    `json:"columns"`

	// OffsetRows is the 1-based data row at which output starts; 0 and 1
	// both start at the first data row.
	OffsetRows int `json:"offset_rows"`

	// RowAsHash emits name-keyed records instead of positional ones.
	RowAsHash bool `json:"row_as_hash"`

	// OnlyListedColumns drops columns that have no configuration entry.
	OnlyListedColumns bool `json:"only_listed_columns"`
}

// Column is the configuration for one input column.
type Column struct {
	// Type is "string" (default), "int", "bool" or "float".
	Type string `json:"type,omitempty"`

	// Alias renames the column in mapping output only.
	Alias string `json:"alias,omitempty"`

	Match    *Predicate `json:"match,omitempty"`
	NotMatch *Predicate `json:"not_match,omitempty"`

	// Default replaces empty field text before coercion.
	Default *string `json:"default,omitempty"`
}

// Columns holds per-column configuration keyed either by header name or by
// position. At most one of the two is set.
type Columns struct {
	ByName     map[string]Column
	ByPosition []Column
}

// ByName returns name-keyed columns.
func ByName(m map[string]Column) Columns { return Columns{ByName: m} }

// ByPosition returns positional columns.
func ByPosition(cols ...Column) Columns { return Columns{ByPosition: cols} }

// Keyed reports whether the columns are addressed by name.
func (c Columns) Keyed() bool { return c.ByName != nil }

// Len returns the number of configured columns.
func (c Columns) Len() int {
	if c.ByName != nil {
		return len(c.ByName)
	}
	return len(c.ByPosition)
}

// UnmarshalJSON accepts an object (by name) or an array (by position).
func (c *Columns) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*c = Columns{}
	case b[0] == '{':
		m := map[string]Column{}
		if err := json.Unmarshal(b, &m); err != nil {
			return fmt.Errorf("columns: %w", err)
		}
		*c = Columns{ByName: m}
	case b[0] == '[':
		var list []Column
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("columns: %w", err)
		}
		*c = Columns{ByPosition: list}
	default:
		return fmt.Errorf("columns: expected object or array, got %s", b)
	}
	return nil
}

// MarshalJSON writes the populated representation.
func (c Columns) MarshalJSON() ([]byte, error) {
	if c.ByName != nil {
		return json.Marshal(c.ByName)
	}
	if c.ByPosition != nil {
		return json.Marshal(c.ByPosition)
	}
	return []byte("null"), nil
}

// Predicate is a match or not_match rule: either a single value or a set of
// values. Values hold untyped literals (string, bool, integer and float
// kinds, or json.Number); they are converted to the column type when the
// schema is resolved.
type Predicate struct {
	Values []any
	Set    bool
}

// Equals returns a single-value predicate.
func Equals(v any) *Predicate { return &Predicate{Values: []any{v}} }

// OneOf returns a set predicate.
func OneOf(vs ...any) *Predicate { return &Predicate{Values: vs, Set: true} }

// UnmarshalJSON accepts a scalar or an array. Numbers are kept as
// json.Number so 64-bit integers are not rounded through float64.
func (p *Predicate) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("predicate: %w", err)
	}
	if list, ok := v.([]any); ok {
		*p = Predicate{Values: list, Set: true}
		return nil
	}
	*p = Predicate{Values: []any{v}}
	return nil
}

// MarshalJSON writes a scalar for single-value predicates and an array for
// sets.
func (p Predicate) MarshalJSON() ([]byte, error) {
	if !p.Set && len(p.Values) == 1 {
		return json.Marshal(p.Values[0])
	}
	if p.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Values)
}
