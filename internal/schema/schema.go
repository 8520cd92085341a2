// Package schema resolves parse configuration and an optional header row into
// a positional Schema. Everything downstream of resolution works on column
// indexes only; raw configuration is never consulted per row.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"typedcsv/pkg/records"
)

// ErrConfig matches every *ConfigError via errors.Is.
var ErrConfig = errors.New("configuration error")

// ConfigError is a configuration mistake detected before any row is
// processed. Path locates the offending option.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s: %s", e.Path, e.Msg) }

// Is makes errors.Is(err, ErrConfig) true.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func configErrorf(path, format string, a ...any) *ConfigError {
	return &ConfigError{Path: path, Msg: fmt.Sprintf(format, a...)}
}

// Type is the coercion kind of a column.
type Type uint8

const (
	TypeString Type = iota
	TypeInt
	TypeBool
	TypeFloat
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	default:
		return "string"
	}
}

// Kind returns the value kind a column of type t produces.
func (t Type) Kind() records.Kind {
	switch t {
	case TypeInt:
		return records.KindInt
	case TypeBool:
		return records.KindBool
	case TypeFloat:
		return records.KindFloat
	default:
		return records.KindString
	}
}

// ParseType maps a configured type name to a Type. The empty name is string.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text":
		return TypeString, nil
	case "int", "integer":
		return TypeInt, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "float":
		return TypeFloat, nil
	}
	return 0, fmt.Errorf("unknown column type %q", s)
}

// Truthy reports whether bool column text coerces to true: the
// case-insensitive allow-list true, t, 1, yes, y.
func Truthy(s string) bool {
	switch len(s) {
	case 1:
		return s == "1" || s == "t" || s == "T" || s == "y" || s == "Y"
	case 3:
		return strings.EqualFold(s, "yes")
	case 4:
		return strings.EqualFold(s, "true")
	}
	return false
}

// ParseBool reads a bool predicate literal with the column grammar. Text
// outside both allow-lists (true, t, 1, yes, y and false, f, 0, no, n)
// reports ok == false.
func ParseBool(s string) (bool, bool) {
	if Truthy(s) {
		return true, true
	}
	for _, f := range [...]string{"false", "f", "0", "no", "n"} {
		if strings.EqualFold(s, f) {
			return false, true
		}
	}
	return false, false
}

// Predicate is a resolved match/not_match rule whose values already have the
// column's kind.
type Predicate struct {
	Values []records.Value
	Set    bool
}

// Column is the resolved description of one input position.
type Column struct {
	Index int

	// Name is the configured key or discovered header text; Named reports
	// whether one exists (header cells may legitimately be empty).
	Name  string
	Named bool

	Alias string
	Type  Type

	Match    *Predicate
	NotMatch *Predicate

	// Default replaces empty text before coercion when HasDefault is set.
	Default    string
	HasDefault bool

	// Configured is false for identity pass-through entries.
	Configured bool

	// Omit excludes the column from output (only_listed_columns).
	Omit bool

	// Key is the output key in mapping mode: alias, else name, else index.
	Key string
}

// Schema is the read-only per-parse column plan.
type Schema struct {
	Columns []Column

	// HeaderConsumed is true when the first raw row was taken as header.
	HeaderConsumed bool

	// StartRow is the 1-based data row at which emission begins.
	StartRow int

	// RowAsHash selects mapping output.
	RowAsHash bool
}

// Width returns the number of fields in a well-formed row.
func (s *Schema) Width() int { return len(s.Columns) }

// Keys returns the output keys of emitted columns, in column order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.Omit {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// HasFilters reports whether any column carries a predicate.
func (s *Schema) HasFilters() bool {
	for _, c := range s.Columns {
		if c.Match != nil || c.NotMatch != nil {
			return true
		}
	}
	return false
}

// StartRow converts an offset_rows value to the first emitted data row.
func StartRow(offsetRows int) int {
	if offsetRows > 0 {
		return offsetRows
	}
	return 1
}

func indexKey(i int) string { return strconv.Itoa(i) }
