// Package builtin holds the per-row building blocks: the type coercer and
// the match/not_match row filter. Both are compiled once from a Schema into
// plain per-column plans so the hot loop never touches configuration.
package builtin

import (
	"strconv"

	"typedcsv/internal/parser"
	"typedcsv/internal/schema"
	"typedcsv/pkg/records"
)

// coerceFunc converts one raw field. Every coerceFunc is total.
type coerceFunc func(f parser.Field) records.Value

// coercers is the dispatch table indexed by schema.Type.
var coercers = [...]coerceFunc{
	schema.TypeString: coerceString,
	schema.TypeInt:    coerceInt,
	schema.TypeBool:   coerceBool,
	schema.TypeFloat:  coerceFloat,
}

// Coerce converts f to a Value of type t. Text that does not parse yields
// the fallback for t: 0 for int and float, false for bool. Unknown types
// pass the text through as a string.
func Coerce(f parser.Field, t schema.Type) records.Value {
	if int(t) < len(coercers) {
		return coercers[t](f)
	}
	return coerceString(f)
}

// coerceString is the identity; it is the only coercion that keeps the
// encoding tag.
func coerceString(f parser.Field) records.Value {
	return records.StringValue(f.Text, f.Encoding)
}

// coerceInt parses a base-10 signed 64-bit integer: optional sign, digits
// only. Anything else, including out-of-range values, is 0.
func coerceInt(f parser.Field) records.Value {
	n, err := strconv.ParseInt(f.Text, 10, 64)
	if err != nil {
		return records.IntValue(0)
	}
	return records.IntValue(n)
}

// coerceBool is true only for the case-insensitive allow-list
// true, t, 1, yes, y. Everything else is false.
func coerceBool(f parser.Field) records.Value {
	return records.BoolValue(schema.Truthy(f.Text))
}

func coerceFloat(f parser.Field) records.Value {
	v, err := strconv.ParseFloat(f.Text, 64)
	if err != nil {
		return records.FloatValue(0)
	}
	return records.FloatValue(v)
}

// colPlan is the compiled coercion for one column.
type colPlan struct {
	coerce     coerceFunc
	def        string
	hasDefault bool
}

// Plan coerces whole rows according to a Schema. It is read-only after
// Compile and safe for concurrent use.
type Plan struct {
	cols []colPlan
}

// Compile builds the coercion plan for s.
func Compile(s *schema.Schema) Plan {
	cols := make([]colPlan, len(s.Columns))
	for i, c := range s.Columns {
		fn := coerceString
		if int(c.Type) < len(coercers) {
			fn = coercers[c.Type]
		}
		cols[i] = colPlan{coerce: fn, def: c.Default, hasDefault: c.HasDefault}
	}
	return Plan{cols: cols}
}

// Width returns the number of columns the plan expects.
func (p Plan) Width() int { return len(p.cols) }

// Apply coerces fields into dst. Both must have Width() elements.
func (p Plan) Apply(fields []parser.Field, dst []records.Value) {
	for i := range p.cols {
		cp := &p.cols[i]
		f := fields[i]
		if f.Text == "" && cp.hasDefault {
			f.Text = cp.def
		}
		dst[i] = cp.coerce(f)
	}
}
