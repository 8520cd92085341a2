// Package transformer turns raw rows into emitted records. A Stage chains the
// compiled coercion plan, the row filter and the materializer for one Schema.
//
// Design goals:
//   - Per-column plans are compiled once; the row path only indexes slices.
//   - Stages are read-only after construction, so one Stage may serve many
//     goroutines.
//   - Dropped rows never allocate a record.
package transformer

import (
	"typedcsv/internal/parser"
	"typedcsv/internal/schema"
	"typedcsv/internal/transformer/builtin"
	"typedcsv/pkg/records"
)

// Outcome classifies what happened to one data row.
type Outcome uint8

const (
	// Emitted rows produced a record.
	Emitted Outcome = iota
	// Filtered rows failed a match/not_match predicate.
	Filtered
	// Malformed rows had a field count different from the schema width.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Emitted:
		return "emitted"
	case Filtered:
		return "filtered"
	default:
		return "malformed"
	}
}

// Materializer shapes accepted values into a Record.
type Materializer struct {
	hash bool
	keys []string
	idx  []int // emitted column indexes; nil when every column is emitted
}

// NewMaterializer prepares output shaping for s.
func NewMaterializer(s *schema.Schema) Materializer {
	m := Materializer{hash: s.RowAsHash}
	all := true
	for _, c := range s.Columns {
		if c.Omit {
			all = false
			continue
		}
		m.idx = append(m.idx, c.Index)
		if m.hash {
			m.keys = append(m.keys, c.Key)
		}
	}
	if all {
		m.idx = nil
	}
	if m.hash && m.keys == nil {
		m.keys = []string{}
	}
	return m
}

// Materialize builds the record for vals. vals is retained when every
// column is emitted.
func (m Materializer) Materialize(vals []records.Value) records.Record {
	out := vals
	if m.idx != nil || len(vals) == 0 {
		out = make([]records.Value, len(m.idx))
		for i, ix := range m.idx {
			out[i] = vals[ix]
		}
	}
	if m.hash {
		keys := make([]string, len(m.keys))
		copy(keys, m.keys)
		return records.Record{Keys: keys, Values: out}
	}
	return records.Record{Values: out}
}

// Stage runs coerce, filter and materialize for one schema.
type Stage struct {
	plan     builtin.Plan
	filter   builtin.Filter
	filtered bool
	mat      Materializer
}

// NewStage compiles s into a Stage.
func NewStage(s *schema.Schema) *Stage {
	f := builtin.NewFilter(s)
	return &Stage{
		plan:     builtin.Compile(s),
		filter:   f,
		filtered: !f.Empty(),
		mat:      NewMaterializer(s),
	}
}

// Apply processes one data row. The record is valid only when the outcome
// is Emitted.
func (st *Stage) Apply(row parser.Row) (records.Record, Outcome) {
	if len(row.Fields) != st.plan.Width() {
		return records.Record{}, Malformed
	}
	vals := make([]records.Value, len(row.Fields))
	st.plan.Apply(row.Fields, vals)
	if st.filtered && !st.filter.Accept(vals) {
		return records.Record{}, Filtered
	}
	return st.mat.Materialize(vals), Emitted
}
