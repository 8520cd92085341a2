package builtin

import (
	"github.com/zeebo/xxh3"

	"typedcsv/internal/schema"
	"typedcsv/pkg/records"
)

// valueSet is a membership set over predicate values. String members are
// bucketed by the xxh3 hash of their bytes and confirmed by comparison;
// other kinds are keyed by the value itself.
type valueSet struct {
	strs   map[uint64][]string
	others map[records.Value]struct{}
}

func newValueSet(vals []records.Value) valueSet {
	s := valueSet{}
	for _, v := range vals {
		if v.Kind == records.KindString {
			if s.strs == nil {
				s.strs = make(map[uint64][]string, len(vals))
			}
			h := xxh3.HashString(v.Text)
			s.strs[h] = append(s.strs[h], v.Text)
			continue
		}
		if s.others == nil {
			s.others = make(map[records.Value]struct{}, len(vals))
		}
		s.others[v] = struct{}{}
	}
	return s
}

func (s valueSet) has(v records.Value) bool {
	if v.Kind == records.KindString {
		for _, t := range s.strs[xxh3.HashString(v.Text)] {
			if t == v.Text {
				return true
			}
		}
		return false
	}
	_, ok := s.others[v]
	return ok
}

// matcher checks one column: the row passes when membership equals want.
type matcher struct {
	col  int
	want bool
	set  valueSet
}

// Filter accepts or rejects whole rows of coerced values. A row passes only
// if every column predicate passes. Filter is read-only after NewFilter.
type Filter struct {
	ms []matcher
}

// NewFilter compiles the predicates of s. A single-value predicate is a set
// of one.
func NewFilter(s *schema.Schema) Filter {
	var ms []matcher
	for _, c := range s.Columns {
		if c.Match != nil {
			ms = append(ms, matcher{col: c.Index, want: true, set: newValueSet(c.Match.Values)})
		}
		if c.NotMatch != nil {
			ms = append(ms, matcher{col: c.Index, want: false, set: newValueSet(c.NotMatch.Values)})
		}
	}
	return Filter{ms: ms}
}

// Empty reports whether the filter accepts every row.
func (f Filter) Empty() bool { return len(f.ms) == 0 }

// Accept reports whether vals passes every predicate.
func (f Filter) Accept(vals []records.Value) bool {
	for i := range f.ms {
		m := &f.ms[i]
		if m.set.has(vals[m.col]) != m.want {
			return false
		}
	}
	return true
}
