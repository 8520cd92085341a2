package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"typedcsv/internal/config"
	"typedcsv/pkg/records"
)

// resolvePredicate converts configured literals to the column's kind so the
// filter compares coerced values with values of the same kind.
func resolvePredicate(p *config.Predicate, t Type, path string) (*Predicate, error) {
	if p == nil {
		return nil, nil
	}
	if !p.Set && len(p.Values) != 1 {
		return nil, configErrorf(path, "single-value predicate needs exactly one value, got %d", len(p.Values))
	}
	out := &Predicate{Values: make([]records.Value, 0, len(p.Values)), Set: p.Set}
	for i, x := range p.Values {
		v, err := literal(x, t)
		if err != nil {
			at := path
			if p.Set {
				at = fmt.Sprintf("%s[%d]", path, i)
			}
			return nil, configErrorf(at, "%v", err)
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}

// literal converts one configured value to a Value of type t.
func literal(x any, t Type) (records.Value, error) {
	switch x.(type) {
	case nil, []any, map[string]any:
		return records.Value{}, fmt.Errorf("invalid %s literal %v", t, x)
	}

	switch t {
	case TypeString:
		switch v := x.(type) {
		case string:
			return records.StringValue(v, ""), nil
		case json.Number:
			return records.StringValue(v.String(), ""), nil
		case bool:
			return records.Value{}, fmt.Errorf("bool literal %v for string column", v)
		case float64:
			return records.StringValue(strconv.FormatFloat(v, 'f', -1, 64), ""), nil
		}
		if n, ok := toInt64(x); ok {
			return records.StringValue(strconv.FormatInt(n, 10), ""), nil
		}

	case TypeInt:
		switch v := x.(type) {
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return records.Value{}, fmt.Errorf("invalid int literal %q", v)
			}
			return records.IntValue(n), nil
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return records.Value{}, fmt.Errorf("invalid int literal %s", v)
			}
			return records.IntValue(n), nil
		case float64:
			if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
				return records.Value{}, fmt.Errorf("invalid int literal %v", v)
			}
			return records.IntValue(int64(v)), nil
		}
		if n, ok := toInt64(x); ok {
			return records.IntValue(n), nil
		}

	case TypeBool:
		switch v := x.(type) {
		case bool:
			return records.BoolValue(v), nil
		case string:
			b, ok := ParseBool(v)
			if !ok {
				return records.Value{}, fmt.Errorf("invalid bool literal %q", v)
			}
			return records.BoolValue(b), nil
		}

	case TypeFloat:
		switch v := x.(type) {
		case float64:
			return records.FloatValue(v), nil
		case float32:
			return records.FloatValue(float64(v)), nil
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return records.Value{}, fmt.Errorf("invalid float literal %s", v)
			}
			return records.FloatValue(f), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return records.Value{}, fmt.Errorf("invalid float literal %q", v)
			}
			return records.FloatValue(f), nil
		}
		if n, ok := toInt64(x); ok {
			return records.FloatValue(float64(n)), nil
		}
	}
	return records.Value{}, fmt.Errorf("literal %v (%T) does not fit a %s column", x, x, t)
}

func toInt64(x any) (int64, bool) {
	switch v := x.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	}
	return 0, false
}
