package records

import (
	"reflect"
	"testing"
)

func TestValueEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string different encoding", StringValue("a", "UTF-8"), StringValue("a", "BINARY"), true},
		{"different string", StringValue("a", "UTF-8"), StringValue("b", "UTF-8"), false},
		{"int", IntValue(161226289488), IntValue(161226289488), true},
		{"int vs string", IntValue(1), StringValue("1", "UTF-8"), false},
		{"bool", BoolValue(false), BoolValue(false), true},
		{"bool differ", BoolValue(true), BoolValue(false), false},
		{"float", FloatValue(1.5), FloatValue(1.5), true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal(%v, %v) = %v; want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	t.Parallel()

	pos := Record{Values: []Value{StringValue("b", "UTF-8"), IntValue(2), BoolValue(false)}}
	got, err := pos.MarshalJSON()
	if err != nil {
		t.Fatalf("positional MarshalJSON() error = %v", err)
	}
	if string(got) != `["b",2,false]` {
		t.Fatalf("positional JSON = %s", got)
	}

	hash := Record{
		Keys:   []string{"z", "a"},
		Values: []Value{StringValue("1", "UTF-8"), IntValue(10000000000)},
	}
	got, err = hash.MarshalJSON()
	if err != nil {
		t.Fatalf("hash MarshalJSON() error = %v", err)
	}
	if string(got) != `{"z":"1","a":10000000000}` {
		t.Fatalf("hash JSON = %s (keys must keep column order)", got)
	}
}

func TestRecordGetAndMap(t *testing.T) {
	t.Parallel()

	r := Record{Keys: []string{"a", "B"}, Values: []Value{StringValue("1", "UTF-8"), IntValue(2)}}
	if v, ok := r.Get("B"); !ok || v.Int != 2 {
		t.Fatalf("Get(B) = %v, %v", v, ok)
	}
	if _, ok := r.Get("b"); ok {
		t.Fatalf("Get(b) should miss")
	}
	want := map[string]Value{"a": StringValue("1", "UTF-8"), "B": IntValue(2)}
	if m := r.Map(); !reflect.DeepEqual(m, want) {
		t.Fatalf("Map() = %#v; want %#v", m, want)
	}

	pos := Record{Values: []Value{IntValue(1)}}
	if pos.IsHash() || pos.Map() != nil {
		t.Fatalf("positional record must not expose a map")
	}
}

func TestValueStringAndInterface(t *testing.T) {
	t.Parallel()

	if s := IntValue(-42).String(); s != "-42" {
		t.Fatalf("IntValue.String() = %q", s)
	}
	if v, ok := IntValue(99999999999999).Interface().(int64); !ok || v != 99999999999999 {
		t.Fatalf("Interface() = %#v", v)
	}
	if s := BoolValue(true).String(); s != "true" {
		t.Fatalf("BoolValue.String() = %q", s)
	}
}
