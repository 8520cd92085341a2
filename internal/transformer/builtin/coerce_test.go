package builtin

import (
	"testing"

	"typedcsv/internal/config"
	"typedcsv/internal/parser"
	"typedcsv/internal/schema"
	"typedcsv/pkg/records"
)

func field(s string) parser.Field { return parser.Field{Text: s, Encoding: "UTF-8"} }

/*
TestCoerce_Int verifies base-10 parsing across the full 64-bit range and the
uniform 0 fallback for text that is not a well-formed integer.
*/
func TestCoerce_Int(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"161226289488", 161226289488},
		{"99999999999999", 99999999999999},
		{"10000000000", 10000000000},
		{"-42", -42},
		{"+7", 7},
		{"9223372036854775807", 9223372036854775807},
		{"-9223372036854775808", -9223372036854775808},
		{"9223372036854775808", 0},
		{"", 0},
		{"12a", 0},
		{"1.0", 0},
		{" 1", 0},
		{"1_000", 0},
		{"0x10", 0},
	}
	for _, tt := range tests {
		got := Coerce(field(tt.in), schema.TypeInt)
		if got.Kind != records.KindInt || got.Int != tt.want {
			t.Fatalf("Coerce(%q, int) = %+v; want %d", tt.in, got, tt.want)
		}
	}
}

/*
TestCoerce_Bool pins the asymmetric grammar: an explicit truthy allow-list,
false for everything else.
*/
func TestCoerce_Bool(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"true", "TRUE", "True", "t", "T", "1", "yes", "YES", "y", "Y"} {
		if v := Coerce(field(s), schema.TypeBool); v.Kind != records.KindBool || !v.Bool {
			t.Fatalf("Coerce(%q, bool) = %+v; want true", s, v)
		}
	}
	for _, s := range []string{"false", "0", "no", "n", "f", "", "2", "truthy", "yes ", "ano", "on"} {
		if v := Coerce(field(s), schema.TypeBool); v.Kind != records.KindBool || v.Bool {
			t.Fatalf("Coerce(%q, bool) = %+v; want false", s, v)
		}
	}
}

func TestCoerce_Float(t *testing.T) {
	t.Parallel()

	if v := Coerce(field("2.5"), schema.TypeFloat); v.Float != 2.5 {
		t.Fatalf("Coerce(2.5, float) = %+v", v)
	}
	if v := Coerce(field("x"), schema.TypeFloat); v.Kind != records.KindFloat || v.Float != 0 {
		t.Fatalf("Coerce(x, float) = %+v", v)
	}
}

/*
TestCoerce_StringKeepsEncoding verifies that two inputs differing only in
source encoding differ only in the tag.
*/
func TestCoerce_StringKeepsEncoding(t *testing.T) {
	t.Parallel()

	a := Coerce(parser.Field{Text: "a", Encoding: "UTF-8"}, schema.TypeString)
	b := Coerce(parser.Field{Text: "a", Encoding: "BINARY"}, schema.TypeString)
	if a.Encoding != "UTF-8" || b.Encoding != "BINARY" {
		t.Fatalf("encodings = %q, %q", a.Encoding, b.Encoding)
	}
	b.Encoding = a.Encoding
	if a != b {
		t.Fatalf("values differ beyond the tag: %+v vs %+v", a, b)
	}
	if v := Coerce(field("1"), schema.TypeInt); v.Encoding != "" {
		t.Fatalf("non-string values carry no tag, got %q", v.Encoding)
	}
}

func TestPlan_ApplyWithDefault(t *testing.T) {
	t.Parallel()

	def := "5"
	s, err := schema.Resolve(config.Parse{Columns: config.ByPosition(
		config.Column{},
		config.Column{Type: "int", Default: &def},
		config.Column{Type: "bool"},
	)}, nil, 3)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	p := Compile(s)
	if p.Width() != 3 {
		t.Fatalf("Width() = %d", p.Width())
	}
	dst := make([]records.Value, 3)
	p.Apply(parser.Fields("UTF-8", []string{"x", "", "y"}), dst)
	want := []records.Value{records.StringValue("x", "UTF-8"), records.IntValue(5), records.BoolValue(true)}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %+v; want %+v", i, dst[i], want[i])
		}
	}
}
