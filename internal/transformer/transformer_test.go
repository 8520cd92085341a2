package transformer

import (
	"reflect"
	"testing"

	"typedcsv/internal/config"
	"typedcsv/internal/parser"
	"typedcsv/internal/schema"
	"typedcsv/pkg/records"
)

func resolve(t *testing.T, cfg config.Parse, header ...string) *schema.Schema {
	t.Helper()
	s, err := schema.Resolve(cfg, parser.Fields("UTF-8", header), -1)
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	return s
}

func row(texts ...string) parser.Row {
	return parser.Row{Line: 2, Fields: parser.Fields("UTF-8", texts)}
}

func TestStage_Apply(t *testing.T) {
	t.Parallel()

	s := resolve(t, config.Parse{
		Header:    config.HeaderUse,
		RowAsHash: true,
		Columns: config.ByName(map[string]config.Column{
			"n":  {Type: "int", Alias: "count"},
			"ok": {Type: "bool", NotMatch: config.Equals(false)},
		}),
	}, "name", "n", "ok")
	st := NewStage(s)

	tests := []struct {
		name    string
		row     parser.Row
		want    records.Record
		outcome Outcome
	}{
		{
			name:    "emitted",
			row:     row("x", "12", "yes"),
			outcome: Emitted,
			want: records.Record{
				Keys:   []string{"name", "count", "ok"},
				Values: []records.Value{records.StringValue("x", "UTF-8"), records.IntValue(12), records.BoolValue(true)},
			},
		},
		{name: "filtered", row: row("x", "12", "no"), outcome: Filtered},
		{name: "too short", row: row("x", "12"), outcome: Malformed},
		{name: "too long", row: row("x", "12", "t", "extra"), outcome: Malformed},
	}
	for _, tt := range tests {
		rec, out := st.Apply(tt.row)
		if out != tt.outcome {
			t.Fatalf("%s: outcome = %v; want %v", tt.name, out, tt.outcome)
		}
		if out == Emitted && !reflect.DeepEqual(rec, tt.want) {
			t.Fatalf("%s: record = %+v; want %+v", tt.name, rec, tt.want)
		}
	}
}

func TestMaterializer_OnlyListedColumns(t *testing.T) {
	t.Parallel()

	s := resolve(t, config.Parse{
		Header:            config.HeaderUse,
		RowAsHash:         true,
		OnlyListedColumns: true,
		Columns:           config.ByName(map[string]config.Column{"b": {Type: "int"}}),
	}, "a", "b", "c")

	rec, out := NewStage(s).Apply(row("1", "2", "3"))
	if out != Emitted {
		t.Fatalf("outcome = %v", out)
	}
	want := records.Record{Keys: []string{"b"}, Values: []records.Value{records.IntValue(2)}}
	if !reflect.DeepEqual(rec, want) {
		t.Fatalf("record = %+v; want %+v", rec, want)
	}
}

func TestMaterializer_Positional(t *testing.T) {
	t.Parallel()

	s, err := schema.Resolve(config.Parse{
		Header:  config.HeaderNone,
		Columns: config.ByPosition(config.Column{Alias: "ignored"}, config.Column{Type: "bool"}),
	}, nil, 2)
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}

	rec, out := NewStage(s).Apply(row("a", "t"))
	if out != Emitted {
		t.Fatalf("outcome = %v", out)
	}
	if rec.IsHash() {
		t.Fatalf("positional record must not carry keys: %+v", rec)
	}
	want := []records.Value{records.StringValue("a", "UTF-8"), records.BoolValue(true)}
	if !reflect.DeepEqual(rec.Values, want) {
		t.Fatalf("values = %+v; want %+v", rec.Values, want)
	}
}

func TestMaterializer_KeysAreNotShared(t *testing.T) {
	t.Parallel()

	st := NewStage(resolve(t, config.Parse{Header: config.HeaderUse, RowAsHash: true}, "a", "b"))
	first, _ := st.Apply(row("1", "2"))
	second, _ := st.Apply(row("3", "4"))

	first.Keys[0] = "renamed"
	if got := second.Keys; !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("second record keys = %v; editing one record leaked into another", got)
	}
	if v, ok := second.Get("a"); !ok || v.Text != "3" {
		t.Fatalf("second.Get(a) = %+v, %v", v, ok)
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	for o, want := range map[Outcome]string{Emitted: "emitted", Filtered: "filtered", Malformed: "malformed"} {
		if o.String() != want {
			t.Fatalf("Outcome(%d).String() = %q; want %q", o, o.String(), want)
		}
	}
}
