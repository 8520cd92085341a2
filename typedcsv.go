// Package typedcsv turns delimited text into typed records.
//
// A parse resolves a column schema from the configuration and the optional
// header row, coerces each field to its configured type (string, int, bool or
// float), drops rows rejected by match/not_match predicates, and emits what is
// left either as positional value lists or as name-keyed records.
//
//	recs, err := typedcsv.ParseString("a,b\n1,2\n", typedcsv.Options{
//		RowAsHash: true,
//		Columns:   typedcsv.ByName(map[string]typedcsv.Column{"b": {Type: "int"}}),
//	})
//
// Coercion never fails: unparsable numbers become 0 and any text outside the
// truthy set becomes false. Rows whose width differs from the schema are
// dropped and counted in Stats.Malformed. Only configuration mistakes are
// returned as errors, and they are returned before any row is processed.
package typedcsv

import (
	"context"
	"io"
	"strings"

	"typedcsv/internal/config"
	"typedcsv/internal/parser"
	"typedcsv/internal/parser/csv"
	"typedcsv/internal/pipeline"
	"typedcsv/internal/schema"
	"typedcsv/pkg/records"
)

type (
	// Options configures schema resolution, filtering and output shape.
	Options    = config.Parse
	Column     = config.Column
	Columns    = config.Columns
	Predicate  = config.Predicate
	HeaderMode = config.HeaderMode

	// CSVOptions configures the tokenizer.
	CSVOptions = csv.Options

	// RunOptions tunes execution (parallelism, metrics job label).
	RunOptions = pipeline.Options

	Record = records.Record
	Value  = records.Value
	Kind   = records.Kind

	// Source is a forward-only stream of raw rows.
	Source   = parser.Source
	RawRow   = parser.Row
	RawField = parser.Field
	RowError = parser.RowError

	Stats       = pipeline.Stats
	Result      = pipeline.Result
	ConfigError = schema.ConfigError
)

const (
	HeaderUnset = config.HeaderUnset
	HeaderUse   = config.HeaderUse
	HeaderNone  = config.HeaderNone
	HeaderSkip  = config.HeaderSkip
)

const (
	KindString = records.KindString
	KindInt    = records.KindInt
	KindBool   = records.KindBool
	KindFloat  = records.KindFloat
)

// ErrConfig matches every configuration error via errors.Is.
var ErrConfig = schema.ErrConfig

// Equals returns a predicate matching exactly v.
func Equals(v any) *Predicate { return config.Equals(v) }

// OneOf returns a predicate matching any of vs.
func OneOf(vs ...any) *Predicate { return config.OneOf(vs...) }

// ByName returns columns addressed by header name.
func ByName(m map[string]Column) Columns { return config.ByName(m) }

// ByPosition returns columns addressed by index.
func ByPosition(cols ...Column) Columns { return config.ByPosition(cols...) }

// Parse reads comma-separated UTF-8 text from r.
func Parse(r io.Reader, opts Options) ([]Record, error) {
	res, err := ParseCSV(context.Background(), r, CSVOptions{}, opts, RunOptions{})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(s string, opts Options) ([]Record, error) {
	return Parse(strings.NewReader(s), opts)
}

// ParseCSV tokenizes r with csvOpts and parses the rows.
func ParseCSV(ctx context.Context, r io.Reader, csvOpts CSVOptions, opts Options, run RunOptions) (*Result, error) {
	src, err := csv.NewReader(r, csvOpts)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, src, opts, run)
}

// ParseSource parses rows from an already-tokenized source.
func ParseSource(ctx context.Context, src Source, opts Options, run RunOptions) (*Result, error) {
	return pipeline.Run(ctx, src, opts, run)
}

// NewSliceSource returns a Source over pre-split rows tagged with encoding.
func NewSliceSource(encoding string, rows [][]string) Source {
	return parser.NewSliceSource(encoding, rows)
}
