// Package csv tokenizes delimited text into raw rows for the pipeline. It is a
// thin layer over encoding/csv: every field keeps its original bytes and is
// stamped with the encoding tag declared for the source.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"typedcsv/internal/charset"
	"typedcsv/internal/config"
	"typedcsv/internal/parser"
)

// utf8BOM is stripped from the first cell of a UTF-8 source.
const utf8BOM = "\uFEFF"

// Options configures the tokenizer. The zero value reads comma-separated
// UTF-8 with strict quoting.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// LazyQuotes relaxes quote handling (see encoding/csv.Reader.LazyQuotes).
	LazyQuotes bool

	// TrimSpace trims leading/trailing white space from each field.
	TrimSpace bool

	// Encoding declares the character set of the source; it becomes the
	// encoding tag of every field. Empty means UTF-8.
	Encoding string
}

// OptionsFrom reads tokenizer options from a parser options bag:
// comma (string), lazy_quotes (bool), trim_space (bool), encoding (string).
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		LazyQuotes: o.Bool("lazy_quotes", false),
		TrimSpace:  o.Bool("trim_space", false),
		Encoding:   o.String("encoding", ""),
	}
}

// Reader is a parser.Source over CSV input. It is not safe for concurrent use.
type Reader struct {
	cr    *csv.Reader
	opt   Options
	tag   string
	first bool
}

// NewReader returns a Reader for r. It fails only when opt names an unknown
// encoding or an invalid delimiter.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	cs, err := charset.Lookup(opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		if opt.Comma == '"' || opt.Comma == '\r' || opt.Comma == '\n' {
			return nil, fmt.Errorf("csv: invalid delimiter %q", opt.Comma)
		}
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // width is checked against the schema, not here
	cr.ReuseRecord = true

	return &Reader{cr: cr, opt: opt, tag: string(cs.Tag), first: true}, nil
}

// Encoding returns the tag stamped on every field.
func (r *Reader) Encoding() string { return r.tag }

// Next implements parser.Source.
func (r *Reader) Next() (parser.Row, error) {
	rec, err := r.cr.Read()
	if err == io.EOF {
		return parser.Row{}, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			r.first = false
			return parser.Row{}, &parser.RowError{Line: pe.StartLine, Err: pe.Err}
		}
		return parser.Row{}, fmt.Errorf("csv: read: %w", err)
	}

	line, _ := r.cr.FieldPos(0)
	fields := make([]parser.Field, len(rec))
	for i, s := range rec {
		if r.first && i == 0 && r.tag == string(charset.UTF8) {
			s = strings.TrimPrefix(s, utf8BOM)
		}
		if r.opt.TrimSpace {
			s = strings.TrimSpace(s)
		}
		fields[i] = parser.Field{Text: s, Encoding: r.tag}
	}
	r.first = false
	return parser.Row{Line: line, Fields: fields}, nil
}
