// Package parser defines the raw row stream consumed by the pipeline.
package parser

import (
	"fmt"
	"io"
)

// Field is one raw cell: its original text and the encoding tag of the
// buffer it was read from.
type Field struct {
	Text     string
	Encoding string
}

// Row is one tokenized input line. Line is 1-based and refers to the source
// line on which the row starts.
type Row struct {
	Line   int
	Fields []Field
}

// Source yields raw rows forward-only. Next returns io.EOF after the last
// row. A *RowError means only that row was unreadable and Next may be called
// again; any other error ends the stream.
type Source interface {
	Next() (Row, error)
}

// RowError reports a row the tokenizer could not read.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Line, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// SliceSource serves pre-split rows, all tagged with one encoding.
type SliceSource struct {
	encoding string
	rows     [][]string
	pos      int
}

// NewSliceSource returns a Source over rows.
func NewSliceSource(encoding string, rows [][]string) *SliceSource {
	return &SliceSource{encoding: encoding, rows: rows}
}

// Next implements Source.
func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	raw := s.rows[s.pos]
	s.pos++
	return Row{Line: s.pos, Fields: Fields(s.encoding, raw)}, nil
}

// Fields tags every string in texts with encoding.
func Fields(encoding string, texts []string) []Field {
	out := make([]Field, len(texts))
	for i, t := range texts {
		out[i] = Field{Text: t, Encoding: encoding}
	}
	return out
}
