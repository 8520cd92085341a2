// Package config defines the JSON-serializable configuration for a parse run:
// the parse options consumed by the schema resolver, and the pipeline file
// model used by the command line tool.
//
// Example (trimmed):
//
//	{
//	  "job":     "vehicles",
//	  "source":  { "kind": "file", "file": { "path": "in.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": ",", "encoding": "UTF-8" } },
//	  "parse":   {
//	    "header": true,
//	    "row_as_hash": true,
//	    "offset_rows": 0,
//	    "columns": { "b": { "type": "int", "alias": "B" } }
//	  },
//	  "storage": { "kind": "stdout" },
//	  "runtime": { "workers": 1 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job"`

	// Source describes where input bytes come from.
	Source Source `json:"source"`

	// Parser configures the tokenizer.
	Parser Parser `json:"parser"`

	// Parse configures schema resolution, coercion, filtering and output shape.
	Parse Parse `json:"parse"`

	// Storage selects where emitted records go.
	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls parallelism and batching.
type RuntimeConfig struct {
	// Workers > 1 enables ordered parallel processing of row chunks.
	Workers int `json:"workers"`
	// ChunkSize is the number of rows per parallel chunk.
	ChunkSize int `json:"chunk_size"`
	// BatchSize is the number of records per load batch (database storage).
	BatchSize int `json:"batch_size"`
	// SkipLog, when set, is a CSV file receiving every dropped row.
	SkipLog string `json:"skip_log"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation. Current values: "file", "stdin".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// Parser selects the tokenizer.
type Parser struct {
	// Kind selects the tokenizer. Current value: "csv".
	Kind string `json:"kind"`

	// Options is interpreted by the tokenizer. For CSV:
	//   comma (string), lazy_quotes (bool), trim_space (bool), encoding (string)
	Options Options `json:"options"`
}

// Storage selects the sink for emitted records.
type Storage struct {
	// Kind is "stdout" (JSON lines), "postgres" or "sqlite".
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the database sinks.
type DBConfig struct {
	// DSN is a pgxpool connection string, or a SQLite file path or URI.
	DSN string `json:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table"`

	// Columns lists destination columns in record order. When empty the
	// record's output keys are used.
	Columns []string `json:"columns"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS from the resolved
	// schema before loading.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Decode reads a Pipeline from r. Unknown fields are rejected so typos in
// pipeline files surface early.
func Decode(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline: %w", err)
	}
	return p, nil
}

// Options fetches typed values from a free-form JSON object. Absent keys and
// values of an unexpected type yield the supplied default.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers may arrive as
// float64 or, with UseNumber, as json.Number.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null options object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
