package config

import (
	"fmt"
	"sort"
	"strings"

	"typedcsv/internal/charset"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single lint finding. Path is a dotted path into the config,
// e.g. "parse.columns[2].type".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// knownTypes are the column types the coercer understands.
var knownTypes = map[string]struct{}{
	"":        {},
	"string":  {},
	"text":    {},
	"int":     {},
	"integer": {},
	"bool":    {},
	"boolean": {},
	"float":   {},
}

// ValidatePipeline performs static checks over p. Checks that need the
// header row (unknown column names, key collisions) happen when the schema
// is resolved.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and logs will use a default label",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, ValidateParse(p.Parse, "parse")...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

func validateSource(s Source) []Issue {
	switch s.Kind {
	case "":
		return []Issue{{SeverityError, "source.kind", "source.kind must not be empty"}}
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			return []Issue{{SeverityError, "source.file.path", "file source requires a non-empty path"}}
		}
	case "stdin":
	default:
		return []Issue{{SeverityError, "source.kind", fmt.Sprintf("unknown source kind %q", s.Kind)}}
	}
	return nil
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	if p.Kind != "" && p.Kind != "csv" {
		issues = append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unknown parser kind %q", p.Kind)})
	}
	if c, ok := p.Options["comma"]; ok {
		s, isStr := c.(string)
		if !isStr || len([]rune(s)) != 1 {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", "comma must be a single character"})
		} else if s == `"` || s == "\n" || s == "\r" {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", fmt.Sprintf("invalid delimiter %q", s)})
		}
	}
	if enc := p.Options.String("encoding", ""); enc != "" {
		if _, err := charset.Lookup(enc); err != nil {
			issues = append(issues, Issue{SeverityError, "parser.options.encoding", err.Error()})
		}
	}
	return issues
}

// ValidateParse checks parse options that can be judged without input.
func ValidateParse(p Parse, path string) []Issue {
	var issues []Issue

	if p.OffsetRows < 0 {
		issues = append(issues, Issue{SeverityError, path + ".offset_rows", "offset_rows must not be negative"})
	}
	if len(p.Columns.ByName) > 0 && (p.Header == HeaderNone || p.Header == HeaderSkip) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".columns",
			Message:  fmt.Sprintf("columns keyed by name need a header row, but header is %q", p.Header),
		})
	}

	check := func(at string, c Column) {
		if _, ok := knownTypes[strings.ToLower(c.Type)]; !ok {
			issues = append(issues, Issue{SeverityError, at + ".type", fmt.Sprintf("unknown column type %q", c.Type)})
		}
		if pr := c.Match; pr != nil && pr.Set && len(pr.Values) == 0 {
			issues = append(issues, Issue{SeverityWarning, at + ".match", "empty set never matches; every row will be dropped"})
		}
		if pr := c.NotMatch; pr != nil && pr.Set && len(pr.Values) == 0 {
			issues = append(issues, Issue{SeverityWarning, at + ".not_match", "empty set excludes nothing"})
		}
	}
	if p.Columns.Keyed() {
		names := make([]string, 0, len(p.Columns.ByName))
		for n := range p.Columns.ByName {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			check(fmt.Sprintf("%s.columns[%q]", path, n), p.Columns.ByName[n])
		}
	} else {
		for i, c := range p.Columns.ByPosition {
			check(fmt.Sprintf("%s.columns[%d]", path, i), c)
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	switch s.Kind {
	case "", "stdout":
	case "postgres", "sqlite":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "storage.db.dsn", s.Kind + " storage requires a dsn"})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{SeverityError, "storage.db.table", s.Kind + " storage requires a table"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "storage.kind", fmt.Sprintf("unknown storage kind %q", s.Kind)})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.workers", "workers must not be negative"})
	}
	if r.ChunkSize < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.chunk_size", "chunk_size must not be negative"})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.batch_size", "batch_size must not be negative"})
	}
	return issues
}
