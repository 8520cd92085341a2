package storage

import (
	"fmt"
	"strings"

	"typedcsv/internal/schema"
)

// TableDef is a dialect-neutral destination table: one nullable column per
// projected output key.
type TableDef struct {
	Table   string
	Columns []ColumnDef
}

// ColumnDef names a column and the value type loaded into it.
type ColumnDef struct {
	Name string
	Type schema.Type
}

// TableFromSchema types each projected column from the schema column whose
// output key it names.
func TableFromSchema(table string, s *schema.Schema, p Projection) (TableDef, error) {
	if strings.TrimSpace(table) == "" {
		return TableDef{}, fmt.Errorf("ddl: table name must not be empty")
	}
	if len(p.Columns) == 0 {
		return TableDef{}, fmt.Errorf("ddl: at least one column is required")
	}
	byKey := make(map[string]schema.Type, len(s.Columns))
	for _, c := range s.Columns {
		if _, seen := byKey[c.Key]; !seen && !c.Omit {
			byKey[c.Key] = c.Type
		}
	}
	def := TableDef{Table: table, Columns: make([]ColumnDef, len(p.Columns))}
	for i, col := range p.Columns {
		def.Columns[i] = ColumnDef{Name: col, Type: byKey[col]}
	}
	return def, nil
}

// BuildCreateTableSQL renders CREATE TABLE IF NOT EXISTS for def. quote
// quotes one identifier segment; sqlType maps a value type to the dialect.
// Table names may be dot-qualified; empty segments are dropped.
func BuildCreateTableSQL(def TableDef, quote func(string) string, sqlType func(schema.Type) string) (string, error) {
	var parts []string
	for _, seg := range strings.Split(def.Table, ".") {
		if seg != "" {
			parts = append(parts, quote(seg))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(def.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(strings.Join(parts, "."))
	b.WriteString(" (\n")
	for i, c := range def.Columns {
		if c.Name == "" {
			return "", fmt.Errorf("ddl: column %d has an empty name", i)
		}
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "  %s %s", quote(c.Name), sqlType(c.Type))
	}
	b.WriteString("\n);")
	return b.String(), nil
}

// QuoteIdent double-quotes an identifier segment, doubling embedded quotes.
// Postgres and SQLite share this syntax.
func QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
