// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. It performs batched INSERTs inside a transaction; SQLite does
// not have a dedicated bulk-load API like Postgres COPY, but transactions keep
// performance acceptable for moderate volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"typedcsv/internal/schema"
	"typedcsv/internal/storage"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db    *sql.DB
	table string
}

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := NewRepository(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

// NewRepository opens dsn, e.g. "file:out.db?_pragma=busy_timeout(5000)" or a
// plain path, and pings it to fail fast on bad DSNs.
func NewRepository(ctx context.Context, dsn, table string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.Trim(table, ". ") == "" {
		return nil, fmt.Errorf("sqlite: table name is empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, table: table}, nil
}

// Close closes the database handle.
func (r *Repository) Close() { _ = r.db.Close() }

// CopyFrom inserts rows in one transaction through a prepared statement.
// len(row) must equal len(columns) for every row.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(r.table, columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// EnsureTable issues CREATE TABLE IF NOT EXISTS for def.
func (r *Repository) EnsureTable(ctx context.Context, def storage.TableDef) error {
	ddl, err := CreateTableSQL(def)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", def.Table, err)
	}
	return nil
}

// CreateTableSQL renders the SQLite DDL for def. Booleans are stored as
// INTEGER 0/1.
func CreateTableSQL(def storage.TableDef) (string, error) {
	return storage.BuildCreateTableSQL(def, storage.QuoteIdent, sqlType)
}

func sqlType(t schema.Type) string {
	switch t {
	case schema.TypeInt, schema.TypeBool:
		return "INTEGER"
	case schema.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// insertSQL builds INSERT INTO <table> (<cols>) VALUES (?, ?, ...).
func insertSQL(table string, columns []string) string {
	var parts []string
	for _, seg := range strings.Split(table, ".") {
		if seg != "" {
			parts = append(parts, storage.QuoteIdent(seg))
		}
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = storage.QuoteIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		strings.Join(parts, "."),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
}
