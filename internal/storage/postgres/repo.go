// Package postgres implements a Postgres storage.Repository using pgx v5.
// Records are loaded with COPY into the configured table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"typedcsv/internal/schema"
	"typedcsv/internal/storage"
)

// Repository writes records into one table over a pgx pool.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// Ensure Repository satisfies storage.Repository at compile time.
var _ storage.Repository = (*Repository)(nil)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

// NewRepository opens a pool for dsn. Call Close when done.
func NewRepository(ctx context.Context, dsn, table string) (*Repository, error) {
	if len(splitFQN(table)) == 0 {
		return nil, fmt.Errorf("postgres: table name is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool, table: table}, nil
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// CopyFrom loads rows with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy into %s: %s (%s)", r.table, pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("copy into %s: %w", r.table, err)
	}
	return n, nil
}

// EnsureTable issues CREATE TABLE IF NOT EXISTS for def.
func (r *Repository) EnsureTable(ctx context.Context, def storage.TableDef) error {
	sql, err := CreateTableSQL(def)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", def.Table, err)
	}
	return nil
}

// CreateTableSQL renders the Postgres DDL for def.
func CreateTableSQL(def storage.TableDef) (string, error) {
	return storage.BuildCreateTableSQL(def, storage.QuoteIdent, sqlType)
}

func sqlType(t schema.Type) string {
	switch t {
	case schema.TypeInt:
		return "bigint"
	case schema.TypeBool:
		return "boolean"
	case schema.TypeFloat:
		return "double precision"
	default:
		return "text"
	}
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
