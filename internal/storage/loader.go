// Package storage contains storage-agnostic contracts and utilities.
// This file implements a generic, batched loader that projects records onto
// destination columns and invokes a provided bulk-insert function (CopyFn)
// per batch.
//
// Backends (Postgres, SQLite) implement CopyFn using their most efficient
// primitives (Postgres COPY, prepared INSERTs inside a transaction).
package storage

import (
	"context"
	"fmt"
	"time"

	"typedcsv/internal/logging"
	"typedcsv/pkg/records"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to 'columns' order) and return the number of rows
// reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// Projection maps destination columns to record value positions.
type Projection struct {
	Columns []string
	idx     []int
}

// NewProjection resolves columns against the schema's output keys. An empty
// columns list loads every key, in key order.
func NewProjection(keys, columns []string) (Projection, error) {
	if len(columns) == 0 {
		columns = keys
	}
	pos := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, dup := pos[k]; !dup {
			pos[k] = i
		}
	}
	p := Projection{Columns: columns, idx: make([]int, len(columns))}
	for i, c := range columns {
		j, ok := pos[c]
		if !ok {
			return Projection{}, fmt.Errorf("column %q is not an output key", c)
		}
		p.idx[i] = j
	}
	return p, nil
}

// Row returns rec's values for the projected columns, as pgx-encodable Go
// values. Records of both shapes share value order with the schema keys.
func (p Projection) Row(rec records.Record) []any {
	row := make([]any, len(p.idx))
	for i, j := range p.idx {
		if j < len(rec.Values) {
			row[i] = rec.Values[j].Interface()
		}
	}
	return row
}

// LoadRecords projects recs and loads them in batches through copyFn.
func LoadRecords(
	ctx context.Context,
	p Projection,
	recs []records.Record,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, rec := range recs {
			select {
			case in <- p.Row(rec):
			case <-ctx.Done():
				return
			}
		}
	}()
	return LoadBatches(ctx, p.Columns, in, batchSize, copyFn)
}

// LoadBatches drains typed rows ([]any) from 'in', groups them into batches of
// size 'batchSize', and calls 'copyFn' for each non-empty batch. It returns the
// total number of rows reported by copyFn and the first error encountered.
//
// The function returns when the input channel is closed or context is canceled.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	log := logging.FromContext(ctx)
	var (
		total   int64
		batches int
		start   = time.Now()
		batch   = make([][]any, 0, batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		// reuse backing array
		batch = batch[:0]
		if err != nil {
			log.Error("copy failed", "batch", batches+1, "total", total, "err", err)
			return err
		}
		batches++
		log.Debug("batch loaded", "batch", batches, "rows", n, "total", total,
			"elapsed", time.Since(start).Truncate(time.Millisecond))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
