// Package pipeline drives one parse: it resolves the schema from the first
// rows of a raw row stream, skips leading data rows, and runs every remaining
// row through the transformer stage.
//
// The driver is a state machine:
//
//	ResolvingSchema -> Skipping -> Emitting -> Done
//
// Schema resolution always completes before any row is coerced. With
// Options.Workers > 1 the Emitting state fans row chunks out to workers and
// reassembles records in source order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"typedcsv/internal/config"
	"typedcsv/internal/logging"
	"typedcsv/internal/metrics"
	"typedcsv/internal/parser"
	"typedcsv/internal/schema"
	"typedcsv/internal/transformer"
	"typedcsv/pkg/records"
)

// dropLogLimit caps per-row log lines for dropped rows.
const dropLogLimit = 400

// defaultChunkSize is the parallel chunk size when Options.ChunkSize is 0.
const defaultChunkSize = 1024

// State is a driver state.
type State uint8

const (
	StateResolvingSchema State = iota
	StateSkipping
	StateEmitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateResolvingSchema:
		return "resolving_schema"
	case StateSkipping:
		return "skipping"
	case StateEmitting:
		return "emitting"
	default:
		return "done"
	}
}

// Options tunes a run. The zero value runs sequentially.
type Options struct {
	// Job labels metrics.
	Job string
	// Workers > 1 enables ordered parallel processing.
	Workers int
	// ChunkSize is the number of rows per parallel chunk.
	ChunkSize int
	// OnDrop, when set, is called for every malformed row, without the log
	// cap. In parallel mode unreadable rows are reported as they are read and
	// field-count mismatches when their chunk is merged.
	OnDrop func(Drop)
}

// Drop reasons.
const (
	ReasonUnreadable = "unreadable"
	ReasonFieldCount = "field_count"
)

// Drop describes one malformed data row.
type Drop struct {
	Line   int
	Reason string
	Detail string
}

// Stats counts data rows (rows after any header). Read equals the sum of the
// other fields.
type Stats struct {
	Read      int
	Skipped   int
	Filtered  int
	Malformed int
	Emitted   int
}

func (s *Stats) add(o Stats) {
	s.Read += o.Read
	s.Skipped += o.Skipped
	s.Filtered += o.Filtered
	s.Malformed += o.Malformed
	s.Emitted += o.Emitted
}

// Result is the outcome of a successful run.
type Result struct {
	Schema  *schema.Schema
	Records []records.Record
	Stats   Stats
}

// item is a raw read: a row, or a recoverable row error.
type item struct {
	row    parser.Row
	rowErr *parser.RowError
}

type driver struct {
	ctx context.Context
	src parser.Source
	cfg config.Parse
	opt Options
	log *slog.Logger

	state    State
	schema   *schema.Schema
	stage    *transformer.Stage
	pushback []item
	dataRow  int
	logged   int
	res      Result
}

// Run parses src under cfg. Configuration errors (see schema.ErrConfig) are
// returned before any row is processed; malformed rows are dropped and
// counted. ctx is checked between rows.
func Run(ctx context.Context, src parser.Source, cfg config.Parse, opt Options) (*Result, error) {
	if opt.Job == "" {
		opt.Job = "typedcsv"
	}
	d := &driver{
		ctx: ctx,
		src: src,
		cfg: cfg,
		opt: opt,
		log: logging.FromContext(ctx),
	}

	start := time.Now()
	for d.state != StateDone {
		if err := ctx.Err(); err != nil {
			return nil, d.fail(start, err)
		}
		prev := d.state
		if err := d.step(); err != nil {
			return nil, d.fail(start, err)
		}
		if d.state != prev {
			d.log.Debug("pipeline state", "from", prev.String(), "to", d.state.String(), "data_row", d.dataRow)
		}
	}
	metrics.RecordStep(opt.Job, "parse", nil, time.Since(start))
	d.recordRows()

	d.res.Schema = d.schema
	if d.res.Records == nil {
		d.res.Records = []records.Record{}
	}
	return &d.res, nil
}

func (d *driver) fail(start time.Time, err error) error {
	metrics.RecordStep(d.opt.Job, "parse", err, time.Since(start))
	return err
}

func (d *driver) step() error {
	switch d.state {
	case StateResolvingSchema:
		return d.resolve()
	case StateSkipping:
		return d.skip()
	case StateEmitting:
		if d.opt.Workers > 1 {
			return d.emitParallel()
		}
		return d.emitOne()
	}
	return nil
}

// next returns the next raw read, replaying rows peeked during resolution.
// It returns io.EOF at the end of the stream.
func (d *driver) next() (item, error) {
	if len(d.pushback) > 0 {
		it := d.pushback[0]
		d.pushback = d.pushback[1:]
		return it, nil
	}
	row, err := d.src.Next()
	if err == nil {
		return item{row: row}, nil
	}
	var re *parser.RowError
	if errors.As(err, &re) {
		return item{rowErr: re}, nil
	}
	if err == io.EOF {
		return item{}, io.EOF
	}
	return item{}, fmt.Errorf("read rows: %w", err)
}

func (d *driver) resolve() error {
	start := time.Now()

	var header []parser.Field
	width := -1
	if schema.ConsumesHeader(d.cfg) {
		row, err := d.src.Next()
		switch {
		case err == io.EOF:
		case err != nil:
			return fmt.Errorf("read header: %w", err)
		default:
			header = row.Fields
		}
	} else {
		// Peek past unreadable rows to the first readable one for its width.
		for {
			it, err := d.next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			d.pushback = append(d.pushback, it)
			if it.rowErr == nil {
				width = len(it.row.Fields)
				break
			}
		}
	}

	s, err := schema.Resolve(d.cfg, header, width)
	metrics.RecordStep(d.opt.Job, "resolve", err, time.Since(start))
	if err != nil {
		return err
	}
	d.schema = s
	d.stage = transformer.NewStage(s)
	d.log.Debug("schema resolved", "width", s.Width(), "header", s.HeaderConsumed,
		"start_row", s.StartRow, "filters", s.HasFilters())
	d.state = StateSkipping
	return nil
}

// skip discards one data row ahead of the start row.
func (d *driver) skip() error {
	if d.dataRow+1 >= d.schema.StartRow {
		d.state = StateEmitting
		return nil
	}
	_, err := d.next()
	if err == io.EOF {
		d.state = StateDone
		return nil
	}
	if err != nil {
		return err
	}
	d.dataRow++
	d.res.Stats.Read++
	d.res.Stats.Skipped++
	return nil
}

// emitOne runs a single data row through the stage.
func (d *driver) emitOne() error {
	it, err := d.next()
	if err == io.EOF {
		d.state = StateDone
		return nil
	}
	if err != nil {
		return err
	}
	d.dataRow++
	d.res.Stats.Read++
	if it.rowErr != nil {
		d.res.Stats.Malformed++
		d.logDrop(unreadable(it.rowErr))
		return nil
	}

	rec, out := d.stage.Apply(it.row)
	switch out {
	case transformer.Emitted:
		d.res.Records = append(d.res.Records, rec)
		d.res.Stats.Emitted++
	case transformer.Filtered:
		d.res.Stats.Filtered++
	case transformer.Malformed:
		d.res.Stats.Malformed++
		d.logDrop(fieldCount(it.row.Line, d.schema.Width(), len(it.row.Fields)))
	}
	return nil
}

func fieldCount(line, want, got int) Drop {
	return Drop{
		Line:   line,
		Reason: ReasonFieldCount,
		Detail: fmt.Sprintf("incorrect number of fields (expected %d, got %d)", want, got),
	}
}

func unreadable(re *parser.RowError) Drop {
	return Drop{Line: re.Line, Reason: ReasonUnreadable, Detail: re.Err.Error()}
}

func (d *driver) logDrop(dr Drop) {
	if d.opt.OnDrop != nil {
		d.opt.OnDrop(dr)
	}
	switch {
	case d.logged < dropLogLimit:
		d.log.Warn("dropping row", "line", dr.Line, "reason", dr.Reason, "detail", dr.Detail)
	case d.logged == dropLogLimit:
		d.log.Warn("further dropped rows are not logged", "limit", dropLogLimit)
	}
	d.logged++
}

func (d *driver) recordRows() {
	st := d.res.Stats
	metrics.RecordRows(d.opt.Job, "read", int64(st.Read))
	metrics.RecordRows(d.opt.Job, "skipped", int64(st.Skipped))
	metrics.RecordRows(d.opt.Job, "filtered", int64(st.Filtered))
	metrics.RecordRows(d.opt.Job, "malformed", int64(st.Malformed))
	metrics.RecordRows(d.opt.Job, "emitted", int64(st.Emitted))
}
