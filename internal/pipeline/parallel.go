package pipeline

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"typedcsv/internal/parser"
	"typedcsv/internal/transformer"
	"typedcsv/pkg/records"
)

// chunk is a run of consecutive data rows processed by one worker.
type chunk struct {
	rows    []parser.Row
	records []records.Record
	stats   Stats
	// drops are malformed rows noted by the worker, logged after merge.
	drops []Drop
}

func (c *chunk) run(ctx context.Context, st *transformer.Stage, width int) error {
	for i, row := range c.rows {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, out := st.Apply(row)
		switch out {
		case transformer.Emitted:
			c.records = append(c.records, rec)
			c.stats.Emitted++
		case transformer.Filtered:
			c.stats.Filtered++
		case transformer.Malformed:
			c.stats.Malformed++
			c.drops = append(c.drops, fieldCount(row.Line, width, len(row.Fields)))
		}
	}
	c.rows = nil
	return nil
}

// emitParallel drains the rest of the stream in chunks. Rows are read on the
// calling goroutine; workers only run the stage. Chunks are merged in read
// order, so output order matches the sequential path.
func (d *driver) emitParallel() error {
	size := d.opt.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}

	g, ctx := errgroup.WithContext(d.ctx)
	g.SetLimit(d.opt.Workers)

	var (
		chunks  []*chunk
		readErr error
		eof     bool
	)
	for !eof && readErr == nil && ctx.Err() == nil {
		c := &chunk{rows: make([]parser.Row, 0, size)}
		for len(c.rows) < size {
			it, err := d.next()
			if err == io.EOF {
				eof = true
				break
			}
			if err != nil {
				readErr = err
				break
			}
			d.dataRow++
			d.res.Stats.Read++
			if it.rowErr != nil {
				// Unreadable rows never reach a worker.
				d.res.Stats.Malformed++
				d.logDrop(unreadable(it.rowErr))
				continue
			}
			c.rows = append(c.rows, it.row)
		}
		if len(c.rows) == 0 {
			continue
		}
		chunks = append(chunks, c)
		g.Go(func() error { return c.run(ctx, d.stage, d.schema.Width()) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}
	if err := d.ctx.Err(); err != nil {
		return err
	}

	for _, c := range chunks {
		d.res.Records = append(d.res.Records, c.records...)
		d.res.Stats.add(c.stats)
		for _, dr := range c.drops {
			d.logDrop(dr)
		}
	}
	d.state = StateDone
	return nil
}
