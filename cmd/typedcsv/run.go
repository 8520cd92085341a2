package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"typedcsv/internal/config"
	"typedcsv/internal/datasource"
	"typedcsv/internal/logging"
	"typedcsv/internal/metrics"
	pcsv "typedcsv/internal/parser/csv"
	"typedcsv/internal/pipeline"
	"typedcsv/internal/skiplog"
	"typedcsv/internal/storage"
	_ "typedcsv/internal/storage/all"
	"typedcsv/pkg/records"
)

const (
	defaultJob       = "typedcsv"
	defaultBatchSize = 10000
)

// newRepository is a test hook that points to storage.New by default. Tests
// may replace it to avoid real DB connections.
var newRepository = storage.New

// loadPipeline decodes the pipeline file at path. An empty path yields a
// pipeline that reads CSV with a header from stdin and prints JSON lines.
func loadPipeline(path string) (config.Pipeline, error) {
	if path == "" {
		return config.Pipeline{
			Job:    defaultJob,
			Source: config.Source{Kind: "stdin"},
			Parser: config.Parser{Kind: "csv"},
			Parse:  config.Parse{Header: config.HeaderUse, RowAsHash: true},
		}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config.Pipeline{}, err
	}
	defer f.Close()
	return config.Decode(f)
}

// applyOverrides lets command line flags win over the pipeline file.
func applyOverrides(p *config.Pipeline, in, skipLog string, workers int) {
	switch in {
	case "":
	case "-":
		p.Source = config.Source{Kind: "stdin"}
	default:
		p.Source = config.Source{Kind: "file", File: config.SourceFile{Path: in}}
	}
	if skipLog != "" {
		p.Runtime.SkipLog = skipLog
	}
	if workers > 0 {
		p.Runtime.Workers = workers
	}
}

// applyEnv fills database settings left empty in the pipeline file from
// DATABASE_URL and TYPEDCSV_TABLE.
func applyEnv(p *config.Pipeline) {
	if !isDBSink(p.Storage.Kind) {
		return
	}
	if p.Storage.DB.DSN == "" {
		p.Storage.DB.DSN = os.Getenv("DATABASE_URL")
	}
	if p.Storage.DB.Table == "" {
		p.Storage.DB.Table = os.Getenv("TYPEDCSV_TABLE")
	}
}

// run parses the configured source and delivers records to the configured
// sink. JSON lines go to out.
func run(ctx context.Context, p config.Pipeline, out io.Writer) error {
	job := jobName(p)
	ctx, _ = logging.NewRun(ctx, "job", job)
	log := logging.FromContext(ctx)

	ds, err := datasource.New(p.Source)
	if err != nil {
		return err
	}
	rc, err := ds.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	src, err := pcsv.NewReader(rc, pcsv.OptionsFrom(p.Parser.Options))
	if err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	log.Info("parse started", "source", p.Source.Kind, "path", p.Source.File.Path,
		"encoding", src.Encoding(), "workers", p.Runtime.Workers)

	opts := pipeline.Options{
		Job:       job,
		Workers:   p.Runtime.Workers,
		ChunkSize: p.Runtime.ChunkSize,
	}
	var skips *skiplog.Log
	if p.Runtime.SkipLog != "" {
		if skips, err = skiplog.Create(p.Runtime.SkipLog); err != nil {
			return err
		}
		defer func() {
			if err := skips.Close(); err != nil {
				log.Warn("skip log close failed", "path", p.Runtime.SkipLog, "err", err)
			}
		}()
		opts.OnDrop = skips.Add
	}

	res, err := pipeline.Run(ctx, src, p.Parse, opts)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	st := res.Stats
	log.Info("parse finished", "read", st.Read, "skipped", st.Skipped, "filtered", st.Filtered,
		"malformed", st.Malformed, "emitted", st.Emitted)
	if skips != nil {
		counts := skips.Counts()
		for _, r := range skips.Reasons() {
			log.Info("dropped rows", "reason", r, "count", counts[r], "skip_log", p.Runtime.SkipLog)
		}
	}

	switch p.Storage.Kind {
	case "", "stdout":
		return writeJSONLines(out, res.Records)
	case "postgres", "sqlite":
		n, err := loadDB(ctx, p, res)
		if err != nil {
			return err
		}
		log.Info("load finished", "kind", p.Storage.Kind, "table", p.Storage.DB.Table, "inserted", n)
		return nil
	default:
		return fmt.Errorf("unsupported storage.kind=%s", p.Storage.Kind)
	}
}

func writeJSONLines(w io.Writer, recs []records.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return bw.Flush()
}

func isDBSink(kind string) bool { return kind == "postgres" || kind == "sqlite" }

// loadDB projects the emitted records onto storage.db.columns and loads them
// in batches into the configured table.
func loadDB(ctx context.Context, p config.Pipeline, res *pipeline.Result) (int64, error) {
	db := p.Storage.DB
	proj, err := storage.NewProjection(res.Schema.Keys(), db.Columns)
	if err != nil {
		return 0, fmt.Errorf("storage.db.columns: %w", err)
	}
	repo, err := newRepository(ctx, storage.Config{Kind: p.Storage.Kind, DSN: db.DSN, Table: db.Table})
	if err != nil {
		return 0, fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if db.AutoCreateTable {
		def, err := storage.TableFromSchema(db.Table, res.Schema, proj)
		if err != nil {
			return 0, err
		}
		if err := repo.EnsureTable(ctx, def); err != nil {
			return 0, err
		}
	}
	batch := p.Runtime.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	n, err := storage.LoadRecords(ctx, proj, res.Records, batch, repo.CopyFrom)
	metrics.RecordRows(jobName(p), "loaded", n)
	return n, err
}

func jobName(p config.Pipeline) string {
	if p.Job == "" {
		return defaultJob
	}
	return p.Job
}
