package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"typedcsv/internal/config"
	"typedcsv/internal/schema"
	"typedcsv/internal/storage"
	"typedcsv/internal/storage/postgres"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRun_StdoutJSONLines(t *testing.T) {
	in := writeFile(t, "in.csv", "a,b,c\n1,2,x\n3,4,y\n")
	cfgPath := writeFile(t, "pipeline.json", `{
		"job": "cli_test",
		"source": {"kind": "file", "file": {"path": "`+filepath.ToSlash(in)+`"}},
		"parser": {"kind": "csv"},
		"parse": {
			"row_as_hash": true,
			"columns": {"b": {"type": "int", "alias": "B"}, "c": {"not_match": "y"}}
		},
		"storage": {"kind": "stdout"}
	}`)

	p, err := loadPipeline(cfgPath)
	if err != nil {
		t.Fatalf("loadPipeline error = %v", err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), p, &out); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got, want := out.String(), "{\"a\":\"1\",\"B\":2,\"c\":\"x\"}\n"; got != want {
		t.Fatalf("output = %q; want %q", got, want)
	}
}

func TestRun_ConfigErrorSurfaces(t *testing.T) {
	in := writeFile(t, "in.csv", "a,b\n1,2\n")
	p := config.Pipeline{
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Parse:  config.Parse{Columns: config.ByName(map[string]config.Column{"zz": {}})},
	}
	var out bytes.Buffer
	err := run(context.Background(), p, &out)
	if !errors.Is(err, schema.ErrConfig) {
		t.Fatalf("err = %v; want configuration error", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no output expected, got %q", out.String())
	}
}

func TestApplyOverrides(t *testing.T) {
	p := config.Pipeline{Source: config.Source{Kind: "file", File: config.SourceFile{Path: "cfg.csv"}}}

	applyOverrides(&p, "", "", 0)
	if p.Source.File.Path != "cfg.csv" || p.Runtime.Workers != 0 || p.Runtime.SkipLog != "" {
		t.Fatalf("empty overrides changed pipeline: %+v", p)
	}
	applyOverrides(&p, "flag.csv", "skips.csv", 3)
	if p.Source.Kind != "file" || p.Source.File.Path != "flag.csv" || p.Runtime.Workers != 3 || p.Runtime.SkipLog != "skips.csv" {
		t.Fatalf("overrides not applied: %+v", p)
	}
	applyOverrides(&p, "-", "", 0)
	if p.Source.Kind != "stdin" {
		t.Fatalf("dash should select stdin: %+v", p.Source)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("TYPEDCSV_TABLE", "public.env_table")

	p := config.Pipeline{Storage: config.Storage{Kind: "postgres", DB: config.DBConfig{Table: "from_file"}}}
	applyEnv(&p)
	if p.Storage.DB.DSN != "postgres://env" || p.Storage.DB.Table != "from_file" {
		t.Fatalf("db = %+v", p.Storage.DB)
	}

	stdout := config.Pipeline{Storage: config.Storage{Kind: "stdout"}}
	applyEnv(&stdout)
	if stdout.Storage.DB.DSN != "" {
		t.Fatalf("stdout storage should ignore env: %+v", stdout.Storage.DB)
	}
}

func TestLoadPipeline_Default(t *testing.T) {
	p, err := loadPipeline("")
	if err != nil {
		t.Fatalf("loadPipeline error = %v", err)
	}
	if p.Source.Kind != "stdin" || p.Parse.Header != config.HeaderUse || !p.Parse.RowAsHash {
		t.Fatalf("default pipeline = %+v", p)
	}
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		t.Fatalf("default pipeline has errors: %v", issues)
	}
}

type fakeRepo struct {
	created string
	columns []string
	rows    [][]any
	closed  bool
}

func (f *fakeRepo) CopyFrom(_ context.Context, columns []string, rows [][]any) (int64, error) {
	f.columns = columns
	for _, r := range rows {
		f.rows = append(f.rows, append([]any(nil), r...))
	}
	return int64(len(rows)), nil
}

func (f *fakeRepo) EnsureTable(_ context.Context, def storage.TableDef) error {
	sql, err := postgres.CreateTableSQL(def)
	f.created = sql
	return err
}

func (f *fakeRepo) Close() { f.closed = true }

func TestRun_PostgresSink(t *testing.T) {
	fake := &fakeRepo{}
	var gotCfg storage.Config
	orig := newRepository
	newRepository = func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
		gotCfg = cfg
		return fake, nil
	}
	t.Cleanup(func() { newRepository = orig })

	in := writeFile(t, "in.csv", "id,ok,name\n1,yes,a\n2,no,b\n")
	p := config.Pipeline{
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Parse: config.Parse{
			RowAsHash: true,
			Columns: config.ByName(map[string]config.Column{
				"id": {Type: "int"}, "ok": {Type: "bool"},
			}),
		},
		Storage: config.Storage{Kind: "postgres", DB: config.DBConfig{
			DSN: "postgres://unused", Table: "t", Columns: []string{"ok", "id"}, AutoCreateTable: true,
		}},
		Runtime: config.RuntimeConfig{BatchSize: 1},
	}
	if err := run(context.Background(), p, &bytes.Buffer{}); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if gotCfg != (storage.Config{Kind: "postgres", DSN: "postgres://unused", Table: "t"}) {
		t.Fatalf("storage config = %+v", gotCfg)
	}
	if !fake.closed {
		t.Fatalf("repository not closed")
	}
	if !strings.Contains(fake.created, `"ok" boolean`) || !strings.Contains(fake.created, `"id" bigint`) {
		t.Fatalf("create table = %s", fake.created)
	}
	if !reflect.DeepEqual(fake.columns, []string{"ok", "id"}) {
		t.Fatalf("columns = %v", fake.columns)
	}
	want := [][]any{{true, int64(1)}, {false, int64(2)}}
	if !reflect.DeepEqual(fake.rows, want) {
		t.Fatalf("rows = %v; want %v", fake.rows, want)
	}
}

func TestRun_SQLiteSink(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "out.db")
	in := writeFile(t, "in.csv", "id,ratio,name\n1,0.5,a\n2,x,b\n3,1.25,c\n")
	p := config.Pipeline{
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Parse: config.Parse{
			RowAsHash: true,
			Columns: config.ByName(map[string]config.Column{
				"id":    {Type: "int", NotMatch: config.Equals(int64(3))},
				"ratio": {Type: "float"},
			}),
		},
		Storage: config.Storage{Kind: "sqlite", DB: config.DBConfig{
			DSN: dbPath, Table: "items", AutoCreateTable: true,
		}},
	}
	if err := run(context.Background(), p, &bytes.Buffer{}); err != nil {
		t.Fatalf("run error = %v", err)
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: dbPath, Table: "items"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	// A second load into the existing table appends.
	n, err := repo.CopyFrom(context.Background(), []string{"id", "ratio", "name"}, [][]any{{int64(9), 9.5, "z"}})
	if err != nil || n != 1 {
		t.Fatalf("CopyFrom = %d, %v", n, err)
	}
}

func TestRun_SkipLog(t *testing.T) {
	in := writeFile(t, "in.csv", "a,b\n1,2\n3\n4,5\n6,7,8\n")
	skipPath := filepath.Join(t.TempDir(), "skips", "dropped.csv")
	p := config.Pipeline{
		Source:  config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Parser:  config.Parser{Kind: "csv", Options: config.Options{"lazy_quotes": true}},
		Parse:   config.Parse{Header: config.HeaderUse},
		Runtime: config.RuntimeConfig{SkipLog: skipPath},
	}
	var out bytes.Buffer
	if err := run(context.Background(), p, &out); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got, want := out.String(), "[\"1\",\"2\"]\n[\"4\",\"5\"]\n"; got != want {
		t.Fatalf("output = %q; want %q", got, want)
	}
	data, err := os.ReadFile(skipPath)
	if err != nil {
		t.Fatalf("read skip log: %v", err)
	}
	want := "reason,line_number,detail\n" +
		"field_count,3,incorrect number of fields (expected 2, got 1)\n" +
		"field_count,5,incorrect number of fields (expected 2, got 3)\n"
	if string(data) != want {
		t.Fatalf("skip log = %q; want %q", data, want)
	}
}
