package skiplog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"typedcsv/internal/pipeline"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("readall: %v", err)
	}
	return rows
}

// TestCreate_MakesDirAndHeader checks that missing parent directories are
// created and the header is written even when nothing is added.
func TestCreate_MakesDirAndHeader(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "skipped", "run.csv")
	l, err := Create(target)
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}

	rows := readAll(t, target)
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("rows = %#v; want header only", rows)
	}
}

func TestAdd_WritesRowsAndCounts(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "skipped.csv")
	l, err := Create(target)
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	drops := []pipeline.Drop{
		{Line: 3, Reason: pipeline.ReasonFieldCount, Detail: "incorrect number of fields (expected 2, got 1)"},
		{Line: 7, Reason: pipeline.ReasonUnreadable, Detail: `bare " in non-quoted field`},
		{Line: 9, Reason: pipeline.ReasonFieldCount, Detail: "incorrect number of fields (expected 2, got 3)"},
	}
	for _, d := range drops {
		l.Add(d)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}

	want := [][]string{
		Header,
		{"field_count", "3", "incorrect number of fields (expected 2, got 1)"},
		{"unreadable", "7", `bare " in non-quoted field`},
		{"field_count", "9", "incorrect number of fields (expected 2, got 3)"},
	}
	if got := readAll(t, target); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows mismatch\ngot : %#v\nwant: %#v", got, want)
	}
	if got := l.Counts(); !reflect.DeepEqual(got, map[string]int{"field_count": 2, "unreadable": 1}) {
		t.Fatalf("counts = %v", got)
	}
	if got := l.Reasons(); !reflect.DeepEqual(got, []string{"field_count", "unreadable"}) {
		t.Fatalf("reasons = %v", got)
	}
}

func TestCreate_Error(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Create(filepath.Join(blocker, "x.csv")); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}
