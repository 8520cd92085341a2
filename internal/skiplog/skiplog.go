// Package skiplog records rows dropped during a parse into a CSV file and
// keeps per-reason counts for the run summary.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"typedcsv/internal/pipeline"
)

// Header is the first row of every skip log.
var Header = []string{"reason", "line_number", "detail"}

// Log is a CSV skip log. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	reasons map[string]int
	f       *os.File
	w       *csv.Writer
}

// Create creates path (and missing parent directories) and writes Header.
func Create(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("skiplog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("skiplog: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("skiplog: write header: %w", err)
	}
	return &Log{reasons: make(map[string]int), f: f, w: w}, nil
}

// Add appends one dropped row. It has the pipeline.Options.OnDrop signature.
func (l *Log) Add(d pipeline.Drop) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons[d.Reason]++
	_ = l.w.Write([]string{d.Reason, strconv.Itoa(d.Line), d.Detail})
}

// Counts returns a copy of the per-reason totals.
func (l *Log) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.reasons))
	for k, v := range l.reasons {
		out[k] = v
	}
	return out
}

// Reasons returns the recorded reasons, sorted.
func (l *Log) Reasons() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.reasons))
	for k := range l.reasons {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close flushes buffered rows and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return fmt.Errorf("skiplog: flush: %w", err)
	}
	return l.f.Close()
}
