// Package datasource opens the byte stream a parse reads from.
package datasource

import (
	"context"
	"fmt"
	"io"
	"os"

	"typedcsv/internal/config"
)

// Source opens input bytes for one run.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// New returns the Source described by cfg.
func New(cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case "", "file":
		if cfg.File.Path == "" || cfg.File.Path == "-" {
			return Stdin{}, nil
		}
		return NewLocal(cfg.File.Path), nil
	case "stdin":
		return Stdin{}, nil
	default:
		return nil, fmt.Errorf("unsupported source.kind=%s", cfg.Kind)
	}
}

// Local opens a file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns ctx's error without touching the filesystem when ctx is
// already done. Filesystem errors are wrapped with the path and still match
// errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Stdin reads the process's standard input. Closing it is a no-op.
type Stdin struct{}

func (Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(os.Stdin), nil
}
