// Package datasource defines where raw input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh reader over the raw input. Callers close the reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name identifies the input (a path or URL). Its extension selects the
	// parser when none is configured.
	Name() string
}
