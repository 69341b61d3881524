// This file implements a generic, batched loader that drains rows from a
// channel and invokes a bulk-insert function (CopyFn) per batch.
//
// Backends implement CopyFn with their most efficient primitive (Postgres
// COPY, MSSQL bulk copy, MySQL multi-row INSERT, a buffered CSV writer).
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lifeexp/internal/metrics"
)

// DefaultBatchSize is used by LoadRows when the caller passes a non-positive
// batch size.
const DefaultBatchSize = 5000

// CopyFn abstracts a backend's bulk insert. It inserts rows aligned to
// columns and returns the number of rows written. It must cancel promptly
// when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize, and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered.
//
// Cancellation returns (total, ctx.Err()). Progress is logged at debug level
// on each successful flush.
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

	var (
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			slog.Error("loader: copy failed", "batch", batches+1, "total", total, "err", err)
			return err
		}

		batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		slog.Debug("loader: batch flushed",
			"batch", batches,
			"rows", n,
			"total", total,
			"rps", int64(rps),
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlush = now
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

// LoadRows feeds rows through LoadBatches into repo.CopyFrom and counts each
// flushed batch against job in the metrics backend.
func LoadRows(
	ctx context.Context,
	repo Repository,
	job string,
	columns []string,
	rows [][]any,
	batchSize int,
) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	copyFn := func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, cols, batch)
		if err == nil {
			metrics.RecordBatches(job, 1)
		}
		return n, err
	}
	return LoadBatches(ctx, columns, in, batchSize, copyFn)
}
