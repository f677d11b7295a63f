package brc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// byteRange is a nominal [start, end) slice of the file given to one worker.
type byteRange struct {
	start, end int
}

// staticRanges cuts size bytes into nThreads contiguous ranges of equal length,
// the last one absorbing the remainder. nThreads is lowered for tiny inputs so
// that no two ranges share a start offset.
func staticRanges(size, nThreads int) []byteRange {
	if size == 0 {
		return nil
	}
	nThreads = min(nThreads, size)
	per := size / nThreads
	ranges := make([]byteRange, nThreads)
	for i := range ranges {
		ranges[i] = byteRange{start: i * per, end: (i + 1) * per}
	}
	ranges[nThreads-1].end = size
	return ranges
}

// chunkCursor hands out fixed size chunks of the file to workers on demand.
type chunkCursor struct {
	offset    atomic.Int64
	chunkSize int64
	size      int64
}

// claim returns the next unclaimed chunk, ok is false once the file is exhausted.
func (cc *chunkCursor) claim() (byteRange, bool) {
	start := cc.offset.Add(cc.chunkSize) - cc.chunkSize
	if start >= cc.size {
		return byteRange{}, false
	}
	return byteRange{start: int(start), end: int(min(start+cc.chunkSize, cc.size))}, true
}

// worker owns its table and cursor until it returns.
type worker struct {
	id      int
	table   *Table
	cursor  Cursor
	records int
}

func (w *worker) parse(ctx context.Context, data []byte, r byteRange) error {
	n, err := parseRange(ctx, data, r.start, r.end, w.table, &w.cursor)
	w.records += n
	return err
}

// run turns a panic in fn into an error so that the coordinator sees it at join.
func (w *worker) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, w.id, r)
		}
	}()
	return fn()
}

// parseData runs opts.NThreads workers over data and returns their partial
// tables once every worker has returned. Any worker error fails the whole scan.
func parseData(data []byte, opts BrcOptions) ([]*Table, error) {
	workers, err := runWorkers(context.Background(), data, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.logger()
	tables := make([]*Table, len(workers))
	for i, w := range workers {
		tables[i] = w.table
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			logger.Debug("worker done",
				"worker", w.id,
				"records", w.records,
				"stations", w.table.Len(),
				"collisions", w.table.Collisions(),
				"max_chain", w.table.MaxChain())
		}
	}
	return tables, nil
}

// runWorkers starts the workers and joins them. The first error cancels the
// others, which stop at their next chunk claim or cancellation check.
// Workers are returned even on error, their tables are then incomplete.
func runWorkers(ctx context.Context, data []byte, opts BrcOptions) ([]*worker, error) {
	var workers []*worker
	g, ctx := errgroup.WithContext(ctx)
	switch opts.Strategy {
	case BrcStrategyStatic:
		for i, r := range staticRanges(len(data), opts.NThreads) {
			w, err := newWorker(i, opts.Slots)
			if err != nil {
				return nil, err
			}
			workers = append(workers, w)
			g.Go(func() error {
				return w.run(func() error { return w.parse(ctx, data, r) })
			})
		}
	case BrcStrategyDynamic:
		chunks := &chunkCursor{chunkSize: int64(opts.ChunkSize), size: int64(len(data))}
		for i := range opts.NThreads {
			w, err := newWorker(i, opts.Slots)
			if err != nil {
				return nil, err
			}
			workers = append(workers, w)
			g.Go(func() error {
				return w.run(func() error {
					for ctx.Err() == nil {
						r, ok := chunks.claim()
						if !ok {
							return nil
						}
						if err := w.parse(ctx, data, r); err != nil {
							return err
						}
					}
					return ctx.Err()
				})
			})
		}
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidOptions, opts.Strategy)
	}
	return workers, g.Wait()
}

func newWorker(id, numSlots int) (*worker, error) {
	table, err := NewTable(numSlots)
	if err != nil {
		return nil, err
	}
	return &worker{id: id, table: table, cursor: newCursor()}, nil
}

func since(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
