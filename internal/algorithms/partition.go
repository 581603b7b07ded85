package algorithms

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrPartitionFailed marks a filter call that lost one of its partitions.
var ErrPartitionFailed = errors.New("partition failed")

// Partition is the half-open row range [RowStart, RowEnd) owned by one worker.
type Partition struct {
	Index    int
	RowStart int
	RowEnd   int
}

// Rows returns the number of rows in p.
func (p Partition) Rows() int {
	return p.RowEnd - p.RowStart
}

// Partitions splits [0, height) into contiguous ranges, one per worker.
// workers is clamped to [1, height]; the first height%workers ranges get one extra row.
func Partitions(height, workers int) []Partition {
	if height <= 0 {
		return nil
	}
	workers = clampWorkers(workers, height)

	base, extra := height/workers, height%workers
	parts := make([]Partition, workers)
	start := 0
	for i := range parts {
		n := base
		if i < extra {
			n++
		}
		parts[i] = Partition{Index: i, RowStart: start, RowEnd: start + n}
		start += n
	}
	return parts
}

func clampWorkers(workers, height int) int {
	if workers < 1 {
		return 1
	}
	if workers > height {
		return height
	}
	return workers
}

// runPartitions scatters fn over parts and gathers before returning.
// The first failure cancels the remaining partitions; panics are recovered into errors.
func runPartitions(ctx context.Context, parts []Partition, fn func(ctx context.Context, p Partition) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range parts {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: rows [%d,%d): panic: %v", ErrPartitionFailed, p.RowStart, p.RowEnd, r)
				}
			}()
			if err := fn(gctx, p); err != nil {
				return fmt.Errorf("%w: rows [%d,%d): %w", ErrPartitionFailed, p.RowStart, p.RowEnd, err)
			}
			return nil
		})
	}
	return g.Wait()
}
