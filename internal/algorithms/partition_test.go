package algorithms

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionsCoverEveryRowOnce(t *testing.T) {
	t.Parallel()

	for height := 1; height <= 40; height++ {
		for workers := -1; workers <= height+3; workers++ {
			parts := Partitions(height, workers)

			want := workers
			if want < 1 {
				want = 1
			}
			if want > height {
				want = height
			}
			require.Len(t, parts, want, "height=%d workers=%d", height, workers)

			next := 0
			for i, p := range parts {
				assert.Equal(t, i, p.Index)
				assert.Equal(t, next, p.RowStart, "gap or overlap at height=%d workers=%d", height, workers)
				assert.Positive(t, p.Rows(), "empty partition at height=%d workers=%d", height, workers)
				next = p.RowEnd
			}
			assert.Equal(t, height, next, "height=%d workers=%d", height, workers)
		}
	}
}

func TestPartitionsBalance(t *testing.T) {
	t.Parallel()

	parts := Partitions(10, 4)
	rows := make([]int, len(parts))
	for i, p := range parts {
		rows[i] = p.Rows()
	}
	assert.Equal(t, []int{3, 3, 2, 2}, rows)

	assert.Nil(t, Partitions(0, 3))
}

func TestRunPartitionsWritesDisjointRows(t *testing.T) {
	t.Parallel()

	const height = 97
	var mu sync.Mutex
	writes := make([]int, height)

	err := runPartitions(context.Background(), Partitions(height, 8), func(_ context.Context, p Partition) error {
		mu.Lock()
		defer mu.Unlock()
		for y := p.RowStart; y < p.RowEnd; y++ {
			writes[y]++
		}
		return nil
	})
	require.NoError(t, err)
	for y, n := range writes {
		assert.Equal(t, 1, n, "row %d", y)
	}
}

func TestRunPartitionsFailure(t *testing.T) {
	t.Parallel()

	t.Run("panic becomes partition failure", func(t *testing.T) {
		t.Parallel()
		err := runPartitions(context.Background(), Partitions(8, 4), func(_ context.Context, p Partition) error {
			if p.Index == 2 {
				panic("worker fault")
			}
			return nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPartitionFailed)
		assert.Contains(t, err.Error(), "worker fault")
	})

	t.Run("returned error is wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		err := runPartitions(context.Background(), Partitions(8, 2), func(_ context.Context, p Partition) error {
			if p.Index == 0 {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, ErrPartitionFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("waits for every partition", func(t *testing.T) {
		t.Parallel()
		var done atomic.Int32
		_ = runPartitions(context.Background(), Partitions(6, 6), func(_ context.Context, p Partition) error {
			defer done.Add(1)
			if p.Index == 0 {
				return errors.New("first fails")
			}
			return nil
		})
		assert.Equal(t, int32(6), done.Load())
	})
}
