package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunCoversAllItems(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 7} {
		p := NewPool(workers)

		const items = 1003
		seen := make([]int32, items)
		p.Run(items, 64, func(_, start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		p.Close()

		for i, c := range seen {
			require.Equalf(t, int32(1), c, "item %d visited %d times with %d workers", i, c, workers)
		}
	}
}

func TestPool_ChunkBoundariesIndependentOfWorkers(t *testing.T) {
	collect := func(workers int) [][2]int {
		p := NewPool(workers)
		defer p.Close()

		const items, chunk = 250, 32
		out := make([][2]int, NumChunks(items, chunk))
		p.Run(items, chunk, func(idx, start, end int) {
			out[idx] = [2]int{start, end}
		})
		return out
	}

	assert.Equal(t, collect(1), collect(8))
	assert.Len(t, collect(3), 8)
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	p := NewPool(3)
	p.Close()
	p.Close()

	var sum int64
	p.Run(10, 2, func(_, start, end int) {
		atomic.AddInt64(&sum, int64(end-start))
	})
	assert.Equal(t, int64(10), sum)
}

func TestParallelize(t *testing.T) {
	var sum int64
	Parallelize(100, 4, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt64(&sum, int64(i))
		}
	})
	assert.Equal(t, int64(4950), sum)

	calls := 0
	ParallelizeWithThreshold(10, 100, 4, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestPool_Parallelize(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var sum int64
	p.Parallelize(1000, func(start, end int) {
		atomic.AddInt64(&sum, int64(end-start))
	})
	assert.Equal(t, int64(1000), sum)
	assert.Equal(t, 4, p.Workers())
}

func BenchmarkPool_Run(b *testing.B) {
	p := NewPool(0)
	defer p.Close()
	data := make([]float64, 1<<16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Run(len(data), 4096, func(_, start, end int) {
			for j := start; j < end; j++ {
				data[j] += 1
			}
		})
	}
}
