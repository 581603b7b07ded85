package pipeline

import (
	"runtime"
	"sync/atomic"
)

// Parallelism is the process-wide worker count chosen by the user.
// It is read once per filter call and passed to the engine explicitly.
type Parallelism struct {
	value atomic.Int64
	max   int
}

// NewParallelism returns a setting bounded by the number of available cores.
func NewParallelism(initial int) *Parallelism {
	return newParallelism(initial, runtime.NumCPU())
}

func newParallelism(initial, max int) *Parallelism {
	if max < 1 {
		max = 1
	}
	p := &Parallelism{max: max}
	p.Set(initial)
	return p
}

// Set stores n clamped to [1, Max] and returns the stored value.
func (p *Parallelism) Set(n int) int {
	if n < 1 {
		n = 1
	}
	if n > p.max {
		n = p.max
	}
	p.value.Store(int64(n))
	return n
}

// Load returns the current worker count.
func (p *Parallelism) Load() int {
	return int(p.value.Load())
}

// Max returns the upper bound, the number of cores reported by the runtime.
func (p *Parallelism) Max() int {
	return p.max
}
