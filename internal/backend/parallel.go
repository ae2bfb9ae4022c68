package backend

import (
	"fmt"
	"runtime"
	"sync"
)

// Config controls parallel execution.
type Config struct {
	Enabled      bool // run chunks on goroutines at all
	NumWorkers   int  // goroutines per kernel call
	MinChunkSize int  // output elements per goroutine, at least
}

// DefaultConfig returns defaults based on the CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For calls f(i) once for every i in [0, n), splitting the range into
// contiguous chunks run concurrently. Small ranges run sequentially.
func (c Config) For(n int, f func(i int)) {
	workers := c.NumWorkers
	if workers < 1 {
		workers = 1
	}
	if !c.Enabled || workers == 1 || n < c.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+workers-1)/workers, c.MinChunkSize, 1)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ParallelDevice fans kernels out over goroutines. Each output element is
// computed by exactly one goroutine, so results match CPUDevice bit for bit.
type ParallelDevice struct {
	kernels
	cfg Config
}

// NewParallel returns a parallel backend.
func NewParallel(cfg Config) *ParallelDevice {
	return &ParallelDevice{kernels: kernels{runner: cfg}, cfg: cfg}
}

func (d *ParallelDevice) Type() Type { return Parallel }

func (d *ParallelDevice) Name() string {
	return fmt.Sprintf("parallel(%d)", d.cfg.NumWorkers)
}

// Config returns the execution settings.
func (d *ParallelDevice) Config() Config { return d.cfg }
