package tensor

// Runner executes a kernel once for every output coordinate in [0, n).
//
// Kernels passed to a Runner only write the output slot they were called for,
// so any Runner that calls f exactly once per index produces identical results.
type Runner interface {
	For(n int, f func(i int))
}

type sequentialRunner struct{}

func (sequentialRunner) For(n int, f func(i int)) {
	for i := 0; i < n; i++ {
		f(i)
	}
}

// Sequential runs kernels in index order on the calling goroutine.
var Sequential Runner = sequentialRunner{}
