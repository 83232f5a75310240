package utils

import (
	"log"
	"sync"

	"github.com/Alex-Nair/one-bit-ml-cli/params"
)

// Debugf logs only when params.Config.Debug is set.
func Debugf(format string, args ...any) {
	if !params.Config.Debug {
		return
	}
	log.Printf("[debug] "+format, args...)
}

// DebugStep reports whether step should emit a periodic debug line.
func DebugStep(step int) bool {
	every := params.Config.DebugEvery
	return params.Config.Debug && every > 0 && step%every == 0
}

// ParallelFor runs fn(i) for every i in [0, n) across at most workers
// goroutines. Indices are split into contiguous chunks, so each i is handled
// by exactly one goroutine. workers <= 1 runs inline.
func ParallelFor(n, workers int, fn func(i int)) {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
