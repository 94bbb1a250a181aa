package scan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Outcome pairs a target with its scan result or fatal error.
type Outcome struct {
	Target string
	Result *Result
	Err    error
}

// ScanFunc scans one target.
type ScanFunc func(ctx context.Context, target string) (*Result, error)

// ProgressFunc is called after each target completes.
type ProgressFunc func(o Outcome, duration time.Duration)

// Runner scans multiple targets with bounded concurrency and a global rate limit.
type Runner struct {
	Concurrency int // Maximum number of concurrent scans
	RateLimit   int // Scans started per second; <= 0 disables the limit
	Progress    ProgressFunc
}

// RunAll scans every target and returns outcomes in input order.
func (r *Runner) RunAll(ctx context.Context, targets []string, fn ScanFunc) []Outcome {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]Outcome, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			out := Outcome{Target: t}
			if err := limiter.Wait(ctx); err != nil {
				out.Err = err
				outcomes[i] = out
				return
			}

			start := time.Now()
			out.Result, out.Err = fn(ctx, t)
			outcomes[i] = out

			if r.Progress != nil {
				mu.Lock()
				r.Progress(out, time.Since(start))
				mu.Unlock()
			}
		}(i, target)
	}

	wg.Wait()
	return outcomes
}
