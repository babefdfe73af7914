package task

import "sync"

// Runner executes background units on behalf of asynchronous tool calls.
// With no limit it runs every unit on its own goroutine; with a limit it
// gates concurrency through a semaphore while still accepting submissions
// without blocking the caller.
type Runner struct {
	wg  sync.WaitGroup
	sem chan struct{}
}

// NewRunner creates a runner. limit <= 0 means unbounded concurrency.
func NewRunner(limit int) *Runner {
	r := &Runner{}
	if limit > 0 {
		r.sem = make(chan struct{}, limit)
	}
	return r
}

// Go submits a unit of work. It returns immediately; the unit runs to
// completion or failure on its own goroutine with no cancellation.
func (r *Runner) Go(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.sem != nil {
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
		}
		fn()
	}()
}

// Wait blocks until every submitted unit has finished. Used for drain on
// shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
