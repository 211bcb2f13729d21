// Package worker runs background jobs detached from the request lifetime.
// The finalize barrier and mail fallback run here so a burst of bookings
// cannot exhaust goroutines or file descriptors.
package worker

import "sync"

// Pool is a fixed set of workers draining a bounded job queue.  Submit
// blocks when the queue is full, which back-pressures the HTTP layer instead
// of growing without bound.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// NewPool starts size workers over a queue of the given depth.
func NewPool(size, depth int) *Pool {
	if size < 1 {
		size = 1
	}
	if depth < 1 {
		depth = 1
	}
	p := &Pool{jobs: make(chan func(), depth)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit enqueues a job.  It must not be called after Close.
func (p *Pool) Submit(job func()) {
	p.jobs <- job
}

// Close stops accepting jobs and waits for in-flight ones to finish.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
