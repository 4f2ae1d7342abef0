// Package pool implements a small generic worker pool: jobs go into an
// unbounded FIFO, a fixed number of workers hand results back through an
// unbounded result queue that callers drain with non-blocking polls.
//
// The pool makes no ordering guarantee between submission and results;
// callers that care must carry an identifier inside the job and result.
// Callers must also keep polling — results accumulate until drained.
package pool

import (
	"sync"
	"time"
)

// idleSleep is how long a worker sleeps when the job queue is empty.
// Long enough to avoid busy-waiting, short enough that a freshly submitted
// job is picked up well inside one tracker poll cycle.
const idleSleep = 100 * time.Millisecond

// Handler processes one job into one result.
type Handler[J, T any] func(job J) T

// Pool runs jobs of type J on a fixed set of workers producing results of
// type T. Submit and Poll are safe to call from any goroutine; both are
// non-blocking.
type Pool[J, T any] struct {
	workers int

	mu      sync.Mutex
	jobs    []J
	results []T

	stop chan struct{}
	once sync.Once
}

// New creates a pool with the given worker count. Workers are not started
// until Run is called. A count below 1 is raised to 1.
func New[J, T any](workers int) *Pool[J, T] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[J, T]{
		workers: workers,
		stop:    make(chan struct{}),
	}
}

// Run starts the workers with the given handler. Each worker repeatedly
// takes the oldest queued job, runs the handler, and queues the result.
// Run returns immediately.
func (p *Pool[J, T]) Run(handler Handler[J, T]) {
	for i := 0; i < p.workers; i++ {
		go p.worker(handler)
	}
}

func (p *Pool[J, T]) worker(handler Handler[J, T]) {
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		job, ok := p.takeJob()
		if !ok {
			select {
			case <-p.stop:
				return
			case <-time.After(idleSleep):
			}
			continue
		}

		result := handler(job)

		p.mu.Lock()
		p.results = append(p.results, result)
		p.mu.Unlock()
	}
}

func (p *Pool[J, T]) takeJob() (J, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.jobs) == 0 {
		var zero J
		return zero, false
	}

	job := p.jobs[0]
	p.jobs = p.jobs[1:]
	return job, true
}

// Submit enqueues a job. Never blocks; the queue is unbounded.
func (p *Pool[J, T]) Submit(job J) {
	p.mu.Lock()
	p.jobs = append(p.jobs, job)
	p.mu.Unlock()
}

// Poll returns one result if any is available. Never blocks.
func (p *Pool[J, T]) Poll() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.results) == 0 {
		var zero T
		return zero, false
	}

	result := p.results[0]
	p.results = p.results[1:]
	return result, true
}

// Pending returns the number of jobs waiting for a worker.
func (p *Pool[J, T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// Stop signals workers to exit at their next idle wake. Jobs already being
// handled run to completion; there is no per-job cancellation.
func (p *Pool[J, T]) Stop() {
	p.once.Do(func() { close(p.stop) })
}
