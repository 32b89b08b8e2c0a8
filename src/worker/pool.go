package worker

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
)

var (
	// ErrBusy means every worker is busy and the queue slot is taken.
	ErrBusy   = errors.New("worker pool busy")
	ErrClosed = errors.New("worker pool closed")
)

// Job is the body of one background task. Panics are recovered by the pool,
// but jobs are expected to report their own failures.
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

type job struct {
	ctx  context.Context
	name string
	fn   Job
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(id, j)
			}
		}(i)
	}
}

func (p *Pool) run(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker %d: PANIC in job %s: %v", id, j.name, r)
		}
	}()
	log.Printf("worker %d: starting %s", id, j.name)
	j.fn(j.ctx)
	log.Printf("worker %d: finished %s", id, j.name)
}

// Submit enqueues fn if the single-slot queue is free. It never blocks.
func (p *Pool) Submit(ctx context.Context, name string, fn Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, name: name, fn: fn}:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
