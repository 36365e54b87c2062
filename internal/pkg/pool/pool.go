package pool

import (
	"context"
	"sync"
)

// Pool runs submitted jobs on at most n goroutines.
// Close must be called once all jobs are submitted; Wait blocks until they finish.
type Pool struct {
	jobs      chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		jobs: make(chan func(), n*2),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.wg.Done()
			for f := range p.jobs {
				if f != nil {
					f()
				}
			}
		}()
	}
	return p
}

// Submit queues f. It returns false if ctx is done before a worker could accept it.
func (p *Pool) Submit(ctx context.Context, f func()) bool {
	select {
	case p.jobs <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

// Run executes every job with at most n running at once and returns when all
// accepted jobs are done.
func Run(ctx context.Context, n int, jobs []func()) {
	if len(jobs) < n {
		n = len(jobs)
	}
	p := New(n)
	for _, j := range jobs {
		if !p.Submit(ctx, j) {
			break
		}
	}
	p.Close()
	p.Wait()
}
