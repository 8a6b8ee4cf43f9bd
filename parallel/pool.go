// Package parallel runs file jobs on a fixed set of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

type (
	// WorkerFunc queues a job. It blocks while every worker is busy and the
	// queue is full.
	WorkerFunc func(func())
	// WaitFunc blocks until queued jobs finish. With done set, the pool
	// stops accepting work first.
	WaitFunc func(done bool)
)

type Pool struct {
	workers int
	wg      sync.WaitGroup
	jobs    chan func()
	close   func()
}

// Start launches numWorkers goroutines. Values below 1 use GOMAXPROCS;
// a single worker runs every job inline on the caller's goroutine.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{workers: numWorkers, close: func() {}}
	if numWorkers == 1 {
		return p
	}

	p.jobs = make(chan func(), numWorkers)
	for range numWorkers {
		p.wg.Go(func() {
			for f := range p.jobs {
				f()
			}
		})
	}
	p.close = sync.OnceFunc(func() { close(p.jobs) })

	return p
}

func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) Do(f func()) {
	if p.jobs == nil {
		f()
		return
	}
	p.jobs <- f
}

func (p *Pool) Wait(done bool) {
	if done {
		p.Cancel()
	}
	p.wg.Wait()
}

// Cancel stops the workers once the queue drains. Do must not be called
// afterwards.
func (p *Pool) Cancel() {
	p.close()
}
