package worker

import (
	"context"
	"sync"
)

// Pool runs article jobs on a fixed number of workers. Finished results are
// drained as they arrive, so any number of jobs can be queued before Wait.
type Pool struct {
	workers int
	queue   chan *ArticleJob
	results chan *ArticleResult
	drained chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	collected []*ArticleResult
	closeOnce sync.Once

	submitMu sync.RWMutex
	closed   bool // queue closed by Wait
}

// NewPool creates a pool whose jobs run under a context derived from parent
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers: workers,
		queue:   make(chan *ArticleJob, workers*2),
		results: make(chan *ArticleResult, workers*2),
		drained: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result drain
func (p *Pool) Start() {
	go p.drain()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) drain() {
	defer close(p.drained)
	for r := range p.results {
		p.mu.Lock()
		p.collected = append(p.collected, r)
		p.mu.Unlock()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It reports false once the pool is waited on, shut
// down or its context is cancelled; the job is then never run.
func (p *Pool) Submit(job *ArticleJob) bool {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- job:
		return true
	}
}

// Wait closes the queue, lets the workers finish and returns every result in
// completion order. Later calls return the same results.
func (p *Pool) Wait() []*ArticleResult {
	p.closeQueue()
	p.wg.Wait()
	p.finish()
	<-p.drained
	p.cancel()
	return p.Results()
}

func (p *Pool) closeQueue() {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

// Shutdown stops the workers without running jobs still queued
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.finish()
	<-p.drained
}

// Results returns a copy of the results collected so far
func (p *Pool) Results() []*ArticleResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ArticleResult(nil), p.collected...)
}

func (p *Pool) finish() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
