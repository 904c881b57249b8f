// Package workerpool provides a bounded goroutine pool. Fetches and script
// runs are submitted as closures; at most Cap() of them execute at once and
// a panicking task is logged without taking its worker down.
package workerpool

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs submitted closures on up to Cap() goroutines.
type Pool struct {
	size  int32
	queue chan func()

	live atomic.Int32

	// mu guards closed; Submit holds it shared while sending so Close
	// never closes queue under a sender.
	mu     sync.RWMutex
	closed bool

	inflight sync.WaitGroup
	workers  sync.WaitGroup

	logger *slog.Logger
}

// New creates a pool of the given size. Workers start on demand.
func New(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		size:   int32(workers),
		queue:  make(chan func(), workers*16),
		logger: logger,
	}
}

// Submit queues a task. It blocks while the queue is full and returns false
// if the pool is closed.
func (p *Pool) Submit(task func()) bool {
	if task == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	p.spawn()
	p.inflight.Add(1)
	p.queue <- task
	return true
}

// spawn starts one more worker unless the pool is already at size.
func (p *Pool) spawn() {
	for {
		n := p.live.Load()
		if n >= p.size {
			return
		}
		if p.live.CompareAndSwap(n, n+1) {
			p.workers.Add(1)
			go p.loop()
			return
		}
	}
}

func (p *Pool) loop() {
	defer p.workers.Done()
	defer p.live.Add(-1)
	for task := range p.queue {
		p.exec(task)
	}
}

func (p *Pool) exec(task func()) {
	defer p.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", slog.Any("panic", r))
		}
	}()
	task()
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.inflight.Wait()
}

// Running returns the number of live workers.
func (p *Pool) Running() int {
	return int(p.live.Load())
}

// Cap returns the pool size.
func (p *Pool) Cap() int {
	return int(p.size)
}

// Waiting returns the number of queued tasks not yet picked up.
func (p *Pool) Waiting() int {
	return len(p.queue)
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.workers.Wait()
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
