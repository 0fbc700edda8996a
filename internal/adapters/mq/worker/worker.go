// Package worker runs a fixed set of goroutines that drain a job queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

// Handler processes one job. It must not block past ctx.
type Handler[T any] func(ctx context.Context, job T)

// Queue defines how workers receive jobs.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Pool manages a fixed number of workers reading from one queue.
type Pool[T any] struct {
	size    int
	queue   Queue[T]
	handle  Handler[T]
	name    string
	logger  logger.Logger
	wg      sync.WaitGroup
	started atomic.Bool
	handled atomic.Int64
}

// NewPool creates a pool of size workers. size < 1 means one per CPU.
func NewPool[T any](size int, q Queue[T], h Handler[T], opts ...Option) *Pool[T] {
	s := settings{name: "worker-pool", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	if size < 1 {
		size = runtime.NumCPU()
	}
	return &Pool[T]{
		size:   size,
		queue:  q,
		handle: h,
		name:   s.name,
		logger: s.logger.Named(s.name),
	}
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return p.size }

// Handled returns the number of jobs processed so far.
func (p *Pool[T]) Handled() int64 { return p.handled.Load() }

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	jobs := p.queue.Dequeue(ctx)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i, jobs)
	}
	metrics.UpdateBatchWorkers(p.size)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.size))
}

func (p *Pool[T]) run(ctx context.Context, id int, jobs <-chan T) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			p.process(ctx, id, job)
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, id int, job T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "job panicked",
				logger.Int("worker_id", id),
				logger.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	p.handle(ctx, job)
	p.handled.Add(1)
	metrics.RecordBatchJob()
}

// Shutdown closes the queue when it supports closing and waits for the
// workers to drain it or for ctx to expire.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		metrics.UpdateBatchWorkers(0)
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
