package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/pkg/logger"
)

// batchJob is one item of a fanned-out batch. ctx is the caller's request
// context, cancelled as soon as any item fails.
type batchJob struct {
	ctx   context.Context
	index int
	req   prediction.Request
	run   *batchRun
}

// batchRun collects the results of one BatchPredict call.
type batchRun struct {
	results []prediction.BatchResult
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	errIndex int
	err      error
}

// fail keeps the error with the lowest index and stops the remaining items.
func (r *batchRun) fail(i int, err error) {
	r.mu.Lock()
	if r.err == nil || i < r.errIndex {
		r.errIndex, r.err = i, err
	}
	r.mu.Unlock()
	r.cancel()
}

func (r *batchRun) firstError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		return nil
	}
	return fmt.Errorf("batch item %d: %w", r.errIndex, r.err)
}

// BatchPredict predicts every request and returns results in request order.
// Batches longer than the threshold are spread over the worker pool. The
// first failure cancels the outstanding items and fails the whole batch.
func (s *Service) BatchPredict(ctx context.Context, reqs []prediction.Request) ([]prediction.BatchResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(reqs) <= s.batchThreshold {
		return s.predictor.BatchPredict(ctx, reqs)
	}
	// Surface a missing model once instead of once per item.
	if err := s.predictor.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	run := &batchRun{results: make([]prediction.BatchResult, len(reqs)), cancel: cancel}

	inline := 0
	for i, req := range reqs {
		if runCtx.Err() != nil {
			break
		}
		job := batchJob{ctx: runCtx, index: i, req: req, run: run}
		run.wg.Add(1)
		if !s.queue.Enqueue(runCtx, job) {
			// Queue full or closed: the caller runs the job itself.
			inline++
			s.runBatchJob(runCtx, job)
		}
	}
	run.wg.Wait()

	if inline > 0 {
		s.logger.Debug(ctx, "batch items ran on the caller", logger.Int("items", inline))
	}
	if err := run.firstError(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return run.results, nil
}

// runBatchJob is the worker pool handler. Items whose batch was already
// cancelled are skipped without recording an error.
func (s *Service) runBatchJob(_ context.Context, job batchJob) {
	defer job.run.wg.Done()
	if job.ctx.Err() != nil {
		return
	}
	rank, err := s.predictor.PredictRank(job.ctx, job.req)
	if err != nil {
		job.run.fail(job.index, err)
		return
	}
	job.run.results[job.index] = prediction.BatchResult{PredictedRank: rank, Input: job.req}
}
