// Package service composes the prediction model, the recommendation engine,
// the catalog store and the batch worker pool, and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/collegefinder/internal/adapters/cache"
	jobqueue "github.com/okian/collegefinder/internal/adapters/mq/queue"
	workerpool "github.com/okian/collegefinder/internal/adapters/mq/worker"
	repository "github.com/okian/collegefinder/internal/adapters/repository"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/internal/domain/recommend"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

// ErrNotStarted is returned by operations that need Start to have run.
var ErrNotStarted = errors.New("service not started")

const defaultBatchThreshold = 32

// Service implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	predictor *prediction.Service
	engine    *recommend.Engine
	store     repository.Store
	cache     cache.Cache
	queue     *jobqueue.InMemoryQueue[batchJob]
	pool      *workerpool.Pool[batchJob]

	// Configuration
	modelPath      string
	workerCount    int
	queueSize      int
	batchThreshold int

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch prediction workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBatchThreshold sets the batch length above which predictions are
// spread over the worker pool. Smaller batches run on the caller goroutine.
func WithBatchThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchThreshold = n
		}
	}
}

// WithModelPath sets the artifact file used when no predictor is supplied.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithPredictor supplies the prediction service.
func WithPredictor(p *prediction.Service) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithEngine supplies the recommendation engine.
func WithEngine(e *recommend.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithStore supplies the catalog store. The service takes ownership and
// closes it on Stop when it implements io.Closer.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithCache supplies the recommendation cache.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelPath:      prediction.DefaultArtifactPath,
		workerCount:    runtime.NumCPU(),
		queueSize:      4096,
		batchThreshold: defaultBatchThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds missing components, starts the batch pool and tries to load
// the model. A missing model is logged and retried lazily; it does not fail
// Start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting collegefinder service...")

	if s.predictor == nil {
		s.predictor = prediction.NewService(
			prediction.FileSource{Path: s.modelPath},
			prediction.WithLogger(s.logger.Named("prediction")),
		)
	}
	if s.engine == nil {
		s.engine = recommend.NewEngine(recommend.WithLogger(s.logger.Named("recommend")))
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithLogger(s.logger))
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}

	s.queue = jobqueue.NewInMemoryQueue[batchJob](jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool[batchJob](s.workerCount, s.queue, s.runBatchJob,
		workerpool.WithName("batch-predict"),
		workerpool.WithLogger(s.logger),
	)
	// Workers outlive the start request; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	if err := s.predictor.EnsureLoaded(ctx); err != nil {
		s.logger.Warn(ctx, "model not loaded, prediction routes will fail until it is available",
			logger.Error(err))
	}
	metrics.UpdateCatalogColleges(s.store.Count(ctx))

	s.started = true
	s.logger.Info(ctx, "collegefinder service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("colleges", s.store.Count(ctx)),
	)
	return nil
}

// Stop drains the batch pool and closes the store and cache.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping collegefinder service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "batch pool did not drain", logger.Error(err))
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error(ctx, "closing store", logger.Error(err))
		}
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error(ctx, "closing cache", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "collegefinder service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// ModelLoaded reports whether the artifact is in memory.
func (s *Service) ModelLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predictor != nil && s.predictor.Loaded()
}

// PredictRank predicts the cutoff rank for the year after req.Year.
func (s *Service) PredictRank(ctx context.Context, req prediction.Request) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.predictor.PredictRank(ctx, req)
}

// PredictRankForBranch forecasts the next two years of one branch.
func (s *Service) PredictRankForBranch(ctx context.Context, req prediction.BranchRequest) ([]prediction.YearPrediction, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.predictor.PredictRankForBranch(ctx, req)
}

// Forecast summarises the two-year forecast of one branch.
func (s *Service) Forecast(ctx context.Context, req prediction.BranchRequest) (prediction.Forecast, error) {
	if err := s.ready(); err != nil {
		return prediction.Forecast{}, err
	}
	return s.predictor.Forecast(ctx, req)
}

// ModelInfo describes the loaded model.
func (s *Service) ModelInfo(ctx context.Context) (prediction.Info, error) {
	if err := s.ready(); err != nil {
		return prediction.Info{}, err
	}
	return s.predictor.ModelInfo(ctx)
}

// Recommend ranks eligible (college, branch) pairs for profile. A nil
// colleges slice means the stored catalog, whose results are cached.
func (s *Service) Recommend(ctx context.Context, colleges []model.College, profile model.StudentProfile) ([]model.Recommendation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if colleges != nil {
		return s.engine.Recommend(ctx, colleges, profile)
	}

	if recs, ok := s.cache.Recommendations(ctx, profile); ok {
		return recs, nil
	}
	stored, err := s.store.Colleges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	recs, err := s.engine.Recommend(ctx, stored, profile)
	if err != nil {
		return nil, err
	}
	s.cache.StoreRecommendations(ctx, profile, recs)
	return recs, nil
}

// Trending aggregates branch demand over colleges, or over the stored
// catalog when colleges is nil. limit <= 0 returns every branch.
func (s *Service) Trending(ctx context.Context, colleges []model.College, limit int) (recommend.TrendSummary, error) {
	if err := s.ready(); err != nil {
		return recommend.TrendSummary{}, err
	}
	if colleges == nil {
		var err error
		if colleges, err = s.store.Colleges(ctx); err != nil {
			return recommend.TrendSummary{}, fmt.Errorf("load catalog: %w", err)
		}
	}
	return recommend.Summarize(s.engine.TrendingBranches(ctx, colleges, limit)), nil
}

// Colleges lists the stored catalog.
func (s *Service) Colleges(ctx context.Context) ([]model.College, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Colleges(ctx)
}

// College returns one stored college.
func (s *Service) College(ctx context.Context, id string) (model.College, error) {
	if err := s.ready(); err != nil {
		return model.College{}, err
	}
	return s.store.College(ctx, id)
}

// UpsertCollege stores c and drops cached recommendations.
func (s *Service) UpsertCollege(ctx context.Context, c model.College) (model.College, error) {
	if err := s.ready(); err != nil {
		return model.College{}, err
	}
	saved, err := s.store.Upsert(ctx, c)
	if err != nil {
		return model.College{}, err
	}
	s.catalogChanged(ctx)
	return saved, nil
}

// DeleteCollege removes a college and drops cached recommendations.
func (s *Service) DeleteCollege(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.catalogChanged(ctx)
	return nil
}

func (s *Service) catalogChanged(ctx context.Context) {
	s.cache.Invalidate(ctx)
	metrics.UpdateCatalogColleges(s.store.Count(ctx))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"modelLoaded": s.predictor != nil && s.predictor.Loaded(),
	}

	if s.started {
		colleges := s.store.Count(ctx)
		queueLen := s.queue.Len(ctx)

		stats["colleges"] = colleges
		stats["queueLength"] = queueLen
		stats["batchJobsHandled"] = s.pool.Handled()

		metrics.UpdateCatalogColleges(colleges)
		metrics.UpdateBatchQueueSize(queueLen)
	}
	return stats
}
