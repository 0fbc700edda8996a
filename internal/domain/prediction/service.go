// Package prediction evaluates the trained RBF kernel regression that
// forecasts next-year cutoff ranks.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/collegefinder/internal/domain/features"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/types"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

// Operation names used in logs and metrics.
const (
	OpPredict  = "predict"
	OpBranch   = "predict_branch"
	OpBatch    = "batch_predict"
	OpForecast = "forecast"
)

// Request is a single-step prediction input. PreviousRank 0 means absent.
type Request struct {
	Year         int    `json:"year" validate:"required,min=1900,max=3000"`
	Category     string `json:"category" validate:"required"`
	CurrentRank  int    `json:"currentRank" validate:"required,gt=0"`
	PreviousRank int    `json:"previousRank,omitempty" validate:"omitempty,gt=0"`
}

// BranchRequest asks for the next two years of one college+branch+category.
type BranchRequest struct {
	CollegeCode     string           `json:"collegeCode"`
	Branch          string           `json:"branch"`
	Category        string           `json:"category" validate:"required"`
	HistoricalRanks []model.YearRank `json:"historicalRanks" validate:"dive"`
}

// YearPrediction is one forecast year.
type YearPrediction struct {
	Year          int              `json:"year"`
	PredictedRank int              `json:"predictedRank"`
	Confidence    types.Confidence `json:"confidence"`
}

// BatchResult pairs a prediction with the request that produced it.
type BatchResult struct {
	PredictedRank int     `json:"predictedRank"`
	Input         Request `json:"input"`
}

// RankRange is the clip interval of the model.
type RankRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Info describes the loaded model.
type Info struct {
	ModelType       string    `json:"modelType"`
	Version         string    `json:"version,omitempty"`
	TrainingYears   []int     `json:"trainingYears"`
	TotalRecords    int       `json:"totalRecords"`
	TrainingSamples int       `json:"trainingSamples"`
	RankRange       RankRange `json:"rankRange"`
	Categories      []string  `json:"categories"`
	SupportVectors  int       `json:"supportVectors"`
	Timestamp       string    `json:"timestamp,omitempty"`
}

// Service owns the process-wide model. The artifact is loaded lazily by
// EnsureLoaded and never changes afterwards.
type Service struct {
	mu      sync.Mutex
	source  Source
	current atomic.Pointer[compiled]
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service reading from source.
func NewService(source Source, opts ...Option) *Service {
	s := &Service{source: source, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureLoaded loads and validates the artifact once. Concurrent callers
// wait for the first load; a failed load is retried on the next call.
func (s *Service) EnsureLoaded(ctx context.Context) error {
	if s.current.Load() != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Load() != nil {
		return nil
	}
	if s.source == nil {
		metrics.RecordModelLoad(false)
		return fmt.Errorf("%w: no artifact source configured", ErrModelNotFound)
	}

	art, err := s.source.Load(ctx)
	if err != nil {
		metrics.RecordModelLoad(false)
		s.logger.Error(ctx, "model artifact unavailable", logger.Error(err))
		if errors.Is(err, ErrModelNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrModelNotFound, err)
	}
	c, err := compile(art)
	if err != nil {
		metrics.RecordModelLoad(false)
		s.logger.Error(ctx, "model artifact rejected", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrModelNotFound, err)
	}

	s.current.Store(c)
	metrics.RecordModelLoad(true)
	metrics.UpdateModelState(true, len(c.svs))
	s.logger.Info(ctx, "model artifact loaded",
		logger.String("version", art.Version),
		logger.Int("supportVectors", len(c.svs)),
		logger.Int("categories", c.enc.Len()),
		logger.Int("minRank", art.Stats.MinRank),
		logger.Int("maxRank", art.Stats.MaxRank),
	)
	return nil
}

// Loaded reports whether a model is in memory.
func (s *Service) Loaded() bool {
	return s.current.Load() != nil
}

func (s *Service) model(ctx context.Context) (*compiled, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.current.Load(), nil
}

// PredictRank predicts the cutoff rank following req.Year. The result is
// always inside the model's [min_rank, max_rank].
func (s *Service) PredictRank(ctx context.Context, req Request) (int, error) {
	start := time.Now()
	r, err := s.predictRank(ctx, req)
	s.observe(ctx, OpPredict, start, err)
	return r, err
}

func (s *Service) predictRank(ctx context.Context, req Request) (int, error) {
	m, err := s.model(ctx)
	if err != nil {
		return 0, err
	}
	if req.PreviousRank < 0 {
		return 0, fmt.Errorf("%w: previous rank must not be negative", ErrInvalidInput)
	}
	v, err := features.Build(m.enc, features.Input{
		Year:         req.Year,
		Category:     req.Category,
		CurrentRank:  req.CurrentRank,
		PreviousRank: req.PreviousRank,
	})
	if err != nil {
		if errors.Is(err, features.ErrInvalidRank) {
			return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return 0, err
	}
	return m.rank(v)
}

// PredictRankForBranch predicts latestYear+1 and latestYear+2. Both years are
// evaluated from the same latest (rank, previous rank) pair; the first
// prediction is not fed into the second.
func (s *Service) PredictRankForBranch(ctx context.Context, req BranchRequest) ([]YearPrediction, error) {
	start := time.Now()
	out, err := s.predictRankForBranch(ctx, req)
	s.observe(ctx, OpBranch, start, err)
	return out, err
}

func (s *Service) predictRankForBranch(ctx context.Context, req BranchRequest) ([]YearPrediction, error) {
	if len(req.HistoricalRanks) == 0 {
		return nil, ErrEmptyHistory
	}
	history := sortedHistory(req.HistoricalRanks)
	for _, h := range history {
		if h.Rank <= 0 {
			return nil, fmt.Errorf("%w: rank for %d must be positive", ErrInvalidInput, h.Year)
		}
	}

	latest := history[len(history)-1]
	previous := 0
	if len(history) > 1 {
		previous = history[len(history)-2].Rank
	}
	confidence := types.ConfidenceFor(len(history))

	out := make([]YearPrediction, 0, 2)
	for step := 1; step <= 2; step++ {
		rank, err := s.predictRank(ctx, Request{
			Year:         latest.Year,
			Category:     req.Category,
			CurrentRank:  latest.Rank,
			PreviousRank: previous,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, YearPrediction{Year: latest.Year + step, PredictedRank: rank, Confidence: confidence})
	}
	return out, nil
}

// BatchPredict applies PredictRank to every request in order. Any failure
// fails the whole batch.
func (s *Service) BatchPredict(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	start := time.Now()
	out := make([]BatchResult, len(reqs))
	var err error
	for i, req := range reqs {
		var rank int
		if rank, err = s.predictRank(ctx, req); err != nil {
			err = fmt.Errorf("batch item %d: %w", i, err)
			break
		}
		out[i] = BatchResult{PredictedRank: rank, Input: req}
	}
	s.observe(ctx, OpBatch, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ModelInfo describes the loaded artifact.
func (s *Service) ModelInfo(ctx context.Context) (Info, error) {
	m, err := s.model(ctx)
	if err != nil {
		return Info{}, err
	}
	a := m.art
	years := append([]int(nil), a.Stats.Years...)
	sort.Ints(years)
	return Info{
		ModelType:       a.ModelType,
		Version:         a.Version,
		TrainingYears:   years,
		TotalRecords:    a.Stats.TotalRecords,
		TrainingSamples: a.Stats.TrainingSamples,
		RankRange:       RankRange{Min: a.Stats.MinRank, Max: a.Stats.MaxRank},
		Categories:      m.enc.Codes(),
		SupportVectors:  len(m.svs),
		Timestamp:       a.Timestamp,
	}, nil
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	if err != nil {
		metrics.RecordPredictionError(op, errorKind(err))
		s.logger.Debug(ctx, "prediction failed", logger.String("operation", op), logger.Error(err))
		return
	}
	metrics.RecordPrediction(op, float64(time.Since(start).Microseconds())/1000)
}

func sortedHistory(in []model.YearRank) []model.YearRank {
	out := append([]model.YearRank(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
