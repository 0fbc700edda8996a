// Package scoring turns a student's rank and a branch cutoff into an
// eligibility score and an admission-chance bucket.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/collegefinder/internal/domain/types"
)

// Default curve parameters.
const (
	defaultMaxScore      = 100
	defaultCutoffScore   = 80
	defaultDecay         = 4.0
	highChanceMarginPct  = 20.0
	percentageMultiplier = 100
)

// ErrInvalidRank is returned when the rank or the cutoff is not positive.
var ErrInvalidRank = errors.New("rank and cutoff must be positive")

// Option applies a configuration option to the CurveScorer.
type Option func(*CurveScorer)

// WithCutoffScore sets the score awarded when rank equals cutoff. It must lie
// in (0, max score].
func WithCutoffScore(score float64) Option {
	return func(s *CurveScorer) {
		if score > 0 && score <= s.maxScore {
			s.cutoffScore = score
		}
	}
}

// WithDecay sets how fast the score falls once the rank is past the cutoff.
func WithDecay(rate float64) Option {
	return func(s *CurveScorer) {
		if rate > 0 && !math.IsInf(rate, 0) {
			s.decay = rate
		}
	}
}

// Input is one (student rank, branch cutoff) pair.
type Input struct {
	Rank   int
	Cutoff int
}

// Result is the computed score for an input.
type Result struct {
	Score  float64
	Chance types.AdmissionChance
}

// Scorer computes an eligibility score.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// CurveScorer scores with a piecewise curve of r = rank/cutoff:
// linear from max score at r=0 to the cutoff score at r=1, then exponential
// decay. The curve is continuous and strictly decreasing in r.
type CurveScorer struct {
	maxScore    float64
	cutoffScore float64
	decay       float64
}

// NewCurveScorer creates a scorer with the default curve.
func NewCurveScorer(opts ...Option) *CurveScorer {
	s := &CurveScorer{
		maxScore:    defaultMaxScore,
		cutoffScore: defaultCutoffScore,
		decay:       defaultDecay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the score for in. Results are not rounded.
func (s *CurveScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	if in.Rank <= 0 || in.Cutoff <= 0 {
		return Result{}, fmt.Errorf("%w: rank=%d cutoff=%d", ErrInvalidRank, in.Rank, in.Cutoff)
	}
	return Result{
		Score:  s.curve(float64(in.Rank) / float64(in.Cutoff)),
		Chance: AdmissionChance(in.Rank, in.Cutoff),
	}, nil
}

func (s *CurveScorer) curve(r float64) float64 {
	if r <= 1 {
		return s.maxScore - (s.maxScore-s.cutoffScore)*r
	}
	return s.cutoffScore * math.Exp(-s.decay*(r-1))
}

// AdmissionChance buckets the margin between rank and cutoff: high when the
// rank beats the cutoff by more than 20%, medium for any smaller lead, low
// otherwise.
func AdmissionChance(rank, cutoff int) types.AdmissionChance {
	if cutoff <= 0 {
		return types.ChanceLow
	}
	margin := float64(cutoff-rank) / float64(cutoff) * percentageMultiplier
	switch {
	case margin > highChanceMarginPct:
		return types.ChanceHigh
	case margin > 0:
		return types.ChanceMedium
	default:
		return types.ChanceLow
	}
}
