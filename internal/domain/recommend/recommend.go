// Package recommend ranks (college, branch) pairs for a student and
// aggregates catalog-wide branch trends.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/collegefinder/internal/domain/branch"
	"github.com/okian/collegefinder/internal/domain/dedupe"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/scoring"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

// ErrInvalidProfile is returned for a non-positive rank or an empty category.
var ErrInvalidProfile = errors.New("invalid student profile")

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScorer replaces the eligibility scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithMatcher replaces the branch matcher.
func WithMatcher(m *branch.Matcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.matcher = m
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	scorer  scoring.Scorer
	matcher *branch.Matcher
	logger  logger.Logger
}

// NewEngine creates an engine with the default curve scorer and matcher.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scorer:  scoring.NewCurveScorer(),
		matcher: branch.NewMatcher(nil),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend scores every (college, branch) pair that has a usable cutoff for
// the student's category and returns them best first. Pairs without the
// category, with a non-positive cutoff, or outside the preferred branches are
// skipped. Duplicate (college, canonical branch) pairs keep their best entry.
func (e *Engine) Recommend(ctx context.Context, colleges []model.College, profile model.StudentProfile) ([]model.Recommendation, error) {
	if profile.Rank <= 0 || strings.TrimSpace(profile.Category) == "" {
		return nil, fmt.Errorf("%w: rank=%d category=%q", ErrInvalidProfile, profile.Rank, profile.Category)
	}
	start := time.Now()

	var (
		cands    []candidate
		skipped  int
		filtered int
	)
	for ci, c := range colleges {
		for _, b := range c.BranchesOffered {
			key, cutoff, ok := lookupCutoff(b.Cutoff, profile.Category)
			if !ok || cutoff <= 0 {
				skipped++
				continue
			}
			if len(profile.PreferredBranch) > 0 && !e.matcher.MatchAny(b.Name, profile.PreferredBranch) {
				filtered++
				continue
			}

			// Score against the last accepted cutoff; the projection only
			// drives the reported adjusted cutoff and admission chance.
			res, err := e.scorer.Score(ctx, scoring.Input{Rank: profile.Rank, Cutoff: cutoff})
			if err != nil {
				return nil, fmt.Errorf("score %s/%s: %w", c.ID, b.Name, err)
			}
			adjusted := adjustCutoff(cutoff, b.SeriesFor(key))
			cands = append(cands, candidate{college: ci, rec: model.Recommendation{
				College:          c.Ref(),
				Branch:           b,
				CanonicalBranch:  branch.Canonical(b.Name),
				Cutoff:           cutoff,
				EligibilityScore: res.Score,
				AdjustedCutoff:   adjusted,
				AdmissionChance:  scoring.AdmissionChance(profile.Rank, adjusted),
			}})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return better(cands[i].rec, cands[j].rec) })
	out := e.dedupe(ctx, cands)

	metrics.RecordRecommendation(len(out), float64(time.Since(start).Microseconds())/1000)
	e.logger.Debug(ctx, "recommendations computed",
		logger.Int("colleges", len(colleges)),
		logger.Int("results", len(out)),
		logger.Int("skipped", skipped),
		logger.Int("filtered", filtered),
	)
	return out, nil
}

// lookupCutoff finds category in cutoffs, first exactly and then ignoring
// case and surrounding space. It returns the matching map key.
func lookupCutoff(cutoffs map[string]int, category string) (string, int, bool) {
	if v, ok := cutoffs[category]; ok {
		return category, v, true
	}
	want := strings.TrimSpace(category)
	// Iterate in key order so a catalog with "gm" and "GM" resolves the same
	// way every time.
	keys := make([]string, 0, len(cutoffs))
	for k := range cutoffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), want) {
			return k, cutoffs[k], true
		}
	}
	return "", 0, false
}

// adjustCutoff projects cutoff one year ahead using the average yearly change
// of the series. Fewer than two points leaves it unchanged.
func adjustCutoff(cutoff int, series []model.YearRank) int {
	if len(series) < 2 {
		return cutoff
	}
	first, last := series[0], series[len(series)-1]
	years := last.Year - first.Year
	if years <= 0 {
		return cutoff
	}
	perYear := float64(last.Rank-first.Rank) / float64(years)
	adjusted := math.Round(float64(cutoff) + perYear)
	if adjusted < 1 {
		return 1
	}
	return int(adjusted)
}

// candidate is a scored pair and the position of its college in the input.
type candidate struct {
	college int
	rec     model.Recommendation
}

// better orders by score, then last accepted cutoff, college name, branch
// name and college id.
func better(a, b model.Recommendation) bool {
	if a.EligibilityScore != b.EligibilityScore {
		return a.EligibilityScore > b.EligibilityScore
	}
	if a.Cutoff != b.Cutoff {
		return a.Cutoff < b.Cutoff
	}
	if a.College.Name != b.College.Name {
		return a.College.Name < b.College.Name
	}
	if a.Branch.Name != b.Branch.Name {
		return a.Branch.Name < b.Branch.Name
	}
	return a.College.ID < b.College.ID
}

// dedupe keeps the first entry per (input college, canonical branch). Keying
// on the input position keeps colleges without an id apart.
func (e *Engine) dedupe(ctx context.Context, cands []candidate) []model.Recommendation {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	out := make([]model.Recommendation, 0, len(cands))
	for _, c := range cands {
		if seen.SeenAndRecord(ctx, strconv.Itoa(c.college)+"|"+e.matcher.Key(c.rec.CanonicalBranch)) {
			continue
		}
		out = append(out, c.rec)
	}
	return out
}
