package prediction

import (
	"context"
	"math"
	"time"

	"github.com/okian/collegefinder/internal/domain/types"
)

// stableBand is the ±percentage inside which a forecast counts as stable.
const stableBand = 2.0

// Forecast summarises the two-year outlook of one series.
type Forecast struct {
	LatestYear       int              `json:"latestYear"`
	LatestRank       int              `json:"latestRank"`
	Predictions      []YearPrediction `json:"predictions"`
	Trend            types.Trend      `json:"trend"`
	ChangePercentage float64          `json:"changePercentage"`
}

// Forecast runs PredictRankForBranch and classifies the movement between the
// latest observed rank and the second forecast year.
func (s *Service) Forecast(ctx context.Context, req BranchRequest) (Forecast, error) {
	start := time.Now()
	f, err := s.forecast(ctx, req)
	s.observe(ctx, OpForecast, start, err)
	return f, err
}

func (s *Service) forecast(ctx context.Context, req BranchRequest) (Forecast, error) {
	preds, err := s.predictRankForBranch(ctx, req)
	if err != nil {
		return Forecast{}, err
	}
	history := sortedHistory(req.HistoricalRanks)
	latest := history[len(history)-1]

	change := float64(preds[len(preds)-1].PredictedRank-latest.Rank) / float64(latest.Rank) * 100
	change = math.Round(change*100) / 100
	return Forecast{
		LatestYear:       latest.Year,
		LatestRank:       latest.Rank,
		Predictions:      preds,
		Trend:            types.TrendFor(change, stableBand),
		ChangePercentage: change,
	}, nil
}
