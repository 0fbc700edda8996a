package recommend

import (
	"context"
	"math"
	"sort"

	"github.com/okian/collegefinder/internal/domain/branch"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/types"
)

const (
	trendBand   = 2.0
	summaryTopN = 5
)

// TrendSummary highlights the branches whose cutoffs moved the most.
type TrendSummary struct {
	Branches     []model.TrendingBranch `json:"branches"`
	TopBooming   []string               `json:"topBooming"`
	TopDeclining []string               `json:"topDeclining"`
}

type trendAcc struct {
	name        string
	colleges    map[string]struct{}
	cutoffSum   float64
	cutoffCount int
	deltaSum    float64
	pctSum      float64
	seriesCount int
}

// TrendingBranches aggregates the catalog per canonical branch. It does not
// depend on any student. limit <= 0 returns every branch.
func (e *Engine) TrendingBranches(_ context.Context, colleges []model.College, limit int) []model.TrendingBranch {
	groups := map[string]*trendAcc{}
	for _, c := range colleges {
		collegeKey := c.ID
		if collegeKey == "" {
			collegeKey = c.Name
		}
		for _, b := range c.BranchesOffered {
			name := branch.Canonical(b.Name)
			key := e.matcher.Key(name)
			if key == "" {
				continue
			}
			acc, ok := groups[key]
			if !ok {
				acc = &trendAcc{name: name, colleges: map[string]struct{}{}}
				groups[key] = acc
			}
			acc.colleges[collegeKey] = struct{}{}
			for _, v := range b.Cutoff {
				if v > 0 {
					acc.cutoffSum += float64(v)
					acc.cutoffCount++
				}
			}
			for _, cat := range historyCategories(b) {
				series := b.SeriesFor(cat)
				if len(series) < 2 {
					continue
				}
				first, last := series[0], series[len(series)-1]
				years := last.Year - first.Year
				if years <= 0 {
					continue
				}
				acc.deltaSum += float64(last.Rank-first.Rank) / float64(years)
				acc.pctSum += float64(last.Rank-first.Rank) / float64(first.Rank) * 100
				acc.seriesCount++
			}
		}
	}

	out := make([]model.TrendingBranch, 0, len(groups))
	for _, acc := range groups {
		tb := model.TrendingBranch{Branch: acc.name, CollegeCount: len(acc.colleges), Trend: types.TrendStable}
		if acc.cutoffCount > 0 {
			tb.AverageCutoff = round2(acc.cutoffSum / float64(acc.cutoffCount))
		}
		if acc.seriesCount > 0 {
			tb.AverageCutoffChange = round2(acc.deltaSum / float64(acc.seriesCount))
			tb.ChangePercentage = round2(acc.pctSum / float64(acc.seriesCount))
			tb.Trend = types.TrendFor(tb.ChangePercentage, trendBand)
		}
		out = append(out, tb)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CollegeCount != b.CollegeCount {
			return a.CollegeCount > b.CollegeCount
		}
		if a.AverageCutoffChange != b.AverageCutoffChange {
			return a.AverageCutoffChange < b.AverageCutoffChange
		}
		return a.Branch < b.Branch
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Summarize picks the branches with the largest cutoff movement in each
// direction. Falling cutoffs mean rising demand.
func Summarize(branches []model.TrendingBranch) TrendSummary {
	s := TrendSummary{Branches: branches, TopBooming: []string{}, TopDeclining: []string{}}

	byChange := append([]model.TrendingBranch(nil), branches...)
	sort.SliceStable(byChange, func(i, j int) bool {
		return byChange[i].AverageCutoffChange < byChange[j].AverageCutoffChange
	})
	for _, b := range byChange {
		if b.AverageCutoffChange >= 0 || len(s.TopBooming) == summaryTopN {
			break
		}
		s.TopBooming = append(s.TopBooming, b.Branch)
	}
	for i := len(byChange) - 1; i >= 0 && len(s.TopDeclining) < summaryTopN; i-- {
		if byChange[i].AverageCutoffChange <= 0 {
			break
		}
		s.TopDeclining = append(s.TopDeclining, byChange[i].Branch)
	}
	return s
}

// historyCategories lists every category seen in b's history, sorted.
func historyCategories(b model.Branch) []string {
	set := map[string]struct{}{}
	for _, h := range b.HistoricalData {
		for k := range h.Cutoff {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
