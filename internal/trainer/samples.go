package trainer

import (
	"sort"

	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/features"
	"github.com/okian/collegefinder/internal/domain/model"
)

// Sample is one (features, next-year rank) pair.
type Sample struct {
	X features.Vector
	Y float64
}

// SampleStats describes the records behind a sample set.
type SampleStats struct {
	Groups          int
	UnknownCategory int
}

type groupKey struct {
	college, branch, category string
}

// BuildSamples groups records by (college, branch, category), orders each
// group by year and pairs every point with the next year's rank. The previous
// point, when present, feeds the change features. A year seen twice in one
// group keeps its smaller rank.
func BuildSamples(records []model.CutoffRecord, enc *category.Encoder) ([]Sample, SampleStats) {
	var stats SampleStats
	groups := make(map[groupKey]map[int]int)
	indices := make(map[string]int)
	for _, r := range records {
		cat := category.Canonical(r.Category)
		if _, ok := indices[cat]; !ok {
			i, err := enc.Encode(cat)
			if err != nil {
				stats.UnknownCategory++
				continue
			}
			indices[cat] = i
		}
		k := groupKey{r.CollegeCode, r.Branch, cat}
		years := groups[k]
		if years == nil {
			years = make(map[int]int)
			groups[k] = years
		}
		if prev, ok := years[r.Year]; !ok || r.Rank < prev {
			years[r.Year] = r.Rank
		}
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.college != b.college {
			return a.college < b.college
		}
		if a.branch != b.branch {
			return a.branch < b.branch
		}
		return a.category < b.category
	})

	var out []Sample
	for _, k := range keys {
		years := make([]int, 0, len(groups[k]))
		for y := range groups[k] {
			years = append(years, y)
		}
		if len(years) < 2 {
			continue
		}
		stats.Groups++
		sort.Ints(years)
		idx := indices[k.category]
		for i := 0; i+1 < len(years); i++ {
			cur := groups[k][years[i]]
			prev := 0
			if i > 0 {
				prev = groups[k][years[i-1]]
			}
			out = append(out, Sample{
				X: features.Derive(years[i], idx, cur, prev),
				Y: float64(groups[k][years[i+1]]),
			})
		}
	}
	return out, stats
}
