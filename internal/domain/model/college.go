// Package model contains domain models passed between layers.
package model

import (
	"sort"

	"github.com/okian/collegefinder/internal/domain/types"
)

// College is a catalog entity. The core only reads it.
type College struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Location        string            `json:"location"`
	Fees            float64           `json:"fees"`
	Type            types.CollegeType `json:"type"`
	BranchesOffered []Branch          `json:"branchesOffered"`
}

// Branch is a programme offered by a college.
//
// Cutoff holds the last accepted rank per category code in the most recent
// round; keys are sparse. Lower rank means more competitive.
type Branch struct {
	Name           string         `json:"name"`
	Cutoff         map[string]int `json:"cutoff"`
	HistoricalData []YearCutoff   `json:"historicalData,omitempty"`
}

// YearCutoff is the cutoff mapping observed in one admission year.
type YearCutoff struct {
	Year   int            `json:"year"`
	Cutoff map[string]int `json:"cutoff"`
}

// Ref is the display slice of a College carried on recommendations.
type Ref struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Location string            `json:"location"`
	Fees     float64           `json:"fees"`
	Type     types.CollegeType `json:"type"`
}

// Ref returns the display slice of c.
func (c College) Ref() Ref {
	return Ref{ID: c.ID, Name: c.Name, Location: c.Location, Fees: c.Fees, Type: c.Type}
}

// SeriesFor returns the (year, rank) points recorded for category in the
// branch history, ordered by year.
func (b Branch) SeriesFor(category string) []YearRank {
	out := make([]YearRank, 0, len(b.HistoricalData))
	for _, h := range b.HistoricalData {
		if r, ok := h.Cutoff[category]; ok && r > 0 {
			out = append(out, YearRank{Year: h.Year, Rank: r})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// YearRank is one point of a cutoff series.
type YearRank struct {
	Year int `json:"year" validate:"required,min=1900,max=3000"`
	Rank int `json:"rank" validate:"required,gt=0"`
}
