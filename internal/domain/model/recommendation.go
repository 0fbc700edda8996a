package model

import "github.com/okian/collegefinder/internal/domain/types"

// StudentProfile is the query input of the recommendation engine.
type StudentProfile struct {
	Rank            int      `json:"rank" validate:"required,gt=0"`
	Category        string   `json:"category" validate:"required"`
	PreferredBranch []string `json:"preferredBranch,omitempty"`
}

// Recommendation is one ranked (college, branch) pair. Computed per request.
type Recommendation struct {
	College          Ref                   `json:"college"`
	Branch           Branch                `json:"branch"`
	CanonicalBranch  string                `json:"canonicalBranch"`
	Cutoff           int                   `json:"cutoff"`
	EligibilityScore float64               `json:"eligibilityScore"`
	AdjustedCutoff   int                   `json:"adjustedCutoff"`
	AdmissionChance  types.AdmissionChance `json:"admissionChance"`
}

// TrendingBranch is the catalog-wide aggregate for one canonical branch.
type TrendingBranch struct {
	Branch              string      `json:"branch"`
	CollegeCount        int         `json:"collegeCount"`
	AverageCutoff       float64     `json:"averageCutoff"`
	AverageCutoffChange float64     `json:"averageCutoffChange"`
	ChangePercentage    float64     `json:"changePercentage"`
	Trend               types.Trend `json:"trend"`
}
