// Package types contains small enumerations shared across layers.
package types

import "strings"

// Confidence labels a multi-year prediction by how much history backed it.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceFor maps the number of historical points to a confidence label:
// high for three or more points, low for exactly one, medium otherwise.
func ConfidenceFor(points int) Confidence {
	switch {
	case points >= 3:
		return ConfidenceHigh
	case points == 1:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// AdmissionChance is a coarse bucket of how likely a student is admitted.
type AdmissionChance string

const (
	ChanceHigh   AdmissionChance = "high"
	ChanceMedium AdmissionChance = "medium"
	ChanceLow    AdmissionChance = "low"
)

// CollegeType is the ownership type of a college. Display-only.
type CollegeType string

const (
	CollegeGovernment CollegeType = "Government"
	CollegePrivate    CollegeType = "Private"
	CollegeAutonomous CollegeType = "Autonomous"
)

// ParseCollegeType resolves a free-text type case-insensitively.
// Unknown values are returned unchanged.
func ParseCollegeType(s string) CollegeType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "government", "govt":
		return CollegeGovernment
	case "private":
		return CollegePrivate
	case "autonomous":
		return CollegeAutonomous
	default:
		return CollegeType(s)
	}
}

// Trend is the direction a cutoff rank moves over time.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrendFor classifies a percentage change; anything within ±threshold is stable.
func TrendFor(changePercent, threshold float64) Trend {
	switch {
	case changePercent > threshold:
		return TrendIncreasing
	case changePercent < -threshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
