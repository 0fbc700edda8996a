// Package features derives the fixed-length numeric vector fed to the rank model.
package features

import (
	"errors"
	"math"
)

// Size is the number of features in a Vector.
const Size = 6

// Positions of each feature in a Vector.
const (
	IdxYear = iota
	IdxCategory
	IdxRank
	IdxRankChange
	IdxRankTrend
	IdxLogRank
)

// ErrInvalidRank is returned when the current rank is not positive.
var ErrInvalidRank = errors.New("current rank must be positive")

// Vector is [year, categoryIndex, currentRank, rankChange, rankTrend, logRank].
type Vector [Size]float64

// Encoder resolves a category code to its index.
type Encoder interface {
	Encode(code string) (int, error)
}

// Input is one observation. PreviousRank 0 means "no previous observation".
type Input struct {
	Year         int
	Category     string
	CurrentRank  int
	PreviousRank int
}

// Build encodes the category with enc and derives the feature vector.
func Build(enc Encoder, in Input) (Vector, error) {
	if in.CurrentRank <= 0 {
		return Vector{}, ErrInvalidRank
	}
	idx, err := enc.Encode(in.Category)
	if err != nil {
		return Vector{}, err
	}
	return Derive(in.Year, idx, in.CurrentRank, in.PreviousRank), nil
}

// Derive computes the vector from an already-encoded category.
func Derive(year, categoryIndex, currentRank, previousRank int) Vector {
	change := 0.0
	if previousRank > 0 {
		change = float64(currentRank - previousRank)
	}
	trend := 0.0
	if currentRank != 0 {
		trend = change / float64(currentRank)
	}
	return Vector{
		float64(year),
		float64(categoryIndex),
		float64(currentRank),
		change,
		trend,
		math.Log1p(float64(currentRank)),
	}
}
