// Package cache stores computed recommendation lists.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/model"
)

// Cache stores recommendation lists keyed by student profile. Failures are
// never surfaced to callers: a broken cache behaves like an empty one.
type Cache interface {
	// Recommendations returns the cached list and true on a hit.
	Recommendations(ctx context.Context, p model.StudentProfile) ([]model.Recommendation, bool)
	// StoreRecommendations caches recs for p.
	StoreRecommendations(ctx context.Context, p model.StudentProfile, recs []model.Recommendation)
	// Invalidate drops every cached list.
	Invalidate(ctx context.Context)
	Close() error
}

// ProfileKey is a stable digest of p. Category case and preference order do
// not change the key.
func ProfileKey(p model.StudentProfile) string {
	prefs := make([]string, 0, len(p.PreferredBranch))
	for _, b := range p.PreferredBranch {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			prefs = append(prefs, b)
		}
	}
	sort.Strings(prefs)

	h := sha256.New()
	h.Write([]byte(strconv.Itoa(p.Rank)))
	h.Write([]byte{0})
	h.Write([]byte(category.Canonical(p.Category)))
	for _, b := range prefs {
		h.Write([]byte{0})
		h.Write([]byte(b))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Noop is a Cache that never hits.
type Noop struct{}

// Recommendations implements Cache.
func (Noop) Recommendations(context.Context, model.StudentProfile) ([]model.Recommendation, bool) {
	return nil, false
}

// StoreRecommendations implements Cache.
func (Noop) StoreRecommendations(context.Context, model.StudentProfile, []model.Recommendation) {}

// Invalidate implements Cache.
func (Noop) Invalidate(context.Context) {}

// Close implements Cache.
func (Noop) Close() error { return nil }
