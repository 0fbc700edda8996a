package api

import (
	"net/http"
	"strconv"

	"github.com/okian/collegefinder/internal/domain/model"
)

type recommendRequest struct {
	// Colleges is optional; when omitted the stored catalog is used.
	Colleges []model.College     `json:"colleges,omitempty"`
	Profile  model.StudentProfile `json:"profile" validate:"required"`
}

type recommendResponse struct {
	Recommendations  []model.Recommendation `json:"recommendations"`
	Total            int                    `json:"total"`
	TrendingBranches []model.TrendingBranch `json:"trendingBranches"`
}

// handleRecommendations handles POST /v1/recommendations.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()

	recs, err := s.deps.Recommend(ctx, req.Colleges, req.Profile)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	trend, err := s.deps.Trending(ctx, req.Colleges, defaultTrendingLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	total := len(recs)
	if total > s.maxRecommendations {
		recs = recs[:s.maxRecommendations]
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	branches := trend.Branches
	if branches == nil {
		branches = []model.TrendingBranch{}
	}
	writeJSON(w, http.StatusOK, recommendResponse{Recommendations: recs, Total: total, TrendingBranches: branches})
}

// handleTrending handles GET /v1/trending?limit=N over the stored catalog.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := defaultTrendingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, badRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	summary, err := s.deps.Trending(r.Context(), nil, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
