package api

import (
	"net/http"

	"github.com/okian/collegefinder/internal/domain/prediction"
)

type predictResponse struct {
	PredictedRank int `json:"predictedRank"`
	Year          int `json:"year"`
}

type batchRequest struct {
	Requests []prediction.Request `json:"requests" validate:"required,min=1,dive"`
}

// handlePredict handles POST /v1/predict.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req prediction.Request
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rank, err := s.deps.PredictRank(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{PredictedRank: rank, Year: req.Year + 1})
}

// handlePredictBranch handles POST /v1/predict/branch.
func (s *Server) handlePredictBranch(w http.ResponseWriter, r *http.Request) {
	var req prediction.BranchRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.PredictRankForBranch(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePredictBatch handles POST /v1/predict/batch.
func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Requests) > s.maxBatchSize {
		s.fail(w, r, badRequest("batch of %d exceeds the limit of %d", len(req.Requests), s.maxBatchSize))
		return
	}
	out, err := s.deps.BatchPredict(r.Context(), req.Requests)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleForecast handles POST /v1/predict/forecast.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req prediction.BranchRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.Forecast(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleModelInfo handles GET /v1/model.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.ModelInfo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
