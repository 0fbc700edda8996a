// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/internal/domain/recommend"
	"github.com/okian/collegefinder/pkg/logger"
)

const (
	defaultMaxRecommendations = 50
	defaultMaxBatchSize       = 500
	defaultTrendingLimit      = 6
	maxBodyBytes              = 8 << 20
)

// Predictor is the model side of the API.
type Predictor interface {
	PredictRank(ctx context.Context, req prediction.Request) (int, error)
	PredictRankForBranch(ctx context.Context, req prediction.BranchRequest) ([]prediction.YearPrediction, error)
	BatchPredict(ctx context.Context, reqs []prediction.Request) ([]prediction.BatchResult, error)
	Forecast(ctx context.Context, req prediction.BranchRequest) (prediction.Forecast, error)
	ModelInfo(ctx context.Context) (prediction.Info, error)
	ModelLoaded() bool
}

// Recommender ranks colleges for a student. A nil colleges slice means the
// stored catalog.
type Recommender interface {
	Recommend(ctx context.Context, colleges []model.College, profile model.StudentProfile) ([]model.Recommendation, error)
	Trending(ctx context.Context, colleges []model.College, limit int) (recommend.TrendSummary, error)
}

// Catalog manages stored colleges.
type Catalog interface {
	Colleges(ctx context.Context) ([]model.College, error)
	College(ctx context.Context, id string) (model.College, error)
	UpsertCollege(ctx context.Context, c model.College) (model.College, error)
	DeleteCollege(ctx context.Context, id string) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Predictor
	Recommender
	Catalog
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	maxRecommendations int
	maxBatchSize       int
	corsOrigins        []string
	rateLimit          int
	rateWindow         time.Duration

	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxRecommendations caps the recommendations returned per request.
func WithMaxRecommendations(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRecommendations = n
		}
	}
}

// WithMaxBatchSize caps the number of requests in one batch prediction.
func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithCORSOrigins sets the allowed origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithRateLimit allows requests per window per client IP. requests <= 0
// disables limiting.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = requests
		if window > 0 {
			s.rateWindow = window
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:               deps,
		stats:              stats,
		maxRecommendations: defaultMaxRecommendations,
		maxBatchSize:       defaultMaxBatchSize,
		corsOrigins:        []string{"*"},
		rateWindow:         time.Minute,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.Handle("GET /metrics", metricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))

	mux.HandleFunc("POST /v1/predict", MetricsMiddleware(s.handlePredict, "predict"))
	mux.HandleFunc("POST /v1/predict/branch", MetricsMiddleware(s.handlePredictBranch, "predict_branch"))
	mux.HandleFunc("POST /v1/predict/batch", MetricsMiddleware(s.handlePredictBatch, "predict_batch"))
	mux.HandleFunc("POST /v1/predict/forecast", MetricsMiddleware(s.handleForecast, "forecast"))
	mux.HandleFunc("GET /v1/model", MetricsMiddleware(s.handleModelInfo, "model"))

	mux.HandleFunc("POST /v1/recommendations", MetricsMiddleware(s.handleRecommendations, "recommendations"))
	mux.HandleFunc("GET /v1/trending", MetricsMiddleware(s.handleTrending, "trending"))

	mux.HandleFunc("GET /v1/colleges", MetricsMiddleware(s.handleListColleges, "colleges"))
	mux.HandleFunc("GET /v1/colleges/{id}", MetricsMiddleware(s.handleGetCollege, "college"))
	mux.HandleFunc("PUT /v1/colleges/{id}", MetricsMiddleware(s.handlePutCollege, "college"))
	mux.HandleFunc("DELETE /v1/colleges/{id}", MetricsMiddleware(s.handleDeleteCollege, "college"))
}

// Handler wraps next with the request id, logging, CORS and rate limiting
// middleware, outermost first.
func (s *Server) Handler(next http.Handler) http.Handler {
	return Chain(next,
		RequestID,
		RequestLogger(s.logger),
		CORS(s.corsOrigins),
		RateLimit(s.rateLimit, s.rateWindow),
	)
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: logger.RequestID(r.Context())})
}

// fail maps err to a status and error body. Server faults are logged and
// their message is not exposed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
		msg = "internal error"
	}
	writeError(w, r, status, code, msg)
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return validateStruct(dst)
}
