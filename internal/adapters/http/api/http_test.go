package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/collegefinder/internal/adapters/http/api"
	repository "github.com/okian/collegefinder/internal/adapters/repository"
	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/internal/domain/recommend"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	loaded  bool
	rank    int
	predErr error

	recs        []model.Recommendation
	gotColleges []model.College
	trendLimit  int

	colleges map[string]model.College
}

func newMock() *mockDependencies {
	return &mockDependencies{
		loaded:   true,
		rank:     1234,
		colleges: map[string]model.College{"E001": {ID: "E001", Name: "RV College"}},
	}
}

func (m *mockDependencies) PredictRank(_ context.Context, _ prediction.Request) (int, error) {
	return m.rank, m.predErr
}

func (m *mockDependencies) PredictRankForBranch(_ context.Context, req prediction.BranchRequest) ([]prediction.YearPrediction, error) {
	if m.predErr != nil {
		return nil, m.predErr
	}
	if len(req.HistoricalRanks) == 0 {
		return nil, prediction.ErrEmptyHistory
	}
	last := req.HistoricalRanks[len(req.HistoricalRanks)-1].Year
	return []prediction.YearPrediction{{Year: last + 1, PredictedRank: m.rank}, {Year: last + 2, PredictedRank: m.rank}}, nil
}

func (m *mockDependencies) BatchPredict(_ context.Context, reqs []prediction.Request) ([]prediction.BatchResult, error) {
	if m.predErr != nil {
		return nil, m.predErr
	}
	out := make([]prediction.BatchResult, len(reqs))
	for i, r := range reqs {
		out[i] = prediction.BatchResult{PredictedRank: m.rank, Input: r}
	}
	return out, nil
}

func (m *mockDependencies) Forecast(_ context.Context, _ prediction.BranchRequest) (prediction.Forecast, error) {
	return prediction.Forecast{LatestYear: 2024, LatestRank: 1000, Trend: "stable"}, m.predErr
}

func (m *mockDependencies) ModelInfo(context.Context) (prediction.Info, error) {
	if m.predErr != nil {
		return prediction.Info{}, m.predErr
	}
	return prediction.Info{ModelType: prediction.ModelTypeRBF, SupportVectors: 3}, nil
}

func (m *mockDependencies) ModelLoaded() bool { return m.loaded }

func (m *mockDependencies) Recommend(_ context.Context, colleges []model.College, p model.StudentProfile) ([]model.Recommendation, error) {
	m.gotColleges = colleges
	if p.Category == "bad" {
		return nil, recommend.ErrInvalidProfile
	}
	return m.recs, nil
}

func (m *mockDependencies) Trending(_ context.Context, _ []model.College, limit int) (recommend.TrendSummary, error) {
	m.trendLimit = limit
	return recommend.TrendSummary{Branches: []model.TrendingBranch{{Branch: "Computer Science and Engineering", CollegeCount: 2}}}, nil
}

func (m *mockDependencies) Colleges(context.Context) ([]model.College, error) {
	out := make([]model.College, 0, len(m.colleges))
	for _, c := range m.colleges {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockDependencies) College(_ context.Context, id string) (model.College, error) {
	c, ok := m.colleges[id]
	if !ok {
		return model.College{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *mockDependencies) UpsertCollege(_ context.Context, c model.College) (model.College, error) {
	if c.Name == "" {
		return model.College{}, repository.ErrInvalidCollege
	}
	m.colleges[c.ID] = c
	return c, nil
}

func (m *mockDependencies) DeleteCollege(_ context.Context, id string) error {
	if _, ok := m.colleges[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.colleges, id)
	return nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} { return m.stats }

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func newHandler(deps api.Dependencies, opts ...api.Option) http.Handler {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return server.Handler(mux)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var e errorBody
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func TestHealthAndOps(t *testing.T) {
	Convey("Given the API handler", t, func() {
		deps := newMock()
		h := newHandler(deps)

		Convey("When calling /healthz", func() {
			deps.loaded = false
			w := do(h, http.MethodGet, "/healthz", "")

			Convey("Then it is healthy and reports the model state", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
				So(w.Body.String(), ShouldContainSubstring, `"modelLoaded":false`)
			})
		})

		Convey("When calling /stats and /metrics", func() {
			stats := do(h, http.MethodGet, "/stats", "")
			metrics := do(h, http.MethodGet, "/metrics", "")

			Convey("Then both respond", func() {
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"started":true`)
				So(metrics.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the method is not routed", func() {
			w := do(h, http.MethodPost, "/healthz", "")

			Convey("Then the mux rejects it", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestPredictRoutes(t *testing.T) {
	Convey("Given the API handler", t, func() {
		deps := newMock()
		h := newHandler(deps, api.WithMaxBatchSize(2))

		Convey("When predicting a valid request", func() {
			w := do(h, http.MethodPost, "/v1/predict", `{"year":2024,"category":"GM","currentRank":5000}`)

			Convey("Then the next year and the rank are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"predictedRank":1234`)
				So(w.Body.String(), ShouldContainSubstring, `"year":2025`)
			})
		})

		Convey("When a required field is missing", func() {
			w := do(h, http.MethodPost, "/v1/predict", `{"year":2024,"category":"GM"}`)

			Convey("Then it is a bad request naming the JSON field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				e := decodeError(w)
				So(e.Code, ShouldEqual, "bad_request")
				So(e.Message, ShouldContainSubstring, "currentRank")
				So(e.RequestID, ShouldNotBeEmpty)
				So(e.RequestID, ShouldEqual, w.Header().Get(api.RequestIDHeader))
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/v1/predict", `{`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the category is unknown", func() {
			deps.predErr = fmt.Errorf("build features: %w", &category.UnknownError{Code: "XX"})
			w := do(h, http.MethodPost, "/v1/predict", `{"year":2024,"category":"XX","currentRank":5000}`)

			Convey("Then unknown_category is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "unknown_category")
			})
		})

		Convey("When the model is missing", func() {
			deps.predErr = prediction.ErrModelNotFound
			w := do(h, http.MethodGet, "/v1/model", "")

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w).Code, ShouldEqual, "model_unavailable")
			})
		})

		Convey("When branch history is empty", func() {
			w := do(h, http.MethodPost, "/v1/predict/branch", `{"category":"GM","historicalRanks":[]}`)

			Convey("Then empty_history is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "empty_history")
			})
		})

		Convey("When branch history is given", func() {
			w := do(h, http.MethodPost, "/v1/predict/branch",
				`{"collegeCode":"E001","branch":"CSE","category":"GM","historicalRanks":[{"year":2023,"rank":1200},{"year":2024,"rank":1100}]}`)

			Convey("Then two years are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []prediction.YearPrediction
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].Year, ShouldEqual, 2025)
			})
		})

		Convey("When forecasting", func() {
			w := do(h, http.MethodPost, "/v1/predict/forecast",
				`{"category":"GM","historicalRanks":[{"year":2024,"rank":1000}]}`)

			Convey("Then the summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"latestYear":2024`)
			})
		})

		Convey("When a batch is within the limit", func() {
			w := do(h, http.MethodPost, "/v1/predict/batch",
				`{"requests":[{"year":2024,"category":"GM","currentRank":10},{"year":2024,"category":"GM","currentRank":20}]}`)

			Convey("Then results keep request order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []prediction.BatchResult
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out[1].Input.CurrentRank, ShouldEqual, 20)
			})
		})

		Convey("When a batch exceeds the limit", func() {
			item := `{"year":2024,"category":"GM","currentRank":10}`
			w := do(h, http.MethodPost, "/v1/predict/batch", `{"requests":[`+item+`,`+item+`,`+item+`]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Message, ShouldContainSubstring, "exceeds")
			})
		})
	})
}

func TestRecommendationRoutes(t *testing.T) {
	Convey("Given the API handler limited to two recommendations", t, func() {
		deps := newMock()
		deps.recs = make([]model.Recommendation, 5)
		h := newHandler(deps, api.WithMaxRecommendations(2))

		Convey("When colleges are omitted", func() {
			w := do(h, http.MethodPost, "/v1/recommendations", `{"profile":{"rank":1000,"category":"GM"}}`)

			Convey("Then the stored catalog is used and the list is truncated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotColleges, ShouldBeNil)
				var out struct {
					Recommendations  []model.Recommendation `json:"recommendations"`
					Total            int                    `json:"total"`
					TrendingBranches []model.TrendingBranch `json:"trendingBranches"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out.Recommendations), ShouldEqual, 2)
				So(out.Total, ShouldEqual, 5)
				So(len(out.TrendingBranches), ShouldEqual, 1)
				So(deps.trendLimit, ShouldEqual, 6)
			})
		})

		Convey("When colleges are supplied", func() {
			w := do(h, http.MethodPost, "/v1/recommendations",
				`{"colleges":[{"id":"X1","name":"X"}],"profile":{"rank":1000,"category":"GM"}}`)

			Convey("Then they are passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(deps.gotColleges), ShouldEqual, 1)
				So(deps.gotColleges[0].ID, ShouldEqual, "X1")
			})
		})

		Convey("When the profile rank is missing", func() {
			w := do(h, http.MethodPost, "/v1/recommendations", `{"profile":{"category":"GM"}}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Message, ShouldContainSubstring, "profile.rank")
			})
		})

		Convey("When the engine rejects the profile", func() {
			w := do(h, http.MethodPost, "/v1/recommendations", `{"profile":{"rank":10,"category":"bad"}}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When asking for trending branches", func() {
			ok := do(h, http.MethodGet, "/v1/trending?limit=3", "")
			bad := do(h, http.MethodGet, "/v1/trending?limit=abc", "")

			Convey("Then the limit is honoured and validated", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(deps.trendLimit, ShouldEqual, 3)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestCollegeRoutes(t *testing.T) {
	Convey("Given the API handler", t, func() {
		deps := newMock()
		h := newHandler(deps)

		Convey("When reading colleges", func() {
			list := do(h, http.MethodGet, "/v1/colleges", "")
			one := do(h, http.MethodGet, "/v1/colleges/E001", "")
			missing := do(h, http.MethodGet, "/v1/colleges/E999", "")

			Convey("Then existing ones are returned and unknown ids are 404", func() {
				So(list.Code, ShouldEqual, http.StatusOK)
				So(one.Code, ShouldEqual, http.StatusOK)
				So(one.Body.String(), ShouldContainSubstring, "RV College")
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(missing).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When putting a college", func() {
			w := do(h, http.MethodPut, "/v1/colleges/E002", `{"id":"ignored","name":"BMS"}`)

			Convey("Then the path id is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.colleges["E002"].Name, ShouldEqual, "BMS")
				_, ok := deps.colleges["ignored"]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When putting an invalid college", func() {
			w := do(h, http.MethodPut, "/v1/colleges/E002", `{}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When deleting", func() {
			first := do(h, http.MethodDelete, "/v1/colleges/E001", "")
			second := do(h, http.MethodDelete, "/v1/colleges/E001", "")

			Convey("Then the first succeeds and the second is 404", func() {
				So(first.Code, ShouldEqual, http.StatusNoContent)
				So(second.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the API handler", t, func() {
		deps := newMock()

		Convey("When the caller sends a request id", func() {
			h := newHandler(deps)
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is echoed back", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})

		Convey("When a browser sends a preflight request", func() {
			h := newHandler(deps, api.WithCORSOrigins([]string{"https://app.example"}))
			req := httptest.NewRequest(http.MethodOptions, "/v1/predict", http.NoBody)
			req.Header.Set("Origin", "https://app.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the origin is allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://app.example")
			})
		})

		Convey("When a client exceeds the rate limit", func() {
			h := newHandler(deps, api.WithRateLimit(2, time.Minute))
			codes := make([]int, 3)
			for i := range codes {
				codes[i] = do(h, http.MethodGet, "/healthz", "").Code
			}

			Convey("Then the extra request is rejected with a JSON error", func() {
				So(codes[0], ShouldEqual, http.StatusOK)
				So(codes[1], ShouldEqual, http.StatusOK)
				So(codes[2], ShouldEqual, http.StatusTooManyRequests)
				w := do(h, http.MethodGet, "/healthz", "")
				So(decodeError(w).Code, ShouldEqual, "rate_limited")
			})
		})
	})
}
