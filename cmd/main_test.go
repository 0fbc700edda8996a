package main

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/collegefinder/internal/config"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const testCatalog = `[
  {"id":"E001","name":"RV College","location":"Bengaluru","type":"Government","branchesOffered":[
    {"name":"CSE","cutoff":{"GM":1500},"historicalData":[{"year":2023,"cutoff":{"GM":1700}},{"year":2024,"cutoff":{"GM":1500}}]}
  ]},
  {"id":"E002","name":"BMS College","branchesOffered":[
    {"name":"Computer Science & Engg","cutoff":{"GM":2500}}
  ]}
]`

func writeFixtures(dir string) (modelPath, catalogPath string) {
	modelPath = filepath.Join(dir, "model.json")
	f, err := os.Create(modelPath)
	convey.So(err, convey.ShouldBeNil)
	a := &prediction.Artifact{
		ModelType: prediction.ModelTypeRBF,
		Version:   "fixture",
		Scaler: prediction.Scaler{
			Mean:  []float64{2024, 0, 5000, 0, 0, math.Log1p(5000)},
			Scale: []float64{1, 1, 1, 1, 1, 1},
		},
		SVM: prediction.SVM{
			SupportVectors: [][]float64{{0, 0, 0, 0, 0, 0}},
			DualCoef:       [][]float64{{0}},
			Intercept:      []float64{4321},
			Gamma:          1,
			Kernel:         "rbf",
		},
		CategoryMap: map[string]int{"GM": 0},
		Stats:       prediction.Stats{MinRank: 1, MaxRank: 200000, Years: []int{2024}},
	}
	convey.So(a.Encode(f), convey.ShouldBeNil)
	convey.So(f.Close(), convey.ShouldBeNil)

	catalogPath = filepath.Join(dir, "colleges.json")
	convey.So(os.WriteFile(catalogPath, []byte(testCatalog), 0o600), convey.ShouldBeNil)
	return modelPath, catalogPath
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return w
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestApplicationWiring(t *testing.T) {
	for _, driver := range []string{config.StoreMemory, config.StoreBadger} {
		convey.Convey("Given the application wired with the "+driver+" store", t, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			dir := t.TempDir()
			modelPath, catalogPath := writeFixtures(dir)

			cfg := config.New()
			cfg.ModelPath = modelPath
			cfg.CatalogPath = catalogPath
			cfg.StoreDriver = driver
			cfg.BadgerDir = filepath.Join(dir, "badger")
			cfg.WorkerCount = 2
			cfg.RateLimitRequests = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)

			log := logger.Nop()
			svc, err := buildService(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop(ctx)
			h := newHandler(ctx, cfg, svc, log)

			convey.Convey("Then health reports the loaded model", func() {
				w := get(h, "/healthz")
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"modelLoaded":true`)
			})

			convey.Convey("Then predictions use the artifact on disk", func() {
				w := post(h, "/v1/predict", `{"year":2024,"category":"GM","currentRank":5000}`)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"predictedRank":4321`)
			})

			convey.Convey("Then the seeded catalog is normalised and served", func() {
				w := get(h, "/v1/colleges/E002")
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "Computer Science and Engineering")
			})

			convey.Convey("Then recommendations run over the stored catalog", func() {
				w := post(h, "/v1/recommendations", `{"profile":{"rank":1000,"category":"GM"}}`)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"total":2`)
			})

			convey.Convey("Then the documentation routes are mounted", func() {
				convey.So(get(h, "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(get(h, "/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			})
		})
	}
}

func TestApplicationWithoutModel(t *testing.T) {
	convey.Convey("Given the application without a model artifact", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.ModelPath = filepath.Join(t.TempDir(), "absent.json")
		cfg.CatalogPath = ""
		log := logger.Nop()

		svc, err := buildService(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)
		h := newHandler(ctx, cfg, svc, log)

		convey.Convey("Then health still answers and predictions are unavailable", func() {
			convey.So(get(h, "/healthz").Code, convey.ShouldEqual, http.StatusOK)
			w := post(h, "/v1/predict", `{"year":2024,"category":"GM","currentRank":5000}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "model_unavailable")
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short-lived context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then the updater returns when it expires", func() {
			convey.So(func() {
				updateSystemMetrics()
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})
	})
}
