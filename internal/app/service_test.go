package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/okian/collegefinder/internal/adapters/cache"
	repository "github.com/okian/collegefinder/internal/adapters/repository"
	service "github.com/okian/collegefinder/internal/app"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// flatArtifact predicts intercept for every GM input.
func flatArtifact(intercept float64) *prediction.Artifact {
	return &prediction.Artifact{
		ModelType: prediction.ModelTypeRBF,
		Scaler: prediction.Scaler{
			Mean:  []float64{2024, 0, 5000, 0, 0, math.Log1p(5000)},
			Scale: []float64{1, 1, 1, 1, 1, 1},
		},
		SVM: prediction.SVM{
			SupportVectors: [][]float64{{0, 0, 0, 0, 0, 0}},
			DualCoef:       [][]float64{{0}},
			Intercept:      []float64{intercept},
			Gamma:          1,
			Kernel:         "rbf",
		},
		CategoryMap: map[string]int{"GM": 0, "2AG": 1},
		Stats:       prediction.Stats{MinRank: 1, MaxRank: 200000, Years: []int{2023, 2024}},
	}
}

func catalog() []model.College {
	return []model.College{
		{ID: "E001", Name: "RV College", BranchesOffered: []model.Branch{
			{Name: "CSE", Cutoff: map[string]int{"GM": 1500}},
			{Name: "Civil Engineering", Cutoff: map[string]int{"GM": 30000}},
		}},
		{ID: "E002", Name: "BMS College", BranchesOffered: []model.Branch{
			{Name: "Computer Science and Engineering", Cutoff: map[string]int{"GM": 2500}},
		}},
	}
}

// countingCache is an in-memory cache.Cache that records its use.
type countingCache struct {
	mu            sync.Mutex
	data          map[string][]model.Recommendation
	hits, stores  int
	invalidations int
}

func newCountingCache() *countingCache {
	return &countingCache{data: map[string][]model.Recommendation{}}
}

func (c *countingCache) Recommendations(_ context.Context, p model.StudentProfile) ([]model.Recommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.data[cache.ProfileKey(p)]
	if ok {
		c.hits++
	}
	return recs, ok
}

func (c *countingCache) StoreRecommendations(_ context.Context, p model.StudentProfile, recs []model.Recommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	c.data[cache.ProfileKey(p)] = recs
}

func (c *countingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.data = map[string][]model.Recommendation{}
}

func (c *countingCache) Close() error { return nil }

func newStarted(ctx context.Context, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithPredictor(prediction.NewService(prediction.Static(flatArtifact(777)))),
		service.WithStore(repository.NewMemoryStore(ctx, repository.WithSeed(catalog()))),
		service.WithWorkerCount(4),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When it is used before Start", func() {
			svc := service.New(service.WithLogger(logger.Nop()))
			_, err := svc.PredictRank(ctx, prediction.Request{Year: 2024, Category: "GM", CurrentRank: 10})

			Convey("Then ErrNotStarted is returned", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When starting it", func() {
			svc := newStarted(ctx)
			defer svc.Stop(ctx)

			Convey("Then the model is loaded eagerly", func() {
				So(svc.ModelLoaded(), ShouldBeTrue)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["colleges"], ShouldEqual, 2)
				So(stats["modelLoaded"], ShouldEqual, true)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When the model file is missing", func() {
			svc := service.New(
				service.WithLogger(logger.Nop()),
				service.WithModelPath(t.TempDir()+"/missing.json"),
			)
			err := svc.Start(ctx)
			defer svc.Stop(ctx)

			Convey("Then Start still succeeds and predictions report the missing model", func() {
				So(err, ShouldBeNil)
				So(svc.ModelLoaded(), ShouldBeFalse)
				_, err := svc.ModelInfo(ctx)
				So(errors.Is(err, prediction.ErrModelNotFound), ShouldBeTrue)
			})

			Convey("And recommendations keep working", func() {
				recs, err := svc.Recommend(ctx, catalog(), model.StudentProfile{Rank: 1000, Category: "GM"})
				So(err, ShouldBeNil)
				So(len(recs), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When stopping it", func() {
			svc := newStarted(ctx)
			svc.Stop(ctx)

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.Colleges(ctx)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_BatchPredict(t *testing.T) {
	Convey("Given a started service that fans out batches above two items", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := newStarted(ctx, service.WithBatchThreshold(2), service.WithQueueSize(8))
		defer svc.Stop(ctx)

		reqs := make([]prediction.Request, 50)
		for i := range reqs {
			reqs[i] = prediction.Request{Year: 2024, Category: "GM", CurrentRank: 100 + i}
		}

		Convey("When every request is valid", func() {
			results, err := svc.BatchPredict(ctx, reqs)

			Convey("Then results come back in request order", func() {
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, len(reqs))
				for i, r := range results {
					So(r.Input.CurrentRank, ShouldEqual, 100+i)
					So(r.PredictedRank, ShouldEqual, 777)
				}
			})
		})

		Convey("When one request has an unknown category", func() {
			reqs[30].Category = "XX"
			results, err := svc.BatchPredict(ctx, reqs)

			Convey("Then the whole batch fails naming that item", func() {
				So(results, ShouldBeNil)
				So(errors.Is(err, prediction.ErrUnknownCategory), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "batch item 30")
			})
		})

		Convey("When the batch is small", func() {
			results, err := svc.BatchPredict(ctx, reqs[:2])

			Convey("Then it runs inline with the same semantics", func() {
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, 2)
				So(results[1].Input.CurrentRank, ShouldEqual, 101)
			})
		})

		Convey("When the pool has been shut down", func() {
			svc.Stop(ctx)
			So(svc.Start(ctx), ShouldBeNil)
			results, err := svc.BatchPredict(ctx, reqs)

			Convey("Then a restarted service still answers", func() {
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, len(reqs))
			})
		})
	})
}

func TestService_Predictions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newStarted(ctx)
		defer svc.Stop(ctx)

		Convey("Then single, branch and forecast predictions delegate to the model", func() {
			rank, err := svc.PredictRank(ctx, prediction.Request{Year: 2024, Category: "GM", CurrentRank: 5000})
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 777)

			req := prediction.BranchRequest{Category: "GM", HistoricalRanks: []model.YearRank{{Year: 2023, Rank: 900}, {Year: 2024, Rank: 800}}}
			years, err := svc.PredictRankForBranch(ctx, req)
			So(err, ShouldBeNil)
			So(years[0].Year, ShouldEqual, 2025)
			So(years[1].Year, ShouldEqual, 2026)

			fc, err := svc.Forecast(ctx, req)
			So(err, ShouldBeNil)
			So(fc.LatestRank, ShouldEqual, 800)

			info, err := svc.ModelInfo(ctx)
			So(err, ShouldBeNil)
			So(info.TrainingYears, ShouldResemble, []int{2023, 2024})
		})
	})
}

func TestService_RecommendAndCatalog(t *testing.T) {
	Convey("Given a started service with a cache", t, func() {
		ctx := context.Background()
		c := newCountingCache()
		svc := newStarted(ctx, service.WithCache(c))
		defer svc.Stop(ctx)
		profile := model.StudentProfile{Rank: 1000, Category: "GM"}

		Convey("When recommending from the stored catalog twice", func() {
			first, err1 := svc.Recommend(ctx, nil, profile)
			second, err2 := svc.Recommend(ctx, nil, profile)

			Convey("Then the second answer comes from the cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(c.stores, ShouldEqual, 1)
				So(c.hits, ShouldEqual, 1)
			})
		})

		Convey("When the caller supplies colleges", func() {
			recs, err := svc.Recommend(ctx, catalog()[1:], profile)

			Convey("Then the cache is bypassed", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
				So(recs[0].College.ID, ShouldEqual, "E002")
				So(c.stores, ShouldEqual, 0)
			})
		})

		Convey("When the catalog changes", func() {
			_, err := svc.UpsertCollege(ctx, model.College{ID: "E003", Name: "PES", BranchesOffered: []model.Branch{
				{Name: "CSE", Cutoff: map[string]int{"GM": 1200}},
			}})
			So(err, ShouldBeNil)
			So(svc.DeleteCollege(ctx, "E001"), ShouldBeNil)

			Convey("Then cached answers are invalidated and the store reflects it", func() {
				So(c.invalidations, ShouldEqual, 2)
				all, err := svc.Colleges(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
				got, err := svc.College(ctx, "E003")
				So(err, ShouldBeNil)
				So(got.BranchesOffered[0].Name, ShouldEqual, "Computer Science and Engineering")
			})
		})

		Convey("When deleting an unknown college", func() {
			err := svc.DeleteCollege(ctx, "nope")

			Convey("Then ErrNotFound is returned and the cache is kept", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(c.invalidations, ShouldEqual, 0)
			})
		})

		Convey("When asking for trending branches", func() {
			summary, err := svc.Trending(ctx, nil, 0)

			Convey("Then branches are grouped by canonical name", func() {
				So(err, ShouldBeNil)
				So(summary.Branches[0].Branch, ShouldEqual, "Computer Science and Engineering")
				So(summary.Branches[0].CollegeCount, ShouldEqual, 2)
			})
		})
	})
}
