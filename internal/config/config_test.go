package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/collegefinder/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ModelPath, convey.ShouldEqual, "data/svm-prediction-model.json")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxRecommendations, convey.ShouldEqual, 50)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = " " },
			"empty model path": func(c *config.Config) { c.ModelPath = "" },
			"zero max recs":    func(c *config.Config) { c.MaxRecommendations = 0 },
			"zero batch":       func(c *config.Config) { c.MaxBatchSize = -1 },
			"unknown driver":   func(c *config.Config) { c.StoreDriver = "postgres" },
			"badger no dir":    func(c *config.Config) { c.StoreDriver = config.StoreBadger; c.BadgerDir = "" },
			"rate no window":   func(c *config.Config) { c.RateLimitWindowSeconds = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a comma-separated origin list", t, func() {
		cfg := config.New()
		cfg.CORSAllowedOrigins = "https://a.example, https://b.example,,"

		convey.Convey("Then it is split and trimmed", func() {
			convey.So(cfg.Origins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
		})
	})
}
