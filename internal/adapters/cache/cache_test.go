package cache_test

import (
	"context"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/collegefinder/internal/adapters/cache"
	"github.com/okian/collegefinder/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProfileKey(t *testing.T) {
	Convey("Given equivalent profiles", t, func() {
		a := model.StudentProfile{Rank: 1200, Category: "gm", PreferredBranch: []string{"CSE", " Civil Engineering"}}
		b := model.StudentProfile{Rank: 1200, Category: "GM ", PreferredBranch: []string{"civil engineering", "cse"}}

		Convey("Then they share a key", func() {
			So(cache.ProfileKey(a), ShouldEqual, cache.ProfileKey(b))
			So(len(cache.ProfileKey(a)), ShouldEqual, 64)
		})

		Convey("Then a different rank changes the key", func() {
			b.Rank = 1201
			So(cache.ProfileKey(a), ShouldNotEqual, cache.ProfileKey(b))
		})
	})
}

func TestNoop(t *testing.T) {
	Convey("Given the noop cache", t, func() {
		c := cache.Noop{}
		p := model.StudentProfile{Rank: 1, Category: "GM"}
		c.StoreRecommendations(context.Background(), p, []model.Recommendation{{Cutoff: 5}})
		c.Invalidate(context.Background())

		Convey("Then it never hits", func() {
			_, ok := c.Recommendations(context.Background(), p)
			So(ok, ShouldBeFalse)
			So(c.Close(), ShouldBeNil)
		})
	})
}

func TestRedisCacheUnavailable(t *testing.T) {
	Convey("Given a redis cache pointing at a closed port", t, func() {
		c, err := cache.NewRedisCache("redis://127.0.0.1:1/0?dial_timeout=50ms&max_retries=-1",
			cache.WithBreaker(3, time.Minute))
		So(err, ShouldBeNil)
		Reset(func() { _ = c.Close() })
		ctx := context.Background()
		p := model.StudentProfile{Rank: 10, Category: "GM"}

		Convey("When it is used repeatedly", func() {
			for i := 0; i < 4; i++ {
				_, ok := c.Recommendations(ctx, p)
				So(ok, ShouldBeFalse)
				c.StoreRecommendations(ctx, p, nil)
			}

			Convey("Then failures read as misses and the breaker opens", func() {
				So(c.State(), ShouldEqual, gobreaker.StateOpen)
			})
		})
	})

	Convey("Given a malformed URL", t, func() {
		_, err := cache.NewRedisCache("not-a-url://x")

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
