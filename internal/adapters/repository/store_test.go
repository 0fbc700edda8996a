package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/collegefinder/internal/adapters/repository"
	"github.com/okian/collegefinder/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func seed() []model.College {
	return []model.College{
		{ID: "E002", Name: "B College", BranchesOffered: []model.Branch{{Name: "CSE", Cutoff: map[string]int{"GM": 4000}}}},
		{ID: "E001", Name: "A College", BranchesOffered: []model.Branch{{Name: "Civil Engineering", Cutoff: map[string]int{"GM": 30000}}}},
		{ID: "", Name: "No Id"},
	}
}

func exerciseStore(ctx context.Context, s repository.Store) {
	Convey("Then the seed is loaded without invalid entries, ordered by id", func() {
		So(s.Count(ctx), ShouldEqual, 2)
		all, err := s.Colleges(ctx)
		So(err, ShouldBeNil)
		So(all[0].ID, ShouldEqual, "E001")
		So(all[1].ID, ShouldEqual, "E002")
	})

	Convey("Then seeded branch names are canonical", func() {
		c, err := s.College(ctx, "E002")
		So(err, ShouldBeNil)
		So(c.BranchesOffered[0].Name, ShouldEqual, "Computer Science and Engineering")
	})

	Convey("When upserting a college", func() {
		saved, err := s.Upsert(ctx, model.College{ID: "E003", Name: "C College", BranchesOffered: []model.Branch{{Name: "ECE"}}})

		Convey("Then it is stored normalised", func() {
			So(err, ShouldBeNil)
			So(saved.BranchesOffered[0].Name, ShouldEqual, "Electronics and Communication Engineering")
			got, err := s.College(ctx, "E003")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "C College")
			So(s.Count(ctx), ShouldEqual, 3)
		})
	})

	Convey("When upserting without a name", func() {
		_, err := s.Upsert(ctx, model.College{ID: "E009"})

		Convey("Then ErrInvalidCollege is returned", func() {
			So(errors.Is(err, repository.ErrInvalidCollege), ShouldBeTrue)
		})
	})

	Convey("When deleting", func() {
		So(s.Delete(ctx, "E001"), ShouldBeNil)

		Convey("Then the college is gone", func() {
			_, err := s.College(ctx, "E001")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.Delete(ctx, "E001"), repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a seeded memory store", t, func() {
		ctx := context.Background()
		exerciseStore(ctx, repository.NewMemoryStore(ctx, repository.WithSeed(seed())))
	})
}

func TestBadgerStore(t *testing.T) {
	Convey("Given a seeded in-memory badger store", t, func() {
		ctx := context.Background()
		db, err := repository.OpenBadger("")
		So(err, ShouldBeNil)
		store, err := repository.NewBadgerStore(ctx, db, repository.WithSeed(seed()))
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		exerciseStore(ctx, store)
	})

	Convey("Given an on-disk badger store that already has data", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		db, err := repository.OpenBadger(dir)
		So(err, ShouldBeNil)
		first, err := repository.NewBadgerStore(ctx, db, repository.WithSeed(seed()))
		So(err, ShouldBeNil)
		So(first.Delete(ctx, "E002"), ShouldBeNil)
		So(first.Close(), ShouldBeNil)

		db, err = repository.OpenBadger(dir)
		So(err, ShouldBeNil)
		second, err := repository.NewBadgerStore(ctx, db, repository.WithSeed(seed()))
		So(err, ShouldBeNil)
		Reset(func() { _ = second.Close() })

		Convey("Then reopening does not reseed", func() {
			So(second.Count(ctx), ShouldEqual, 1)
		})
	})
}

func TestLoadCatalog(t *testing.T) {
	Convey("Given catalog files", t, func() {
		dir := t.TempDir()

		Convey("Then a missing file is an empty catalog", func() {
			cs, err := repository.LoadCatalog(filepath.Join(dir, "none.json"))
			So(err, ShouldBeNil)
			So(cs, ShouldBeEmpty)
		})

		Convey("Then a valid file is decoded", func() {
			path := filepath.Join(dir, "c.json")
			So(os.WriteFile(path, []byte(`[{"id":"E1","name":"X","branchesOffered":[]}]`), 0o600), ShouldBeNil)
			cs, err := repository.LoadCatalog(path)
			So(err, ShouldBeNil)
			So(len(cs), ShouldEqual, 1)
		})

		Convey("Then malformed JSON is an error", func() {
			path := filepath.Join(dir, "bad.json")
			So(os.WriteFile(path, []byte(`{`), 0o600), ShouldBeNil)
			_, err := repository.LoadCatalog(path)
			So(err, ShouldNotBeNil)
		})
	})
}
