package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

const collegeKeyPrefix = "college/"

// BadgerStore persists colleges as JSON under college/<id> keys.
type BadgerStore struct {
	db     *badger.DB
	logger logger.Logger
}

// OpenBadger opens (or creates) a store at dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// NewBadgerStore wraps db. When the database holds no colleges the seed is
// written.
func NewBadgerStore(ctx context.Context, db *badger.DB, opts ...Option) (*BadgerStore, error) {
	o := buildOptions(opts)
	s := &BadgerStore{db: db, logger: o.logger}

	n := s.Count(ctx)
	if n == 0 && len(o.seed) > 0 {
		for _, c := range o.seed {
			if _, err := s.Upsert(ctx, c); err != nil {
				if errors.Is(err, ErrInvalidCollege) {
					s.logger.Warn(ctx, "skipping seed college", logger.String("id", c.ID), logger.Error(err))
					continue
				}
				return nil, err
			}
		}
		n = s.Count(ctx)
		s.logger.Info(ctx, "catalog seeded", logger.Int("colleges", n))
	}
	metrics.UpdateCatalogColleges(n)
	return s, nil
}

func collegeKey(id string) []byte { return []byte(collegeKeyPrefix + id) }

// Colleges implements Store. Keys iterate in id order.
func (s *BadgerStore) Colleges(ctx context.Context) ([]model.College, error) {
	var out []model.College
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(collegeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var c model.College
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return out, nil
}

// College implements Store.
func (s *BadgerStore) College(_ context.Context, id string) (model.College, error) {
	var c model.College
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(collegeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get college: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		return model.College{}, err
	}
	return c, nil
}

// Upsert implements Store.
func (s *BadgerStore) Upsert(ctx context.Context, c model.College) (model.College, error) {
	p, err := prepare(c)
	if err != nil {
		return model.College{}, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return model.College{}, fmt.Errorf("marshal college: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(collegeKey(p.ID), data)
	}); err != nil {
		return model.College{}, fmt.Errorf("set college: %w", err)
	}
	metrics.UpdateCatalogColleges(s.Count(ctx))
	return p, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(collegeKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(collegeKey(id))
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete college: %w", err)
	}
	metrics.UpdateCatalogColleges(s.Count(ctx))
	return nil
}

// Count implements Store. Only keys are read.
func (s *BadgerStore) Count(_ context.Context) int {
	n := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(collegeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
