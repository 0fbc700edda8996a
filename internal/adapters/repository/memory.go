package repository

import (
	"context"
	"sync"

	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

// MemoryStore keeps the catalog in a map.
type MemoryStore struct {
	mu       sync.RWMutex
	colleges map[string]model.College
}

// NewMemoryStore creates a store, seeded when WithSeed is given. Invalid seed
// entries are skipped.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	s := &MemoryStore{colleges: make(map[string]model.College, len(o.seed))}
	for _, c := range o.seed {
		p, err := prepare(c)
		if err != nil {
			o.logger.Warn(ctx, "skipping seed college", logger.String("id", c.ID), logger.Error(err))
			continue
		}
		s.colleges[p.ID] = p
	}
	metrics.UpdateCatalogColleges(len(s.colleges))
	return s
}

// Colleges implements Store.
func (s *MemoryStore) Colleges(ctx context.Context) ([]model.College, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.College, 0, len(s.colleges))
	for _, c := range s.colleges {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sortByID(out)
	return out, nil
}

// College implements Store.
func (s *MemoryStore) College(_ context.Context, id string) (model.College, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.colleges[id]
	if !ok {
		return model.College{}, ErrNotFound
	}
	return c, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, c model.College) (model.College, error) {
	p, err := prepare(c)
	if err != nil {
		return model.College{}, err
	}
	s.mu.Lock()
	s.colleges[p.ID] = p
	n := len(s.colleges)
	s.mu.Unlock()
	metrics.UpdateCatalogColleges(n)
	return p, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.colleges[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.colleges, id)
	n := len(s.colleges)
	s.mu.Unlock()
	metrics.UpdateCatalogColleges(n)
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colleges)
}
