// Package repository stores the college catalog.
package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/collegefinder/internal/catalogfix"
	"github.com/okian/collegefinder/internal/domain/model"
)

// Store provides read/write access to the catalog.
type Store interface {
	// Colleges returns every college ordered by id.
	Colleges(ctx context.Context) ([]model.College, error)

	// College returns one college. Returns ErrNotFound if the id is unknown.
	College(ctx context.Context, id string) (model.College, error)

	// Upsert inserts or replaces a college. Branch names are normalised first.
	Upsert(ctx context.Context, c model.College) (model.College, error)

	// Delete removes a college. Returns ErrNotFound if the id is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of colleges.
	Count(ctx context.Context) int
}

// LoadCatalog reads a JSON array of colleges. A missing file yields an empty
// catalog.
func LoadCatalog(path string) ([]model.College, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var colleges []model.College
	if err := json.Unmarshal(data, &colleges); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return colleges, nil
}

// prepare validates c and normalises its branches.
func prepare(c model.College) (model.College, error) {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return model.College{}, fmt.Errorf("%w: id is required", ErrInvalidCollege)
	}
	if strings.TrimSpace(c.Name) == "" {
		return model.College{}, fmt.Errorf("%w: name is required", ErrInvalidCollege)
	}
	fixed, _ := catalogfix.NormalizeCollege(c)
	return fixed, nil
}

func sortByID(cs []model.College) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
