package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/prediction"
)

// BuildArtifact wraps a fit with the category map and training stats. The
// result is validated exactly as the serving path would load it.
func BuildArtifact(fit *Fitted, records []model.CutoffRecord, samples int, now time.Time) (*prediction.Artifact, error) {
	a := &prediction.Artifact{
		ModelType:   prediction.ModelTypeRBF,
		Version:     uuid.NewString(),
		Scaler:      fit.Scaler,
		SVM:         fit.SVM,
		CategoryMap: category.Default().Map(),
		Stats:       recordStats(records, samples),
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func recordStats(records []model.CutoffRecord, samples int) prediction.Stats {
	st := prediction.Stats{TotalRecords: len(records), TrainingSamples: samples}
	if len(records) == 0 {
		return st
	}
	years := map[int]struct{}{}
	colleges := map[string]struct{}{}
	branches := map[string]struct{}{}
	cats := map[string]struct{}{}
	st.MinRank = records[0].Rank
	var sum float64
	for _, r := range records {
		if r.Rank < st.MinRank {
			st.MinRank = r.Rank
		}
		if r.Rank > st.MaxRank {
			st.MaxRank = r.Rank
		}
		sum += float64(r.Rank)
		years[r.Year] = struct{}{}
		colleges[r.CollegeCode] = struct{}{}
		branches[r.Branch] = struct{}{}
		cats[category.Canonical(r.Category)] = struct{}{}
	}
	st.MeanRank = sum / float64(len(records))
	for y := range years {
		st.Years = append(st.Years, y)
	}
	sort.Ints(st.Years)
	st.NumColleges = len(colleges)
	st.NumBranches = len(branches)
	st.NumCategories = len(cats)
	return st
}

// WriteArtifact writes a to path through a temp file in the same directory.
// An existing file is kept unless force is set.
func WriteArtifact(path string, a *prediction.Artifact, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrArtifactExists, path)
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := a.Encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}
