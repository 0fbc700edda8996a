package catalogfix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/pkg/logger"
)

// FileOptions controls FixFile.
type FileOptions struct {
	DryRun bool
	// Now stamps the backup file name. Defaults to time.Now.
	Now    func() time.Time
	Log    logger.Logger
}

// ReadCatalog decodes a JSON array of colleges.
func ReadCatalog(path string) ([]model.College, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var colleges []model.College
	if err := json.Unmarshal(data, &colleges); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return colleges, nil
}

// WriteCatalog writes colleges as indented JSON via a temp file and rename.
func WriteCatalog(path string, colleges []model.College) error {
	data, err := json.MarshalIndent(colleges, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// FixFile normalises the catalog stored at path. Unless DryRun is set and if
// anything changed, the original is first copied to path.backup-<unix ms>.
func FixFile(ctx context.Context, path string, opts FileOptions) (Report, string, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return Report{}, "", fmt.Errorf("read catalog: %w", err)
	}
	var colleges []model.College
	if err := json.Unmarshal(original, &colleges); err != nil {
		return Report{}, "", fmt.Errorf("decode catalog %s: %w", path, err)
	}

	fixed, rep := Fix(colleges)
	for _, c := range rep.Changes {
		opts.Log.Info(ctx, "branch renamed",
			logger.String("college", c.CollegeID),
			logger.String("from", c.From),
			logger.String("to", c.To),
		)
	}
	if opts.DryRun || !rep.Changed() {
		return rep, "", nil
	}

	backup := fmt.Sprintf("%s.backup-%d", path, opts.Now().UnixMilli())
	if err := os.WriteFile(backup, original, 0o644); err != nil { //nolint:gosec // catalog files are not secret
		return rep, "", fmt.Errorf("write backup: %w", err)
	}
	if err := WriteCatalog(path, fixed); err != nil {
		return rep, backup, err
	}
	return rep, backup, nil
}
