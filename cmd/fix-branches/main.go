// Command fix-branches rewrites catalog branch names into canonical form.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/okian/collegefinder/internal/catalogfix"
	"github.com/okian/collegefinder/pkg/logger"
)

const defaultCatalog = "data/colleges.json"

func main() {
	var (
		path    = flag.String("catalog", defaultCatalog, "Catalog JSON file to rewrite")
		dryRun  = flag.Bool("dry-run", false, "Report changes without writing")
		verbose = flag.Bool("verbose", false, "Log every renamed branch")
	)
	flag.Parse()

	if err := logger.InitWithFormat(logger.FormatPretty); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if !*verbose {
		_ = logger.SetLevelString("warn")
	}
	log := logger.Named("fix-branches")
	ctx := context.Background()

	rep, backup, err := catalogfix.FixFile(ctx, *path, catalogfix.FileOptions{DryRun: *dryRun, Log: log})
	if err != nil {
		log.Error(ctx, "fix failed", logger.String("catalog", *path), logger.Error(err))
		os.Exit(1)
	}
	_ = logger.SetLevelString("info")
	log.Info(ctx, "catalog checked",
		logger.String("catalog", *path),
		logger.Int("renamed", rep.Renamed),
		logger.Int("merged", rep.Merged),
		logger.Any("dry_run", *dryRun),
		logger.String("backup", backup),
	)
}
