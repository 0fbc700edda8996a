package trainer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/pkg/logger"
)

// Input is one cutoff sheet and the admission year it covers.
type Input struct {
	Path string
	Year int
}

// ParseInput reads a "path:year" argument. The last colon separates the year.
func ParseInput(arg string) (Input, error) {
	i := strings.LastIndex(arg, ":")
	if i <= 0 || i == len(arg)-1 {
		return Input{}, fmt.Errorf("%w: %q is not path:year", ErrInvalidInput, arg)
	}
	year, err := strconv.Atoi(arg[i+1:])
	if err != nil || year < 1900 {
		return Input{}, fmt.Errorf("%w: bad year in %q", ErrInvalidInput, arg)
	}
	return Input{Path: arg[:i], Year: year}, nil
}

// Options drives Run.
type Options struct {
	Inputs []Input
	Out    string
	Force  bool
	Fit    FitOptions
	Log    logger.Logger
	// Now stamps the artifact. Defaults to time.Now.
	Now    func() time.Time
}

// Result summarises a finished run.
type Result struct {
	Artifact *prediction.Artifact
	Records  int
	Samples  int
	MAE      float64
	RMSE     float64
}

// Run parses every input, fits the model and writes the artifact to
// opts.Out. An existing artifact is left alone unless opts.Force is set;
// that check happens before any parsing.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if len(opts.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrInvalidInput)
	}
	if !opts.Force && opts.Out != "" {
		if _, err := os.Stat(opts.Out); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrArtifactExists, opts.Out)
		}
	}

	var records []model.CutoffRecord
	for _, in := range opts.Inputs {
		f, err := os.Open(in.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", in.Path, err)
		}
		recs, st, err := ParseCSV(f, in.Year, nil)
		f.Close()
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "parsed cutoff sheet",
			logger.String("path", in.Path),
			logger.Int("year", in.Year),
			logger.Int("colleges", st.Colleges),
			logger.Int("rows", st.Rows),
			logger.Int("records", len(recs)),
		)
		records = append(records, recs...)
	}

	samples, sst := BuildSamples(records, category.Default())
	log.Info(ctx, "built training samples",
		logger.Int("samples", len(samples)),
		logger.Int("groups", sst.Groups),
		logger.Int("unknown_category", sst.UnknownCategory),
	)

	start := time.Now()
	fit, err := Fit(ctx, samples, opts.Fit)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "model fitted",
		logger.Int("support_vectors", len(fit.SVM.SupportVectors)),
		logger.Float64("gamma", fit.SVM.Gamma),
		logger.Float64("mae", fit.MAE),
		logger.Float64("rmse", fit.RMSE),
		logger.Any("elapsed", time.Since(start).String()),
	)

	art, err := BuildArtifact(fit, records, len(samples), now())
	if err != nil {
		return nil, err
	}
	if opts.Out != "" {
		if err := WriteArtifact(opts.Out, art, opts.Force); err != nil {
			return nil, err
		}
		log.Info(ctx, "artifact written", logger.String("path", opts.Out), logger.String("version", art.Version))
	}
	return &Result{Artifact: art, Records: len(records), Samples: len(samples), MAE: fit.MAE, RMSE: fit.RMSE}, nil
}
