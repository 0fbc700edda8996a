// Command train-model fits the rank model from KCET cutoff sheets.
//
//	train-model [flags] kcet-2022.csv:2022 kcet-2023.csv:2023 ...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/collegefinder/internal/domain/prediction"
	"github.com/okian/collegefinder/internal/trainer"
	"github.com/okian/collegefinder/pkg/logger"
)

func main() {
	var (
		out        = flag.String("out", prediction.DefaultArtifactPath, "Path of the model artifact to write")
		force      = flag.Bool("force", false, "Overwrite an existing artifact")
		epochs     = flag.Int("epochs", trainer.DefaultFitOptions.Epochs, "Gradient descent epochs")
		lambda     = flag.Float64("lambda", trainer.DefaultFitOptions.Lambda, "L2 penalty on the dual coefficients")
		maxSupport = flag.Int("max-support", trainer.DefaultFitOptions.MaxSupport, "Maximum number of support vectors")
		logFormat  = flag.String("log-format", logger.FormatPretty, "Log format: json or pretty")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] path:year ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.InitWithFormat(*logFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("train-model")

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	inputs := make([]trainer.Input, 0, flag.NArg())
	for _, arg := range flag.Args() {
		in, err := trainer.ParseInput(arg)
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(2)
		}
		inputs = append(inputs, in)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := trainer.Run(ctx, trainer.Options{
		Inputs: inputs,
		Out:    *out,
		Force:  *force,
		Fit:    trainer.FitOptions{MaxSupport: *maxSupport, Epochs: *epochs, Lambda: *lambda},
		Log:    log,
	})
	if err != nil {
		log.Error(ctx, "training failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
	log.Info(ctx, "training complete",
		logger.Int("records", res.Records),
		logger.Int("samples", res.Samples),
		logger.Float64("mae", res.MAE),
		logger.Float64("rmse", res.RMSE),
	)
}
