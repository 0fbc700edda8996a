package repository

import (
	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/pkg/logger"
)

type options struct {
	seed   []model.College
	logger logger.Logger
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithSeed sets the colleges a fresh store starts with.
func WithSeed(colleges []model.College) Option {
	return func(o *options) {
		o.seed = colleges
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
