package trainer

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/collegefinder/internal/domain/features"
	"github.com/okian/collegefinder/internal/domain/prediction"
)

// FitOptions tunes the kernel regression fit.
type FitOptions struct {
	// MaxSupport caps the number of support vectors.
	MaxSupport int
	// Epochs of full-batch gradient descent.
	Epochs int
	// Lambda is the L2 penalty on the dual coefficients.
	Lambda float64
}

// DefaultFitOptions are used for zero fields.
var DefaultFitOptions = FitOptions{MaxSupport: 300, Epochs: 200, Lambda: 1e-3}

func (o FitOptions) withDefaults() FitOptions {
	if o.MaxSupport <= 0 {
		o.MaxSupport = DefaultFitOptions.MaxSupport
	}
	if o.Epochs <= 0 {
		o.Epochs = DefaultFitOptions.Epochs
	}
	if o.Lambda < 0 {
		o.Lambda = DefaultFitOptions.Lambda
	}
	return o
}

// Fitted is a trained model in artifact form plus its training error.
type Fitted struct {
	Scaler prediction.Scaler
	SVM    prediction.SVM
	MAE    float64
	RMSE   float64
}

// Fit trains an RBF kernel regression on samples.
//
// Features are z-scored, a deterministic stride picks the support set, gamma
// follows the "scale" heuristic and the dual coefficients minimise squared
// error with an L2 penalty by gradient descent with step 1/L, L bounding the
// Hessian. Labels are standardised for the fit and mapped back afterwards.
func Fit(ctx context.Context, samples []Sample, opts FitOptions) (*Fitted, error) {
	n := len(samples)
	if n == 0 {
		return nil, ErrNoSamples
	}
	opts = opts.withDefaults()

	mean, scale := standardise(samples)
	xs := make([]features.Vector, n)
	for i, s := range samples {
		for f := range s.X {
			xs[i][f] = (s.X[f] - mean[f]) / scale[f]
		}
	}
	gamma := gammaScale(xs)

	m := opts.MaxSupport
	if m > n {
		m = n
	}
	support := make([]features.Vector, m)
	for j := range support {
		support[j] = xs[j*n/m]
	}

	var yMean, yVar float64
	for _, s := range samples {
		yMean += s.Y
	}
	yMean /= float64(n)
	for _, s := range samples {
		yVar += (s.Y - yMean) * (s.Y - yMean)
	}
	yStd := math.Sqrt(yVar / float64(n))
	if yStd == 0 {
		yStd = 1
	}
	t := make([]float64, n)
	for i, s := range samples {
		t[i] = (s.Y - yMean) / yStd
	}

	// k is row-major n×m.
	k := make([]float64, n*m)
	var frob float64
	for i := 0; i < n; i++ {
		row := k[i*m : (i+1)*m]
		for j := range support {
			v := prediction.RBF(xs[i], support[j], gamma)
			row[j] = v
			frob += v * v
		}
	}
	step := 1 / (frob/float64(n) + opts.Lambda)

	alpha := make([]float64, m)
	resid := make([]float64, n)
	grad := make([]float64, m)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			row := k[i*m : (i+1)*m]
			var p float64
			for j, a := range alpha {
				p += row[j] * a
			}
			resid[i] = p - t[i]
		}
		for j := range grad {
			grad[j] = opts.Lambda * alpha[j]
		}
		for i := 0; i < n; i++ {
			row := k[i*m : (i+1)*m]
			r := resid[i] / float64(n)
			for j := range grad {
				grad[j] += row[j] * r
			}
		}
		for j := range alpha {
			alpha[j] -= step * grad[j]
		}
	}

	coef := make([]float64, m)
	for j, a := range alpha {
		coef[j] = a * yStd
	}

	var absErr, sqErr float64
	for i := 0; i < n; i++ {
		row := k[i*m : (i+1)*m]
		pred := yMean
		for j, c := range coef {
			pred += row[j] * c
		}
		d := pred - samples[i].Y
		absErr += math.Abs(d)
		sqErr += d * d
	}

	sv := make([][]float64, m)
	for j, s := range support {
		sv[j] = append([]float64(nil), s[:]...)
	}
	return &Fitted{
		Scaler: prediction.Scaler{Mean: mean[:], Scale: scale[:]},
		SVM: prediction.SVM{
			SupportVectors: sv,
			DualCoef:       [][]float64{coef},
			Intercept:      []float64{yMean},
			Gamma:          gamma,
			Kernel:         "rbf",
		},
		MAE:  absErr / float64(n),
		RMSE: math.Sqrt(sqErr / float64(n)),
	}, nil
}

// standardise returns per-feature mean and population std. A constant
// feature gets scale 1.
func standardise(samples []Sample) (mean, scale [features.Size]float64) {
	n := float64(len(samples))
	for _, s := range samples {
		for f, v := range s.X {
			mean[f] += v
		}
	}
	for f := range mean {
		mean[f] /= n
	}
	for _, s := range samples {
		for f, v := range s.X {
			d := v - mean[f]
			scale[f] += d * d
		}
	}
	for f := range scale {
		scale[f] = math.Sqrt(scale[f] / n)
		if scale[f] == 0 {
			scale[f] = 1
		}
	}
	return mean, scale
}

// gammaScale is 1 / (features × variance of every scaled value).
func gammaScale(xs []features.Vector) float64 {
	var sum, sq float64
	count := float64(len(xs) * features.Size)
	for _, x := range xs {
		for _, v := range x {
			sum += v
			sq += v * v
		}
	}
	mu := sum / count
	variance := sq/count - mu*mu
	if variance <= 0 {
		return 1
	}
	return 1 / (float64(features.Size) * variance)
}

func (f *Fitted) String() string {
	return fmt.Sprintf("support=%d gamma=%.4g mae=%.1f rmse=%.1f", len(f.SVM.SupportVectors), f.SVM.Gamma, f.MAE, f.RMSE)
}
