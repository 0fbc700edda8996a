package prediction

import (
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/okian/collegefinder/internal/domain/category"
	"github.com/okian/collegefinder/internal/domain/features"
)

// ModelTypeRBF is the only model type this package evaluates.
const ModelTypeRBF = "SVM_RBF"

// Artifact is the trained, read-only model blob.
type Artifact struct {
	ModelType   string         `json:"model_type"`
	Version     string         `json:"version,omitempty"`
	Scaler      Scaler         `json:"scaler"`
	SVM         SVM            `json:"svm"`
	CategoryMap map[string]int `json:"category_map"`
	Stats       Stats          `json:"stats"`
	Timestamp   string         `json:"timestamp"`
}

// Scaler holds the per-feature z-score parameters baked in at training time.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// SVM holds the kernel regression parameters. Only row 0 of DualCoef and
// element 0 of Intercept are used.
type SVM struct {
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       [][]float64 `json:"dual_coef"`
	Intercept      []float64   `json:"intercept"`
	Gamma          float64     `json:"gamma"`
	Kernel         string      `json:"kernel"`
}

// Stats describes the training data. MinRank and MaxRank bound every prediction.
type Stats struct {
	TotalRecords    int     `json:"total_records"`
	TrainingSamples int     `json:"training_samples"`
	MinRank         int     `json:"min_rank"`
	MaxRank         int     `json:"max_rank"`
	MeanRank        float64 `json:"mean_rank"`
	Years           []int   `json:"years"`
	NumColleges     int     `json:"num_colleges"`
	NumBranches     int     `json:"num_branches"`
	NumCategories   int     `json:"num_categories"`
}

// DecodeArtifact reads an artifact from r. It does not validate it.
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// Validate reports whether a would load. Failures wrap ErrInvalidArtifact.
func (a *Artifact) Validate() error {
	_, err := compile(a)
	return err
}

// Encode writes a as indented JSON.
func (a *Artifact) Encode(w io.Writer) error {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// compiled is a validated artifact ready for evaluation. Never mutated.
type compiled struct {
	art       *Artifact
	enc       *category.Encoder
	mean      features.Vector
	scale     features.Vector
	svs       []features.Vector
	coefs     []float64
	intercept float64
	gamma     float64
	minRank   float64
	maxRank   float64
}

// compile validates a and prepares it for evaluation.
func compile(a *Artifact) (*compiled, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrInvalidArtifact)
	}
	if a.ModelType != "" && a.ModelType != ModelTypeRBF {
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrInvalidArtifact, a.ModelType)
	}
	if a.SVM.Kernel != "" && a.SVM.Kernel != "rbf" {
		return nil, fmt.Errorf("%w: unsupported kernel %q", ErrInvalidArtifact, a.SVM.Kernel)
	}
	if len(a.Scaler.Mean) != features.Size || len(a.Scaler.Scale) != features.Size {
		return nil, fmt.Errorf("%w: scaler must have %d entries", ErrInvalidArtifact, features.Size)
	}
	c := &compiled{art: a}
	for i := 0; i < features.Size; i++ {
		if !finite(a.Scaler.Mean[i]) || !finite(a.Scaler.Scale[i]) || a.Scaler.Scale[i] == 0 {
			return nil, fmt.Errorf("%w: bad scaler entry %d", ErrInvalidArtifact, i)
		}
		c.mean[i] = a.Scaler.Mean[i]
		c.scale[i] = a.Scaler.Scale[i]
	}
	if len(a.SVM.DualCoef) == 0 || len(a.SVM.DualCoef[0]) != len(a.SVM.SupportVectors) {
		return nil, fmt.Errorf("%w: dual_coef does not match support vectors", ErrInvalidArtifact)
	}
	if len(a.SVM.Intercept) == 0 || !finite(a.SVM.Intercept[0]) {
		return nil, fmt.Errorf("%w: missing intercept", ErrInvalidArtifact)
	}
	if !finite(a.SVM.Gamma) || a.SVM.Gamma < 0 {
		return nil, fmt.Errorf("%w: bad gamma", ErrInvalidArtifact)
	}
	c.svs = make([]features.Vector, len(a.SVM.SupportVectors))
	c.coefs = make([]float64, len(a.SVM.SupportVectors))
	for k, sv := range a.SVM.SupportVectors {
		if len(sv) != features.Size {
			return nil, fmt.Errorf("%w: support vector %d has %d entries", ErrInvalidArtifact, k, len(sv))
		}
		for i, x := range sv {
			if !finite(x) {
				return nil, fmt.Errorf("%w: support vector %d is not finite", ErrInvalidArtifact, k)
			}
			c.svs[k][i] = x
		}
		if !finite(a.SVM.DualCoef[0][k]) {
			return nil, fmt.Errorf("%w: dual coefficient %d is not finite", ErrInvalidArtifact, k)
		}
		c.coefs[k] = a.SVM.DualCoef[0][k]
	}
	if a.Stats.MinRank > a.Stats.MaxRank {
		return nil, fmt.Errorf("%w: min_rank above max_rank", ErrInvalidArtifact)
	}
	enc, err := category.FromMap(a.CategoryMap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	c.enc = enc
	c.intercept = a.SVM.Intercept[0]
	c.gamma = a.SVM.Gamma
	c.minRank = float64(a.Stats.MinRank)
	c.maxRank = float64(a.Stats.MaxRank)
	return c, nil
}

// raw evaluates the unclipped kernel regression on an unscaled vector.
func (c *compiled) raw(v features.Vector) float64 {
	var x features.Vector
	for i := range v {
		x[i] = (v[i] - c.mean[i]) / c.scale[i]
	}
	sum := c.intercept
	for k, sv := range c.svs {
		sum += c.coefs[k] * RBF(x, sv, c.gamma)
	}
	return sum
}

// rank clips the raw prediction to the training range and rounds it.
func (c *compiled) rank(v features.Vector) (int, error) {
	p := c.raw(v)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: prediction is not a number", ErrInvalidArtifact)
	}
	p = math.Max(c.minRank, math.Min(c.maxRank, p))
	return int(math.Round(p)), nil
}

// RBF returns exp(-gamma * ||a-b||^2).
func RBF(a, b features.Vector, gamma float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
