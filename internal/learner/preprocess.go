package learner

import (
	"fmt"
	"math"
	"math/rand"

	"govote/internal/errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Feature scaling modes.
const (
	ScaleNone     = "none"
	ScaleWithMean = "with_mean"
	ScaleWithStd  = "with_std"
	ScaleBoth     = "both"
)

// Sampler names.
const (
	SamplerRBF      = "RBFSampler"
	SamplerNystroem = "Nystroem"
)

// ValidScaling reports whether mode is a known feature scaling mode.
func ValidScaling(mode string) bool {
	switch mode {
	case ScaleNone, ScaleWithMean, ScaleWithStd, ScaleBoth:
		return true
	}
	return false
}

// Scaler centres and/or scales columns with statistics taken from the
// training rows only.
type Scaler struct {
	Mode string

	mean  []float64
	scale []float64
}

// NewScaler returns a scaler for mode.
func NewScaler(mode string) (*Scaler, error) {
	if mode == "" {
		mode = ScaleNone
	}
	if !ValidScaling(mode) {
		return nil, errors.ConfigurationError(
			"feature_scaling must be one of none, with_mean, with_std, both; got %q", mode)
	}
	return &Scaler{Mode: mode}, nil
}

func (s *Scaler) Fit(X mat.Matrix) error {
	_, d := X.Dims()
	s.mean = make([]float64, d)
	s.scale = make([]float64, d)
	for j := 0; j < d; j++ {
		mean, std := stat.PopMeanStdDev(mat.Col(nil, j, X), nil)
		if s.Mode == ScaleWithMean || s.Mode == ScaleBoth {
			s.mean[j] = mean
		}
		s.scale[j] = 1
		if (s.Mode == ScaleWithStd || s.Mode == ScaleBoth) && std > 0 {
			s.scale[j] = std
		}
	}
	return nil
}

func (s *Scaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if s.mean == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, len(s.mean)); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(X)
	if s.Mode == ScaleNone {
		return out, nil
	}
	r, d := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := 0; j < d; j++ {
			row[j] = (row[j] - s.mean[j]) / s.scale[j]
		}
	}
	return out, nil
}

// NewSampler builds the named random-feature sampler.
func NewSampler(name string, p Params) (Transformer, error) {
	gamma, err := p.Float("gamma", 1.0)
	if err != nil {
		return nil, err
	}
	comps, err := p.Int("n_components", 100)
	if err != nil {
		return nil, err
	}
	seed, err := p.Int("random_state", 123456789)
	if err != nil {
		return nil, err
	}
	if comps < 1 {
		return nil, errors.ConfigurationError("sampler parameter n_components must be positive, got %d", comps)
	}

	switch name {
	case SamplerRBF:
		return &RBFSampler{Gamma: gamma, Components: comps, Seed: int64(seed)}, nil
	case SamplerNystroem:
		return &Nystroem{Gamma: gamma, Components: comps, Seed: int64(seed)}, nil
	default:
		return nil, errors.ConfigurationError("unknown sampler %q (expected %s or %s)", name, SamplerRBF, SamplerNystroem)
	}
}

// RBFSampler approximates an RBF kernel feature map with random Fourier
// features.
type RBFSampler struct {
	Gamma      float64
	Components int
	Seed       int64

	weights *mat.Dense
	offset  []float64
}

func (s *RBFSampler) Fit(X mat.Matrix) error {
	_, d := X.Dims()
	rng := rand.New(rand.NewSource(s.Seed))
	std := math.Sqrt(2 * s.Gamma)
	s.weights = mat.NewDense(d, s.Components, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < s.Components; j++ {
			s.weights.Set(i, j, rng.NormFloat64()*std)
		}
	}
	s.offset = make([]float64, s.Components)
	for j := range s.offset {
		s.offset[j] = rng.Float64() * 2 * math.Pi
	}
	return nil
}

func (s *RBFSampler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if s.weights == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, s.weights.RawMatrix().Rows); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Mul(X, s.weights)
	norm := math.Sqrt(2 / float64(s.Components))
	out.Apply(func(_, j int, v float64) float64 {
		return norm * math.Cos(v+s.offset[j])
	}, &out)
	return &out, nil
}

// Nystroem approximates an RBF kernel map from a random subset of the
// training rows.
type Nystroem struct {
	Gamma      float64
	Components int
	Seed       int64

	basis     *mat.Dense
	normalize *mat.Dense
}

func (s *Nystroem) Fit(X mat.Matrix) error {
	n, d := X.Dims()
	c := min(s.Components, n)
	rng := rand.New(rand.NewSource(s.Seed))
	idx := rng.Perm(n)[:c]

	s.basis = mat.NewDense(c, d, nil)
	for i, r := range idx {
		s.basis.SetRow(i, mat.Row(nil, r, X))
	}

	kernel := s.kernel(s.basis)
	var svd mat.SVD
	if ok := svd.Factorize(kernel, mat.SVDThin); !ok {
		return fmt.Errorf("nystroem: kernel SVD did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	inv := mat.NewDiagDense(len(sv), nil)
	for i, x := range sv {
		inv.SetDiag(i, 1/math.Sqrt(math.Max(x, 1e-12)))
	}
	var tmp mat.Dense
	tmp.Mul(&u, inv)
	s.normalize = &mat.Dense{}
	s.normalize.Mul(&tmp, v.T())
	return nil
}

func (s *Nystroem) Transform(X mat.Matrix) (*mat.Dense, error) {
	if s.basis == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, s.basis.RawMatrix().Cols); err != nil {
		return nil, err
	}
	k := s.kernel(X)
	var out mat.Dense
	out.Mul(k, s.normalize.T())
	return &out, nil
}

// kernel returns the RBF kernel between the rows of X and the basis.
func (s *Nystroem) kernel(X mat.Matrix) *mat.Dense {
	r, d := X.Dims()
	c, _ := s.basis.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dist := 0.0
			for f := 0; f < d; f++ {
				diff := X.At(i, f) - s.basis.At(j, f)
				dist += diff * diff
			}
			out.Set(i, j, math.Exp(-s.Gamma*dist))
		}
	}
	return out
}
