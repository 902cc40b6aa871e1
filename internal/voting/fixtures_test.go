package voting

import (
	stderrors "errors"
	"strconv"
	"testing"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/learner"
	"govote/internal/testkit"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fixedClassifier predicts the same code for every row. Its probability
// rows put weight on that code and spread the rest evenly.
type fixedClassifier struct {
	code    int
	weight  float64
	classes int
}

func (f *fixedClassifier) SetNumClasses(n int)             { f.classes = n }
func (f *fixedClassifier) Fit(mat.Matrix, []float64) error { return nil }

func (f *fixedClassifier) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = float64(f.code)
	}
	return out, nil
}

func (f *fixedClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, _ := X.Dims()
	p := mat.NewDense(r, f.classes, nil)
	rest := (1 - f.weight) / float64(f.classes-1)
	for i := 0; i < r; i++ {
		for c := 0; c < f.classes; c++ {
			p.Set(i, c, rest)
		}
		p.Set(i, f.code, f.weight)
	}
	return p, nil
}

// shiftRegressor predicts the first feature plus a constant.
type shiftRegressor struct{ shift float64 }

func (s *shiftRegressor) Fit(mat.Matrix, []float64) error { return nil }

func (s *shiftRegressor) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = X.At(i, 0) + s.shift
	}
	return out, nil
}

// wideClassifier returns one probability column more than there are
// classes.
type wideClassifier struct{ fixedClassifier }

func (w *wideClassifier) SetNumClasses(n int) { w.classes = n + 1 }

type brokenClassifier struct{ fixedClassifier }

func (b *brokenClassifier) Fit(mat.Matrix, []float64) error { return stderrors.New("boom") }

func testCatalog(t *testing.T) *learner.Catalog {
	t.Helper()
	c := learner.NewBuiltinCatalog()
	require.NoError(t, c.Register(learner.Entry{
		Name:          "Fixed",
		Kind:          evaluation.Classifier,
		Probabilistic: true,
		Defaults:      learner.Params{"code": 0, "weight": 1.0},
		New: func(p learner.Params) (learner.Estimator, error) {
			code, err := p.Int("code", 0)
			if err != nil {
				return nil, err
			}
			weight, err := p.Float("weight", 1)
			if err != nil {
				return nil, err
			}
			return &fixedClassifier{code: code, weight: weight}, nil
		},
	}))
	require.NoError(t, c.Register(learner.Entry{
		Name:     "Shift",
		Kind:     evaluation.Regressor,
		Defaults: learner.Params{"shift": 0.0},
		New: func(p learner.Params) (learner.Estimator, error) {
			shift, err := p.Float("shift", 0)
			if err != nil {
				return nil, err
			}
			return &shiftRegressor{shift: shift}, nil
		},
	}))
	require.NoError(t, c.Register(learner.Entry{
		Name:          "Wide",
		Kind:          evaluation.Classifier,
		Probabilistic: true,
		New: func(learner.Params) (learner.Estimator, error) {
			return &wideClassifier{fixedClassifier{weight: 1}}, nil
		},
	}))
	require.NoError(t, c.Register(learner.Entry{
		Name:          "Broken",
		Kind:          evaluation.Classifier,
		Probabilistic: true,
		New: func(learner.Params) (learner.Estimator, error) {
			return &brokenClassifier{}, nil
		},
	}))
	return c
}

func classificationSet(t *testing.T, n, classes int) *featureset.FeatureSet {
	t.Helper()
	labels := make([]string, classes)
	for c := range labels {
		labels[c] = strconv.Itoa(c)
	}
	return labeledSet(t, n, labels)
}

func labeledSet(t *testing.T, n int, labels []string) *featureset.FeatureSet {
	t.Helper()
	cfg := testkit.DefaultClassificationConfig()
	cfg.Examples = n
	cfg.Classes = len(labels)
	cfg.Labels = labels
	cfg.Separation = 5
	fs, err := testkit.MakeClassification(cfg)
	require.NoError(t, err)
	return fs
}

func regressionSet(t *testing.T, n int) *featureset.FeatureSet {
	t.Helper()
	cfg := testkit.DefaultRegressionConfig()
	cfg.Examples = n
	fs, _, err := testkit.MakeRegression(cfg)
	require.NoError(t, err)
	return fs
}

func memberNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func fixedParams(codes []int, weights []float64) []learner.Params {
	out := make([]learner.Params, len(codes))
	for i, c := range codes {
		out[i] = learner.Params{"code": c}
		if weights != nil {
			out[i]["weight"] = weights[i]
		}
	}
	return out
}

func repeat(model string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = model
	}
	return out
}
