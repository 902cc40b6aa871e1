package learner

import (
	"govote/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// DummyClassifier ignores the features. With strategy "prior" it returns
// the training class distribution as probabilities; with "most_frequent"
// it returns a one-hot of the majority class. Both predict the majority
// class, the lowest code on ties.
type DummyClassifier struct {
	Strategy string

	numClasses int
	width      int
	prior      []float64
	majority   int
}

func newDummyClassifier(p Params) (Estimator, error) {
	s, err := p.String("strategy", "prior")
	if err != nil {
		return nil, err
	}
	if s != "prior" && s != "most_frequent" {
		return nil, errors.ConfigurationError("parameter strategy must be prior or most_frequent, got %q", s)
	}
	return &DummyClassifier{Strategy: s}, nil
}

func (m *DummyClassifier) SetNumClasses(n int) { m.numClasses = n }

func (m *DummyClassifier) Fit(X mat.Matrix, y []float64) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	k := classCount(y, m.numClasses)
	m.width = d
	m.prior = make([]float64, k)
	for _, c := range y {
		m.prior[int(c)] += 1 / float64(n)
	}
	m.majority = argmax(m.prior)
	return nil
}

func (m *DummyClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if m.prior == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, m.width); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, len(m.prior), nil)
	for i := 0; i < r; i++ {
		if m.Strategy == "most_frequent" {
			out.Set(i, m.majority, 1)
			continue
		}
		out.SetRow(i, m.prior)
	}
	return out, nil
}

func (m *DummyClassifier) Predict(X mat.Matrix) ([]float64, error) {
	if m.prior == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, m.width); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = float64(m.majority)
	}
	return out, nil
}

// DummyRegressor predicts a constant: the training mean, median, or a
// fixed value.
type DummyRegressor struct {
	Strategy string
	Constant float64

	width  int
	value  float64
	fitted bool
}

func newDummyRegressor(p Params) (Estimator, error) {
	s, err := p.String("strategy", "mean")
	if err != nil {
		return nil, err
	}
	c, err := p.Float("constant", 0)
	if err != nil {
		return nil, err
	}
	switch s {
	case "mean", "median", "constant":
	default:
		return nil, errors.ConfigurationError("parameter strategy must be mean, median or constant, got %q", s)
	}
	return &DummyRegressor{Strategy: s, Constant: c}, nil
}

func (m *DummyRegressor) Fit(X mat.Matrix, y []float64) error {
	_, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	m.width = d
	switch m.Strategy {
	case "median":
		m.value, err = stats.Median(y)
	case "constant":
		m.value = m.Constant
	default:
		m.value, err = stats.Mean(y)
	}
	if err != nil {
		return err
	}
	m.fitted = true
	return nil
}

func (m *DummyRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted
	}
	if err := checkWidth(X, m.width); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = m.value
	}
	return out, nil
}
