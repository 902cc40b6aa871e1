package learner

import (
	"fmt"
	"math"

	"govote/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GaussianNB models each feature as an independent per-class normal.
type GaussianNB struct {
	VarSmoothing float64

	numClasses int
	logPrior   []float64
	mean       [][]float64
	variance   [][]float64
}

func newGaussianNB(p Params) (Estimator, error) {
	vs, err := p.Float("var_smoothing", 1e-9)
	if err != nil {
		return nil, err
	}
	if vs < 0 {
		return nil, errors.ConfigurationError("parameter var_smoothing must be non-negative, got %v", vs)
	}
	return &GaussianNB{VarSmoothing: vs}, nil
}

func (m *GaussianNB) SetNumClasses(n int) { m.numClasses = n }

func (m *GaussianNB) Fit(X mat.Matrix, y []float64) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	k := classCount(y, m.numClasses)
	rows := groupRows(y, k)

	epsilon := 0.0
	for j := 0; j < d; j++ {
		epsilon = math.Max(epsilon, stat.Variance(mat.Col(nil, j, X), nil))
	}
	epsilon *= m.VarSmoothing
	if epsilon == 0 {
		epsilon = 1e-9
	}

	m.logPrior = make([]float64, k)
	m.mean = make([][]float64, k)
	m.variance = make([][]float64, k)
	col := make([]float64, 0, n)
	for c := 0; c < k; c++ {
		m.mean[c] = make([]float64, d)
		m.variance[c] = make([]float64, d)
		if len(rows[c]) == 0 {
			m.logPrior[c] = math.Inf(-1)
			continue
		}
		m.logPrior[c] = math.Log(float64(len(rows[c])) / float64(n))
		for j := 0; j < d; j++ {
			col = col[:0]
			for _, i := range rows[c] {
				col = append(col, X.At(i, j))
			}
			mean, v := stat.PopMeanVariance(col, nil)
			m.mean[c][j] = mean
			m.variance[c][j] = v + epsilon
		}
	}
	return nil
}

func (m *GaussianNB) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if m.mean == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, len(m.mean[0])); err != nil {
		return nil, err
	}
	r, d := X.Dims()
	k := len(m.logPrior)
	out := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for c := 0; c < k; c++ {
			ll := m.logPrior[c]
			if !math.IsInf(ll, -1) {
				for j := 0; j < d; j++ {
					v := m.variance[c][j]
					diff := X.At(i, j) - m.mean[c][j]
					ll -= 0.5*math.Log(2*math.Pi*v) + diff*diff/(2*v)
				}
			}
			row[c] = ll
		}
		normalizeLog(row)
	}
	return out, nil
}

func (m *GaussianNB) Predict(X mat.Matrix) ([]float64, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxRows(p), nil
}

// MultinomialNB is naive Bayes for non-negative count-like features with
// additive (Laplace) smoothing.
type MultinomialNB struct {
	Alpha float64

	numClasses int
	logPrior   []float64
	logProb    [][]float64
}

func newMultinomialNB(p Params) (Estimator, error) {
	alpha, err := p.Float("alpha", 1.0)
	if err != nil {
		return nil, err
	}
	if alpha < 0 {
		return nil, errors.ConfigurationError("parameter alpha must be non-negative, got %v", alpha)
	}
	return &MultinomialNB{Alpha: alpha}, nil
}

func (m *MultinomialNB) SetNumClasses(n int) { m.numClasses = n }

func (m *MultinomialNB) Fit(X mat.Matrix, y []float64) error {
	n, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if err := checkNonNegative(X); err != nil {
		return err
	}
	k := classCount(y, m.numClasses)
	rows := groupRows(y, k)

	m.logPrior = make([]float64, k)
	m.logProb = make([][]float64, k)
	for c := 0; c < k; c++ {
		counts := make([]float64, d)
		for _, i := range rows[c] {
			for j := 0; j < d; j++ {
				counts[j] += X.At(i, j)
			}
		}
		if len(rows[c]) == 0 {
			m.logPrior[c] = math.Inf(-1)
		} else {
			m.logPrior[c] = math.Log(float64(len(rows[c])) / float64(n))
		}
		total := floats.Sum(counts) + m.Alpha*float64(d)
		m.logProb[c] = make([]float64, d)
		for j := range counts {
			m.logProb[c][j] = math.Log((counts[j] + m.Alpha) / total)
		}
	}
	return nil
}

func (m *MultinomialNB) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if m.logProb == nil {
		return nil, errNotFitted
	}
	if err := checkWidth(X, len(m.logProb[0])); err != nil {
		return nil, err
	}
	if err := checkNonNegative(X); err != nil {
		return nil, err
	}
	r, d := X.Dims()
	k := len(m.logPrior)
	out := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for c := 0; c < k; c++ {
			ll := m.logPrior[c]
			if !math.IsInf(ll, -1) {
				for j := 0; j < d; j++ {
					ll += X.At(i, j) * m.logProb[c][j]
				}
			}
			row[c] = ll
		}
		normalizeLog(row)
	}
	return out, nil
}

func (m *MultinomialNB) Predict(X mat.Matrix) ([]float64, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxRows(p), nil
}

// normalizeLog turns log-likelihoods into probabilities in place.
func normalizeLog(row []float64) {
	lse := floats.LogSumExp(row)
	for j := range row {
		row[j] = math.Exp(row[j] - lse)
	}
}

func groupRows(y []float64, k int) [][]int {
	rows := make([][]int, k)
	for i, c := range y {
		rows[int(c)] = append(rows[int(c)], i)
	}
	return rows
}

func checkNonNegative(X mat.Matrix) error {
	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if X.At(i, j) < 0 {
				return fmt.Errorf("negative feature value %v at row %d column %d", X.At(i, j), i, j)
			}
		}
	}
	return nil
}
