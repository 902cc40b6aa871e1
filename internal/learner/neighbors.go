package learner

import (
	"math"
	"sort"

	"govote/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	weightsUniform  = "uniform"
	weightsDistance = "distance"
)

// neighborIndex stores training rows for brute-force nearest-neighbour
// lookups.
type neighborIndex struct {
	k       int
	weights string
	rows    [][]float64
	y       []float64
}

func newNeighborIndex(p Params) (neighborIndex, error) {
	k, err := p.Int("n_neighbors", 5)
	if err != nil {
		return neighborIndex{}, err
	}
	if k < 1 {
		return neighborIndex{}, errors.ConfigurationError("parameter n_neighbors must be positive, got %d", k)
	}
	w, err := p.String("weights", weightsUniform)
	if err != nil {
		return neighborIndex{}, err
	}
	if w != weightsUniform && w != weightsDistance {
		return neighborIndex{}, errors.ConfigurationError("parameter weights must be %q or %q, got %q",
			weightsUniform, weightsDistance, w)
	}
	return neighborIndex{k: k, weights: w}, nil
}

func (ix *neighborIndex) fit(X mat.Matrix, y []float64) error {
	n, _, err := checkXY(X, y)
	if err != nil {
		return err
	}
	ix.rows = make([][]float64, n)
	for i := range ix.rows {
		ix.rows[i] = mat.Row(nil, i, X)
	}
	ix.y = append([]float64(nil), y...)
	return nil
}

type neighbor struct {
	index  int
	dist   float64
	weight float64
}

// query returns the k nearest training rows; equal distances keep
// training order.
func (ix *neighborIndex) query(x []float64) []neighbor {
	all := make([]neighbor, len(ix.rows))
	for i, r := range ix.rows {
		all[i] = neighbor{index: i, dist: floats.Distance(x, r, 2)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })

	k := min(ix.k, len(all))
	out := all[:k]
	exact := false
	for _, nb := range out {
		if nb.dist == 0 {
			exact = true
		}
	}
	for i := range out {
		switch {
		case ix.weights == weightsUniform:
			out[i].weight = 1
		case exact:
			if out[i].dist == 0 {
				out[i].weight = 1
			}
		default:
			out[i].weight = 1 / out[i].dist
		}
	}
	return out
}

func (ix *neighborIndex) check(X mat.Matrix) error {
	if ix.rows == nil {
		return errNotFitted
	}
	return checkWidth(X, len(ix.rows[0]))
}

// KNeighborsClassifier votes among the nearest training examples.
type KNeighborsClassifier struct {
	index      neighborIndex
	numClasses int
	classes    int
}

func newKNeighborsClassifier(p Params) (Estimator, error) {
	ix, err := newNeighborIndex(p)
	if err != nil {
		return nil, err
	}
	return &KNeighborsClassifier{index: ix}, nil
}

func (m *KNeighborsClassifier) SetNumClasses(n int) { m.numClasses = n }

func (m *KNeighborsClassifier) Fit(X mat.Matrix, y []float64) error {
	if err := m.index.fit(X, y); err != nil {
		return err
	}
	m.classes = classCount(y, m.numClasses)
	return nil
}

func (m *KNeighborsClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := m.index.check(X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, m.classes, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for _, nb := range m.index.query(mat.Row(nil, i, X)) {
			row[int(m.index.y[nb.index])] += nb.weight
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return out, nil
}

func (m *KNeighborsClassifier) Predict(X mat.Matrix) ([]float64, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxRows(p), nil
}

// KNeighborsRegressor averages the targets of the nearest examples.
type KNeighborsRegressor struct {
	index neighborIndex
}

func newKNeighborsRegressor(p Params) (Estimator, error) {
	ix, err := newNeighborIndex(p)
	if err != nil {
		return nil, err
	}
	return &KNeighborsRegressor{index: ix}, nil
}

func (m *KNeighborsRegressor) Fit(X mat.Matrix, y []float64) error {
	return m.index.fit(X, y)
}

func (m *KNeighborsRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if err := m.index.check(X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		var sum, wsum float64
		for _, nb := range m.index.query(mat.Row(nil, i, X)) {
			sum += nb.weight * m.index.y[nb.index]
			wsum += nb.weight
		}
		out[i] = sum / wsum
	}
	return out, nil
}

// NearestCentroid assigns each example to the class with the closest mean.
// It has no probability output.
type NearestCentroid struct {
	numClasses int
	centroids  [][]float64
}

func newNearestCentroid(Params) (Estimator, error) { return &NearestCentroid{}, nil }

func (m *NearestCentroid) SetNumClasses(n int) { m.numClasses = n }

func (m *NearestCentroid) Fit(X mat.Matrix, y []float64) error {
	_, d, err := checkXY(X, y)
	if err != nil {
		return err
	}
	k := classCount(y, m.numClasses)
	rows := groupRows(y, k)
	m.centroids = make([][]float64, k)
	for c := range rows {
		if len(rows[c]) == 0 {
			continue
		}
		center := make([]float64, d)
		for _, i := range rows[c] {
			floats.Add(center, mat.Row(nil, i, X))
		}
		floats.Scale(1/float64(len(rows[c])), center)
		m.centroids[c] = center
	}
	return nil
}

func (m *NearestCentroid) Predict(X mat.Matrix) ([]float64, error) {
	if m.centroids == nil {
		return nil, errNotFitted
	}
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		x := mat.Row(nil, i, X)
		best, bestDist := -1, math.Inf(1)
		for c, center := range m.centroids {
			if center == nil {
				continue
			}
			if len(center) != len(x) {
				return nil, checkWidth(X, len(center))
			}
			if d := floats.Distance(x, center, 2); d < bestDist {
				best, bestDist = c, d
			}
		}
		out[i] = float64(best)
	}
	return out, nil
}
