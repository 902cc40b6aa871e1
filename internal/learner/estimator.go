package learner

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Estimator is a model that can be fitted and queried. Classifiers are
// fitted on label codes stored as float64 and predict codes the same way.
type Estimator interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
}

// Classifier is an Estimator over label codes. SetNumClasses is called
// before Fit with the size of the shared encoding, so a model fitted on a
// subset still scores every class.
type Classifier interface {
	Estimator
	SetNumClasses(n int)
}

// ProbabilisticClassifier also returns one probability column per class.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// Transformer is a fitted feature mapping applied before the estimator.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
}

func argmaxRows(p *mat.Dense) []float64 {
	r, _ := p.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = float64(argmax(p.RawRowView(i)))
	}
	return out
}

// argmax returns the index of the largest value, the lowest index on ties.
func argmax(v []float64) int {
	return floats.MaxIdx(v)
}
