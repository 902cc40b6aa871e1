package testkit

import (
	"fmt"
	"math/rand"
	"strconv"

	"govote/domain/featureset"
)

// ClassificationConfig controls MakeClassification.
type ClassificationConfig struct {
	Examples   int
	Features   int
	Classes    int
	Separation float64 // distance scale between class centres
	Noise      float64 // per-feature standard deviation around a centre
	Seed       int64
	// Labels names the classes; defaults to "0".."Classes-1".
	Labels []string
}

// DefaultClassificationConfig is two well separated classes of 300 examples each.
func DefaultClassificationConfig() ClassificationConfig {
	return ClassificationConfig{
		Examples:   600,
		Features:   4,
		Classes:    2,
		Separation: 3,
		Noise:      1,
		Seed:       42,
	}
}

// MakeClassification draws Gaussian blobs, one centre per class. Classes
// are assigned round-robin so every class gets Examples/Classes rows
// (the first Examples%Classes classes get one more).
func MakeClassification(cfg ClassificationConfig) (*featureset.FeatureSet, error) {
	if cfg.Classes < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", cfg.Classes)
	}
	labels := cfg.Labels
	if labels == nil {
		labels = make([]string, cfg.Classes)
		for c := range labels {
			labels[c] = strconv.Itoa(c)
		}
	}
	if len(labels) != cfg.Classes {
		return nil, fmt.Errorf("got %d label names for %d classes", len(labels), cfg.Classes)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	centres := make([][]float64, cfg.Classes)
	for c := range centres {
		centres[c] = make([]float64, cfg.Features)
		for j := range centres[c] {
			centres[c][j] = rng.NormFloat64() * cfg.Separation
		}
	}

	ids := make([]string, cfg.Examples)
	rows := make([][]float64, cfg.Examples)
	y := make([]string, cfg.Examples)
	for i := range rows {
		c := i % cfg.Classes
		ids[i] = fmt.Sprintf("EXAMPLE_%d", i)
		y[i] = labels[c]
		rows[i] = make([]float64, cfg.Features)
		for j := range rows[i] {
			rows[i][j] = centres[c][j] + rng.NormFloat64()*cfg.Noise
		}
	}
	return featureset.New("synthetic_classification", ids, rows, y, nil)
}

// RegressionConfig controls MakeRegression.
type RegressionConfig struct {
	Examples  int
	Features  int
	Noise     float64
	Intercept float64
	Seed      int64
}

// DefaultRegressionConfig returns a small, lightly noisy linear problem.
func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		Examples:  200,
		Features:  3,
		Noise:     0.1,
		Intercept: 3,
		Seed:      42,
	}
}

// MakeRegression draws standard normal features and a linear target. It
// returns the FeatureSet and the true coefficients.
func MakeRegression(cfg RegressionConfig) (*featureset.FeatureSet, []float64, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	coef := make([]float64, cfg.Features)
	for j := range coef {
		coef[j] = rng.Float64()*4 - 2
	}

	ids := make([]string, cfg.Examples)
	rows := make([][]float64, cfg.Examples)
	y := make([]string, cfg.Examples)
	for i := range rows {
		ids[i] = fmt.Sprintf("EXAMPLE_%d", i)
		rows[i] = make([]float64, cfg.Features)
		target := cfg.Intercept
		for j := range rows[i] {
			rows[i][j] = rng.NormFloat64()
			target += coef[j] * rows[i][j]
		}
		target += rng.NormFloat64() * cfg.Noise
		y[i] = strconv.FormatFloat(target, 'g', -1, 64)
	}
	fs, err := featureset.New("synthetic_regression", ids, rows, y, nil)
	if err != nil {
		return nil, nil, err
	}
	return fs, coef, nil
}
