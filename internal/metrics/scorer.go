// Package metrics implements the scalar scoring functions used as tuning
// objectives and evaluation metrics.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	ErrLengthMismatch   = errors.New("metrics: inputs have different lengths")
	ErrEmpty            = errors.New("metrics: no examples")
	ErrUnknownMetric    = errors.New("metrics: unknown metric")
	ErrInvalidWeights   = errors.New("metrics: invalid weight scheme for kappa")
	ErrNonNumericLabels = errors.New("metrics: labels must be numeric")
)

// Kind restricts which learner types a metric applies to.
type Kind int

const (
	AnyKind Kind = iota
	ClassificationOnly
	RegressionOnly
)

// Func scores predictions against truth.
type Func func(yTrue, yPred []float64) (float64, error)

// Scorer is a named metric.
type Scorer struct {
	Name            string
	GreaterIsBetter bool
	// Ordinal metrics need labels that are themselves numbers.
	Ordinal bool
	Kind    Kind
	Fn      Func
}

var registry = map[string]Scorer{}

func register(s Scorer) { registry[s.Name] = s }

func init() {
	register(Scorer{Name: "accuracy", GreaterIsBetter: true, Kind: ClassificationOnly, Fn: Accuracy})
	register(Scorer{Name: "f1_score_macro", GreaterIsBetter: true, Kind: ClassificationOnly, Fn: F1Macro})
	register(Scorer{Name: "f1_score_micro", GreaterIsBetter: true, Kind: ClassificationOnly, Fn: F1Micro})
	register(Scorer{Name: "f1_score_weighted", GreaterIsBetter: true, Kind: ClassificationOnly, Fn: F1Weighted})
	register(Scorer{Name: "f1_score_least_frequent", GreaterIsBetter: true, Kind: ClassificationOnly, Fn: F1LeastFrequent})

	for _, k := range []struct {
		name    string
		weights string
		off     bool
	}{
		{"unweighted_kappa", Unweighted, false},
		{"linear_weighted_kappa", Linear, false},
		{"quadratic_weighted_kappa", Quadratic, false},
		{"uwk_off_by_one", Unweighted, true},
		{"lwk_off_by_one", Linear, true},
		{"qwk_off_by_one", Quadratic, true},
	} {
		k := k
		register(Scorer{
			Name:            k.name,
			GreaterIsBetter: true,
			Ordinal:         true,
			Fn: func(t, p []float64) (float64, error) {
				return Kappa(t, p, k.weights, k.off)
			},
		})
	}

	register(Scorer{Name: "pearson", GreaterIsBetter: true, Ordinal: true, Fn: Pearson})
	register(Scorer{Name: "spearman", GreaterIsBetter: true, Ordinal: true, Fn: Spearman})
	register(Scorer{Name: "r2", GreaterIsBetter: true, Kind: RegressionOnly, Fn: R2})
	register(Scorer{Name: "neg_mean_squared_error", GreaterIsBetter: true, Kind: RegressionOnly, Fn: negate(MeanSquaredError)})
	register(Scorer{Name: "neg_mean_absolute_error", GreaterIsBetter: true, Kind: RegressionOnly, Fn: negate(MeanAbsoluteError)})
}

// Lookup returns the scorer registered under name.
func Lookup(name string) (Scorer, error) {
	s, ok := registry[name]
	if !ok {
		return Scorer{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return s, nil
}

// Names lists the registered metrics, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Score runs the scorer on numeric values.
func (s Scorer) Score(yTrue, yPred []float64) (float64, error) {
	return s.Fn(yTrue, yPred)
}

// ScoreLabels runs the scorer on class labels. Ordinal metrics parse the
// labels as numbers; the rest compare them by identity.
func (s Scorer) ScoreLabels(yTrue, yPred []string) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if s.Ordinal {
		t, err := parseLabels(yTrue)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", s.Name, err)
		}
		p, err := parseLabels(yPred)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", s.Name, err)
		}
		return s.Fn(t, p)
	}

	codes := map[string]float64{}
	encode := func(in []string) []float64 {
		out := make([]float64, len(in))
		for i, l := range in {
			c, ok := codes[l]
			if !ok {
				c = float64(len(codes))
				codes[l] = c
			}
			out[i] = c
		}
		return out
	}
	t := encode(yTrue)
	p := encode(yPred)
	return s.Fn(t, p)
}

// AllowsRegression reports whether the scorer can rate a regressor.
func (s Scorer) AllowsRegression() bool { return s.Kind != ClassificationOnly }

// AllowsClassification reports whether the scorer can rate a classifier.
func (s Scorer) AllowsClassification() bool { return s.Kind != RegressionOnly }

func negate(f Func) Func {
	return func(t, p []float64) (float64, error) {
		v, err := f(t, p)
		return -v, err
	}
}

func checkLengths(yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return ErrEmpty
	}
	return nil
}

// FormatLabel renders a numeric label the way it reads in input files.
func FormatLabel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
