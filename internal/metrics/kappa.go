package metrics

import (
	"fmt"
	"math"
	"strconv"
)

// Kappa weighting schemes.
const (
	Unweighted = ""
	Linear     = "linear"
	Quadratic  = "quadratic"
)

// Kappa computes Cohen's kappa between two ratings. Values are rounded to
// the nearest integer first. weights is one of Unweighted, Linear or
// Quadratic; with allowOffByOne, adjacent ratings count as agreement.
func Kappa(yTrue, yPred []float64, weights string, allowOffByOne bool) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	switch weights {
	case Unweighted, Linear, Quadratic:
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeights, weights)
	}

	t := make([]int, len(yTrue))
	p := make([]int, len(yPred))
	minRating, maxRating := math.MaxInt, math.MinInt
	for i := range yTrue {
		t[i] = int(math.RoundToEven(yTrue[i]))
		p[i] = int(math.RoundToEven(yPred[i]))
		minRating = min(minRating, t[i], p[i])
		maxRating = max(maxRating, t[i], p[i])
	}

	n := maxRating - minRating + 1
	observed := make([][]float64, n)
	w := make([][]float64, n)
	for i := 0; i < n; i++ {
		observed[i] = make([]float64, n)
		w[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			diff := i - j
			if diff < 0 {
				diff = -diff
			}
			if allowOffByOne && diff > 0 {
				diff--
			}
			switch weights {
			case Linear:
				w[i][j] = float64(diff)
			case Quadratic:
				w[i][j] = float64(diff * diff)
			default:
				if diff != 0 {
					w[i][j] = 1
				}
			}
		}
	}

	total := float64(len(t))
	histTrue := make([]float64, n)
	histPred := make([]float64, n)
	for i := range t {
		a, b := t[i]-minRating, p[i]-minRating
		observed[a][b] += 1 / total
		histTrue[a] += 1 / total
		histPred[b] += 1 / total
	}

	var num, den float64
	nonZero := false
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if w[i][j] != 0 {
				nonZero = true
			}
			num += w[i][j] * observed[i][j]
			den += w[i][j] * histTrue[i] * histPred[j]
		}
	}

	k := 1.0
	if nonZero {
		k -= num / den
	}
	return k, nil
}

// KappaLabels parses string ratings before computing Kappa and rejects
// labels that are not numbers.
func KappaLabels(yTrue, yPred []string, weights string, allowOffByOne bool) (float64, error) {
	t, err := parseLabels(yTrue)
	if err != nil {
		return 0, err
	}
	p, err := parseLabels(yPred)
	if err != nil {
		return 0, err
	}
	return Kappa(t, p, weights, allowOffByOne)
}

func parseLabels(labels []string) ([]float64, error) {
	out := make([]float64, len(labels))
	for i, l := range labels {
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNonNumericLabels, l)
		}
		out[i] = v
	}
	return out, nil
}
