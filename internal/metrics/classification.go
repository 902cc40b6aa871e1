package metrics

import (
	"fmt"
	"sort"
)

// LabelScores holds per-label precision, recall, F1 and support.
type LabelScores struct {
	Label     float64
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Accuracy returns the fraction of exact matches.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// PerLabel computes precision/recall/F1 for every label present in either
// input, sorted ascending. Undefined ratios are reported as 0.
func PerLabel(yTrue, yPred []float64) ([]LabelScores, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return nil, err
	}

	labels := unionSorted(yTrue, yPred)
	tp := make(map[float64]int, len(labels))
	fp := make(map[float64]int, len(labels))
	fn := make(map[float64]int, len(labels))
	support := make(map[float64]int, len(labels))

	for i := range yTrue {
		support[yTrue[i]]++
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
			continue
		}
		fp[yPred[i]]++
		fn[yTrue[i]]++
	}

	out := make([]LabelScores, len(labels))
	for k, l := range labels {
		p := safeDiv(float64(tp[l]), float64(tp[l]+fp[l]))
		r := safeDiv(float64(tp[l]), float64(tp[l]+fn[l]))
		out[k] = LabelScores{
			Label:     l,
			Precision: p,
			Recall:    r,
			F1:        safeDiv(2*p*r, p+r),
			Support:   support[l],
		}
	}
	return out, nil
}

// F1Macro is the unweighted mean of per-label F1.
func F1Macro(yTrue, yPred []float64) (float64, error) {
	scores, err := PerLabel(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.F1
	}
	return sum / float64(len(scores)), nil
}

// F1Micro pools true/false positives over labels; for single-label data it
// equals accuracy.
func F1Micro(yTrue, yPred []float64) (float64, error) {
	return Accuracy(yTrue, yPred)
}

// F1Weighted weights per-label F1 by true support.
func F1Weighted(yTrue, yPred []float64) (float64, error) {
	scores, err := PerLabel(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.F1 * float64(s.Support)
	}
	return sum / float64(len(yTrue)), nil
}

// F1LeastFrequent is the F1 of the least frequent label in yTrue; ties go
// to the smallest label.
func F1LeastFrequent(yTrue, yPred []float64) (float64, error) {
	scores, err := PerLabel(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	best := -1
	for k, s := range scores {
		if s.Support == 0 {
			continue
		}
		if best < 0 || s.Support < scores[best].Support {
			best = k
		}
	}
	return scores[best].F1, nil
}

// ConfusionMatrix counts (true, predicted) pairs over codes 0..n-1; rows are
// true labels, columns predicted labels.
func ConfusionMatrix(yTrue, yPred []int, n int) ([][]int, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	cm := make([][]int, n)
	for i := range cm {
		cm[i] = make([]int, n)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= n || p < 0 || p >= n {
			return nil, fmt.Errorf("label code out of range [0,%d): true=%d pred=%d", n, t, p)
		}
		cm[t][p]++
	}
	return cm, nil
}

func unionSorted(a, b []float64) []float64 {
	seen := make(map[float64]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		seen[v] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
