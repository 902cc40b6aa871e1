// Package folds assigns examples to cross-validation folds and draws the
// repeated train/test splits used by learning curves.
package folds

import (
	"math"
	"math/rand"
	"sort"
	"strconv"

	"govote/domain/featureset"
	"govote/internal/errors"

	"gonum.org/v1/gonum/floats"
)

// DefaultSeed is the seed used when the caller does not supply one.
const DefaultSeed int64 = 123456789

// Planner implements fold planning with deterministic seeding
type Planner struct {
	seed int64
}

// Split is one train/test partition expressed as row indices.
type Split struct {
	Train []int
	Test  []int
}

// NewPlanner creates a planner with a specific seed for reproducibility
func NewPlanner(seed int64) *Planner {
	return &Planner{seed: seed}
}

// Seed returns the planner's seed.
func (p *Planner) Seed() int64 { return p.seed }

// Plan stratifies a labeled FeatureSet into k folds and returns id -> fold.
func (p *Planner) Plan(fs *featureset.FeatureSet, k int) (map[string]int, error) {
	if !fs.HasLabels() {
		return nil, errors.ConfigurationError("feature set %q has no labels to stratify on", fs.Name())
	}
	assignment, err := StratifiedKFold(fs.Labels(), k, p.seed)
	if err != nil {
		return nil, err
	}
	return byID(fs, assignment), nil
}

// PlanRegression partitions a FeatureSet into k shuffled contiguous folds.
func (p *Planner) PlanRegression(fs *featureset.FeatureSet, k int) (map[string]int, error) {
	assignment, err := KFold(fs.Len(), k, p.seed)
	if err != nil {
		return nil, err
	}
	return byID(fs, assignment), nil
}

// ShuffleSplit draws n independent random splits with the given test share.
func (p *Planner) ShuffleSplit(n, splits int, testSize float64) ([]Split, error) {
	return ShuffleSplit(n, splits, testSize, p.seed)
}

// StratifiedKFold returns a fold index for every position in labels. Each
// class is shuffled and dealt round-robin, continuing from where the
// previous class stopped, so fold sizes differ by at most one.
func StratifiedKFold(labels []string, k int, seed int64) ([]int, error) {
	if k < 2 {
		return nil, errors.ConfigurationError("number of folds must be at least 2, got %d", k)
	}
	if len(labels) == 0 {
		return nil, errors.ConfigurationError("cannot plan folds for an empty feature set")
	}

	byClass := make(map[string][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}

	classes := make([]string, 0, len(byClass))
	smallest, smallestLabel := math.MaxInt, ""
	for l, rows := range byClass {
		classes = append(classes, l)
		if len(rows) < smallest || (len(rows) == smallest && l < smallestLabel) {
			smallest, smallestLabel = len(rows), l
		}
	}
	sort.Strings(classes)

	if k > smallest {
		return nil, errors.ConfigurationError(
			"number of folds %d exceeds the smallest class count %d (label %q)", k, smallest, smallestLabel)
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]int, len(labels))
	next := 0
	for _, l := range classes {
		rows := append([]int(nil), byClass[l]...)
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, r := range rows {
			out[r] = next
			next = (next + 1) % k
		}
	}
	return out, nil
}

// KFold returns a fold index for every one of n rows: a seeded permutation
// cut into k contiguous chunks, the first n%k one row larger.
func KFold(n, k int, seed int64) ([]int, error) {
	if k < 2 {
		return nil, errors.ConfigurationError("number of folds must be at least 2, got %d", k)
	}
	if k > n {
		return nil, errors.ConfigurationError("number of folds %d exceeds the number of examples %d", k, n)
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	out := make([]int, n)

	pos := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		for _, r := range perm[pos : pos+size] {
			out[r] = f
		}
		pos += size
	}
	return out, nil
}

// ShuffleSplit draws independent random splits. The test side holds
// ceil(testSize*n) rows. Train indices stay in permutation order so a
// prefix of them is itself a random subsample.
func ShuffleSplit(n, splits int, testSize float64, seed int64) ([]Split, error) {
	if splits < 1 {
		return nil, errors.ConfigurationError("number of splits must be positive, got %d", splits)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.ConfigurationError("test size must be in (0, 1), got %v", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, errors.ConfigurationError(
			"test size %v with %d examples leaves an empty partition", testSize, n)
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]Split, splits)
	for s := range out {
		perm := rng.Perm(n)
		test := append([]int(nil), perm[:nTest]...)
		sort.Ints(test)
		out[s] = Split{Train: append([]int(nil), perm[nTest:]...), Test: test}
	}
	return out, nil
}

// FromAssignment turns an id -> fold map into per-row fold indices for fs.
// Every id must be present, and fold numbers are renumbered densely in
// ascending order. It returns the row folds and the number of folds.
func FromAssignment(fs *featureset.FeatureSet, assignment map[string]int) ([]int, int, error) {
	raw := make([]int, fs.Len())
	seen := map[int]struct{}{}
	for i, id := range fs.IDs() {
		f, ok := assignment[id]
		if !ok {
			return nil, 0, errors.ConfigurationError("fold assignment is missing id %q", id)
		}
		raw[i] = f
		seen[f] = struct{}{}
	}
	if len(seen) < 2 {
		return nil, 0, errors.ConfigurationError("fold assignment must use at least 2 folds, got %d", len(seen))
	}

	order := make([]int, 0, len(seen))
	for f := range seen {
		order = append(order, f)
	}
	sort.Ints(order)
	dense := make(map[int]int, len(order))
	for i, f := range order {
		dense[f] = i
	}
	for i := range raw {
		raw[i] = dense[raw[i]]
	}
	return raw, len(order), nil
}

// Indices splits rows into the complement of fold and the fold itself.
func Indices(assignment []int, fold int) (train, test []int) {
	for i, f := range assignment {
		if f == fold {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}

// TrainSizes converts relative sizes into absolute training counts for a
// training partition of n rows, dropping duplicates while keeping order.
func TrainSizes(relative []float64, n int) ([]int, error) {
	if len(relative) == 0 {
		return nil, errors.ConfigurationError("at least one training size is required")
	}
	var out []int
	seen := map[int]bool{}
	for _, r := range relative {
		if r <= 0 || r > 1 {
			return nil, errors.ConfigurationError("relative training size must be in (0, 1], got %v", r)
		}
		size := int(r * float64(n))
		if size == 0 {
			return nil, errors.ConfigurationError(
				"training size %s of %d examples rounds to zero", strconv.FormatFloat(r, 'g', -1, 64), n)
		}
		if seen[size] {
			continue
		}
		seen[size] = true
		out = append(out, size)
	}
	return out, nil
}

// Linspace returns num evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, num int) []float64 {
	if num == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, num), start, stop)
}

func byID(fs *featureset.FeatureSet, assignment []int) map[string]int {
	out := make(map[string]int, len(assignment))
	for i, f := range assignment {
		out[fs.ID(i)] = f
	}
	return out
}
