package featureset

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// FeatureSet is the canonical input to every learner: ordered unique ids,
// a feature matrix aligned row-for-row with the ids and optional labels.
// A FeatureSet is never mutated after construction; accessors hand out
// copies and Subset builds a new value.
type FeatureSet struct {
	name         string
	ids          []string
	index        map[string]int
	features     *mat.Dense
	featureNames []string
	labels       []string
}

// New validates alignment and id uniqueness and builds a FeatureSet.
// labels may be nil for unlabeled data; featureNames may be nil, in which
// case names f0..fN are generated.
func New(name string, ids []string, rows [][]float64, labels []string, featureNames []string) (*FeatureSet, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("feature set %q has no examples", name)
	}
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("feature set %q: %d ids but %d feature rows", name, len(ids), len(rows))
	}
	if labels != nil && len(labels) != len(ids) {
		return nil, fmt.Errorf("feature set %q: %d ids but %d labels", name, len(ids), len(labels))
	}

	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("feature set %q has no features", name)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("feature set %q: row %d has %d features, expected %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}

	return newFromDense(name, ids, mat.NewDense(len(rows), cols, data), labels, featureNames)
}

// NewFromDense builds a FeatureSet around a copy of features.
func NewFromDense(name string, ids []string, features mat.Matrix, labels []string, featureNames []string) (*FeatureSet, error) {
	r, _ := features.Dims()
	if r != len(ids) {
		return nil, fmt.Errorf("feature set %q: %d ids but %d feature rows", name, len(ids), r)
	}
	if labels != nil && len(labels) != len(ids) {
		return nil, fmt.Errorf("feature set %q: %d ids but %d labels", name, len(ids), len(labels))
	}
	return newFromDense(name, ids, mat.DenseCopyOf(features), labels, featureNames)
}

func newFromDense(name string, ids []string, features *mat.Dense, labels []string, featureNames []string) (*FeatureSet, error) {
	_, cols := features.Dims()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("feature set %q: duplicate id %q", name, id)
		}
		index[id] = i
	}

	if featureNames == nil {
		featureNames = make([]string, cols)
		for j := range featureNames {
			featureNames[j] = "f" + strconv.Itoa(j)
		}
	} else if len(featureNames) != cols {
		return nil, fmt.Errorf("feature set %q: %d feature names for %d columns", name, len(featureNames), cols)
	}

	fs := &FeatureSet{
		name:         name,
		ids:          append([]string(nil), ids...),
		index:        index,
		features:     features,
		featureNames: append([]string(nil), featureNames...),
	}
	if labels != nil {
		fs.labels = append([]string(nil), labels...)
	}
	return fs, nil
}

// Name returns the feature set name.
func (fs *FeatureSet) Name() string { return fs.name }

// Len returns the number of examples.
func (fs *FeatureSet) Len() int { return len(fs.ids) }

// NumFeatures returns the number of feature columns.
func (fs *FeatureSet) NumFeatures() int {
	_, c := fs.features.Dims()
	return c
}

// IDs returns a copy of the ordered example ids.
func (fs *FeatureSet) IDs() []string { return append([]string(nil), fs.ids...) }

// ID returns the id of row i.
func (fs *FeatureSet) ID(i int) string { return fs.ids[i] }

// IndexOf returns the row of id.
func (fs *FeatureSet) IndexOf(id string) (int, bool) {
	i, ok := fs.index[id]
	return i, ok
}

// FeatureNames returns a copy of the column names.
func (fs *FeatureSet) FeatureNames() []string { return append([]string(nil), fs.featureNames...) }

// Features returns a copy of the feature matrix.
func (fs *FeatureSet) Features() *mat.Dense { return mat.DenseCopyOf(fs.features) }

// Row returns a copy of row i.
func (fs *FeatureSet) Row(i int) []float64 {
	return mat.Row(nil, i, fs.features)
}

// HasLabels reports whether the set carries labels.
func (fs *FeatureSet) HasLabels() bool { return fs.labels != nil }

// Labels returns a copy of the labels, or nil.
func (fs *FeatureSet) Labels() []string {
	if fs.labels == nil {
		return nil
	}
	return append([]string(nil), fs.labels...)
}

// NumericLabels parses the labels as regression targets.
func (fs *FeatureSet) NumericLabels() ([]float64, error) {
	if fs.labels == nil {
		return nil, fmt.Errorf("feature set %q has no labels", fs.name)
	}
	out := make([]float64, len(fs.labels))
	for i, l := range fs.labels {
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return nil, fmt.Errorf("feature set %q: label %q of example %q is not numeric", fs.name, l, fs.ids[i])
		}
		out[i] = v
	}
	return out, nil
}

// Subset returns a new FeatureSet made of the given rows, in the given order.
func (fs *FeatureSet) Subset(rows []int) (*FeatureSet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("feature set %q: empty subset", fs.name)
	}
	_, cols := fs.features.Dims()
	data := mat.NewDense(len(rows), cols, nil)
	ids := make([]string, len(rows))
	var labels []string
	if fs.labels != nil {
		labels = make([]string, len(rows))
	}
	for k, r := range rows {
		if r < 0 || r >= len(fs.ids) {
			return nil, fmt.Errorf("feature set %q: row %d out of range", fs.name, r)
		}
		data.SetRow(k, fs.features.RawRowView(r))
		ids[k] = fs.ids[r]
		if labels != nil {
			labels[k] = fs.labels[r]
		}
	}
	return newFromDense(fs.name, ids, data, labels, fs.featureNames)
}

// Head returns the first n examples.
func (fs *FeatureSet) Head(n int) (*FeatureSet, error) {
	if n > len(fs.ids) {
		n = len(fs.ids)
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return fs.Subset(rows)
}
