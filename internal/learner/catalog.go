package learner

import (
	"sort"
	"strings"
	"sync"

	"govote/domain/evaluation"
	"govote/internal/errors"
)

// Factory builds an unfitted estimator from resolved parameters.
type Factory func(Params) (Estimator, error)

// Entry describes one estimator family.
type Entry struct {
	Name          string
	Kind          evaluation.LearnerType
	Probabilistic bool
	Defaults      Params
	DefaultGrid   ParamGrid
	New           Factory
}

// Catalog maps estimator names to their entries.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: map[string]Entry{}}
}

// Register adds an entry; names must be unique.
func (c *Catalog) Register(e Entry) error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.ConfigurationError("estimator name is required")
	}
	if e.New == nil {
		return errors.ConfigurationError("estimator %s has no factory", e.Name)
	}
	if e.Kind != evaluation.Classifier && e.Kind != evaluation.Regressor {
		return errors.ConfigurationError("estimator %s has unknown kind %q", e.Name, e.Kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[e.Name]; ok {
		return errors.ConfigurationError("estimator %s is already registered", e.Name)
	}
	c.entries[e.Name] = e
	return nil
}

// Lookup returns the entry registered under name.
func (c *Catalog) Lookup(name string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, errors.ConfigurationError("unknown learner %q", name)
	}
	return e, nil
}

// Names lists registered estimators, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for n := range c.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the process-wide catalog of built-in estimators.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewBuiltinCatalog()
	})
	return defaultCatalog
}

// NewBuiltinCatalog returns a fresh catalog holding the built-in estimators.
func NewBuiltinCatalog() *Catalog {
	c := NewCatalog()
	for _, e := range builtins() {
		if err := c.Register(e); err != nil {
			panic(err)
		}
	}
	return c
}

func builtins() []Entry {
	return []Entry{
		{
			Name:          "LogisticRegression",
			Kind:          evaluation.Classifier,
			Probabilistic: true,
			Defaults:      Params{"C": 1.0, "max_iter": 200, "learning_rate": 1.0},
			DefaultGrid:   ParamGrid{"C": {0.01, 0.1, 1.0, 10.0, 100.0}},
			New:           newLogisticRegression,
		},
		{
			Name:          "GaussianNB",
			Kind:          evaluation.Classifier,
			Probabilistic: true,
			Defaults:      Params{"var_smoothing": 1e-9},
			DefaultGrid:   ParamGrid{"var_smoothing": {1e-9, 1e-6, 1e-3}},
			New:           newGaussianNB,
		},
		{
			Name:          "MultinomialNB",
			Kind:          evaluation.Classifier,
			Probabilistic: true,
			Defaults:      Params{"alpha": 1.0},
			DefaultGrid:   ParamGrid{"alpha": {0.1, 0.25, 0.5, 0.75, 1.0}},
			New:           newMultinomialNB,
		},
		{
			Name:          "KNeighborsClassifier",
			Kind:          evaluation.Classifier,
			Probabilistic: true,
			Defaults:      Params{"n_neighbors": 5, "weights": weightsUniform},
			DefaultGrid:   ParamGrid{"n_neighbors": {1, 5, 10}, "weights": {weightsUniform, weightsDistance}},
			New:           newKNeighborsClassifier,
		},
		{
			Name:          "DummyClassifier",
			Kind:          evaluation.Classifier,
			Probabilistic: true,
			Defaults:      Params{"strategy": "prior"},
			DefaultGrid:   ParamGrid{},
			New:           newDummyClassifier,
		},
		{
			Name:        "NearestCentroid",
			Kind:        evaluation.Classifier,
			Defaults:    Params{},
			DefaultGrid: ParamGrid{},
			New:         newNearestCentroid,
		},
		{
			Name:        "LinearRegression",
			Kind:        evaluation.Regressor,
			Defaults:    Params{},
			DefaultGrid: ParamGrid{},
			New:         newLinearRegression,
		},
		{
			Name:        "Ridge",
			Kind:        evaluation.Regressor,
			Defaults:    Params{"alpha": 1.0},
			DefaultGrid: ParamGrid{"alpha": {0.01, 0.1, 1.0, 10.0, 100.0}},
			New:         newRidge,
		},
		{
			Name:        "KNeighborsRegressor",
			Kind:        evaluation.Regressor,
			Defaults:    Params{"n_neighbors": 5, "weights": weightsUniform},
			DefaultGrid: ParamGrid{"n_neighbors": {1, 5, 10}, "weights": {weightsUniform, weightsDistance}},
			New:         newKNeighborsRegressor,
		},
		{
			Name:        "DummyRegressor",
			Kind:        evaluation.Regressor,
			Defaults:    Params{"strategy": "mean"},
			DefaultGrid: ParamGrid{},
			New:         newDummyRegressor,
		},
	}
}
