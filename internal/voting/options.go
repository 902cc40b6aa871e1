package voting

import (
	"govote/internal/learner"
	"govote/internal/logging"
)

// Voting modes for classifier ensembles.
const (
	Hard = "hard"
	Soft = "soft"
)

type options struct {
	voting         string
	names          []string
	modelParams    []learner.Params
	samplers       []string
	samplerParams  []learner.Params
	featureScaling string
	positive       string
	catalog        *learner.Catalog
	logger         *logging.Logger
	workers        int
}

// Option configures an Ensemble.
type Option func(*options)

// WithVoting sets the classifier combination mode, Hard (default) or Soft.
// Regressor ensembles ignore it.
func WithVoting(mode string) Option {
	return func(o *options) {
		o.voting = mode
	}
}

// WithMemberNames names the members; defaults to their model names.
func WithMemberNames(names []string) Option {
	return func(o *options) {
		o.names = names
	}
}

// WithModelParams sets per-member hyperparameter overrides, one entry per
// member in order.
func WithModelParams(params []learner.Params) Option {
	return func(o *options) {
		o.modelParams = params
	}
}

// WithSamplers sets a per-member random-feature sampler; "" means none.
func WithSamplers(samplers []string) Option {
	return func(o *options) {
		o.samplers = samplers
	}
}

// WithSamplerParams sets per-member sampler parameters.
func WithSamplerParams(params []learner.Params) Option {
	return func(o *options) {
		o.samplerParams = params
	}
}

// WithFeatureScaling sets the scaling mode applied by every member.
func WithFeatureScaling(mode string) Option {
	return func(o *options) {
		o.featureScaling = mode
	}
}

// WithPositiveLabel makes label the positive class of a binary
// classifier ensemble: it gets code 1 and the second probability column.
// Training fails if the data has no such label. Regressor ensembles
// ignore it.
func WithPositiveLabel(label string) Option {
	return func(o *options) {
		o.positive = label
	}
}

// WithCatalog resolves model names against c instead of the default catalog.
func WithCatalog(c *learner.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithLogger sets the structured logger.
//
// If nil is passed, records are discarded.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logging.NoopLogger()
		}
		o.logger = l
	}
}

// WithWorkers bounds the goroutines used for members, folds and curve
// points. Values below 1 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}
