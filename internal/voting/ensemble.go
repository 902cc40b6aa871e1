// Package voting combines independently trained learners into one
// predictor by majority vote, probability averaging, or mean regression,
// and evaluates such ensembles with cross-validation and learning curves.
package voting

import (
	"runtime"
	"sync"

	"govote/domain/evaluation"
	"govote/internal/errors"
	"govote/internal/learner"
	"govote/internal/logging"
)

// Ensemble is an ordered set of same-kind learners sharing one label
// encoder. Trained members are replaced as a unit when Train succeeds.
type Ensemble struct {
	mu      sync.RWMutex
	models  []string
	opts    options
	kind    evaluation.LearnerType
	voting  string
	encoder *learner.LabelEncoder
	members []*learner.BaseLearner
	trained bool
}

// New validates the configuration and builds an untrained ensemble. All
// checks happen here, before any training.
func New(models []string, opts ...Option) (*Ensemble, error) {
	o := options{
		voting:  Hard,
		catalog: learner.DefaultCatalog(),
		logger:  logging.NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.catalog == nil {
		o.catalog = learner.DefaultCatalog()
	}

	n := len(models)
	if n == 0 {
		return nil, errors.ConfigurationError("an ensemble needs at least one learner")
	}
	if err := checkLength("member_names", len(o.names), n); err != nil {
		return nil, err
	}
	if err := checkLength("model_kwargs_list", len(o.modelParams), n); err != nil {
		return nil, err
	}
	if err := checkLength("sampler_list", len(o.samplers), n); err != nil {
		return nil, err
	}
	if err := checkLength("sampler_kwargs_list", len(o.samplerParams), n); err != nil {
		return nil, err
	}

	var kind evaluation.LearnerType
	for i, m := range models {
		entry, err := o.catalog.Lookup(m)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			kind = entry.Kind
			continue
		}
		if entry.Kind != kind {
			return nil, errors.ConfigurationError(
				"cannot mix classifiers and regressors: %s is a %s but %s is a %s", models[0], kind, m, entry.Kind)
		}
	}

	voting := o.voting
	if kind == evaluation.Regressor {
		voting = ""
	} else if voting != Hard && voting != Soft {
		return nil, errors.ConfigurationError("voting must be %q or %q, got %q", Hard, Soft, voting)
	}

	e := &Ensemble{
		models: append([]string(nil), models...),
		opts:   o,
		kind:   kind,
		voting: voting,
	}
	if kind == evaluation.Classifier {
		e.encoder = e.newEncoder()
	}

	members, err := e.buildMembers(e.encoder)
	if err != nil {
		return nil, err
	}
	e.members = members
	return e, nil
}

func checkLength(name string, got, want int) error {
	if got != 0 && got != want {
		return errors.ConfigurationError("%s must have %d entries, got %d", name, want, got)
	}
	return nil
}

func (e *Ensemble) buildMembers(enc *learner.LabelEncoder) ([]*learner.BaseLearner, error) {
	o := e.opts
	seen := make(map[string]bool, len(e.models))
	out := make([]*learner.BaseLearner, len(e.models))
	for i, m := range e.models {
		cfg := learner.Config{
			Model:          m,
			Name:           m,
			FeatureScaling: o.featureScaling,
			Probability:    e.voting == Soft,
			Catalog:        o.catalog,
			Logger:         o.logger,
		}
		if o.names != nil {
			cfg.Name = o.names[i]
		}
		if o.modelParams != nil {
			cfg.Params = o.modelParams[i]
		}
		if o.samplers != nil {
			cfg.Sampler = o.samplers[i]
		}
		if o.samplerParams != nil {
			cfg.SamplerParams = o.samplerParams[i]
		}
		if seen[cfg.Name] {
			return nil, errors.ConfigurationError(
				"duplicate member name %q; use WithMemberNames to tell members apart", cfg.Name)
		}
		seen[cfg.Name] = true

		if e.voting == Soft {
			entry, _ := o.catalog.Lookup(m)
			if !entry.Probabilistic {
				return nil, errors.ConfigurationError(
					"soft voting requires probability output but %s (%s) cannot produce it", cfg.Name, m)
			}
		}

		l, err := learner.New(cfg, enc)
		if err != nil {
			return nil, errors.Wrapf(err, "member %d (%s)", i, cfg.Name)
		}
		out[i] = l
	}
	return out, nil
}

// Kind reports whether the ensemble classifies or regresses.
func (e *Ensemble) Kind() evaluation.LearnerType { return e.kind }

// Voting returns the combination mode, or "" for regressors.
func (e *Ensemble) Voting() string { return e.voting }

// Trained reports whether Train has completed successfully.
func (e *Ensemble) Trained() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trained
}

// Encoder returns the shared label encoder, nil for regressors.
func (e *Ensemble) Encoder() *learner.LabelEncoder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.encoder
}

// Members returns the current members in order.
func (e *Ensemble) Members() []*learner.BaseLearner {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*learner.BaseLearner(nil), e.members...)
}

// MemberNames returns member names in order.
func (e *Ensemble) MemberNames() []string {
	members := e.Members()
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name()
	}
	return out
}

// ModelParams echoes the combination mode and each member's resolved
// configuration.
func (e *Ensemble) ModelParams() map[string]interface{} {
	members := e.Members()
	estimators := make([]evaluation.MemberParams, len(members))
	for i, m := range members {
		estimators[i] = m.MemberParams()
	}
	return map[string]interface{}{
		"voting":     e.voting,
		"estimators": estimators,
	}
}

// Clone returns an untrained ensemble with the same configuration and a
// fresh label encoder.
func (e *Ensemble) Clone() *Ensemble {
	return e.cloneWith(nil)
}

func (e *Ensemble) newEncoder() *learner.LabelEncoder {
	return learner.NewPositiveEncoder(e.opts.positive)
}

// cloneWith builds an untrained copy whose members share enc. A nil enc
// gives classifiers a fresh, unfrozen encoder.
func (e *Ensemble) cloneWith(enc *learner.LabelEncoder) *Ensemble {
	if e.kind == evaluation.Classifier && enc == nil {
		enc = e.newEncoder()
	}
	if e.kind == evaluation.Regressor {
		enc = nil
	}
	c := &Ensemble{
		models:  e.models,
		opts:    e.opts,
		kind:    e.kind,
		voting:  e.voting,
		encoder: enc,
	}
	members := e.Members()
	c.members = make([]*learner.BaseLearner, len(members))
	for i, m := range members {
		c.members[i] = m.Clone(enc)
	}
	return c
}

func (e *Ensemble) workers() int {
	if e.opts.workers > 0 {
		return e.opts.workers
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Ensemble) logger() *logging.Logger { return e.opts.logger }
