package voting

import (
	"slices"

	"govote/domain/evaluation"
	"govote/internal/errors"
	"govote/internal/learner"
)

// Artifact is everything needed to predict with a trained ensemble
// without training it again.
type Artifact struct {
	LearnerType evaluation.LearnerType
	Voting      string
	// Labels is the shared label encoding in code order, nil for regressors.
	Labels []string
	// Order lists member names in ensemble order.
	Order   []string
	Members map[string]*learner.BaseLearner
}

// Artifact exposes the trained ensemble.
func (e *Ensemble) Artifact() (*Artifact, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.trained {
		return nil, errors.ConfigurationError("ensemble has not been trained")
	}
	a := &Artifact{
		LearnerType: e.kind,
		Voting:      e.voting,
		Members:     make(map[string]*learner.BaseLearner, len(e.members)),
	}
	if e.encoder != nil {
		a.Labels = e.encoder.Labels()
	}
	for _, m := range e.members {
		a.Order = append(a.Order, m.Name())
		a.Members[m.Name()] = m
	}
	return a, nil
}

// FromArtifact reassembles a trained ensemble. Every member is rebound to
// one frozen encoder that keeps the order of a.Labels.
func FromArtifact(a *Artifact, opts ...Option) (*Ensemble, error) {
	if a == nil || len(a.Order) == 0 {
		return nil, errors.ConfigurationError("artifact has no members")
	}
	models := make([]string, len(a.Order))
	for i, name := range a.Order {
		m, ok := a.Members[name]
		if !ok {
			return nil, errors.ConfigurationError("artifact is missing member %q", name)
		}
		if !m.Trained() {
			return nil, errors.ConfigurationError("artifact member %q is not trained", name)
		}
		if m.Kind() != a.LearnerType {
			return nil, errors.ConfigurationError("artifact member %q is a %s, not a %s", name, m.Kind(), a.LearnerType)
		}
		if enc := m.Encoder(); enc != nil && !slices.Equal(enc.Labels(), a.Labels) {
			return nil, errors.ConfigurationError("artifact member %q was trained on labels %v, not %v", name, enc.Labels(), a.Labels)
		}
		models[i] = m.Model()
	}

	var enc *learner.LabelEncoder
	if a.LearnerType == evaluation.Classifier {
		var err error
		if enc, err = learner.NewOrderedEncoder(a.Labels); err != nil {
			return nil, err
		}
	}

	opts = append([]Option{WithMemberNames(a.Order)}, opts...)
	if a.LearnerType == evaluation.Classifier {
		opts = append(opts, WithVoting(a.Voting))
	}
	e, err := New(models, opts...)
	if err != nil {
		return nil, err
	}
	e.encoder = enc
	for i, name := range a.Order {
		e.members[i] = a.Members[name].WithEncoder(enc)
	}
	e.trained = true
	return e, nil
}
