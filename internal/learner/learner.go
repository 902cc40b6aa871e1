// Package learner holds the single-model side of an ensemble: the shared
// label encoder, the estimator catalog and built-in estimators, feature
// preprocessing, hyperparameter search and BaseLearner.
package learner

import (
	"context"
	"fmt"
	"time"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/logging"
	"govote/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// DefaultGridFolds is the number of internal folds used by grid search.
const DefaultGridFolds = 3

// Config describes one learner before training.
type Config struct {
	// Model is the catalog name of the estimator family.
	Model string
	// Name identifies the member inside an ensemble; defaults to Model.
	Name           string
	Params         Params
	FeatureScaling string
	Sampler        string
	SamplerParams  Params
	Probability    bool
	Catalog        *Catalog
	Logger         *logging.Logger
}

// TrainOptions controls a single training call.
type TrainOptions struct {
	Objective  string
	GridSearch bool
	ParamGrid  ParamGrid
	GridFolds  int
	Searcher   GridSearcher
	Seed       int64
}

// BaseLearner wraps one estimator with its preprocessing and the shared
// label encoder. Training state is replaced only when Train succeeds.
type BaseLearner struct {
	cfg     Config
	entry   Entry
	encoder *LabelEncoder
	logger  *logging.Logger

	state *trainedState
}

type trainedState struct {
	features  int
	params    Params
	scaler    *Scaler
	sampler   Transformer
	estimator Estimator
	gridScore *float64
	trainedAt time.Time
}

// New validates cfg against the catalog. Classifiers need a non-nil
// encoder; regressors ignore it.
func New(cfg Config, encoder *LabelEncoder) (*BaseLearner, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoopLogger()
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Model
	}
	if cfg.FeatureScaling == "" {
		cfg.FeatureScaling = ScaleNone
	}

	entry, err := cfg.Catalog.Lookup(cfg.Model)
	if err != nil {
		return nil, err
	}
	if !ValidScaling(cfg.FeatureScaling) {
		return nil, errors.ConfigurationError(
			"feature_scaling must be one of none, with_mean, with_std, both; got %q", cfg.FeatureScaling)
	}
	if cfg.Sampler != "" {
		if _, err := NewSampler(cfg.Sampler, cfg.SamplerParams); err != nil {
			return nil, err
		}
	}
	if cfg.Probability && !entry.Probabilistic {
		return nil, errors.ConfigurationError("%s does not produce class probabilities", cfg.Model)
	}
	if entry.Kind == evaluation.Regressor {
		if cfg.Probability {
			return nil, errors.ConfigurationError("probability output is not available for regressor %s", cfg.Model)
		}
		encoder = nil
	} else if encoder == nil {
		return nil, errors.ConfigurationError("classifier %s requires a label encoder", cfg.Model)
	}
	if _, err := entry.New(entry.Defaults.Merge(cfg.Params)); err != nil {
		return nil, errors.Wrapf(err, "invalid parameters for %s", cfg.Name)
	}

	cfg.Params = cfg.Params.Clone()
	cfg.SamplerParams = cfg.SamplerParams.Clone()
	return &BaseLearner{
		cfg:     cfg,
		entry:   entry,
		encoder: encoder,
		logger:  cfg.Logger.WithMember(cfg.Name),
	}, nil
}

func (l *BaseLearner) Name() string                 { return l.cfg.Name }
func (l *BaseLearner) Model() string                { return l.cfg.Model }
func (l *BaseLearner) Kind() evaluation.LearnerType { return l.entry.Kind }
func (l *BaseLearner) Probabilistic() bool          { return l.entry.Probabilistic }
func (l *BaseLearner) Probability() bool            { return l.cfg.Probability }
func (l *BaseLearner) Encoder() *LabelEncoder       { return l.encoder }
func (l *BaseLearner) Config() Config               { return l.cfg }
func (l *BaseLearner) Trained() bool                { return l.state != nil }

// Entry returns the catalog entry backing the learner.
func (l *BaseLearner) Entry() Entry { return l.entry }

// Params returns the resolved hyperparameters: the catalog defaults with
// configured and grid-searched overrides applied. Before training it
// returns the configured values.
func (l *BaseLearner) Params() Params {
	if l.state != nil {
		return l.state.params.Clone()
	}
	return l.entry.Defaults.Merge(l.cfg.Params)
}

// GridScore returns the cross-validated objective of the chosen grid
// candidate, or nil when no grid search ran.
func (l *BaseLearner) GridScore() *float64 {
	if l.state == nil {
		return nil
	}
	return l.state.gridScore
}

// MemberParams reports the configuration the learner was fitted with.
func (l *BaseLearner) MemberParams() evaluation.MemberParams {
	return evaluation.MemberParams{
		Name:    l.cfg.Name,
		Model:   l.cfg.Model,
		Params:  map[string]interface{}(l.Params()),
		Scaling: l.cfg.FeatureScaling,
		Sampler: l.cfg.Sampler,
	}
}

// Clone returns an untrained learner with the same configuration. The
// encoder argument replaces the shared encoder; pass nil to keep it.
func (l *BaseLearner) Clone(encoder *LabelEncoder) *BaseLearner {
	if encoder == nil {
		encoder = l.encoder
	}
	if l.entry.Kind == evaluation.Regressor {
		encoder = nil
	}
	cfg := l.cfg
	cfg.Params = l.cfg.Params.Clone()
	cfg.SamplerParams = l.cfg.SamplerParams.Clone()
	return &BaseLearner{cfg: cfg, entry: l.entry, encoder: encoder, logger: l.logger}
}

// WithEncoder returns a copy that keeps the trained state but reads labels
// through enc. Regressors ignore enc.
func (l *BaseLearner) WithEncoder(enc *LabelEncoder) *BaseLearner {
	c := *l
	c.encoder = enc
	if l.entry.Kind == evaluation.Regressor {
		c.encoder = nil
	}
	return &c
}

// Train fits preprocessing and the estimator on fs.
func (l *BaseLearner) Train(ctx context.Context, fs *featureset.FeatureSet, opts TrainOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !fs.HasLabels() {
		return errors.ConfigurationError("feature set %q has no labels to train %s on", fs.Name(), l.cfg.Name)
	}

	y, err := l.targets(fs)
	if err != nil {
		return err
	}

	state := &trainedState{features: fs.NumFeatures(), params: l.entry.Defaults.Merge(l.cfg.Params)}
	X, err := state.fitPreprocessing(l.cfg, fs.Features())
	if err != nil {
		return errors.TrainingFailure(l.cfg.Name, err)
	}

	if opts.GridSearch {
		if err := l.search(ctx, state, X, y, opts); err != nil {
			return err
		}
	}

	est, err := l.entry.New(state.params)
	if err != nil {
		return errors.Wrapf(err, "invalid parameters for %s", l.cfg.Name)
	}
	if c, ok := est.(Classifier); ok {
		c.SetNumClasses(l.encoder.Len())
	}
	if err := est.Fit(X, y); err != nil {
		l.logger.LogTrain(ctx, l.cfg.Name, fs.Len(), err)
		return errors.TrainingFailure(l.cfg.Name, err)
	}

	state.estimator = est
	state.trainedAt = time.Now()
	l.state = state
	l.logger.LogTrain(ctx, l.cfg.Name, fs.Len(), nil)
	return nil
}

func (l *BaseLearner) search(ctx context.Context, state *trainedState, X *mat.Dense, y []float64, opts TrainOptions) error {
	if opts.Objective == "" {
		return errors.ConfigurationError("grid search for %s requires an objective", l.cfg.Name)
	}
	scorer, err := metrics.Lookup(opts.Objective)
	if err != nil {
		return errors.WithCode(errors.CodeConfiguration, err)
	}
	grid := opts.ParamGrid
	if grid == nil {
		grid = l.entry.DefaultGrid
	}
	searcher := opts.Searcher
	if searcher == nil {
		searcher = KFoldGridSearch{}
	}
	folds := opts.GridFolds
	if folds == 0 {
		folds = DefaultGridFolds
	}

	numClasses := 0
	if l.encoder != nil {
		numClasses = l.encoder.Len()
	}
	best, score, err := searcher.Search(ctx, SearchRequest{
		Entry:      l.entry,
		Base:       state.params,
		Grid:       grid,
		X:          X,
		Y:          y,
		Encoder:    l.encoder,
		Objective:  scorer,
		Folds:      folds,
		Seed:       opts.Seed,
		NumClasses: numClasses,
	})
	if err != nil {
		return errors.TrainingFailure(l.cfg.Name+" grid search", err)
	}
	state.params = state.params.Merge(best)
	state.gridScore = &score
	l.logger.DebugContext(ctx, "grid search finished",
		"objective", scorer.Name,
		"score", score,
		"candidates", grid.Size(),
	)
	return nil
}

func (l *BaseLearner) targets(fs *featureset.FeatureSet) ([]float64, error) {
	if l.entry.Kind == evaluation.Regressor {
		y, err := fs.NumericLabels()
		if err != nil {
			return nil, errors.WithCode(errors.CodeConfiguration, err)
		}
		return y, nil
	}
	labels := fs.Labels()
	if err := l.encoder.Fit(labels); err != nil {
		return nil, err
	}
	return l.encoder.EncodeAll(labels)
}

func (s *trainedState) fitPreprocessing(cfg Config, X *mat.Dense) (*mat.Dense, error) {
	scaler, err := NewScaler(cfg.FeatureScaling)
	if err != nil {
		return nil, err
	}
	if err := scaler.Fit(X); err != nil {
		return nil, err
	}
	out, err := scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	s.scaler = scaler

	if cfg.Sampler != "" {
		sampler, err := NewSampler(cfg.Sampler, cfg.SamplerParams)
		if err != nil {
			return nil, err
		}
		if err := sampler.Fit(out); err != nil {
			return nil, err
		}
		if out, err = sampler.Transform(out); err != nil {
			return nil, err
		}
		s.sampler = sampler
	}
	return out, nil
}

// transform applies the fitted preprocessing without refitting it.
func (s *trainedState) transform(X *mat.Dense) (*mat.Dense, error) {
	out, err := s.scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	if s.sampler != nil {
		return s.sampler.Transform(out)
	}
	return out, nil
}

func (l *BaseLearner) prepare(fs *featureset.FeatureSet) (*mat.Dense, error) {
	if l.state == nil {
		return nil, errors.ConfigurationError("%s has not been trained", l.cfg.Name)
	}
	if fs.Len() == 0 {
		return nil, errors.InvalidInput("cannot predict on an empty feature set")
	}
	if fs.NumFeatures() != l.state.features {
		return nil, errors.InvalidInput(fmt.Sprintf(
			"%s was trained on %d features, got %d", l.cfg.Name, l.state.features, fs.NumFeatures()))
	}
	X, err := l.state.transform(fs.Features())
	if err != nil {
		return nil, errors.Wrapf(err, "preprocessing for %s", l.cfg.Name)
	}
	return X, nil
}

// Predict returns label codes for classifiers and values for regressors.
func (l *BaseLearner) Predict(fs *featureset.FeatureSet) ([]float64, error) {
	X, err := l.prepare(fs)
	if err != nil {
		return nil, err
	}
	return l.state.estimator.Predict(X)
}

// PredictProba returns one probability column per encoder class. It needs
// a learner configured with Probability.
func (l *BaseLearner) PredictProba(fs *featureset.FeatureSet) (*mat.Dense, error) {
	if !l.cfg.Probability {
		return nil, errors.CapabilityError("%s was not configured for probability output", l.cfg.Name)
	}
	X, err := l.prepare(fs)
	if err != nil {
		return nil, err
	}
	pc, ok := l.state.estimator.(ProbabilisticClassifier)
	if !ok {
		return nil, errors.CapabilityError("%s does not produce class probabilities", l.cfg.Model)
	}
	return pc.PredictProba(X)
}
