package voting

import (
	"context"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/folds"
	"govote/internal/learner"

	"golang.org/x/sync/errgroup"
)

// TrainOptions controls Ensemble.Train.
type TrainOptions struct {
	// Objective names the metric grid search maximises.
	Objective  string
	GridSearch bool
	// ParamGrids optionally overrides each member's default grid, one
	// entry per member.
	ParamGrids []learner.ParamGrid
	GridFolds  int
	Seed       int64
	Searcher   learner.GridSearcher
}

// Train fits every member independently on fs. Members are trained as
// fresh copies and swapped in only when all of them succeed. The shared
// label encoding is frozen from the first successful training on.
func (e *Ensemble) Train(ctx context.Context, fs *featureset.FeatureSet, opts TrainOptions) error {
	members := e.Members()
	if err := checkLength("param_grid_list", len(opts.ParamGrids), len(members)); err != nil {
		return err
	}
	if opts.GridSearch && opts.Objective == "" {
		return errors.ConfigurationError("grid search requires an objective")
	}
	if !fs.HasLabels() {
		return errors.ConfigurationError("feature set %q has no labels", fs.Name())
	}
	if opts.Seed == 0 {
		opts.Seed = folds.DefaultSeed
	}

	enc, err := e.trainingEncoder(fs.Labels())
	if err != nil {
		return err
	}

	fresh := make([]*learner.BaseLearner, len(members))
	for i, m := range members {
		fresh[i] = m.Clone(enc)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, m := range fresh {
		i, m := i, m
		g.Go(func() error {
			to := learner.TrainOptions{
				Objective:  opts.Objective,
				GridSearch: opts.GridSearch,
				GridFolds:  opts.GridFolds,
				Seed:       opts.Seed,
				Searcher:   opts.Searcher,
			}
			if opts.ParamGrids != nil {
				to.ParamGrid = opts.ParamGrids[i]
			}
			if err := m.Train(gctx, fs, to); err != nil {
				if errors.IsAppError(err) {
					return err
				}
				return errors.TrainingFailure(m.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.members = fresh
	e.encoder = enc
	e.trained = true
	e.logger().InfoContext(ctx, "ensemble trained",
		"members", len(fresh),
		"examples", fs.Len(),
		"voting", e.voting,
	)
	return nil
}

// trainingEncoder returns the encoder members are trained against: the
// frozen shared encoder when there is one, otherwise a new encoder fitted
// on labels and frozen before any member sees it.
func (e *Ensemble) trainingEncoder(labels []string) (*learner.LabelEncoder, error) {
	if e.kind == evaluation.Regressor {
		return nil, nil
	}
	current := e.Encoder()
	if current != nil && current.Frozen() {
		if err := current.Fit(labels); err != nil {
			return nil, err
		}
		return current, nil
	}
	enc := e.newEncoder()
	if err := enc.Fit(labels); err != nil {
		return nil, err
	}
	enc.Freeze()
	return enc, nil
}
