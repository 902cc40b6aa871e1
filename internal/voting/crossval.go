package voting

import (
	"context"
	"fmt"

	"govote/domain/core"
	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/folds"
	"govote/internal/learner"
	"govote/internal/predictions"
	"govote/ports"

	"golang.org/x/sync/errgroup"
)

// DefaultFolds is the number of cross-validation folds when none is given.
const DefaultFolds = 10

// CVOptions controls Ensemble.CrossValidate.
type CVOptions struct {
	Folds int
	Seed  int64
	// FoldIDs is a predefined id -> fold assignment. It must cover every id.
	FoldIDs    map[string]int
	Objective  string
	GridSearch bool
	GridFolds  int
	Metrics    []string
	// Prefix, when set, collects every fold's predictions into
	// <Prefix>_predictions.tsv.
	Prefix string
	// SaveModels returns the ensemble trained for each fold.
	SaveModels bool
	// Ledger, when set, receives every fold result under RunID.
	Ledger ports.LedgerWriterPort
	RunID  core.RunID
}

// CVResult is the outcome of a cross-validation run.
type CVResult struct {
	RunID    core.RunID
	Results  []*evaluation.Result
	FoldIDs  map[string]int
	FoldHash core.FoldHash
	// Models holds one trained ensemble per fold when SaveModels is set.
	Models []*Ensemble
}

// Export returns the run in its stored JSON form.
func (r *CVResult) Export() evaluation.RunResults {
	out := evaluation.RunResults{RunID: r.RunID, FoldHash: r.FoldHash}
	for _, res := range r.Results {
		out.Results = append(out.Results, *res)
	}
	return out
}

// CrossValidate trains and evaluates an independent copy of the ensemble
// on every fold. All folds share one frozen label encoding built from the
// full set. The receiver is not modified.
func (e *Ensemble) CrossValidate(ctx context.Context, fs *featureset.FeatureSet, opts CVOptions) (*CVResult, error) {
	if opts.Folds == 0 {
		opts.Folds = DefaultFolds
	}
	if opts.Seed == 0 {
		opts.Seed = folds.DefaultSeed
	}
	if opts.RunID == "" {
		opts.RunID = core.NewRunID()
	}
	if !fs.HasLabels() {
		return nil, errors.ConfigurationError("cannot cross-validate on %q: it has no labels", fs.Name())
	}
	if opts.GridSearch && opts.Objective == "" {
		return nil, errors.ConfigurationError("grid search requires an objective")
	}
	if _, _, err := e.scorers(EvalOptions{Objective: opts.Objective, Metrics: opts.Metrics}); err != nil {
		return nil, err
	}

	enc, err := e.globalEncoder(fs.Labels())
	if err != nil {
		return nil, err
	}
	assignment, k, err := e.assignFolds(fs, opts)
	if err != nil {
		return nil, err
	}

	log := e.logger().WithRun(opts.RunID.String())
	results := make([]*evaluation.Result, k)
	rows := make([][]predictions.Row, k)
	models := make([]*Ensemble, k)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for f := 0; f < k; f++ {
		f := f
		g.Go(func() error {
			trainRows, testRows := folds.Indices(assignment, f)
			err := func() error {
				train, err := fs.Subset(trainRows)
				if err != nil {
					return err
				}
				test, err := fs.Subset(testRows)
				if err != nil {
					return err
				}
				fold := e.cloneWith(enc)
				if err := fold.Train(gctx, train, TrainOptions{
					Objective:  opts.Objective,
					GridSearch: opts.GridSearch,
					GridFolds:  opts.GridFolds,
					Seed:       opts.Seed,
				}); err != nil {
					return err
				}
				res, pred, err := fold.evaluate(gctx, test, EvalOptions{
					Objective: opts.Objective,
					Metrics:   opts.Metrics,
				})
				if err != nil {
					return err
				}
				results[f] = res
				rows[f] = PredictionRows(pred.IDs, pred.Output)
				if opts.SaveModels {
					models[f] = fold
				}
				return nil
			}()
			log.LogFold(gctx, f, len(trainRows), len(testRows), err)
			if err != nil {
				return errors.TrainingFailure(fmt.Sprintf("fold %d", f), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Prefix != "" {
		w := predictions.NewWriter(PredictionPath(opts.Prefix, ""), e.predictionFormat(enc))
		for f := 0; f < k; f++ {
			if err := w.Write(rows[f]); err != nil {
				return nil, err
			}
		}
	}

	if opts.Ledger != nil {
		for f, res := range results {
			if err := opts.Ledger.StoreEvaluation(ctx, opts.RunID, f, *res); err != nil {
				return nil, errors.Wrapf(err, "storing fold %d", f)
			}
		}
	}

	ids := make(map[string]int, fs.Len())
	for i, f := range assignment {
		ids[fs.ID(i)] = f
	}
	out := &CVResult{
		RunID:    opts.RunID,
		Results:  results,
		FoldIDs:  ids,
		FoldHash: core.ComputeFoldHash(ids),
	}
	if opts.SaveModels {
		out.Models = models
	}
	return out, nil
}

// globalEncoder returns a frozen encoder covering labels: the ensemble's
// own when already frozen, otherwise a new one. The ensemble is not
// modified.
func (e *Ensemble) globalEncoder(labels []string) (*learner.LabelEncoder, error) {
	if e.kind == evaluation.Regressor {
		return nil, nil
	}
	if current := e.Encoder(); current != nil && current.Frozen() {
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

func (e *Ensemble) assignFolds(fs *featureset.FeatureSet, opts CVOptions) ([]int, int, error) {
	if opts.FoldIDs != nil {
		return folds.FromAssignment(fs, opts.FoldIDs)
	}
	planner := folds.NewPlanner(opts.Seed)
	var (
		plan map[string]int
		err  error
	)
	if e.kind == evaluation.Regressor {
		plan, err = planner.PlanRegression(fs, opts.Folds)
	} else {
		plan, err = planner.Plan(fs, opts.Folds)
	}
	if err != nil {
		return nil, 0, err
	}
	return folds.FromAssignment(fs, plan)
}
