package voting

import (
	"context"
	"fmt"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/folds"
	"govote/internal/learner"
	"govote/internal/metrics"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// MinLearningCurveExamples is the smallest data set a learning curve is
// computed on without OverrideMinimum.
const MinLearningCurveExamples = 500

// Learning-curve defaults.
const (
	DefaultCurveSplits   = 10
	DefaultCurveTestSize = 0.2
)

// LCOptions controls Ensemble.LearningCurve.
type LCOptions struct {
	// Metric scores both the training and the held-out side.
	Metric string
	// CVFolds is the number of shuffle splits.
	CVFolds  int
	TestSize float64
	// TrainSizes are fractions of the training partition; defaults to
	// five evenly spaced values from 0.1 to 1.0.
	TrainSizes      []float64
	OverrideMinimum bool
	Seed            int64
}

// Curve holds per-size, per-split scores and their aggregates.
type Curve struct {
	TrainSizes  []int
	TrainScores [][]float64
	TestScores  [][]float64
	TrainMean   []float64
	TrainStd    []float64
	TestMean    []float64
	TestStd     []float64
}

// LearningCurve trains independent copies of the ensemble on growing
// prefixes of shuffled training partitions and scores each on its
// training rows and the held-out rows.
func (e *Ensemble) LearningCurve(ctx context.Context, fs *featureset.FeatureSet, opts LCOptions) (*Curve, error) {
	if opts.CVFolds == 0 {
		opts.CVFolds = DefaultCurveSplits
	}
	if opts.TestSize == 0 {
		opts.TestSize = DefaultCurveTestSize
	}
	if opts.TrainSizes == nil {
		opts.TrainSizes = folds.Linspace(0.1, 1.0, 5)
	}
	if opts.Seed == 0 {
		opts.Seed = folds.DefaultSeed
	}
	if opts.Metric == "" {
		return nil, errors.ConfigurationError("a learning curve requires a metric")
	}
	if !fs.HasLabels() {
		return nil, errors.ConfigurationError("cannot compute a learning curve on %q: it has no labels", fs.Name())
	}

	n := fs.Len()
	if n < MinLearningCurveExamples {
		if !opts.OverrideMinimum {
			return nil, errors.ConfigurationError(
				"learning curves need at least %d examples, got %d; set the override to proceed anyway",
				MinLearningCurveExamples, n)
		}
		e.logger().WarnContext(ctx,
			fmt.Sprintf("Learning curves can be unreliable for examples fewer than %d. You provided %d.",
				MinLearningCurveExamples, n),
			"minimum", MinLearningCurveExamples,
			"provided", n,
		)
	}

	objective, _, err := e.scorers(EvalOptions{Objective: opts.Metric})
	if err != nil {
		return nil, err
	}
	enc, err := e.globalEncoder(fs.Labels())
	if err != nil {
		return nil, err
	}
	splits, err := folds.ShuffleSplit(n, opts.CVFolds, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	sizes, err := folds.TrainSizes(opts.TrainSizes, len(splits[0].Train))
	if err != nil {
		return nil, err
	}

	curve := &Curve{
		TrainSizes:  sizes,
		TrainScores: make([][]float64, len(sizes)),
		TestScores:  make([][]float64, len(sizes)),
	}
	for i := range sizes {
		curve.TrainScores[i] = make([]float64, len(splits))
		curve.TestScores[i] = make([]float64, len(splits))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, size := range sizes {
		for s, split := range splits {
			i, size, s, split := i, size, s, split
			g.Go(func() error {
				trainScore, testScore, err := e.curvePoint(gctx, fs, enc, *objective, split.Train[:size], split.Test, opts.Seed)
				if err != nil {
					return errors.TrainingFailure(fmt.Sprintf("learning curve size %d split %d", size, s), err)
				}
				curve.TrainScores[i][s] = trainScore
				curve.TestScores[i][s] = testScore
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range sizes {
		mean, std, err := meanStd(curve.TrainScores[i])
		if err != nil {
			return nil, err
		}
		curve.TrainMean = append(curve.TrainMean, mean)
		curve.TrainStd = append(curve.TrainStd, std)
		if mean, std, err = meanStd(curve.TestScores[i]); err != nil {
			return nil, err
		}
		curve.TestMean = append(curve.TestMean, mean)
		curve.TestStd = append(curve.TestStd, std)
	}
	return curve, nil
}

func (e *Ensemble) curvePoint(ctx context.Context, fs *featureset.FeatureSet, enc *learner.LabelEncoder,
	scorer metrics.Scorer, trainRows, testRows []int, seed int64) (float64, float64, error) {
	train, err := fs.Subset(trainRows)
	if err != nil {
		return 0, 0, err
	}
	test, err := fs.Subset(testRows)
	if err != nil {
		return 0, 0, err
	}
	point := e.cloneWith(enc)
	if err := point.Train(ctx, train, TrainOptions{Seed: seed}); err != nil {
		return 0, 0, err
	}
	trainScore, err := point.score(ctx, train, scorer)
	if err != nil {
		return 0, 0, err
	}
	testScore, err := point.score(ctx, test, scorer)
	if err != nil {
		return 0, 0, err
	}
	return trainScore, testScore, nil
}

// score rates the trained ensemble's predictions on fs with scorer.
func (e *Ensemble) score(ctx context.Context, fs *featureset.FeatureSet, scorer metrics.Scorer) (float64, error) {
	pred, err := e.predict(ctx, fs, false, false)
	if err != nil {
		return 0, err
	}
	if e.kind == evaluation.Regressor {
		y, err := fs.NumericLabels()
		if err != nil {
			return 0, errors.WithCode(errors.CodeConfiguration, err)
		}
		return scorer.Score(y, pred.Values)
	}
	enc := e.Encoder()
	y, err := enc.EncodeAll(fs.Labels())
	if err != nil {
		return 0, err
	}
	return learner.ScoreCodes(scorer, enc, y, toFloats(pred.Codes))
}

func toFloats(codes []int) []float64 {
	out := make([]float64, len(codes))
	for i, c := range codes {
		out[i] = float64(c)
	}
	return out
}

// meanStd returns the mean and population standard deviation of v.
func meanStd(v []float64) (float64, float64, error) {
	data := stats.Float64Data(v)
	mean, err := data.Mean()
	if err != nil {
		return 0, 0, err
	}
	std, err := data.StandardDeviationPopulation()
	if err != nil {
		return 0, 0, err
	}
	return mean, std, nil
}
