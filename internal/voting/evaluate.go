package voting

import (
	"context"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/learner"
	"govote/internal/metrics"

	"github.com/montanaflynn/stats"
)

// EvalOptions controls Ensemble.Evaluate.
type EvalOptions struct {
	// Objective is reported as Result.Objective; empty leaves it nil.
	Objective string
	// Metrics are extra metric names reported in Result.Metrics.
	Metrics []string
	// Prefix, when set, writes the predictions made for the evaluation.
	Prefix     string
	Individual bool
}

// Evaluate predicts fs with the trained ensemble and scores the
// predictions against its labels.
func (e *Ensemble) Evaluate(ctx context.Context, fs *featureset.FeatureSet, opts EvalOptions) (*evaluation.Result, error) {
	res, pred, err := e.evaluate(ctx, fs, opts)
	if err != nil {
		return nil, err
	}
	if opts.Prefix != "" {
		if err := e.writePredictions(opts.Prefix, pred, opts.Individual); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (e *Ensemble) evaluate(ctx context.Context, fs *featureset.FeatureSet, opts EvalOptions) (*evaluation.Result, *Prediction, error) {
	if !fs.HasLabels() {
		return nil, nil, errors.ConfigurationError("cannot evaluate on %q: it has no labels", fs.Name())
	}
	objective, extra, err := e.scorers(opts)
	if err != nil {
		return nil, nil, err
	}

	pred, err := e.predict(ctx, fs, true, opts.Individual)
	if err != nil {
		return nil, nil, err
	}

	res := &evaluation.Result{
		ModelParams: e.ModelParams(),
		Metrics:     map[string]float64{},
	}

	var yTrue, yPred []float64
	var enc *learner.LabelEncoder
	if e.kind == evaluation.Regressor {
		if yTrue, err = fs.NumericLabels(); err != nil {
			return nil, nil, errors.WithCode(errors.CodeConfiguration, err)
		}
		yPred = pred.Values
		if res.Detail, err = regressionDetail(yTrue, yPred); err != nil {
			return nil, nil, err
		}
	} else {
		enc = e.Encoder()
		if yTrue, err = enc.EncodeAll(fs.Labels()); err != nil {
			return nil, nil, err
		}
		yPred = toFloats(pred.Codes)
		if err := classificationDetail(res, enc, yTrue, pred.Codes); err != nil {
			return nil, nil, err
		}
	}

	if objective != nil {
		v, err := learner.ScoreCodes(*objective, enc, yTrue, yPred)
		if err != nil {
			return nil, nil, err
		}
		res.Objective = &v
	}
	for _, s := range extra {
		v, err := learner.ScoreCodes(s, enc, yTrue, yPred)
		if err != nil {
			return nil, nil, err
		}
		res.Metrics[s.Name] = v
	}
	return res, pred, nil
}

// scorers resolves the objective and extra metrics, rejecting metrics that
// cannot rate this kind of ensemble.
func (e *Ensemble) scorers(opts EvalOptions) (*metrics.Scorer, []metrics.Scorer, error) {
	check := func(name string) (metrics.Scorer, error) {
		s, err := metrics.Lookup(name)
		if err != nil {
			return s, err
		}
		if e.kind == evaluation.Regressor && !s.AllowsRegression() {
			return s, errors.ConfigurationError("metric %q cannot be used with a regressor", name)
		}
		if e.kind == evaluation.Classifier && !s.AllowsClassification() {
			return s, errors.ConfigurationError("metric %q cannot be used with a classifier", name)
		}
		return s, nil
	}

	var objective *metrics.Scorer
	if opts.Objective != "" {
		s, err := check(opts.Objective)
		if err != nil {
			return nil, nil, err
		}
		objective = &s
	}
	extra := make([]metrics.Scorer, 0, len(opts.Metrics))
	for _, name := range opts.Metrics {
		s, err := check(name)
		if err != nil {
			return nil, nil, err
		}
		extra = append(extra, s)
	}
	return objective, extra, nil
}

func classificationDetail(res *evaluation.Result, enc *learner.LabelEncoder, yTrue []float64, predCodes []int) error {
	trueCodes := make([]int, len(yTrue))
	for i, c := range yTrue {
		trueCodes[i] = int(c)
	}
	cm, err := metrics.ConfusionMatrix(trueCodes, predCodes, enc.Len())
	if err != nil {
		return err
	}
	res.ConfusionMatrix = cm

	yPred := toFloats(predCodes)
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return err
	}
	res.Accuracy = &acc

	scores, err := metrics.PerLabel(yTrue, yPred)
	if err != nil {
		return err
	}
	res.Detail = make(map[string]interface{}, len(scores))
	for _, s := range scores {
		label, err := enc.Decode(int(s.Label))
		if err != nil {
			return err
		}
		res.Detail[label] = map[string]interface{}{
			"precision": s.Precision,
			"recall":    s.Recall,
			"f1":        s.F1,
			"support":   s.Support,
		}
	}
	return nil
}

func regressionDetail(yTrue, yPred []float64) (map[string]interface{}, error) {
	detail := map[string]interface{}{}
	if r, err := metrics.Pearson(yTrue, yPred); err == nil {
		detail["pearson"] = r
	}
	actual, err := describe(yTrue)
	if err != nil {
		return nil, err
	}
	predicted, err := describe(yPred)
	if err != nil {
		return nil, err
	}
	detail["descriptive"] = map[string]interface{}{
		"actual":    actual,
		"predicted": predicted,
	}
	return detail, nil
}

func describe(v []float64) (map[string]float64, error) {
	data := stats.Float64Data(v)
	lo, err := data.Min()
	if err != nil {
		return nil, err
	}
	hi, err := data.Max()
	if err != nil {
		return nil, err
	}
	avg, err := data.Mean()
	if err != nil {
		return nil, err
	}
	std, err := data.StandardDeviationPopulation()
	if err != nil {
		return nil, err
	}
	return map[string]float64{"min": lo, "max": hi, "avg": avg, "std": std}, nil
}
