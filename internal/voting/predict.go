package voting

import (
	"context"
	"fmt"
	"math"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/learner"
	"govote/internal/predictions"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PredictOptions controls Ensemble.Predict.
type PredictOptions struct {
	// ClassLabels translates codes back into the original labels.
	ClassLabels bool
	// Individual also returns every member's own output.
	Individual bool
	// Prefix, when set, writes <Prefix>_predictions.tsv and, with
	// Individual, <Prefix>_<member>_predictions.tsv.
	Prefix string
}

// Output is one set of predictions, from the ensemble or a single member.
type Output struct {
	// Codes are class codes (classifiers).
	Codes []int
	// Labels are decoded class labels, set when ClassLabels is requested.
	Labels []string
	// Values are regression predictions.
	Values []float64
	// Probabilities has one column per class for soft voting.
	Probabilities *mat.Dense
}

// Prediction is the result of Ensemble.Predict.
type Prediction struct {
	IDs []string
	Output
	// Individual maps member name to that member's output.
	Individual map[string]Output
}

// Predict queries every member and combines their outputs: the mean for
// regressors, the most voted code for hard voting, and the argmax of the
// averaged probabilities for soft voting. Ties go to the lowest code.
func (e *Ensemble) Predict(ctx context.Context, fs *featureset.FeatureSet, opts PredictOptions) (*Prediction, error) {
	p, err := e.predict(ctx, fs, opts.ClassLabels || opts.Prefix != "", opts.Individual)
	if err != nil {
		return nil, err
	}
	if opts.Prefix != "" {
		if err := e.writePredictions(opts.Prefix, p, opts.Individual); err != nil {
			return nil, err
		}
	}
	if !opts.ClassLabels {
		p.Labels = nil
		for name, o := range p.Individual {
			o.Labels = nil
			p.Individual[name] = o
		}
	}
	return p, nil
}

type memberOutput struct {
	values []float64
	probs  *mat.Dense
}

func (e *Ensemble) predict(ctx context.Context, fs *featureset.FeatureSet, decode, individual bool) (*Prediction, error) {
	e.mu.RLock()
	trained := e.trained
	members := append([]*learner.BaseLearner(nil), e.members...)
	enc := e.encoder
	e.mu.RUnlock()
	if !trained {
		return nil, errors.ConfigurationError("ensemble has not been trained")
	}

	outs := make([]memberOutput, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if e.voting == Soft {
				p, err := m.PredictProba(fs)
				if err != nil {
					return errors.Wrapf(err, "member %s", m.Name())
				}
				if err := checkProbabilities(m.Name(), p, fs.Len(), enc.Len()); err != nil {
					return err
				}
				outs[i].probs = p
				return nil
			}
			v, err := m.Predict(fs)
			if err != nil {
				return errors.Wrapf(err, "member %s", m.Name())
			}
			if err := checkValues(m.Name(), v, fs.Len(), enc); err != nil {
				return err
			}
			outs[i].values = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pred := &Prediction{IDs: fs.IDs()}
	switch {
	case e.kind == evaluation.Regressor:
		pred.Values = meanPredictions(outs)
	case e.voting == Soft:
		pred.Probabilities = averageProbabilities(outs)
		pred.Codes = argmaxCodes(pred.Probabilities)
	default:
		pred.Codes = majorityVote(outs, enc.Len())
	}

	if individual {
		pred.Individual = make(map[string]Output, len(members))
		for i, m := range members {
			o := Output{Probabilities: outs[i].probs}
			switch {
			case e.kind == evaluation.Regressor:
				o.Values = outs[i].values
			case outs[i].probs != nil:
				o.Codes = argmaxCodes(outs[i].probs)
			default:
				o.Codes = toCodes(outs[i].values)
			}
			pred.Individual[m.Name()] = o
		}
	}

	if decode && enc != nil {
		labels, err := enc.DecodeAll(pred.Codes)
		if err != nil {
			return nil, err
		}
		pred.Labels = labels
		for name, o := range pred.Individual {
			if o.Labels, err = enc.DecodeAll(o.Codes); err != nil {
				return nil, err
			}
			pred.Individual[name] = o
		}
	}
	return pred, nil
}

// checkProbabilities rejects a member probability matrix that is not
// rows x classes.
func checkProbabilities(member string, p *mat.Dense, rows, classes int) error {
	if p == nil {
		return errors.CapabilityError("member %s returned no probabilities", member)
	}
	if r, c := p.Dims(); r != rows || c != classes {
		return errors.CapabilityError(
			"member %s returned %dx%d probabilities, want %dx%d", member, r, c, rows, classes)
	}
	return nil
}

// checkValues rejects a member prediction of the wrong length and, for
// classifiers, any code that is not an integer in [0, enc.Len()).
func checkValues(member string, v []float64, rows int, enc *learner.LabelEncoder) error {
	if len(v) != rows {
		return errors.CapabilityError("member %s returned %d predictions for %d rows", member, len(v), rows)
	}
	if enc == nil {
		return nil
	}
	classes := float64(enc.Len())
	for i, x := range v {
		if x != math.Trunc(x) || x < 0 || x >= classes {
			return errors.CapabilityError(
				"member %s predicted class code %v at row %d, want an integer in [0, %d)", member, x, i, enc.Len())
		}
	}
	return nil
}

// meanPredictions averages member regression outputs row by row.
func meanPredictions(outs []memberOutput) []float64 {
	n := len(outs[0].values)
	out := make([]float64, n)
	for _, o := range outs {
		floats.Add(out, o.values)
	}
	for i := range out {
		out[i] /= float64(len(outs))
	}
	return out
}

// majorityVote returns, per row, the code with the most member votes,
// the lowest code among ties.
func majorityVote(outs []memberOutput, numClasses int) []int {
	n := len(outs[0].values)
	out := make([]int, n)
	counts := make([]float64, numClasses)
	for i := 0; i < n; i++ {
		for c := range counts {
			counts[c] = 0
		}
		for _, o := range outs {
			counts[int(o.values[i])]++
		}
		out[i] = floats.MaxIdx(counts)
	}
	return out
}

// averageProbabilities is the unweighted elementwise mean of member
// probability matrices.
func averageProbabilities(outs []memberOutput) *mat.Dense {
	r, c := outs[0].probs.Dims()
	avg := mat.NewDense(r, c, nil)
	for _, o := range outs {
		avg.Add(avg, o.probs)
	}
	avg.Scale(1/float64(len(outs)), avg)
	return avg
}

func argmaxCodes(p *mat.Dense) []int {
	r, _ := p.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = floats.MaxIdx(p.RawRowView(i))
	}
	return out
}

func toCodes(v []float64) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = int(x)
	}
	return out
}

// predictionFormat is the prediction file layout: every class column for
// soft voting, a single prediction column otherwise.
func (e *Ensemble) predictionFormat(enc *learner.LabelEncoder) predictions.Format {
	if e.voting == Soft {
		return predictions.Format{Mode: predictions.AllProbabilities, ClassLabels: enc.Labels()}
	}
	return predictions.Format{Mode: predictions.Labels}
}

// PredictionRows renders one output as prediction file rows: probabilities
// when present, then values, labels, and finally raw codes.
func PredictionRows(ids []string, o Output) []predictions.Row {
	rows := make([]predictions.Row, len(ids))
	for i, id := range ids {
		rows[i].ID = id
		switch {
		case o.Probabilities != nil:
			rows[i].Probabilities = mat.Row(nil, i, o.Probabilities)
		case o.Values != nil:
			rows[i].Prediction = predictions.FormatFloat(o.Values[i])
		case o.Labels != nil:
			rows[i].Prediction = o.Labels[i]
		default:
			rows[i].Prediction = fmt.Sprint(o.Codes[i])
		}
	}
	return rows
}

func (e *Ensemble) writePredictions(prefix string, p *Prediction, individual bool) error {
	format := e.predictionFormat(e.Encoder())
	if err := predictions.NewWriter(PredictionPath(prefix, ""), format).Write(PredictionRows(p.IDs, p.Output)); err != nil {
		return err
	}
	if !individual {
		return nil
	}
	for _, name := range e.MemberNames() {
		rows := PredictionRows(p.IDs, p.Individual[name])
		if err := predictions.NewWriter(PredictionPath(prefix, name), format).Write(rows); err != nil {
			return err
		}
	}
	return nil
}

// PredictionPath returns <prefix>_predictions.tsv, or
// <prefix>_<member>_predictions.tsv when member is set.
func PredictionPath(prefix, member string) string {
	if member == "" {
		return prefix + "_predictions.tsv"
	}
	return prefix + "_" + member + "_predictions.tsv"
}
