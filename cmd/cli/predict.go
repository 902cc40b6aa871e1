package main

import (
	"context"
	"os"

	"govote/domain/evaluation"
	"govote/internal/config"
	"govote/internal/errors"
	"govote/internal/predictions"
	"govote/internal/voting"

	"github.com/spf13/cobra"
)

// outputFlags select the prediction file layout.
type outputFlags struct {
	allProbabilities bool
	positiveLabel    string
	threshold        float64
	thresholdSet     bool
}

func (o outputFlags) wantsProbabilities() bool {
	return o.allProbabilities || o.positiveLabel != "" || o.thresholdSet
}

// outputFormat resolves the flags against a trained ensemble. Probability
// layouts need soft voting; a threshold needs a binary classifier.
//
// The positive class is the named label when there is one, otherwise
// code 1.
func outputFormat(e *voting.Ensemble, o outputFlags) (predictions.Format, error) {
	if !o.wantsProbabilities() {
		return predictions.Format{Mode: predictions.Labels}, nil
	}
	if e.Kind() == evaluation.Regressor {
		return predictions.Format{}, errors.CapabilityError("regressors do not produce probabilities")
	}
	if e.Voting() != voting.Soft {
		return predictions.Format{}, errors.CapabilityError("probability output requires soft voting, got %q", e.Voting())
	}
	if o.allProbabilities && (o.positiveLabel != "" || o.thresholdSet) {
		return predictions.Format{}, errors.ConfigurationError("--all-probabilities cannot be combined with --positive-label or --threshold")
	}

	enc := e.Encoder()
	labels := enc.Labels()
	if o.allProbabilities {
		return predictions.Format{Mode: predictions.AllProbabilities, ClassLabels: labels}, nil
	}

	if len(labels) < 2 {
		return predictions.Format{}, errors.ConfigurationError("a positive class needs at least two classes, got %d", len(labels))
	}
	positive := 1
	if label := firstNonEmpty(o.positiveLabel, enc.Positive()); label != "" {
		code, err := enc.Encode(label)
		if err != nil {
			return predictions.Format{}, errors.ConfigurationError("positive label %q is not one of %v", label, labels)
		}
		positive = code
	}
	if !o.thresholdSet {
		return predictions.Format{Mode: predictions.PositiveProbability, ClassLabels: labels, Positive: positive}, nil
	}
	if len(labels) != 2 {
		return predictions.Format{}, errors.ConfigurationError("--threshold needs a binary classifier, got %d classes", len(labels))
	}
	if o.threshold < 0 || o.threshold > 1 {
		return predictions.Format{}, errors.ConfigurationError("--threshold must be in [0, 1], got %g", o.threshold)
	}
	return predictions.Format{Mode: predictions.Thresholded, ClassLabels: labels, Positive: positive, Threshold: o.threshold}, nil
}

// predictionRows converts p into rows for format.
func predictionRows(p *voting.Prediction, format predictions.Format) []predictions.Row {
	o := p.Output
	if format.Mode == predictions.Labels {
		o.Probabilities = nil
	}
	return voting.PredictionRows(p.IDs, o)
}

// predictFiles predicts every file in turn and sends the rows through w,
// so the header appears once, ahead of the first file's rows.
func predictFiles(ctx context.Context, e *voting.Ensemble, files []string, cfg *config.Config, w *predictions.Writer, format predictions.Format) error {
	if len(files) == 0 {
		return errors.ConfigurationError("at least one file to predict is required")
	}
	for _, path := range files {
		fs, err := readFeatureSet(path, cfg)
		if err != nil {
			return err
		}
		p, err := e.Predict(ctx, fs, voting.PredictOptions{ClassLabels: true})
		if err != nil {
			return errors.Wrapf(err, "predicting %s", path)
		}
		if err := w.Write(predictionRows(p, format)); err != nil {
			return errors.Wrapf(err, "writing predictions for %s", path)
		}
	}
	return nil
}

func newPredictCmd() *cobra.Command {
	var flags ensembleFlags
	var out outputFlags
	var trainFile, testFile, outFile string

	cmd := &cobra.Command{
		Use:   "predict [files to predict...]",
		Short: "Train on one file and predict others",
		Long: `Train the ensemble on --train and write predictions for every file given,
or for --test when none are. All predictions go to one output with a single
header, in file order.

The default output is one predicted label per example. With soft voting,
--all-probabilities writes every class probability, --positive-label writes the
probability of one class and --threshold turns that probability into 0/1.
Without --positive-label the positive class is the second label.

Example: govote predict --train train.csv --voting soft --positive-label yes --threshold 0.7 new1.csv new2.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out.thresholdSet = cmd.Flags().Changed("threshold")
			out.positiveLabel = flags.posLabel
			cfg, logger, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := trainFrom(ctx, firstNonEmpty(trainFile, cfg.Data.TrainFile), cfg, logger)
			if err != nil {
				return err
			}
			format, err := outputFormat(e, out)
			if err != nil {
				return err
			}

			files := args
			if len(files) == 0 {
				if test := firstNonEmpty(testFile, cfg.Data.TestFile); test != "" {
					files = []string{test}
				}
			}
			if outFile == "" {
				return predictFiles(ctx, e, files, cfg, predictions.NewStreamWriter(cmd.OutOrStdout(), format), format)
			}
			f, err := os.Create(outFile)
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", outFile)
			}
			if err := predictFiles(ctx, e, files, cfg, predictions.NewStreamWriter(f, format), format); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&trainFile, "train", "", "Training file (.csv, .tsv, .xlsx)")
	cmd.Flags().StringVar(&testFile, "test", "", "File to predict when no files are given; labels are optional")
	cmd.Flags().StringVar(&outFile, "out", "", "Write predictions here instead of stdout")
	cmd.Flags().BoolVar(&out.allProbabilities, "all-probabilities", false, "Write the probability of every class")
	cmd.Flags().Float64Var(&out.threshold, "threshold", 0.5, "Predict 1 when the positive probability reaches this value")
	return cmd
}
