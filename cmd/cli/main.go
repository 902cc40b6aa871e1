package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"govote/adapters/excel"
	"govote/adapters/postgres"
	"govote/domain/featureset"
	"govote/internal/config"
	"govote/internal/errors"
	"govote/internal/logging"
	"govote/internal/report"
	"govote/internal/voting"
	"govote/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "govote",
		Short: "Train, evaluate and cross-validate voting ensembles",
		Long: `govote combines several learners into one voting ensemble.

Ensemble settings come from the environment (GOVOTE_MEMBERS, GOVOTE_VOTING,
GOVOTE_OBJECTIVE, ...) and can be overridden per command with flags.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newXvalCmd(),
		newLearningCurveCmd(),
		newPredictCmd(),
		newConvertCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ensembleFlags override the environment configuration for one command.
type ensembleFlags struct {
	members    []string
	voting     string
	scaling    string
	posLabel   string
	objective  string
	metrics    []string
	gridSearch bool
	workers    int
	seed       int64
	idCol      string
	labelCol   string
}

func (f *ensembleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.members, "members", nil, "Comma-separated learner names (overrides GOVOTE_MEMBERS)")
	cmd.Flags().StringVar(&f.voting, "voting", "", "Combination mode for classifiers: hard|soft")
	cmd.Flags().StringVar(&f.scaling, "feature-scaling", "", "Feature scaling: none|with_mean|with_std|both")
	cmd.Flags().StringVar(&f.posLabel, "positive-label", "", "Binary positive class; it gets code 1 (overrides GOVOTE_POS_LABEL)")
	cmd.Flags().StringVar(&f.objective, "objective", "", "Objective metric for grid search and reporting")
	cmd.Flags().StringSliceVar(&f.metrics, "metrics", nil, "Extra metrics to report")
	cmd.Flags().BoolVar(&f.gridSearch, "grid-search", false, "Tune every member with grid search on the objective")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent members/folds (default GOMAXPROCS)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed for fold assignment and shuffling")
	cmd.Flags().StringVar(&f.idCol, "id-col", "", "Id column in input files")
	cmd.Flags().StringVar(&f.labelCol, "label-col", "", "Label column in input files")
}

func (f *ensembleFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	e := &cfg.Ensemble
	if len(f.members) > 0 {
		e.Members = f.members
	}
	if f.voting != "" {
		e.Voting = f.voting
	}
	if f.scaling != "" {
		e.FeatureScaling = f.scaling
	}
	if f.posLabel != "" {
		e.PositiveLabel = f.posLabel
	}
	if f.objective != "" {
		e.Objective = f.objective
	}
	if len(f.metrics) > 0 {
		e.Metrics = f.metrics
	}
	if cmd.Flags().Changed("grid-search") {
		e.GridSearch = f.gridSearch
	}
	if f.workers > 0 {
		e.Workers = f.workers
	}
	if f.seed != 0 {
		e.Seed = f.seed
	}
	if f.idCol != "" {
		cfg.Data.IDColumn = f.idCol
	}
	if f.labelCol != "" {
		cfg.Data.LabelColumn = f.labelCol
	}
}

// setup loads .env and the environment configuration, then applies flags.
func setup(cmd *cobra.Command, f *ensembleFlags) (*config.Config, *logging.Logger, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	f.apply(cmd, cfg)
	if cfg.Ensemble.GridSearch && cfg.Ensemble.Objective == "" {
		return nil, nil, errors.ConfigurationError("--grid-search requires --objective")
	}
	return cfg, cfg.Logger(), nil
}

func readFeatureSet(path string, cfg *config.Config) (*featureset.FeatureSet, error) {
	if path == "" {
		return nil, errors.ConfigurationError("an input file is required")
	}
	reader, err := excel.NewDataReader(path, excel.ReaderConfig{
		IDColumn:    cfg.Data.IDColumn,
		LabelColumn: cfg.Data.LabelColumn,
	})
	if err != nil {
		return nil, err
	}
	return reader.ReadFeatureSet()
}

func newEnsemble(cfg *config.Config, logger *logging.Logger) (*voting.Ensemble, error) {
	return voting.New(cfg.Ensemble.Members, cfg.Ensemble.Options(logger)...)
}

func trainOptions(cfg *config.Config) voting.TrainOptions {
	return voting.TrainOptions{
		Objective:  cfg.Ensemble.Objective,
		GridSearch: cfg.Ensemble.GridSearch,
		Seed:       cfg.Ensemble.Seed,
	}
}

// trainFrom reads path and trains a new ensemble on it.
func trainFrom(ctx context.Context, path string, cfg *config.Config, logger *logging.Logger) (*voting.Ensemble, error) {
	fs, err := readFeatureSet(path, cfg)
	if err != nil {
		return nil, err
	}
	e, err := newEnsemble(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := e.Train(ctx, fs, trainOptions(cfg)); err != nil {
		return nil, err
	}
	return e, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newEvaluateCmd() *cobra.Command {
	var flags ensembleFlags
	var trainFile, testFile, prefix string
	var individual bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Train on one file and evaluate on another",
		Long: `Train the ensemble on --train and score its predictions on --test.

Example: govote evaluate --train train.csv --test test.csv --objective f1_score_macro --metrics accuracy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := trainFrom(ctx, firstNonEmpty(trainFile, cfg.Data.TrainFile), cfg, logger)
			if err != nil {
				return err
			}
			test, err := readFeatureSet(firstNonEmpty(testFile, cfg.Data.TestFile), cfg)
			if err != nil {
				return err
			}
			res, err := e.Evaluate(ctx, test, voting.EvalOptions{
				Objective:  cfg.Ensemble.Objective,
				Metrics:    cfg.Ensemble.Metrics,
				Prefix:     prefix,
				Individual: individual,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&trainFile, "train", "", "Training file (.csv, .tsv, .xlsx)")
	cmd.Flags().StringVar(&testFile, "test", "", "Test file (.csv, .tsv, .xlsx)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Write predictions to <prefix>_predictions.tsv")
	cmd.Flags().BoolVar(&individual, "individual", false, "Also write every member's predictions")
	return cmd
}

func newXvalCmd() *cobra.Command {
	var flags ensembleFlags
	var trainFile, prefix, reportPath, title, resultsPath string
	var numFolds int
	var saveLedger bool

	cmd := &cobra.Command{
		Use:   "xval",
		Short: "Cross-validate the ensemble",
		Long: `Cross-validate the ensemble on one file with stratified folds.

Fold results are stored in the postgres ledger when DATABASE_URL is set and
--ledger is passed. --report writes markdown, or HTML when the path ends in .html.

Example: govote xval --train data.xlsx --folds 5 --objective accuracy --report xval.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			fs, err := readFeatureSet(firstNonEmpty(trainFile, cfg.Data.TrainFile), cfg)
			if err != nil {
				return err
			}
			e, err := newEnsemble(cfg, logger)
			if err != nil {
				return err
			}

			var ledger ports.LedgerWriterPort
			if saveLedger {
				db, err := postgres.Open(ctx, cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				ledger = postgres.NewLedgerRepository(db)
			}

			folds := cfg.Ensemble.CVFolds
			if numFolds > 0 {
				folds = numFolds
			}
			cv, err := e.CrossValidate(ctx, fs, voting.CVOptions{
				Folds:      folds,
				Seed:       cfg.Ensemble.Seed,
				Objective:  cfg.Ensemble.Objective,
				GridSearch: cfg.Ensemble.GridSearch,
				Metrics:    cfg.Ensemble.Metrics,
				Prefix:     prefix,
				Ledger:     ledger,
			})
			if err != nil {
				return err
			}

			if resultsPath != "" {
				if err := writeResults(resultsPath, cv); err != nil {
					return err
				}
			}

			md := report.CrossValidation(firstNonEmpty(title, fs.Name()), cv)
			if reportPath != "" {
				if err := report.Write(reportPath, md); err != nil {
					return err
				}
				logger.InfoContext(ctx, "report written", "path", reportPath, "run_id", cv.RunID.String())
				return nil
			}
			_, err = cmd.OutOrStdout().Write(md)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&trainFile, "train", "", "Labeled file to cross-validate (.csv, .tsv, .xlsx)")
	cmd.Flags().IntVar(&numFolds, "folds", 0, "Number of folds (default GOVOTE_CV_FOLDS)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Write fold predictions to <prefix>_predictions.tsv")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the report to this path instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "Report title (default: input file name)")
	cmd.Flags().BoolVar(&saveLedger, "ledger", false, "Store fold results in the DATABASE_URL ledger")
	cmd.Flags().StringVar(&resultsPath, "results", "", "Write the fold results as JSON (importable with migrate)")
	return cmd
}

func writeResults(path string, cv *voting.CVResult) error {
	data, err := json.MarshalIndent(cv.Export(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func newLearningCurveCmd() *cobra.Command {
	var flags ensembleFlags
	var trainFile, metric, reportPath string
	var splits int
	var testSize float64
	var sizes []float64
	var override bool

	cmd := &cobra.Command{
		Use:   "learning-curve",
		Short: "Score the ensemble on growing training subsets",
		Long: `Compute a learning curve from repeated shuffle splits.

At least 500 examples are required unless --override-minimum is passed.

Example: govote learning-curve --train data.csv --metric accuracy --sizes 0.1,0.5,1.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			fs, err := readFeatureSet(firstNonEmpty(trainFile, cfg.Data.TrainFile), cfg)
			if err != nil {
				return err
			}
			e, err := newEnsemble(cfg, logger)
			if err != nil {
				return err
			}
			metricName := firstNonEmpty(metric, cfg.Ensemble.Objective)
			curve, err := e.LearningCurve(ctx, fs, voting.LCOptions{
				Metric:          metricName,
				CVFolds:         splits,
				TestSize:        testSize,
				TrainSizes:      sizes,
				OverrideMinimum: override,
				Seed:            cfg.Ensemble.Seed,
			})
			if err != nil {
				return err
			}
			md := report.LearningCurve("Learning curve: "+fs.Name(), metricName, curve)
			if reportPath != "" {
				return report.Write(reportPath, md)
			}
			_, err = cmd.OutOrStdout().Write(md)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&trainFile, "train", "", "Labeled file (.csv, .tsv, .xlsx)")
	cmd.Flags().StringVar(&metric, "metric", "", "Metric to score (default: the objective)")
	cmd.Flags().IntVar(&splits, "splits", voting.DefaultCurveSplits, "Number of shuffle splits")
	cmd.Flags().Float64Var(&testSize, "test-size", voting.DefaultCurveTestSize, "Held-out fraction per split")
	cmd.Flags().Float64SliceVar(&sizes, "sizes", nil, "Training size fractions (default 0.1..1.0 in 5 steps)")
	cmd.Flags().BoolVar(&override, "override-minimum", false, "Allow fewer than 500 examples")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the table to this path (.md or .html)")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var idCol, labelCol string

	cmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert a feature file between .csv, .tsv and .xlsx",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := excel.ReaderConfig{IDColumn: idCol, LabelColumn: labelCol}
			reader, err := excel.NewDataReader(args[0], rc)
			if err != nil {
				return err
			}
			fs, err := reader.ReadFeatureSet()
			if err != nil {
				return err
			}
			if err := excel.WriteFeatureSet(args[1], fs, rc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d examples to %s\n", fs.Len(), args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&idCol, "id-col", "id", "Id column")
	cmd.Flags().StringVar(&labelCol, "label-col", "y", "Label column")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
