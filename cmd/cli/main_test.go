package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"govote/adapters/excel"
	"govote/domain/featureset"
	"govote/internal/config"
	"govote/internal/errors"
	"govote/internal/predictions"
	"govote/internal/testkit"
	"govote/internal/voting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classificationData(t *testing.T, classes int) *featureset.FeatureSet {
	t.Helper()
	cfg := testkit.DefaultClassificationConfig()
	cfg.Examples = 60
	cfg.Classes = classes
	cfg.Labels = []string{"no", "yes", "maybe"}[:classes]
	fs, err := testkit.MakeClassification(cfg)
	require.NoError(t, err)
	return fs
}

func trainedEnsemble(t *testing.T, mode string, classes int, opts ...voting.Option) (*voting.Ensemble, *voting.Prediction) {
	t.Helper()
	fs := classificationData(t, classes)
	e, err := voting.New([]string{"GaussianNB", "LogisticRegression"}, append([]voting.Option{voting.WithVoting(mode)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, e.Train(context.Background(), fs, voting.TrainOptions{}))

	head, err := fs.Head(3)
	require.NoError(t, err)
	p, err := e.Predict(context.Background(), head, voting.PredictOptions{ClassLabels: true})
	require.NoError(t, err)
	return e, p
}

func TestOutputFormat(t *testing.T) {
	soft, _ := trainedEnsemble(t, voting.Soft, 2)
	hard, _ := trainedEnsemble(t, voting.Hard, 2)
	multi, _ := trainedEnsemble(t, voting.Soft, 3)
	flipped, _ := trainedEnsemble(t, voting.Soft, 2, voting.WithPositiveLabel("no"))

	tests := []struct {
		name     string
		e        *voting.Ensemble
		flags    outputFlags
		wantMode predictions.Mode
		wantPos  int
		wantCode string
	}{
		{name: "labels by default", e: hard, wantMode: predictions.Labels},
		{name: "all probabilities", e: soft, flags: outputFlags{allProbabilities: true}, wantMode: predictions.AllProbabilities},
		{name: "named positive label", e: soft, flags: outputFlags{positiveLabel: "no"}, wantMode: predictions.PositiveProbability, wantPos: 0},
		{name: "threshold uses the second label", e: soft, flags: outputFlags{threshold: 0.7, thresholdSet: true}, wantMode: predictions.Thresholded, wantPos: 1},
		{name: "multiclass named label", e: multi, flags: outputFlags{positiveLabel: "yes"}, wantMode: predictions.PositiveProbability, wantPos: 2},
		{name: "ensemble positive label", e: flipped, flags: outputFlags{threshold: 0.5, thresholdSet: true}, wantMode: predictions.Thresholded, wantPos: 1},
		{name: "hard voting has no probabilities", e: hard, flags: outputFlags{allProbabilities: true}, wantCode: errors.CodeCapability},
		{name: "unknown positive label", e: soft, flags: outputFlags{positiveLabel: "perhaps"}, wantCode: errors.CodeConfiguration},
		{name: "threshold needs two classes", e: multi, flags: outputFlags{threshold: 0.5, thresholdSet: true}, wantCode: errors.CodeConfiguration},
		{name: "threshold out of range", e: soft, flags: outputFlags{threshold: 1.5, thresholdSet: true}, wantCode: errors.CodeConfiguration},
		{name: "conflicting layouts", e: soft, flags: outputFlags{allProbabilities: true, positiveLabel: "yes"}, wantCode: errors.CodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := outputFormat(tt.e, tt.flags)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, format.Mode)
			if tt.wantMode == predictions.PositiveProbability || tt.wantMode == predictions.Thresholded {
				assert.Equal(t, tt.wantPos, format.Positive)
			}
		})
	}
}

func TestPredictionRowsByFormat(t *testing.T) {
	soft, p := trainedEnsemble(t, voting.Soft, 2)
	render := func(flags outputFlags) string {
		format, err := outputFormat(soft, flags)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, predictions.NewStreamWriter(&buf, format).Write(predictionRows(p, format)))
		return buf.String()
	}

	lines := strings.Split(strings.TrimSpace(render(outputFlags{})), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id\tprediction", lines[0])
	assert.Equal(t, "EXAMPLE_0\t"+p.Labels[0], lines[1])

	assert.True(t, strings.HasPrefix(render(outputFlags{positiveLabel: "yes"}), "id\tProbability of 'yes'\n"))

	for _, line := range strings.Split(strings.TrimSpace(render(outputFlags{threshold: 0, thresholdSet: true})), "\n")[1:] {
		assert.True(t, strings.HasSuffix(line, "\t1"), line)
	}
}

func TestPredictFilesWritesOneHeader(t *testing.T) {
	e, _ := trainedEnsemble(t, voting.Soft, 2)
	fs := classificationData(t, 2)
	dir := t.TempDir()

	first, err := fs.Subset([]int{0, 1, 2})
	require.NoError(t, err)
	second, err := fs.Subset([]int{10, 11})
	require.NoError(t, err)
	files := []string{filepath.Join(dir, "first.csv"), filepath.Join(dir, "second.tsv")}
	require.NoError(t, excel.WriteFeatureSet(files[0], first, excel.DefaultReaderConfig()))
	require.NoError(t, excel.WriteFeatureSet(files[1], second, excel.DefaultReaderConfig()))

	cfg := &config.Config{Data: config.DataConfig{IDColumn: "id", LabelColumn: "y"}}
	format, err := outputFormat(e, outputFlags{positiveLabel: "yes"})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, predictFiles(context.Background(), e, files, cfg, predictions.NewStreamWriter(&buf, format), format))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "id\tProbability of 'yes'", lines[0])
	var ids []string
	for _, line := range lines[1:] {
		assert.NotEqual(t, lines[0], line)
		ids = append(ids, strings.SplitN(line, "\t", 2)[0])
	}
	assert.Equal(t, append(first.IDs(), second.IDs()...), ids)

	err = predictFiles(context.Background(), e, nil, cfg, predictions.NewStreamWriter(&buf, format), format)
	assert.True(t, errors.IsConfiguration(err))
}

func TestPredictCommandAcceptsSeveralFiles(t *testing.T) {
	t.Setenv("GOVOTE_MEMBERS", "GaussianNB,LogisticRegression")
	t.Setenv("GOVOTE_VOTING", "hard")
	t.Setenv("GOVOTE_POS_LABEL", "")
	fs := classificationData(t, 2)
	dir := t.TempDir()

	train := filepath.Join(dir, "train.csv")
	require.NoError(t, excel.WriteFeatureSet(train, fs, excel.DefaultReaderConfig()))
	var files []string
	for i, rows := range [][]int{{0, 1}, {2, 3, 4}} {
		sub, err := fs.Subset(rows)
		require.NoError(t, err)
		path := filepath.Join(dir, fmt.Sprintf("new%d.csv", i))
		require.NoError(t, excel.WriteFeatureSet(path, sub, excel.DefaultReaderConfig()))
		files = append(files, path)
	}

	cmd := newPredictCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--train", train}, files...))
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "id\tprediction", lines[0])
	assert.Equal(t, 1, strings.Count(out.String(), "id\tprediction"))
}

func TestConvertCommand(t *testing.T) {
	fs, err := testkit.MakeClassification(testkit.DefaultClassificationConfig())
	require.NoError(t, err)
	dir := t.TempDir()
	src := filepath.Join(dir, "data.csv")
	require.NoError(t, excel.WriteFeatureSet(src, fs, excel.DefaultReaderConfig()))

	dst := filepath.Join(dir, "data.xlsx")
	cmd := newConvertCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{src, dst})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "wrote 600 examples")

	back, err := excel.ReadFeatureSet(dst)
	require.NoError(t, err)
	assert.Equal(t, fs.IDs(), back.IDs())
	assert.Equal(t, fs.Labels(), back.Labels())
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}
