package learner

import (
	"context"
	"testing"

	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classificationSet(t *testing.T, n int, labels []string) *featureset.FeatureSet {
	t.Helper()
	cfg := testkit.DefaultClassificationConfig()
	cfg.Examples = n
	cfg.Classes = len(labels)
	cfg.Labels = labels
	cfg.Separation = 5
	fs, err := testkit.MakeClassification(cfg)
	require.NoError(t, err)
	return fs
}

func TestNewValidatesConfig(t *testing.T) {
	enc := NewLabelEncoder()
	tests := []struct {
		name string
		cfg  Config
		enc  *LabelEncoder
	}{
		{"unknown model", Config{Model: "SVC"}, enc},
		{"bad scaling", Config{Model: "GaussianNB", FeatureScaling: "minmax"}, enc},
		{"unknown sampler", Config{Model: "GaussianNB", Sampler: "SkewedChi2Sampler"}, enc},
		{"probability without capability", Config{Model: "NearestCentroid", Probability: true}, enc},
		{"regressor with probability", Config{Model: "Ridge", Probability: true}, nil},
		{"classifier without encoder", Config{Model: "GaussianNB"}, nil},
		{"invalid parameter", Config{Model: "Ridge", Params: Params{"alpha": -1.0}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.enc)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err), err.Error())
		})
	}
}

func TestTrainAndPredictClassifier(t *testing.T) {
	fs := classificationSet(t, 200, []string{"neg", "pos"})
	l, err := New(Config{Model: "LogisticRegression", FeatureScaling: ScaleBoth, Probability: true}, NewLabelEncoder())
	require.NoError(t, err)
	assert.Equal(t, "LogisticRegression", l.Name())
	assert.Equal(t, evaluation.Classifier, l.Kind())

	require.NoError(t, l.Train(context.Background(), fs, TrainOptions{}))
	assert.True(t, l.Trained())
	assert.Equal(t, []string{"neg", "pos"}, l.Encoder().Labels())

	codes, err := l.Predict(fs)
	require.NoError(t, err)
	want, err := l.Encoder().EncodeAll(fs.Labels())
	require.NoError(t, err)
	correct := 0
	for i := range codes {
		if codes[i] == want[i] {
			correct++
		}
	}
	assert.Greater(t, correct, 180)

	p, err := l.PredictProba(fs)
	require.NoError(t, err)
	r, c := p.Dims()
	assert.Equal(t, 200, r)
	assert.Equal(t, 2, c)
}

func TestPredictProbaNeedsProbabilityFlag(t *testing.T) {
	fs := classificationSet(t, 60, []string{"a", "b"})
	l, err := New(Config{Model: "GaussianNB"}, NewLabelEncoder())
	require.NoError(t, err)
	require.NoError(t, l.Train(context.Background(), fs, TrainOptions{}))

	_, err = l.PredictProba(fs)
	require.Error(t, err)
	assert.True(t, errors.IsCapability(err))
}

func TestTrainRejectsLabelsOutsideFrozenEncoding(t *testing.T) {
	enc, err := NewFrozenEncoder([]string{"a", "b"})
	require.NoError(t, err)
	l, err := New(Config{Model: "GaussianNB"}, enc)
	require.NoError(t, err)

	err = l.Train(context.Background(), classificationSet(t, 60, []string{"a", "c"}), TrainOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.False(t, l.Trained())
}

func TestPreprocessingIsNotRefitAtPredictTime(t *testing.T) {
	fs, _, err := testkit.MakeRegression(testkit.DefaultRegressionConfig())
	require.NoError(t, err)

	l, err := New(Config{Model: "LinearRegression", FeatureScaling: ScaleBoth}, nil)
	require.NoError(t, err)
	require.NoError(t, l.Train(context.Background(), fs, TrainOptions{}))

	full, err := l.Predict(fs)
	require.NoError(t, err)

	// A single row has zero variance; refitting the scaler on it would
	// collapse every prediction to the intercept.
	one, err := fs.Subset([]int{5})
	require.NoError(t, err)
	single, err := l.Predict(one)
	require.NoError(t, err)
	assert.InDelta(t, full[5], single[0], 1e-9)
}

func TestSamplerIsAppliedConsistently(t *testing.T) {
	fs := classificationSet(t, 120, []string{"0", "1"})
	l, err := New(Config{
		Model:          "LogisticRegression",
		FeatureScaling: ScaleBoth,
		Sampler:        SamplerNystroem,
		SamplerParams:  Params{"n_components": 20, "gamma": 0.1},
	}, NewLabelEncoder())
	require.NoError(t, err)
	require.NoError(t, l.Train(context.Background(), fs, TrainOptions{}))

	first, err := l.Predict(fs)
	require.NoError(t, err)
	second, err := l.Predict(fs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRegressorRejectsNonNumericTargets(t *testing.T) {
	l, err := New(Config{Model: "Ridge"}, nil)
	require.NoError(t, err)
	assert.Nil(t, l.Encoder())

	err = l.Train(context.Background(), classificationSet(t, 40, []string{"x", "y"}), TrainOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestCloneIsUntrainedAndSharesEncoder(t *testing.T) {
	enc := NewLabelEncoder()
	l, err := New(Config{Model: "KNeighborsClassifier", Name: "knn", Params: Params{"n_neighbors": 3}}, enc)
	require.NoError(t, err)
	require.NoError(t, l.Train(context.Background(), classificationSet(t, 40, []string{"a", "b"}), TrainOptions{}))

	c := l.Clone(nil)
	assert.False(t, c.Trained())
	assert.Same(t, enc, c.Encoder())
	assert.Equal(t, "knn", c.Name())
	assert.Equal(t, 3, c.Params()["n_neighbors"])

	other := NewLabelEncoder()
	assert.Same(t, other, l.Clone(other).Encoder())
}
