package voting

import (
	"context"
	"testing"

	"govote/domain/evaluation"
	"govote/internal/errors"
	"govote/internal/learner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfiguration(t *testing.T) {
	three := []string{"GaussianNB", "LogisticRegression", "KNeighborsClassifier"}
	tests := []struct {
		name    string
		models  []string
		opts    []Option
		message string
	}{
		{"no members", nil, nil, "at least one"},
		{"short member names", three, []Option{WithMemberNames([]string{"a", "b"})}, "member_names must have 3 entries, got 2"},
		{"long model params", three, []Option{WithModelParams(make([]learner.Params, 4))}, "model_kwargs_list must have 3 entries, got 4"},
		{"short samplers", three, []Option{WithSamplers([]string{"RBFSampler"})}, "sampler_list must have 3 entries, got 1"},
		{"short sampler params", three, []Option{WithSamplerParams(make([]learner.Params, 2))}, "sampler_kwargs_list must have 3 entries, got 2"},
		{"mixed kinds", []string{"GaussianNB", "Ridge"}, nil, "cannot mix classifiers and regressors"},
		{"unknown voting", three, []Option{WithVoting("weighted")}, "voting must be"},
		{"soft without probabilities", []string{"GaussianNB", "NearestCentroid"}, []Option{WithVoting(Soft)}, "NearestCentroid"},
		{"duplicate names", []string{"GaussianNB", "GaussianNB"}, nil, "duplicate member name"},
		{"unknown model", []string{"SVC"}, nil, "SVC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.models, tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err), err.Error())
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	e, err := New([]string{"GaussianNB", "LogisticRegression"})
	require.NoError(t, err)
	assert.Equal(t, evaluation.Classifier, e.Kind())
	assert.Equal(t, Hard, e.Voting())
	assert.False(t, e.Trained())
	assert.Equal(t, []string{"GaussianNB", "LogisticRegression"}, e.MemberNames())

	r, err := New([]string{"Ridge", "LinearRegression"}, WithVoting(Soft))
	require.NoError(t, err)
	assert.Equal(t, evaluation.Regressor, r.Kind())
	assert.Equal(t, "", r.Voting())
	assert.Nil(t, r.Encoder())
}

func TestTrainRejectsParamGridCount(t *testing.T) {
	fs := classificationSet(t, 60, 2)
	e, err := New([]string{"GaussianNB", "LogisticRegression"})
	require.NoError(t, err)

	err = e.Train(context.Background(), fs, TrainOptions{
		Objective:  "accuracy",
		GridSearch: true,
		ParamGrids: []learner.ParamGrid{{}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "param_grid_list must have 2 entries, got 1")
	assert.False(t, e.Trained())
}

func TestTrainFreezesSharedEncoder(t *testing.T) {
	ctx := context.Background()
	fs := classificationSet(t, 90, 3)
	e, err := New([]string{"GaussianNB", "LogisticRegression"}, WithFeatureScaling(learner.ScaleBoth))
	require.NoError(t, err)

	require.NoError(t, e.Train(ctx, fs, TrainOptions{}))
	assert.True(t, e.Trained())
	assert.True(t, e.Encoder().Frozen())
	for _, m := range e.Members() {
		assert.Same(t, e.Encoder(), m.Encoder(), m.Name())
	}

	other := classificationSet(t, 90, 4)
	err = e.Train(ctx, other, TrainOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, []string{"0", "1", "2"}, e.Encoder().Labels())
	assert.True(t, e.Trained())
}

func TestTrainFailureLeavesEnsembleUntouched(t *testing.T) {
	fs := classificationSet(t, 60, 2)
	e, err := New([]string{"Fixed", "Broken"}, WithCatalog(testCatalog(t)))
	require.NoError(t, err)

	err = e.Train(context.Background(), fs, TrainOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsTrainingFailure(err))
	assert.Contains(t, err.Error(), "Broken")
	assert.False(t, e.Trained())
	for _, m := range e.Members() {
		assert.False(t, m.Trained())
	}
}

func TestGridSearchPerMember(t *testing.T) {
	fs := classificationSet(t, 120, 2)
	e, err := New([]string{"KNeighborsClassifier", "LogisticRegression"},
		WithMemberNames([]string{"knn", "logit"}),
		WithFeatureScaling(learner.ScaleBoth))
	require.NoError(t, err)

	err = e.Train(context.Background(), fs, TrainOptions{
		Objective:  "f1_score_macro",
		GridSearch: true,
		ParamGrids: []learner.ParamGrid{
			{"n_neighbors": {1, 5}},
			{"C": {0.1, 1.0}},
		},
	})
	require.NoError(t, err)
	for _, m := range e.Members() {
		require.NotNil(t, m.GridScore(), m.Name())
		assert.Greater(t, *m.GridScore(), 0.8, m.Name())
	}
	assert.Contains(t, []interface{}{1, 5}, e.Members()[0].Params()["n_neighbors"])
}

func TestModelParamsEcho(t *testing.T) {
	e, err := New([]string{"Ridge", "DummyRegressor"},
		WithModelParams([]learner.Params{{"alpha": 0.5}, nil}))
	require.NoError(t, err)

	params := e.ModelParams()
	assert.Equal(t, "", params["voting"])
	estimators, ok := params["estimators"].([]evaluation.MemberParams)
	require.True(t, ok)
	require.Len(t, estimators, 2)
	assert.Equal(t, "Ridge", estimators[0].Model)
	assert.Equal(t, 0.5, estimators[0].Params["alpha"])
}

func TestCloneIsUntrainedWithFreshEncoder(t *testing.T) {
	fs := classificationSet(t, 60, 2)
	e, err := New([]string{"GaussianNB", "DummyClassifier"}, WithVoting(Soft))
	require.NoError(t, err)
	require.NoError(t, e.Train(context.Background(), fs, TrainOptions{}))

	c := e.Clone()
	assert.False(t, c.Trained())
	assert.Equal(t, Soft, c.Voting())
	assert.NotSame(t, e.Encoder(), c.Encoder())
	assert.False(t, c.Encoder().Frozen())
	assert.Equal(t, e.MemberNames(), c.MemberNames())
}

func TestArtifactRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := classificationSet(t, 90, 3)
	e, err := New([]string{"GaussianNB", "LogisticRegression", "DummyClassifier"},
		WithVoting(Soft), WithFeatureScaling(learner.ScaleBoth))
	require.NoError(t, err)

	_, err = e.Artifact()
	assert.True(t, errors.IsConfiguration(err))

	require.NoError(t, e.Train(ctx, fs, TrainOptions{}))
	a, err := e.Artifact()
	require.NoError(t, err)
	assert.Equal(t, evaluation.Classifier, a.LearnerType)
	assert.Equal(t, []string{"0", "1", "2"}, a.Labels)
	assert.Len(t, a.Members, 3)

	loaded, err := FromArtifact(a)
	require.NoError(t, err)
	assert.True(t, loaded.Trained())
	assert.Equal(t, Soft, loaded.Voting())

	want, err := e.Predict(ctx, fs, PredictOptions{})
	require.NoError(t, err)
	got, err := loaded.Predict(ctx, fs, PredictOptions{})
	require.NoError(t, err)
	assert.Equal(t, want.Codes, got.Codes)

	delete(a.Members, "DummyClassifier")
	_, err = FromArtifact(a)
	assert.True(t, errors.IsConfiguration(err))
}

func TestPositiveLabelSurvivesTrainingAndArtifact(t *testing.T) {
	ctx := context.Background()
	fs := labeledSet(t, 80, []string{"yes", "no"})
	e, err := New([]string{"GaussianNB", "LogisticRegression"},
		WithVoting(Soft), WithPositiveLabel("no"))
	require.NoError(t, err)

	require.NoError(t, e.Train(ctx, fs, TrainOptions{}))
	assert.Equal(t, []string{"yes", "no"}, e.Encoder().Labels())
	code, err := e.Encoder().Encode("no")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	a, err := e.Artifact()
	require.NoError(t, err)
	loaded, err := FromArtifact(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"yes", "no"}, loaded.Encoder().Labels())

	want, err := e.Predict(ctx, fs, PredictOptions{})
	require.NoError(t, err)
	got, err := loaded.Predict(ctx, fs, PredictOptions{})
	require.NoError(t, err)
	assert.Equal(t, want.Codes, got.Codes)

	assert.Equal(t, "no", e.Clone().Encoder().Positive())
}

func TestPositiveLabelMissingFromData(t *testing.T) {
	fs := labeledSet(t, 60, []string{"yes", "no"})
	e, err := New([]string{"GaussianNB"}, WithPositiveLabel("maybe"))
	require.NoError(t, err)

	err = e.Train(context.Background(), fs, TrainOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "maybe")
	assert.False(t, e.Trained())

	_, err = e.CrossValidate(context.Background(), fs, CVOptions{Folds: 3})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}
