package learner

import (
	"testing"

	"govote/domain/evaluation"
	"govote/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func blobs(t *testing.T, n, classes int) (*mat.Dense, []float64) {
	t.Helper()
	cfg := testkit.DefaultClassificationConfig()
	cfg.Examples = n
	cfg.Classes = classes
	cfg.Separation = 5
	fs, err := testkit.MakeClassification(cfg)
	require.NoError(t, err)
	y, err := fs.NumericLabels()
	require.NoError(t, err)

	scaler, err := NewScaler(ScaleBoth)
	require.NoError(t, err)
	require.NoError(t, scaler.Fit(fs.Features()))
	X, err := scaler.Transform(fs.Features())
	require.NoError(t, err)
	return X, y
}

func accuracy(pred, y []float64) float64 {
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func TestBuiltinClassifiersLearnSeparableBlobs(t *testing.T) {
	X, y := blobs(t, 300, 3)
	catalog := NewBuiltinCatalog()

	for _, name := range []string{"LogisticRegression", "GaussianNB", "KNeighborsClassifier", "NearestCentroid"} {
		t.Run(name, func(t *testing.T) {
			entry, err := catalog.Lookup(name)
			require.NoError(t, err)
			est, err := entry.New(entry.Defaults)
			require.NoError(t, err)
			est.(Classifier).SetNumClasses(3)

			require.NoError(t, est.Fit(X, y))
			pred, err := est.Predict(X)
			require.NoError(t, err)
			assert.Greater(t, accuracy(pred, y), 0.9)

			if pc, ok := est.(ProbabilisticClassifier); ok {
				assert.True(t, entry.Probabilistic)
				p, err := pc.PredictProba(X)
				require.NoError(t, err)
				r, c := p.Dims()
				assert.Equal(t, 300, r)
				assert.Equal(t, 3, c)
				for i := 0; i < r; i++ {
					assert.InDelta(t, 1.0, mat.Sum(p.RowView(i)), 1e-9)
				}
			}
		})
	}
}

func TestProbabilityColumnsFollowDeclaredClasses(t *testing.T) {
	X, y := blobs(t, 60, 2)
	est, err := newGaussianNB(Params{})
	require.NoError(t, err)
	est.(Classifier).SetNumClasses(4)
	require.NoError(t, est.Fit(X, y))

	p, err := est.(ProbabilisticClassifier).PredictProba(X)
	require.NoError(t, err)
	_, c := p.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 0.0, p.At(0, 3))
}

func TestMultinomialNBRejectsNegativeFeatures(t *testing.T) {
	est, err := newMultinomialNB(Params{})
	require.NoError(t, err)
	X := mat.NewDense(2, 2, []float64{1, -1, 0, 2})
	assert.Error(t, est.Fit(X, []float64{0, 1}))

	counts := mat.NewDense(4, 2, []float64{5, 0, 4, 1, 0, 5, 1, 4})
	require.NoError(t, est.Fit(counts, []float64{0, 0, 1, 1}))
	pred, err := est.Predict(counts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1}, pred)
}

func TestDummyClassifierTiesGoToLowestCode(t *testing.T) {
	est, err := newDummyClassifier(Params{"strategy": "most_frequent"})
	require.NoError(t, err)
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	require.NoError(t, est.Fit(X, []float64{1, 0, 1, 0}))

	pred, err := est.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, pred)
}

func TestBuiltinRegressorsRecoverLinearSignal(t *testing.T) {
	fs, coef, err := testkit.MakeRegression(testkit.DefaultRegressionConfig())
	require.NoError(t, err)
	X := fs.Features()
	y, err := fs.NumericLabels()
	require.NoError(t, err)

	ols, _ := newLinearRegression(Params{})
	require.NoError(t, ols.Fit(X, y))
	lr := ols.(*LinearRegression)
	for j := range coef {
		assert.InDelta(t, coef[j], lr.coef[j], 0.05)
	}
	assert.InDelta(t, 3.0, lr.intercept, 0.05)

	ridge, _ := newRidge(Params{"alpha": 0.001})
	require.NoError(t, ridge.Fit(X, y))
	pred, err := ridge.Predict(X)
	require.NoError(t, err)
	for i := range y[:20] {
		assert.InDelta(t, y[i], pred[i], 0.5)
	}

	dummy, _ := newDummyRegressor(Params{"strategy": "median"})
	require.NoError(t, dummy.Fit(mat.NewDense(3, 1, []float64{0, 0, 0}), []float64{1, 5, 2}))
	out, err := dummy.Predict(mat.NewDense(1, 1, []float64{9}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, out)

	knn, _ := newKNeighborsRegressor(Params{"n_neighbors": 2})
	require.NoError(t, knn.Fit(mat.NewDense(3, 1, []float64{0, 1, 10}), []float64{0, 2, 100}))
	out, err = knn.Predict(mat.NewDense(1, 1, []float64{0.4}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, out)
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	c := NewBuiltinCatalog()
	_, err := c.Lookup("SVC")
	assert.Error(t, err)

	err = c.Register(Entry{
		Name:     "ConstantOne",
		Kind:     evaluation.Regressor,
		Defaults: Params{},
		New: func(Params) (Estimator, error) {
			return &DummyRegressor{Strategy: "constant", Constant: 1}, nil
		},
	})
	require.NoError(t, err)
	assert.Contains(t, c.Names(), "ConstantOne")

	err = c.Register(Entry{Name: "Ridge", Kind: evaluation.Regressor, New: newRidge})
	assert.Error(t, err)
}

func TestParamGridExpand(t *testing.T) {
	g := ParamGrid{"b": {1, 2}, "a": {"x", "y", "z"}}
	got := g.Expand()
	require.Len(t, got, 6)
	assert.Equal(t, 6, g.Size())
	assert.Equal(t, Params{"a": "x", "b": 1}, got[0])
	assert.Equal(t, Params{"a": "x", "b": 2}, got[1])
	assert.Equal(t, Params{"a": "z", "b": 2}, got[5])

	assert.Equal(t, []Params{{}}, ParamGrid{}.Expand())
}

func TestParamsTypedGetters(t *testing.T) {
	p := Params{"n": 3.0, "s": "x", "bad": 1.5}
	n, err := p.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = p.Int("bad", 0)
	assert.Error(t, err)

	_, err = p.String("n", "")
	assert.Error(t, err)

	def, err := p.Float("missing", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, def)
}
