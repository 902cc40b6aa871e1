package evaluation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultJSONKeepsEstimators(t *testing.T) {
	acc := 0.75
	in := Result{
		ConfusionMatrix: [][]int{{3, 1}, {0, 4}},
		Accuracy:        &acc,
		ModelParams: map[string]interface{}{
			"voting": "hard",
			"estimators": []MemberParams{
				{Name: "nb", Model: "GaussianNB", Params: map[string]interface{}{"var_smoothing": 1e-9}, Scaling: "none"},
			},
		},
		Metrics: map[string]float64{"accuracy": 0.75},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	var out Result
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "hard", out.Voting())
	require.Len(t, out.Estimators(), 1)
	assert.Equal(t, "GaussianNB", out.Estimators()[0].Model)
	assert.Nil(t, out.Objective)
	assert.Equal(t, 0.75, *out.Accuracy)
	assert.Equal(t, in.ConfusionMatrix, out.ConfusionMatrix)
}

func TestRegressorResultHasNoClassificationFields(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"confusion_matrix":null,"accuracy":null,"objective":0.5}`), &r))
	assert.Nil(t, r.ConfusionMatrix)
	assert.Nil(t, r.Accuracy)
	require.NotNil(t, r.Objective)
	assert.Empty(t, r.Voting())
}
