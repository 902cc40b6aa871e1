package testkit

import (
	"context"
	"testing"

	"govote/domain/core"
	"govote/domain/evaluation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeClassificationIsBalancedAndSeeded(t *testing.T) {
	kit := NewTestKit()
	fs, err := kit.Classification(300, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, 300, fs.Len())

	counts := map[string]int{}
	for _, l := range fs.Labels() {
		counts[l]++
	}
	assert.Equal(t, map[string]int{"0": 100, "1": 100, "2": 100}, counts)

	again, err := kit.Classification(300, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, fs.Row(17), again.Row(17))
}

func TestMakeRegressionIsNumeric(t *testing.T) {
	fs, coef, err := MakeRegression(DefaultRegressionConfig())
	require.NoError(t, err)
	assert.Len(t, coef, 3)

	y, err := fs.NumericLabels()
	require.NoError(t, err)
	assert.Len(t, y, 200)
}

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()
	ledger := NewTestKit().LedgerAdapter()
	run := core.NewRunID()
	acc := 0.9

	require.NoError(t, ledger.StoreEvaluation(ctx, run, 1, evaluation.Result{Accuracy: &acc}))
	require.NoError(t, ledger.StoreEvaluation(ctx, run, 0, evaluation.Result{}))
	require.NoError(t, ledger.StoreEvaluation(ctx, core.NewRunID(), 0, evaluation.Result{}))

	records, err := ledger.ListEvaluations(ctx, run)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Fold)
	assert.Equal(t, 0.9, *records[1].Result.Accuracy)

	runs, err := ledger.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEqual(t, run, runs[0])
}
