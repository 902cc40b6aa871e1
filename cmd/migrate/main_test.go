package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"govote/domain/evaluation"
	"govote/internal/testkit"
	"govote/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoadAndStoreRuns(t *testing.T) {
	dir := t.TempDir()
	acc := 0.9
	run := evaluation.RunResults{
		RunID:    "run-a",
		FoldHash: "hash",
		Results:  []evaluation.Result{{Accuracy: &acc}, {Accuracy: &acc}},
	}
	writeJSON(t, filepath.Join(dir, "xval.json"), run)
	writeJSON(t, filepath.Join(dir, "eval.json"), evaluation.Result{Accuracy: &acc})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	files, err := findResultFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	ledger := testkit.NewInMemoryLedgerAdapter()
	ctx := context.Background()
	for _, f := range files {
		loaded, err := loadRunFromFile(f)
		require.NoError(t, err)
		require.NoError(t, storeRun(ctx, ledger, loaded))
	}

	stored, err := ledger.ListEvaluations(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].Fold)
	assert.Equal(t, 1, stored[1].Fold)

	single, err := loadRunFromFile(filepath.Join(dir, "eval.json"))
	require.NoError(t, err)
	again, err := loadRunFromFile(filepath.Join(dir, "eval.json"))
	require.NoError(t, err)
	assert.Equal(t, single.RunID, again.RunID)

	records, err := ledger.ListEvaluations(ctx, single.RunID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ports.WholeSet, records[0].Fold)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2"), 0o644))
	_, err := loadRunFromFile(path)
	assert.Error(t, err)
}
