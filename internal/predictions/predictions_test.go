package predictions

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders(t *testing.T) {
	labels := []string{"cat", "dog"}
	tests := []struct {
		name   string
		format Format
		want   []string
	}{
		{"labels", Format{Mode: Labels}, []string{"id", "prediction"}},
		{"all probabilities", Format{Mode: AllProbabilities, ClassLabels: labels}, []string{"id", "cat", "dog"}},
		{"positive", Format{Mode: PositiveProbability, ClassLabels: labels, Positive: 1}, []string{"id", "Probability of 'dog'"}},
		{"threshold", Format{Mode: Thresholded, ClassLabels: labels, Positive: 1, Threshold: 0.7}, []string{"id", "prediction"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.Header())
		})
	}
}

func TestWriterHeaderOnceAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xval_predictions.tsv")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	w := NewWriter(path, Format{Mode: AllProbabilities, ClassLabels: []string{"a", "b"}})
	require.NoError(t, w.Write([]Row{{ID: "EXAMPLE_0", Probabilities: []float64{0.25, 0.75}}}))
	require.NoError(t, w.Write([]Row{
		{ID: "EXAMPLE_1", Probabilities: []float64{1, 0}},
		{ID: "EXAMPLE_2", Probabilities: []float64{0.5, 0.5}},
	}))

	table, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "a", "b"}, table.Header)
	assert.Equal(t, []string{"EXAMPLE_0", "EXAMPLE_1", "EXAMPLE_2"}, table.IDs())

	b, ok := table.Column("b")
	require.True(t, ok)
	assert.Equal(t, []string{"0.75", "0", "0.5"}, b)

	_, ok = table.Column("c")
	assert.False(t, ok)
}

func TestThresholdAndPositiveModes(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{
		{ID: "x", Probabilities: []float64{0.2, 0.8}},
		{ID: "y", Probabilities: []float64{0.6, 0.4}},
	}

	thr := filepath.Join(dir, "thr.tsv")
	require.NoError(t, NewWriter(thr, Format{Mode: Thresholded, Positive: 1, Threshold: 0.5}).Write(rows))
	table, err := Read(thr)
	require.NoError(t, err)
	preds, _ := table.Column("prediction")
	assert.Equal(t, []string{"1", "0"}, preds)

	pos := filepath.Join(dir, "pos.tsv")
	require.NoError(t, NewWriter(pos, Format{Mode: PositiveProbability, ClassLabels: []string{"n", "p"}, Positive: 1}).Write(rows))
	table, err = Read(pos)
	require.NoError(t, err)
	probs, ok := table.Column("Probability of 'p'")
	require.True(t, ok)
	assert.Equal(t, []string{"0.8", "0.4"}, probs)

	err = NewWriter(filepath.Join(dir, "bad.tsv"), Format{Mode: Thresholded, Positive: 3}).Write(rows)
	assert.Error(t, err)
}

func TestStreamWriterHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf, Format{Mode: Labels})
	assert.Equal(t, "", w.Path())
	require.NoError(t, w.Write([]Row{{ID: "a", Prediction: "cat"}, {ID: "b", Prediction: "dog"}}))
	require.NoError(t, w.Write([]Row{{ID: "c", Prediction: "cat"}}))
	assert.Equal(t, "id\tprediction\na\tcat\nb\tdog\nc\tcat\n", buf.String())

	bad := NewStreamWriter(&buf, Format{Mode: PositiveProbability, Positive: 3})
	assert.Error(t, bad.Write([]Row{{ID: "a", Probabilities: []float64{1}}}))
}

func TestWriterOpenFailure(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing", "out.tsv"), Format{Mode: Labels})
	err := w.Write([]Row{{ID: "a", Prediction: "cat"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open prediction file")
}
