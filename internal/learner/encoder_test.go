package learner

import (
	"sync"
	"testing"

	"govote/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelEncoderOrdering(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		want    []string
		numeric bool
	}{
		{"numeric sorts by value", []string{"10", "2", "1", "2"}, []string{"1", "2", "10"}, true},
		{"negative and fractional", []string{"0.5", "-1", "3"}, []string{"-1", "0.5", "3"}, true},
		{"strings sort lexicographically", []string{"dog", "cat", "ant", "cat"}, []string{"ant", "cat", "dog"}, false},
		{"mixed falls back to strings", []string{"10", "2", "x"}, []string{"10", "2", "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewLabelEncoder()
			require.NoError(t, e.Fit(tt.labels))
			assert.Equal(t, tt.want, e.Labels())
			assert.Equal(t, tt.numeric, e.Numeric())

			for code, label := range tt.want {
				got, err := e.Encode(label)
				require.NoError(t, err)
				assert.Equal(t, code, got)

				back, err := e.Decode(code)
				require.NoError(t, err)
				assert.Equal(t, label, back)
			}
		})
	}
}

func TestFrozenEncoderRejectsNewLabels(t *testing.T) {
	e, err := NewFrozenEncoder([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, e.Frozen())

	require.NoError(t, e.Fit([]string{"c", "a"}))
	assert.Equal(t, []string{"a", "b", "c"}, e.Labels())

	err = e.Fit([]string{"a", "d"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, 3, e.Len())
}

func TestEncoderUnknownLabelAndCode(t *testing.T) {
	e, err := NewFrozenEncoder([]string{"x", "y"})
	require.NoError(t, err)

	_, err = e.Encode("z")
	assert.Error(t, err)
	_, err = e.Decode(2)
	assert.Error(t, err)

	codes, err := e.EncodeAll([]string{"y", "x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1}, codes)

	labels, err := e.DecodeAll([]int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, labels)
}

func TestEncoderConcurrentReads(t *testing.T) {
	e, err := NewFrozenEncoder([]string{"a", "b"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.EncodeAll([]string{"a", "b"})
			_ = e.Labels()
		}()
	}
	wg.Wait()
}

func TestPositiveLabelTakesCodeOne(t *testing.T) {
	tests := []struct {
		name     string
		positive string
		labels   []string
		want     []string
	}{
		{"positive sorts first", "neg", []string{"pos", "neg", "pos"}, []string{"pos", "neg"}},
		{"positive already second", "pos", []string{"pos", "neg"}, []string{"neg", "pos"}},
		{"numeric labels", "0", []string{"1", "0"}, []string{"1", "0"}},
		{"multiclass keeps sort order", "b", []string{"c", "a", "b"}, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewPositiveEncoder(tt.positive)
			require.NoError(t, e.Fit(tt.labels))
			assert.Equal(t, tt.want, e.Labels())
			assert.Equal(t, tt.positive, e.Positive())
		})
	}
}

func TestPositiveLabelMustBePresent(t *testing.T) {
	e := NewPositiveEncoder("maybe")
	err := e.Fit([]string{"no", "yes"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, 0, e.Len())
}

func TestOrderedEncoderKeepsOrder(t *testing.T) {
	e, err := NewOrderedEncoder([]string{"yes", "no"})
	require.NoError(t, err)
	assert.True(t, e.Frozen())
	assert.Equal(t, []string{"yes", "no"}, e.Labels())

	code, err := e.Encode("no")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	_, err = NewOrderedEncoder([]string{"a", "a"})
	assert.True(t, errors.IsConfiguration(err))
	_, err = NewOrderedEncoder(nil)
	assert.True(t, errors.IsConfiguration(err))
}
