package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodesSurviveWrapping(t *testing.T) {
	base := ConfigurationError("model_kwargs_list must have %d entries, got %d", 3, 2)
	wrapped := Wrap(base, "failed to build ensemble")
	outer := fmt.Errorf("cli: %w", wrapped)

	assert.True(t, IsConfiguration(outer))
	assert.False(t, IsCapability(outer))
	assert.Equal(t, CodeConfiguration, GetCode(wrapped))
	assert.Contains(t, outer.Error(), "must have 3 entries")
}

func TestTrainingFailureKeepsCause(t *testing.T) {
	cause := stderrors.New("singular matrix")
	err := TrainingFailure("fold 3", cause)

	assert.True(t, IsTrainingFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "training failed for fold 3: singular matrix", err.Error())
}

func TestWithCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", stderrors.New("boom"), CodeCapability},
		{"app error", InvalidInput("bad"), CodeCapability},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithCode(CodeCapability, tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, GetCode(got))
		})
	}
}
