package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"validation", Validation("bad"), ErrorTypeValidation},
		{"not found", NotFoundf("galaxy %d", 3), ErrorTypeNotFound},
		{"cancelled", Cancelled("stop"), ErrorTypeCancelled},
		{"wrapped app error", fmt.Errorf("outer: %w", Forbidden("no")), ErrorTypeForbidden},
		{"plain error", stderrors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetType(tt.err))
		})
	}
}

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := WrapInternal("failed to cache buffer", cause)

	require.EqualError(t, err, "failed to cache buffer: disk full")
	require.ErrorIs(t, err, cause)
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(Cancelled("generation cancelled")))
	assert.True(t, IsCancelled(fmt.Errorf("wrapped: %w", Cancelled("x"))))
	assert.False(t, IsCancelled(Validation("x")))
	assert.False(t, IsCancelled(nil))
}
