package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "with run",
			err:  NewExhaustedError(&RejectsExceededError{Run: 4, Rejects: 11, Limit: 10}),
			want: "HARNESS_EXHAUSTED: rejected steps exceeded max_rejects (11 > 10); handler bounds are too narrow (run=4)",
		},
		{
			name: "without run",
			err:  NewConfigError("workers", "must be at least 1"),
			want: "INVALID_CONFIG: workers: must be at least 1",
		},
		{
			name: "unknown action",
			err:  NewUnknownActionError(3, "action", "mint"),
			want: `UNKNOWN_ACTION: step 3: unknown action "mint"`,
		},
		{
			name: "handler panic",
			err:  NewHandlerPanicError(2, 5, errors.New("ghost update for inc panicked: oops")),
			want: "HANDLER_PANIC: step 5: ghost update for inc panicked: oops (run=2)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsExhaustedError(t *testing.T) {
	rejects := NewExhaustedError(&RejectsExceededError{Run: 0, Rejects: 2, Limit: 1})
	timeout := NewTimeoutError(7, time.Second, context.DeadlineExceeded)

	assert.True(t, IsExhaustedError(rejects))
	assert.True(t, IsExhaustedError(fmt.Errorf("run: %w", timeout)))
	assert.True(t, IsExhaustedError(&RejectsExceededError{}))
	assert.False(t, IsExhaustedError(NewConfigError("runs", "bad")))
	assert.False(t, IsExhaustedError(errors.New("plain")))

	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Equal(t, "1s", timeout.Details["timeout"])
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, IsConfigError(NewConfigError("depth", "must not be negative")))
	assert.False(t, IsConfigError(NewSetupError(0, errors.New("x"))))
}

func TestSetupErrorUnwraps(t *testing.T) {
	cause := errors.New("database locked")
	err := NewSetupError(2, cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeSUTSetup, err.Code)
}
