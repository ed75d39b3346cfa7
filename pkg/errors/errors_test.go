package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "MalformedProgram",
			code:    MalformedProgram,
			message: "jump target out of range",
		},
		{
			name:    "ConfigurationError",
			code:    ConfigurationError,
			message: "invalid GA configuration",
		},
		{
			name:    "OperatorRepairFailure",
			code:    OperatorRepairFailure,
			message: "mutation could not produce a valid program",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())

			// Test nil original error for new errors
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("original error")

	wrapped := Wrap(originalErr, StackUnderflow, "execution fault")
	require.NotNil(t, wrapped)

	customErr, ok := wrapped.(*Error)
	require.True(t, ok)
	assert.Equal(t, StackUnderflow, customErr.Code())
	assert.Equal(t, originalErr, customErr.Unwrap())
	assert.Contains(t, wrapped.Error(), "original error")

	// Wrapping nil stays nil
	assert.Nil(t, Wrap(nil, StackUnderflow, "ignored"))
}

func TestWithFields(t *testing.T) {
	err := WithFields(
		New(MalformedProgram, "slot out of range"),
		Fields{"position": 3, "slot": 9})
	require.NotNil(t, err)

	customErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, MalformedProgram, customErr.Code())
	assert.Equal(t, 3, customErr.Fields()["position"])
	assert.Equal(t, 9, customErr.Fields()["slot"])
	assert.Contains(t, err.Error(), "slot out of range")

	// Adding fields to a plain error adopts it with code Unknown.
	plain := WithFields(stderrors.New("plain"), Fields{"k": "v"})
	plainErr, ok := plain.(*Error)
	require.True(t, ok)
	assert.Equal(t, Unknown, plainErr.Code())

	assert.Nil(t, WithFields(nil, Fields{"k": "v"}))
}

func TestErrorMatching(t *testing.T) {
	err := New(DivisionByZero, "division by zero")

	assert.True(t, stderrors.Is(err, New(DivisionByZero, "other message")))
	assert.False(t, stderrors.Is(err, New(Timeout, "step limit exceeded")))

	var target *Error
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, DivisionByZero, target.Code())
}
