package spinwheel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinError(t *testing.T) {
	t.Run("basic_error", func(t *testing.T) {
		err := NewError(ErrCodeValidationFailure, "test error message")

		assert.Equal(t, ErrCodeValidationFailure, err.Code)
		assert.Equal(t, "test error message", err.Message)
		assert.Equal(t, SeverityMedium, err.Severity)
		assert.False(t, err.Retryable)
		assert.Equal(t, "[SPIN_2000] test error message", err.Error())
	})

	t.Run("retryable_error", func(t *testing.T) {
		err := NewRetryableError(ErrCodeStoreUnavailable, "connection failed")

		assert.True(t, err.Retryable)
		assert.Equal(t, ErrCodeStoreUnavailable, err.Code)
	})

	t.Run("critical_error", func(t *testing.T) {
		err := NewCriticalError(ErrCodeSystem, "system failure")
		assert.Equal(t, SeverityCritical, err.Severity)
	})

	t.Run("error_with_details", func(t *testing.T) {
		err := ErrUnknownReward.
			WithDetails("Golden Ticket").
			WithOperation("CommitOutcome").
			WithMetadata("participant", "p-1")

		assert.Equal(t, "Golden Ticket", err.Details)
		assert.Equal(t, "CommitOutcome", err.Operation)
		assert.Equal(t, "p-1", err.Metadata["participant"])
		assert.Contains(t, err.Error(), "SPIN_2005")
		assert.Contains(t, err.Error(), "Golden Ticket")
	})

	t.Run("error_with_cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := ErrStoreUnavailable.WithCause(cause)

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, cause, errors.Unwrap(err))
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestSpinError_DerivedErrorsDoNotMutateSentinels(t *testing.T) {
	_ = ErrAlreadyCommitted.WithDetails("p-1").WithMetadata("k", "v").WithCause(errors.New("boom"))

	assert.Empty(t, ErrAlreadyCommitted.Details)
	assert.Nil(t, ErrAlreadyCommitted.Cause)
	assert.Nil(t, ErrAlreadyCommitted.Metadata)

	base := ErrSystemError.WithMetadata("a", 1)
	derived := base.WithMetadata("b", 2)
	assert.NotContains(t, base.Metadata, "b")
	assert.Equal(t, 1, derived.Metadata["a"])
}

func TestSpinError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		match  bool
	}{
		{name: "same sentinel", err: ErrAlreadyCommitted, target: ErrAlreadyCommitted, match: true},
		{name: "derived", err: ErrAlreadyCommitted.WithDetails("p-1"), target: ErrAlreadyCommitted, match: true},
		{name: "wrapped", err: fmt.Errorf("commit: %w", ErrDuplicateKeyConflict.WithDetails("k")), target: ErrDuplicateKeyConflict, match: true},
		{name: "cause chain", err: ErrStoreUnavailable.WithCause(ErrCircuitBreakerOpen), target: ErrCircuitBreakerOpen, match: true},
		{name: "different code", err: ErrAlreadyCommitted, target: ErrAlreadyPlayed},
		{name: "plain error", err: errors.New("already committed"), target: ErrAlreadyCommitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, errors.Is(tt.err, tt.target))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeSpinInProgress, CodeOf(ErrSpinInProgress))
	assert.Equal(t, ErrCodeSessionNotFound, CodeOf(fmt.Errorf("lookup: %w", ErrSessionNotFound)))
	assert.Equal(t, ErrCodeSystem, CodeOf(errors.New("plain")))
	assert.Equal(t, ErrCodeSystem, CodeOf(nil))
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "store unavailable", err: ErrStoreUnavailable, expected: true},
		{name: "breaker open", err: ErrCircuitBreakerOpen, expected: true},
		{name: "key conflict", err: ErrDuplicateKeyConflict, expected: true},
		{name: "already committed", err: ErrAlreadyCommitted, expected: false},
		{name: "validation", err: ErrValidationFailure.WithDetails("x"), expected: false},
		{name: "connection refused", err: errors.New("dial tcp 10.0.0.1:6379: connection refused"), expected: true},
		{name: "i/o timeout", err: errors.New("read tcp: i/o timeout"), expected: true},
		{name: "unrelated", err: errors.New("syntax error at or near"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldRetry(tt.err))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("Connection Reset by peer")))
	assert.True(t, IsRetryableError(errors.New("write tcp 127.0.0.1: broken pipe")))
	assert.False(t, IsRetryableError(errors.New("WRONGTYPE Operation against a key")))
}

func TestSpinError_AsRecoversFields(t *testing.T) {
	err := fmt.Errorf("submit: %w", ErrValidationFailure.WithDetails("field WorkEmail is required"))

	var spinErr *SpinError
	require.True(t, errors.As(err, &spinErr))
	assert.Equal(t, ErrCodeValidationFailure, spinErr.Code)
	assert.Equal(t, "field WorkEmail is required", spinErr.Details)
}
