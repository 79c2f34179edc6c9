package spinwheel

import (
	"time"

	"github.com/google/uuid"
)

// ValidateTurnRange validates the cosmetic extra-turn bounds
func ValidateTurnRange(min, max int) error {
	if min < 0 || min > max {
		return ErrInvalidTurnRange
	}
	return nil
}

// ValidateRetryAttempts validates a retry attempt count
func ValidateRetryAttempts(attempts int) error {
	if attempts < 0 || attempts > MaxRetryAttempts {
		return ErrConfigInvalid.WithDetails("retry attempts must be between 0 and 10")
	}
	return nil
}

// generateLockValue generates a unique lease owner token
func generateLockValue() string { return uuid.NewString() }

// newParticipantID generates a participant ID
func newParticipantID() string { return uuid.NewString() }

// backoffDelay returns base * 2^(attempt-1), capped at MaxRetryDelay.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return base
	}
	delay := base << (attempt - 1)
	if delay > MaxRetryDelay || delay <= 0 {
		delay = MaxRetryDelay
	}
	return delay
}
