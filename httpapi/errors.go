package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kydenul/spinwheel"
)

// statusOf maps ledger and session errors to HTTP status codes.
func statusOf(err error) int {
	switch spinwheel.CodeOf(err) {
	case spinwheel.ErrCodeValidationFailure, spinwheel.ErrCodeInvalidContactKey:
		return http.StatusBadRequest
	case spinwheel.ErrCodeSessionNotFound, spinwheel.ErrCodeParticipantNotFound:
		return http.StatusNotFound
	case spinwheel.ErrCodeInvalidTransition, spinwheel.ErrCodeSpinInProgress,
		spinwheel.ErrCodeAlreadyPlayed, spinwheel.ErrCodeDuplicateKeyConflict:
		return http.StatusConflict
	case spinwheel.ErrCodeStoreUnavailable, spinwheel.ErrCodeCircuitBreakerOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as a JSON error body.
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"code": spinwheel.CodeOf(err), "message": err.Error()}

	var spinErr *spinwheel.SpinError
	if errors.As(err, &spinErr) {
		body["message"] = spinErr.Message
		if spinErr.Details != "" {
			body["details"] = spinErr.Details
		}
		body["retryable"] = spinErr.Retryable
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
