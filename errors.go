package spinwheel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 系统级错误 (1000-1999)
	ErrCodeSystem             ErrorCode = "SPIN_1000"
	ErrCodeStoreUnavailable   ErrorCode = "SPIN_1001"
	ErrCodeConfigInvalid      ErrorCode = "SPIN_1002"
	ErrCodeCircuitBreakerOpen ErrorCode = "SPIN_1003"

	// 输入错误 (2000-2999)
	ErrCodeValidationFailure  ErrorCode = "SPIN_2000"
	ErrCodeEmptyRewardTable   ErrorCode = "SPIN_2001"
	ErrCodeInvalidWeight      ErrorCode = "SPIN_2002"
	ErrCodeInvalidRewardName  ErrorCode = "SPIN_2003"
	ErrCodeDuplicateReward    ErrorCode = "SPIN_2004"
	ErrCodeUnknownReward      ErrorCode = "SPIN_2005"
	ErrCodeInvalidContactKey  ErrorCode = "SPIN_2006"
	ErrCodeInvalidTurnRange   ErrorCode = "SPIN_2007"
	ErrCodeInvalidSectorCount ErrorCode = "SPIN_2008"

	// 参与者账本错误 (3000-3999)
	ErrCodeDuplicateKeyConflict ErrorCode = "SPIN_3000"
	ErrCodeAlreadyCommitted     ErrorCode = "SPIN_3001"
	ErrCodeAlreadyPlayed        ErrorCode = "SPIN_3002"
	ErrCodeSpinInProgress       ErrorCode = "SPIN_3003"
	ErrCodeParticipantNotFound  ErrorCode = "SPIN_3004"

	// 会话状态错误 (4000-4999)
	ErrCodeInvalidTransition ErrorCode = "SPIN_4000"
	ErrCodeSessionNotFound   ErrorCode = "SPIN_4001"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
)

// SpinError 带错误码的错误类型
type SpinError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Severity  ErrorSeverity  `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation,omitempty"`
	Cause     error          `json:"-"`
	Retryable bool           `json:"retryable"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Error 实现 error 接口
func (e *SpinError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 实现 errors.Unwrap 接口
func (e *SpinError) Unwrap() error { return e.Cause }

// Is 按错误码匹配, 使 errors.Is(err, ErrAlreadyCommitted) 对派生错误同样成立
func (e *SpinError) Is(target error) bool {
	if t, ok := target.(*SpinError); ok {
		return e.Code == t.Code
	}
	return false
}

// clone returns a copy so the predefined instances below are never mutated.
func (e *SpinError) clone() *SpinError {
	c := *e
	c.Timestamp = time.Now()
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// WithCause 添加原因错误
func (e *SpinError) WithCause(cause error) *SpinError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 添加详细信息
func (e *SpinError) WithDetails(details string) *SpinError {
	c := e.clone()
	c.Details = details
	return c
}

// WithOperation 添加操作信息
func (e *SpinError) WithOperation(operation string) *SpinError {
	c := e.clone()
	c.Operation = operation
	return c
}

// WithMetadata 添加元数据
func (e *SpinError) WithMetadata(key string, value any) *SpinError {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *SpinError {
	return &SpinError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *SpinError {
	err := NewError(code, message)
	err.Retryable = true
	return err
}

// NewCriticalError 创建严重错误
func NewCriticalError(code ErrorCode, message string) *SpinError {
	err := NewError(code, message)
	err.Severity = SeverityCritical
	return err
}

// 预定义的错误实例
var (
	// 系统级错误
	ErrSystemError        = NewCriticalError(ErrCodeSystem, "system error occurred")
	ErrStoreUnavailable   = NewRetryableError(ErrCodeStoreUnavailable, "ledger store unavailable")
	ErrConfigInvalid      = NewCriticalError(ErrCodeConfigInvalid, "configuration is invalid")
	ErrCircuitBreakerOpen = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")

	// 输入错误
	ErrValidationFailure  = NewError(ErrCodeValidationFailure, "lead validation failed")
	ErrEmptyRewardTable   = NewError(ErrCodeEmptyRewardTable, "reward table cannot be empty")
	ErrInvalidWeight      = NewError(ErrCodeInvalidWeight, "invalid reward weight: must be a finite number greater than 0")
	ErrInvalidRewardName  = NewError(ErrCodeInvalidRewardName, "invalid reward name: cannot be empty")
	ErrDuplicateReward    = NewError(ErrCodeDuplicateReward, "duplicate reward name")
	ErrUnknownReward      = NewError(ErrCodeUnknownReward, "reward is not in the reward table")
	ErrInvalidContactKey  = NewError(ErrCodeInvalidContactKey, "invalid contact key: cannot be empty")
	ErrInvalidTurnRange   = NewError(ErrCodeInvalidTurnRange, "invalid extra turn range: need 0 <= min <= max")
	ErrInvalidSectorCount = NewError(ErrCodeInvalidSectorCount, "invalid sector count: must be greater than 0")

	// 参与者账本错误
	ErrDuplicateKeyConflict = NewRetryableError(ErrCodeDuplicateKeyConflict, "participant with this contact key already exists")
	ErrAlreadyCommitted     = NewError(ErrCodeAlreadyCommitted, "spin outcome already committed for participant")
	ErrAlreadyPlayed        = NewError(ErrCodeAlreadyPlayed, "participant has already played")
	ErrSpinInProgress       = NewRetryableError(ErrCodeSpinInProgress, "a spin is already in progress for this participant")
	ErrParticipantNotFound  = NewError(ErrCodeParticipantNotFound, "participant not found")

	// 会话状态错误
	ErrInvalidTransition = NewError(ErrCodeInvalidTransition, "invalid session state transition")
	ErrSessionNotFound   = NewError(ErrCodeSessionNotFound, "session not found")
)

// CodeOf returns the code of the first SpinError in err's chain, or ErrCodeSystem.
func CodeOf(err error) ErrorCode {
	var spinErr *SpinError
	if errors.As(err, &spinErr) {
		return spinErr.Code
	}
	return ErrCodeSystem
}

// ShouldRetry 判断是否应该重试
func ShouldRetry(err error) bool {
	var spinErr *SpinError
	if errors.As(err, &spinErr) {
		return spinErr.Retryable
	}
	return IsRetryableError(err)
}

// IsRetryableError 检查是否为可重试的传输层错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"read tcp",
		"write tcp",
		"connection timed out",
		"no route to host",
		"host is down",
		"connection aborted",
		"socket is not connected",
		"operation timed out",
		"redis: connection pool timeout",
		"redis: client is closed",
		"context deadline exceeded",
		"bad connection",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
