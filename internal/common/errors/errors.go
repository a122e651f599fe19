// Package errors provides the standard error model shared by the HTTP
// surface and the job workers.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEmptyQuery     ErrorCode = "EMPTY_QUERY"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNeedLocation   ErrorCode = "NEED_LOCATION"

	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderRateLimited ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"

	ErrCodeSignalStoreUnavailable ErrorCode = "SIGNAL_STORE_UNAVAILABLE"
	ErrCodeDatabaseInsertFailed   ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, msg, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   msg,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewEmptyQueryError() *StandardError {
	return newError(ErrCodeEmptyQuery, "Query is empty", "", false, nil)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false, nil)
}

func NewNeedLocationError() *StandardError {
	return newError(ErrCodeNeedLocation, "Location is required for nearby search", "", false, nil)
}

// NewProviderUnavailableError wraps a failed call to an external source.
func NewProviderUnavailableError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderUnavailable,
		fmt.Sprintf("Provider '%s' unavailable", provider), errString(err), true, err)
}

func NewProviderRateLimitedError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderRateLimited,
		fmt.Sprintf("Provider '%s' rate limited", provider), errString(err), false, err)
}

func NewProviderTimeoutError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderTimeout,
		fmt.Sprintf("Provider '%s' timeout", provider), errString(err), true, err)
}

func NewSignalStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeSignalStoreUnavailable, "Signal store unavailable", errString(err), true, err)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", errString(err), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errString(err)), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errString(err), false, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// FromProviderError classifies an error returned by an external provider call.
func FromProviderError(provider string, err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewProviderTimeoutError(provider, err)
	}
	return NewProviderUnavailableError(provider, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProviderUnavailable,
		ErrCodeSignalStoreUnavailable,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeProviderTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "SIGNAL") || strings.Contains(codeStr, "DATABASE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case code == ErrCodeEmptyQuery || code == ErrCodeInvalidRequest || code == ErrCodeNeedLocation:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// Safely runs fn and returns a panic from it as an internal error, so a
// failing provider inside a goroutine degrades like any other provider error.
func Safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewInternalError(fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}
