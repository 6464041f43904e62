package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for quiz core operations.
type ErrorCode string

const (
	// ErrCodeMalformedContent indicates input that cannot form a valid question.
	// Rejected before touching storage.
	ErrCodeMalformedContent ErrorCode = "MALFORMED_CONTENT"
	// ErrCodeRenderTimeout indicates the renderer exceeded its deadline.
	// Recoverable: the caller falls back to text-only presentation.
	ErrCodeRenderTimeout ErrorCode = "RENDER_TIMEOUT"
	// ErrCodeRenderFailed indicates the renderer returned an error.
	// Recoverable: the caller falls back to text-only presentation.
	ErrCodeRenderFailed ErrorCode = "RENDER_FAILED"
	// ErrCodeStoreUnavailable indicates the durable or relational store is unreachable.
	// Surfaced to the scheduler boundary; terminates the session cleanly.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeDuplicateContent is the informational outcome of a loader add
	// hitting an existing content hash. Not a failure.
	ErrCodeDuplicateContent ErrorCode = "DUPLICATE_CONTENT"
	// ErrCodeSessionState indicates an operation invalid for the session's
	// current lifecycle state.
	ErrCodeSessionState ErrorCode = "SESSION_STATE"
)

// QuizError represents a structured error for quiz core operations.
type QuizError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *QuizError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QuizError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// MalformedContent creates a malformed content error.
func MalformedContent(msg string) *QuizError {
	return &QuizError{Code: ErrCodeMalformedContent, Message: msg}
}

// RenderTimeout creates a render timeout error.
func RenderTimeout(msg string, cause error) *QuizError {
	return &QuizError{Code: ErrCodeRenderTimeout, Message: msg, Cause: cause}
}

// RenderFailed creates a render failed error.
func RenderFailed(msg string, cause error) *QuizError {
	return &QuizError{Code: ErrCodeRenderFailed, Message: msg, Cause: cause}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *QuizError {
	return &QuizError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// DuplicateContent creates a duplicate content error.
func DuplicateContent(hash string) *QuizError {
	return &QuizError{
		Code:    ErrCodeDuplicateContent,
		Message: fmt.Sprintf("content already present: %s", hash),
	}
}

// SessionState creates a session state error.
func SessionState(msg string) *QuizError {
	return &QuizError{Code: ErrCodeSessionState, Message: msg}
}

// IsCode checks if an error (or anything it wraps) carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var qe *QuizError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsRecoverable reports whether the error leaves the session usable.
// Render failures degrade to text-only presentation; everything implying
// storage inconsistency terminates the session.
func IsRecoverable(err error) bool {
	var qe *QuizError
	if errors.As(err, &qe) {
		switch qe.Code {
		case ErrCodeRenderTimeout, ErrCodeRenderFailed, ErrCodeDuplicateContent:
			return true
		}
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a QuizError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var qe *QuizError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return defaultCode
}
