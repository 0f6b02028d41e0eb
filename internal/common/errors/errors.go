// Package errors provides the error catalogue shared by the conversation,
// catalog and workflow layers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Sentinels
// ==========================

var (
	ErrModerationFlagged  = stderrors.New("MODERATION_FLAGGED")
	ErrMalformedProfile   = stderrors.New("MALFORMED_PROFILE")
	ErrBudgetTooLow       = stderrors.New("BUDGET_TOO_LOW")
	ErrNoCandidatesMatch  = stderrors.New("NO_CANDIDATES_MATCH")
	ErrServiceUnavailable = stderrors.New("SERVICE_UNAVAILABLE")
	ErrSessionTerminated  = stderrors.New("SESSION_TERMINATED")
	ErrSessionNotFound    = stderrors.New("SESSION_NOT_FOUND")
	ErrCatalogUnavailable = stderrors.New("CATALOG_UNAVAILABLE")
)

// MalformedProfileError reports the first key that failed structural,
// enum or numeric validation. Key is empty when no structured span exists.
type MalformedProfileError struct {
	Key    string
	Reason string
}

func (e *MalformedProfileError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedProfile, e.Reason)
	}
	return fmt.Sprintf("%s: key %q: %s", ErrMalformedProfile, e.Key, e.Reason)
}

func (e *MalformedProfileError) Unwrap() error {
	return ErrMalformedProfile
}

// NewMalformedProfileError builds a MalformedProfileError for key.
func NewMalformedProfileError(key, reason string) *MalformedProfileError {
	return &MalformedProfileError{Key: key, Reason: reason}
}

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeModerationFlagged  ErrorCode = "MODERATION_FLAGGED"
	ErrCodeMalformedProfile   ErrorCode = "MALFORMED_PROFILE"
	ErrCodeBudgetTooLow       ErrorCode = "BUDGET_TOO_LOW"
	ErrCodeNoCandidatesMatch  ErrorCode = "NO_CANDIDATES_MATCH"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeSessionTerminated  ErrorCode = "SESSION_TERMINATED"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
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
// 3. Error Constructors
// ==========================

func NewModerationFlaggedError(source string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModerationFlagged,
		Message:   "Content was flagged by moderation; the session has ended",
		Details:   fmt.Sprintf("source: %s", source),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     ErrModerationFlagged,
	}
}

func NewMalformedProfileStandardError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedProfile,
		Message:   "Requirement profile could not be read",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewBudgetTooLowError wraps an error carrying ErrBudgetTooLow.
func NewBudgetTooLowError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBudgetTooLow,
		Message:   "Budget is below the lowest catalog price band",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNoCandidatesMatchError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoCandidatesMatch,
		Message:   "No catalog item satisfies the requirement profile",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCatalogUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Catalog could not be loaded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewServiceUnavailableError(capability string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeServiceUnavailable,
		Message:   fmt.Sprintf("Capability '%s' is unavailable", capability),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     ErrServiceUnavailable,
	}
}

func NewSessionNotFoundError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSessionTerminatedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionTerminated,
		Message:   "Session has ended; reset it to start over",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Normalization
// ==========================

// Normalize maps any error onto the catalogue. Errors that are already a
// StandardError are returned unchanged.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var malformed *MalformedProfileError
	switch {
	case stderrors.As(err, &malformed):
		return NewMalformedProfileStandardError(malformed)
	case stderrors.Is(err, ErrModerationFlagged):
		return NewModerationFlaggedError("unknown")
	case stderrors.Is(err, ErrServiceUnavailable):
		return &StandardError{
			Code:      ErrCodeServiceUnavailable,
			Message:   "A required capability is unavailable",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
			cause:     err,
		}
	case stderrors.Is(err, ErrBudgetTooLow):
		return NewBudgetTooLowError(err)
	case stderrors.Is(err, ErrNoCandidatesMatch):
		return NewNoCandidatesMatchError(err)
	case stderrors.Is(err, ErrSessionNotFound):
		return NewSessionNotFoundError(err)
	case stderrors.Is(err, ErrSessionTerminated):
		return NewSessionTerminatedError(err)
	case stderrors.Is(err, ErrCatalogUnavailable):
		return NewCatalogUnavailableError(err)
	}

	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// HTTPStatus maps an error code onto the status used by the HTTP boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeSessionTerminated:
		return http.StatusConflict
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeServiceUnavailable, ErrCodeCatalogUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeMalformedProfile, ErrCodeBudgetTooLow, ErrCodeNoCandidatesMatch, ErrCodeModerationFlagged:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. BPMN Error Integration
// ==========================

// BPMNError represents an error thrown to the workflow engine.
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

// ToErrorVariables returns the job variables describing the failure.
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

// GetRetryCount returns how many job retries a code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeServiceUnavailable, ErrCodeCatalogUnavailable:
		return 3
	default:
		return 0
	}
}

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

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "MODERATION"):
		return "SAFETY"
	case strings.Contains(codeStr, "PROFILE") || strings.Contains(codeStr, "BUDGET"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CANDIDATES") || strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "SERVICE"):
		return "CAPABILITY"
	default:
		return "OTHER"
	}
}
