// Package errors provides the standardized error model shared by the engine,
// the explanation adapter and the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Request rejected: malformed profile or request envelope.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// Explanation collaborator failures, absorbed by the adapter.
	ErrCodeExternalCollaborator ErrorCode = "EXTERNAL_COLLABORATOR_ERROR"
	ErrCodeExplanationTimeout   ErrorCode = "EXPLANATION_TIMEOUT"

	// Infrastructure around the engine.
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeCacheUnavailable   ErrorCode = "CACHE_UNAVAILABLE"

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

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after merging the given key/value pairs into Metadata.
func (e *StandardError) WithMetadata(kv map[string]interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		e.Metadata[k] = v
	}
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is the form thrown to the Zeebe workflow engine.
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

// ToErrorVariables returns a map suitable for job fail/throw variables.
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

// NewValidationError rejects a request. fields maps a field path to its problem.
func NewValidationError(details string, fields map[string]string) *StandardError {
	e := &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Invalid recommendation input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	if len(fields) > 0 {
		meta := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			meta[k] = v
		}
		e.Metadata = map[string]interface{}{"fields": meta}
	}
	return e
}

func NewExternalCollaboratorError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalCollaborator,
		Message:   fmt.Sprintf("External collaborator '%s' failed", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewExplanationTimeoutError(service string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeExplanationTimeout,
		Message:   fmt.Sprintf("External collaborator '%s' timed out", service),
		Details:   fmt.Sprintf("call exceeded %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCatalogUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Program catalog unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Inspection helpers
// ==========================

// AsStandardError returns err as a *StandardError, wrapping unknown errors as
// INTERNAL_ERROR. A nil err yields nil.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// ==========================
// 5. BPMN mapping and retries
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidation:           "RECOMMENDATION_VALIDATION_FAILED",
	ErrCodeExternalCollaborator: "EXPLANATION_FAILED",
	ErrCodeExplanationTimeout:   "EXPLANATION_TIMEOUT",
	ErrCodeCatalogUnavailable:   "CATALOG_UNAVAILABLE",
	ErrCodeCacheUnavailable:     "CACHE_UNAVAILABLE",
	ErrCodeInternal:             "INTERNAL_ERROR",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogUnavailable:
		return 3
	case ErrCodeExternalCollaborator, ErrCodeExplanationTimeout:
		return 1
	default:
		return 0
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation:
		return "business"
	case ErrCodeExternalCollaborator, ErrCodeExplanationTimeout:
		return "external"
	case ErrCodeCatalogUnavailable, ErrCodeCacheUnavailable:
		return "infrastructure"
	default:
		return "internal"
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}
	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: stdErr.Metadata,
	}
}
