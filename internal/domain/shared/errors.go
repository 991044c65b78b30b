package shared

import (
	"errors"
	"fmt"
)

// Error codes raised by the reconciliation engine. The HTTP layer maps each
// code to a status in dto.ErrorCodeHTTPStatus.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidState           = "INVALID_STATE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInvalidProposalLine    = "INVALID_PROPOSAL_LINE"
	CodeMissingRequiredContext = "MISSING_REQUIRED_CONTEXT"
	CodeReconciliationFailed   = "RECONCILIATION_FAILED"
)

// DomainError represents a domain-level error.
// Details carries the line, field and rule that were violated so a reviewer
// can act on the message.
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers write errors.Is(err, shared.ErrNotFound).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error with an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a domain error wrapping an infrastructure error
func NewDomainErrorWithCause(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrInvalidProposalLine    = NewDomainError(CodeInvalidProposalLine, "Proposal line is malformed or contradicts the order")
	ErrMissingRequiredContext = NewDomainError(CodeMissingRequiredContext, "Required context is missing")
	ErrReconciliationFailed   = NewDomainError(CodeReconciliationFailed, "Failed to apply proposal to order")
)

// IsCode reports whether err is a DomainError carrying code
func IsCode(err error, code string) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// AsDomainError unwraps err to a *DomainError when possible
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
