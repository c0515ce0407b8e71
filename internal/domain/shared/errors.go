package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that a freshly built error with a
// specific message still matches the sentinel of the same class.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across bounded contexts
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidState     = "INVALID_STATE"
	CodeDuplicateRequest = "DUPLICATE_REQUEST"
	CodeTransientStore   = "TRANSIENT_STORE_ERROR"
)

// Common domain errors
var (
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput     = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation       = NewDomainError(CodeValidation, "Validation failed")
	ErrInvalidState     = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrDuplicateRequest = NewDomainError(CodeDuplicateRequest, "An identical request is already being processed")
	ErrTransientStore   = NewDomainError(CodeTransientStore, "The ledger store is temporarily unavailable")
)

// NewValidationError builds a validation error with a specific message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// HasCode reports whether err wraps a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

// TransientStoreError wraps a store failure that may succeed on resubmission.
type TransientStoreError struct {
	Op  string
	Err error
}

// NewTransientStoreError wraps err as a transient failure of op.
func NewTransientStoreError(op string, err error) *TransientStoreError {
	return &TransientStoreError{Op: op, Err: err}
}

func (e *TransientStoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": ledger store unavailable"
	}
	return e.Op + ": ledger store unavailable: " + e.Err.Error()
}

// Unwrap exposes both the error class and the underlying cause.
func (e *TransientStoreError) Unwrap() []error {
	return []error{ErrTransientStore, e.Err}
}
