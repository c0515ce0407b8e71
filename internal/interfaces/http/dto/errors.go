package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeMissingScope is used when X-Restaurant-ID is required but absent
	ErrCodeMissingScope = "ERR_MISSING_RESTAURANT_SCOPE"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyClosed is used when closing a register twice
	ErrCodeAlreadyClosed = "ERR_ALREADY_CLOSED"
	// ErrCodeDuplicateRequest is used when an idempotency key is still in flight
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Ledger error codes
const (
	// ErrCodeRegisterClosed is used when a movement targets a closed register
	ErrCodeRegisterClosed = "ERR_REGISTER_CLOSED"
	// ErrCodeInvalidState is used when an operation is invalid for the current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeTransientStore is used when the store failed and the request may be resubmitted
	ErrCodeTransientStore = "ERR_STORE_UNAVAILABLE"
	// ErrCodeConsistency is used when a movement was stored without its balance update
	ErrCodeConsistency = "ERR_LEDGER_INCONSISTENT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeMissingScope:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Resource errors
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeAlreadyClosed:    http.StatusConflict,
	ErrCodeDuplicateRequest: http.StatusConflict,

	// Ledger errors
	ErrCodeRegisterClosed: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:   http.StatusUnprocessableEntity,
	ErrCodeTransientStore: http.StatusServiceUnavailable,
	ErrCodeConsistency:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR":      ErrCodeValidation,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_CLOSED":        ErrCodeAlreadyClosed,
	"DUPLICATE_REQUEST":     ErrCodeDuplicateRequest,
	"REGISTER_CLOSED":       ErrCodeRegisterClosed,
	"INVALID_STATE":         ErrCodeInvalidState,
	"TRANSIENT_STORE_ERROR": ErrCodeTransientStore,
	"CONSISTENCY_ERROR":     ErrCodeConsistency,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes that are already in API format, or unknown, are returned as is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
