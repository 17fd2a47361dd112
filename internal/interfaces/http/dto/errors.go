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
	// ErrCodeUnavailable is used when a backing service cannot be reached
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeTenantRequired is used when a tenant scoped route is called without a tenant
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
	// ErrCodeNotPeriodic is used when a manual run names a task without an interval
	ErrCodeNotPeriodic = "ERR_NOT_PERIODIC"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeTenantNotFound is used when the requested tenant does not exist
	ErrCodeTenantNotFound = "ERR_TENANT_NOT_FOUND"
	// ErrCodeOrderNotFound is used when no order has the requested number
	ErrCodeOrderNotFound = "ERR_ORDER_NOT_FOUND"
	// ErrCodeUserNotFound is used when no user has the requested ID
	ErrCodeUserNotFound = "ERR_USER_NOT_FOUND"
	// ErrCodeTaskNotFound is used for task names missing from the registry
	ErrCodeTaskNotFound = "ERR_TASK_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Throughput error codes
const (
	// ErrCodeQueueFull is used when the task broker rejects new work
	ErrCodeQueueFull = "ERR_QUEUE_FULL"
	// ErrCodeRateLimited is used when a client exceeds its request budget
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeTenantRequired: http.StatusBadRequest,
	ErrCodeNotPeriodic:    http.StatusBadRequest,

	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeTenantNotFound: http.StatusNotFound,
	ErrCodeOrderNotFound:  http.StatusNotFound,
	ErrCodeUserNotFound:   http.StatusNotFound,
	ErrCodeTaskNotFound:   http.StatusNotFound,
	ErrCodeConflict:       http.StatusConflict,

	ErrCodeQueueFull:   http.StatusServiceUnavailable,
	ErrCodeRateLimited: http.StatusTooManyRequests,
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
	"NOT_FOUND":             ErrCodeNotFound,
	"TENANT_NOT_FOUND":      ErrCodeTenantNotFound,
	"ORDER_NOT_FOUND":       ErrCodeOrderNotFound,
	"USER_NOT_FOUND":        ErrCodeUserNotFound,
	"DIRECTORY_UNAVAILABLE": ErrCodeUnavailable,
	"SCOPE_ALREADY_ACTIVE":  ErrCodeConflict,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INVALID_INPUT":         ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown ones, are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
