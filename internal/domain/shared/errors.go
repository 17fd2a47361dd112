// Package shared holds the error type every domain package builds its
// sentinel errors from.
package shared

// DomainError is an error with a stable code the HTTP layer maps to a status
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// ErrInvalidInput is wrapped by validation failures
var ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
