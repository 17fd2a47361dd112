package dto

import "time"

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response carrying the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// EnqueuedTaskResponse describes a task accepted by the queue
type EnqueuedTaskResponse struct {
	TaskID       string `json:"task_id"`
	Task         string `json:"task"`
	TenantSchema string `json:"tenant_schema,omitempty"`
}

// OrderConfirmationResponse is returned when an order confirmation email is queued
type OrderConfirmationResponse struct {
	EnqueuedTaskResponse
	OrderNumber string `json:"order_number"`
}

// TaskDefinitionResponse describes a registered task
type TaskDefinitionResponse struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Periodic    bool       `json:"periodic"`
	Interval    string     `json:"interval,omitempty"`
	MaxRetries  int        `json:"max_retries"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
