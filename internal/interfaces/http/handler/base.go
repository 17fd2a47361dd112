// Package handler implements the HTTP handlers of the task trigger API.
package handler

import (
	"errors"
	"net/http"

	"github.com/eta/backend/internal/domain/shared"
	"github.com/eta/backend/internal/infrastructure/scheduler"
	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/eta/backend/internal/interfaces/http/dto"
	"github.com/eta/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response for work handed to the task queue
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts domain and task errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
	case errors.Is(err, task.ErrUnknownTask):
		h.Error(c, http.StatusNotFound, dto.ErrCodeTaskNotFound, "Task is not registered")
	case errors.Is(err, scheduler.ErrNotPeriodic):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeNotPeriodic, "Task is not periodic")
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrBrokerClosed):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeQueueFull, "Task queue is not accepting work")
	default:
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}
