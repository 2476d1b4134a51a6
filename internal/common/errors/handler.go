// internal/common/errors/handler.go
package errors

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorHandler converts errors into standardized HTTP responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HandleHTTPError normalizes an error, logs it, and writes the JSON response.
func (h *ErrorHandler) HandleHTTPError(c *gin.Context, err error) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr)

	requestID := c.GetString("requestId")

	h.logError(c.Request.Method, c.FullPath(), requestID, status, stdErr)

	if stdErr.Code == ErrCodeRateLimited {
		if retryAfter, ok := stdErr.Metadata["retryAfter"].(int); ok {
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		}
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     stdErr.Message,
		Code:      string(stdErr.Code),
		Details:   stdErr.Details,
		RequestID: requestID,
		Timestamp: stdErr.Timestamp.Format(time.RFC3339),
	})
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(method, path, requestID string, status int, stdErr *StandardError) {
	h.logger.Error("Request failed", map[string]interface{}{
		"method":        method,
		"path":          path,
		"requestId":     requestID,
		"status":        status,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}
