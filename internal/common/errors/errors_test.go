// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// HTTP Status Mapping Tests
// ==========================

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *StandardError
		want int
	}{
		{"validation", NewValidationError("bad input"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("missing key"), http.StatusUnauthorized},
		{"rate limited", NewRateLimitedError(60), http.StatusTooManyRequests},
		{"model unavailable", NewModelUnavailableError("no key"), http.StatusServiceUnavailable},
		{"model overloaded", NewModelOverloadedError(errors.New("503")), http.StatusServiceUnavailable},
		{"generation failed", NewGenerationFailedError(errors.New("boom")), http.StatusBadGateway},
		{"response parse", NewResponseParseError("bad json"), http.StatusBadGateway},
		{"search failed", NewSearchAPIFailedError("/search", errors.New("down")), http.StatusBadGateway},
		{"search timeout", NewSearchAPITimeoutError("/search"), http.StatusGatewayTimeout},
		{"crawl failed", NewCrawlFailedError("https://example.com", errors.New("403")), http.StatusBadGateway},
		{"resource not found", NewResourceNotFoundError("analyzeKYC", "no such tool"), http.StatusNotFound},
		{"db connect", NewDatabaseConnectionFailedError(errors.New("refused")), http.StatusInternalServerError},
		{"db insert", NewDatabaseInsertFailedError(errors.New("constraint")), http.StatusInternalServerError},
		{"index write", NewIndexWriteFailedError("pipeline-runs", errors.New("red")), http.StatusInternalServerError},
		{"notification", NewNotificationSendFailedError("email", errors.New("throttled")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_UnknownCodeDefaultsTo500(t *testing.T) {
	err := &StandardError{Code: "SOMETHING_NEW", Message: "no mapping"}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

// ==========================
// Utility Tests
// ==========================

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewModelOverloadedError(errors.New("503"))))
	assert.True(t, IsRetryable(NewDatabaseInsertFailedError(errors.New("deadlock"))))
	assert.False(t, IsRetryable(NewValidationError("bad input")))
	assert.False(t, IsRetryable(NewResourceNotFoundError("tool", "missing")))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeModelUnavailable, "AI"},
		{ErrCodeGenerationFailed, "AI"},
		{ErrCodeResponseParseError, "AI"},
		{ErrCodeSearchAPIFailed, "SEARCH"},
		{ErrCodeCrawlFailed, "SEARCH"},
		{ErrCodeDatabaseInsertFailed, "DATABASE"},
		{ErrCodeIndexWriteFailed, "DATABASE"},
		{ErrCodeNotificationSendFailed, "NOTIFICATION"},
		{ErrCodeValidationFailed, "REQUEST"},
		{ErrCodeUnauthorized, "REQUEST"},
		{ErrCodeRateLimited, "REQUEST"},
		{ErrCodeResourceNotFound, "OTHER"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestNewRateLimitedError_CarriesRetryAfter(t *testing.T) {
	err := NewRateLimitedError(30)
	assert.Equal(t, 30, err.Metadata["retryAfter"])
	assert.Contains(t, err.Error(), "RATE_LIMITED")
}
