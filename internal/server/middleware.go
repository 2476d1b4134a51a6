// internal/server/middleware.go
package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compliance-agent/internal/common/errors"
	"compliance-agent/internal/common/metrics"
)

// RequestContext assigns the request ID and resolves the client ID
// used for rate limiting.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header("X-Request-Id", requestID)

		clientID := c.GetHeader("X-Client-Id")
		if clientID == "" {
			clientID = c.ClientIP()
		}
		if clientID == "" {
			clientID = "anonymous"
		}
		c.Set("clientId", clientID)

		c.Next()
	}
}

func (s *Server) securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(endpoint, c.Request.Method, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(endpoint, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// apiKeyAuth enforces the configured API key header. When auth is
// disabled the middleware passes everything through.
func (s *Server) apiKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.Auth.Enabled {
			c.Next()
			return
		}

		key := c.GetHeader(s.cfg.Auth.HeaderName)
		if key == "" {
			s.errorHandler.HandleHTTPError(c, errors.NewUnauthorizedError("API key required"))
			return
		}

		clientID, err := s.verifier.Verify(c.Request.Context(), key)
		if err != nil {
			s.errorHandler.HandleHTTPError(c, errors.NewUnauthorizedError("Invalid API key"))
			return
		}

		c.Set("clientId", clientID)
		c.Next()
	}
}

// rateLimit applies the per-endpoint request limit. The limiter
// fails open when Redis is unreachable.
func (s *Server) rateLimit(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.RateLimit.Enabled || s.limiter == nil {
			c.Next()
			return
		}

		clientID := c.GetString("clientId")
		result, err := s.limiter.Allow(c.Request.Context(), endpoint, clientID, limit)
		if err != nil {
			s.logger.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
				"endpoint": endpoint,
				"error":    err.Error(),
			})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			metrics.RateLimitRejections.WithLabelValues(endpoint).Inc()
			s.errorHandler.HandleHTTPError(c, errors.NewRateLimitedError(result.RetryAfterSec()))
			return
		}
		c.Next()
	}
}
