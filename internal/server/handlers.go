// internal/server/handlers.go
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-agent/internal/common/errors"
	"compliance-agent/internal/common/validation"
	"compliance-agent/internal/compliance"
)

const persistTimeout = 10 * time.Second

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"app":         s.cfg.App.Name,
		"version":     s.cfg.App.Version,
		"environment": s.cfg.App.Environment,
		"components":  s.health.Snapshot(),
	})
}

// handleReady reports readiness with the last-known state of every
// tracked backend. Degraded backends are advisory: the service still
// serves with fallback content, so readiness stays 200.
func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": s.health.Snapshot(),
	})
}

// handleCompliance answers a compliance question. With
// "Accept: text/event-stream" the answer is streamed as SSE chunks;
// otherwise the structured assessment is returned as JSON.
func (s *Server) handleCompliance(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError("request body must be valid JSON"))
		return
	}
	if err := validation.ValidateComplianceRequest(payload); err != nil {
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError(err.Error()))
		return
	}

	query := payload["query"].(string)

	if c.GetHeader("Accept") == "text/event-stream" {
		s.streamCompliance(c, query)
		return
	}

	analysis := s.analyzer.Analyze(c.Request.Context(), query)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.history.SaveQuery(ctx, query, analysis); err != nil {
			s.logger.Warn("Failed to persist compliance query", map[string]interface{}{
				"retryable": errors.IsRetryable(err),
				"error":     err.Error(),
			})
		}
	}()

	c.JSON(http.StatusOK, analysis)
}

func (s *Server) streamCompliance(c *gin.Context, query string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	chunks := s.analyzer.AnalyzeStream(c.Request.Context(), query)
	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-chunks
		if !ok {
			c.SSEvent("done", "[DONE]")
			return false
		}
		c.SSEvent("message", chunk)
		return true
	})
}

// handleContentAgent runs the full content generation pipeline.
func (s *Server) handleContentAgent(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError("request body must be valid JSON"))
		return
	}
	if err := validation.ValidateContentRequest(payload); err != nil {
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError(err.Error()))
		return
	}

	topic := payload["topic"].(string)
	result := s.pipeline.Run(c.Request.Context(), topic)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.history.SaveRun(ctx, result); err != nil {
			s.logger.Warn("Failed to persist pipeline run", map[string]interface{}{
				"runId":     result.RunID,
				"retryable": errors.IsRetryable(err),
				"error":     err.Error(),
			})
		}
		s.notifier.PipelineCompleted(ctx, result)
	}()

	c.JSON(http.StatusOK, result)
}

// handleSearch serves knowledge base lookups.
func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.errorHandler.HandleHTTPError(c, errors.NewValidationError("limit must be an integer"))
			return
		}
		limit = parsed
	}

	if err := validation.ValidateSearchRequest(map[string]interface{}{
		"q":     query,
		"limit": limit,
	}); err != nil {
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError(err.Error()))
		return
	}

	results := s.knowledge.Search(query, limit)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.tools.List()})
}

func (s *Server) handleExecuteTool(c *gin.Context) {
	var params compliance.ToolParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError("request body must be valid JSON"))
		return
	}

	output, err := s.tools.Execute(c.Param("name"), params)
	if err != nil {
		if stderrors.Is(err, compliance.ErrUnknownTool) {
			s.errorHandler.HandleHTTPError(c, errors.NewResourceNotFoundError(c.Param("name"), err.Error()))
			return
		}
		s.errorHandler.HandleHTTPError(c, errors.NewValidationError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tool":   c.Param("name"),
		"output": output,
	})
}
