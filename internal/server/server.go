// internal/server/server.go

// Package server exposes the HTTP API: compliance analysis, the
// content generation pipeline, knowledge base search, the compliance
// tool registry, and the operational endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"compliance-agent/internal/clients/gemini"
	"compliance-agent/internal/common/config"
	"compliance-agent/internal/common/errors"
	"compliance-agent/internal/common/health"
	"compliance-agent/internal/common/ratelimit"
	"compliance-agent/internal/compliance"
	"compliance-agent/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Analyzer answers compliance questions.
type Analyzer interface {
	Analyze(ctx context.Context, query string) *gemini.ComplianceAnalysis
	AnalyzeStream(ctx context.Context, query string) <-chan string
}

// PipelineRunner executes the content generation pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, topic string) models.PipelineResult
}

// KnowledgeSearcher serves knowledge base queries.
type KnowledgeSearcher interface {
	Search(query string, limit int) []models.KnowledgeHit
}

// HistoryStore persists runs and queries.
type HistoryStore interface {
	SaveRun(ctx context.Context, result models.PipelineResult) error
	SaveQuery(ctx context.Context, query string, analysis *gemini.ComplianceAnalysis) error
}

// Notifier announces completed runs.
type Notifier interface {
	PipelineCompleted(ctx context.Context, result models.PipelineResult)
}

// KeyVerifier checks API keys.
type KeyVerifier interface {
	Verify(ctx context.Context, key string) (string, error)
}

// RateLimiter enforces per-endpoint request limits.
type RateLimiter interface {
	Allow(ctx context.Context, endpoint, clientID string, limit int) (ratelimit.Result, error)
}

// Dependencies carries everything the server needs.
type Dependencies struct {
	Config    *config.Config
	Analyzer  Analyzer
	Pipeline  PipelineRunner
	Knowledge KnowledgeSearcher
	Tools     *compliance.Registry
	History   HistoryStore
	Notifier  Notifier
	Verifier  KeyVerifier
	Limiter   RateLimiter
	Health    *health.Tracker
	Logger    Logger
}

type Server struct {
	cfg          *config.Config
	router       *gin.Engine
	analyzer     Analyzer
	pipeline     PipelineRunner
	knowledge    KnowledgeSearcher
	tools        *compliance.Registry
	history      HistoryStore
	notifier     Notifier
	verifier     KeyVerifier
	limiter      RateLimiter
	health       *health.Tracker
	errorHandler *errors.ErrorHandler
	logger       Logger
}

func New(deps Dependencies) *Server {
	s := &Server{
		cfg:       deps.Config,
		analyzer:  deps.Analyzer,
		pipeline:  deps.Pipeline,
		knowledge: deps.Knowledge,
		tools:     deps.Tools,
		history:   deps.History,
		notifier:  deps.Notifier,
		verifier:  deps.Verifier,
		limiter:   deps.Limiter,
		health:    deps.Health,
		logger:    deps.Logger,
	}
	s.errorHandler = errors.NewErrorHandler(s.logger)
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	if s.cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestContext())
	router.Use(s.securityHeaders())
	router.Use(s.requestMetrics())

	router.GET("/health", s.handleHealth)
	router.GET("/ready", s.handleReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(s.apiKeyAuth())
	{
		api.POST("/compliance",
			s.rateLimit("compliance", s.cfg.RateLimit.Compliance),
			s.handleCompliance)
		api.POST("/content-agent",
			s.rateLimit("content_agent", s.cfg.RateLimit.ContentAgent),
			s.handleContentAgent)
		api.GET("/search",
			s.rateLimit("search", s.cfg.RateLimit.Search),
			s.handleSearch)
		api.GET("/tools", s.handleListTools)
		api.POST("/tools/:name", s.handleExecuteTool)
	}

	return router
}

// Handler exposes the router for the HTTP server and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
