// internal/server/handlers_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-agent/internal/clients/gemini"
	"compliance-agent/internal/common/config"
	"compliance-agent/internal/common/health"
	"compliance-agent/internal/common/ratelimit"
	"compliance-agent/internal/compliance"
	"compliance-agent/internal/knowledge"
	"compliance-agent/internal/models"
)

// ==========================
// Fakes
// ==========================

type fakeAnalyzer struct {
	analysis *gemini.ComplianceAnalysis
	query    string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, query string) *gemini.ComplianceAnalysis {
	f.query = query
	return f.analysis
}

func (f *fakeAnalyzer) AnalyzeStream(ctx context.Context, query string) <-chan string {
	ch := make(chan string, 2)
	ch <- "chunk one "
	ch <- "chunk two"
	close(ch)
	return ch
}

type fakePipeline struct {
	result models.PipelineResult
	topic  string
}

func (f *fakePipeline) Run(ctx context.Context, topic string) models.PipelineResult {
	f.topic = topic
	return f.result
}

type fakeHistory struct {
	mu         sync.Mutex
	savedQuery string
	savedRun   string
}

func (f *fakeHistory) SaveRun(ctx context.Context, result models.PipelineResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedRun = result.RunID
	return nil
}

func (f *fakeHistory) SaveQuery(ctx context.Context, query string, analysis *gemini.ComplianceAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedQuery = query
	return nil
}

func (f *fakeHistory) saved() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.savedQuery, f.savedRun
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified bool
}

func (f *fakeNotifier) PipelineCompleted(ctx context.Context, result models.PipelineResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = true
}

type fakeVerifier struct {
	clientID string
	err      error
}

func (f *fakeVerifier) Verify(ctx context.Context, key string) (string, error) {
	return f.clientID, f.err
}

type fakeLimiter struct {
	result ratelimit.Result
	err    error
}

func (f *fakeLimiter) Allow(ctx context.Context, endpoint, clientID string, limit int) (ratelimit.Result, error) {
	return f.result, f.err
}

type testLogger struct{}

func (testLogger) Info(msg string, fields map[string]interface{})  {}
func (testLogger) Warn(msg string, fields map[string]interface{})  {}
func (testLogger) Error(msg string, fields map[string]interface{}) {}

type serverFixture struct {
	server   *Server
	analyzer *fakeAnalyzer
	pipeline *fakePipeline
	history  *fakeHistory
	notifier *fakeNotifier
}

func newFixture(t *testing.T, mutate func(*config.Config, *Dependencies)) *serverFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Name = "compliance-agent"
	cfg.App.Version = "1.0.0"
	cfg.App.Environment = "test"
	cfg.Auth.HeaderName = "X-API-Key"
	cfg.RateLimit.Compliance = 10
	cfg.RateLimit.ContentAgent = 5
	cfg.RateLimit.Search = 20

	f := &serverFixture{
		analyzer: &fakeAnalyzer{analysis: &gemini.ComplianceAnalysis{Status: "compliant", Score: 90, Jurisdiction: "US"}},
		pipeline: &fakePipeline{result: models.PipelineResult{RunID: "run-1", Topic: "crypto licensing", FinalContent: "post"}},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
	}

	deps := Dependencies{
		Config:    cfg,
		Analyzer:  f.analyzer,
		Pipeline:  f.pipeline,
		Knowledge: knowledge.NewStore(),
		Tools:     compliance.NewRegistry(knowledge.NewStore()),
		History:   f.history,
		Notifier:  f.notifier,
		Verifier:  &fakeVerifier{clientID: "default"},
		Limiter:   &fakeLimiter{result: ratelimit.Result{Allowed: true, Limit: 10, Remaining: 9, ResetAt: time.Now().Add(time.Minute)}},
		Health:    health.NewTracker(),
		Logger:    testLogger{},
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}

	f.server = New(deps)
	return f
}

// closeNotifyRecorder adds http.CloseNotifier, which gin's c.Stream requires
// and httptest.ResponseRecorder does not implement.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool { return c.closed }

func (f *serverFixture) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	f.server.Handler().ServeHTTP(w, req)
	return w.ResponseRecorder
}

// ==========================
// Tests
// ==========================

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "compliance-agent", body["app"])
}

func TestReadyEndpointReportsComponents(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Dependencies) {
		deps.Health.SetAvailable("gemini")
		deps.Health.SetUnavailable("postgres", assert.AnError)
	})

	w := f.do(http.MethodGet, "/ready", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status     string                   `json:"status"`
		Components map[string]health.Status `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.True(t, body.Components["gemini"].Available)
	assert.False(t, body.Components["postgres"].Available)
	assert.NotEmpty(t, body.Components["postgres"].LastError)
}

func TestComplianceEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var analysis gemini.ComplianceAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, "compliant", analysis.Status)
	assert.Equal(t, 90, analysis.Score)

	assert.Eventually(t, func() bool {
		q, _ := f.history.saved()
		return q == "What are the KYC requirements for a US exchange?"
	}, time.Second, 10*time.Millisecond)
}

func TestComplianceEndpoint_QueryTooShort(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{"query": "short"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
}

func TestComplianceEndpoint_Streaming(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, map[string]string{"Accept": "text/event-stream"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, w.Body.String(), "chunk one")
	assert.Contains(t, w.Body.String(), "[DONE]")
}

func TestContentAgentEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/content-agent", map[string]string{
		"topic": "crypto licensing requirements",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var result models.PipelineResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "crypto licensing requirements", f.pipeline.topic)

	assert.Eventually(t, func() bool {
		_, run := f.history.saved()
		return run == "run-1"
	}, time.Second, 10*time.Millisecond)
}

func TestContentAgentEndpoint_TopicTooShort(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/content-agent", map[string]string{"topic": "short"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/search?q=KYC+requirements&limit=3", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Query   string                `json:"query"`
		Results []models.KnowledgeHit `json:"results"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "KYC requirements", body.Query)
	assert.Equal(t, len(body.Results), body.Count)
	assert.NotZero(t, body.Count)
}

func TestSearchEndpoint_MissingQuery(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/search", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEndpoint_LimitOutOfRange(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/search?q=KYC&limit=100", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToolsEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/tools", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "analyzeKYC")

	w = f.do(http.MethodPost, "/api/tools/analyzeKYC", map[string]interface{}{
		"jurisdiction": "US",
		"businessType": "exchange",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Customer Identification Program")

	w = f.do(http.MethodPost, "/api/tools/doesNotExist", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RESOURCE_NOT_FOUND")
}

func TestAuth_RequiredWhenEnabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.Auth.Enabled = true
		deps.Verifier = &fakeVerifier{err: errors.New("invalid key")}
	})

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, map[string]string{"X-API-Key": "some-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidKeyPasses(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.Auth.Enabled = true
		deps.Verifier = &fakeVerifier{clientID: "client-7"}
	})

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, map[string]string{"X-API-Key": "valid-key"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_RejectionSetsHeaders(t *testing.T) {
	reset := time.Now().Add(30 * time.Second)
	f := newFixture(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.RateLimit.Enabled = true
		deps.Limiter = &fakeLimiter{result: ratelimit.Result{
			Allowed:   false,
			Limit:     10,
			Remaining: 0,
			ResetAt:   reset,
		}}
	})

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, nil)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Dependencies) {
		cfg.RateLimit.Enabled = true
		deps.Limiter = &fakeLimiter{err: errors.New("redis down")}
	})

	w := f.do(http.MethodPost, "/api/compliance", map[string]string{
		"query": "What are the KYC requirements for a US exchange?",
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
