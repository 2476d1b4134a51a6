// Package gemini wraps the Google Gemini API with retry handling and
// availability tracking.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"compliance-agent/internal/common/config"
	apperrors "compliance-agent/internal/common/errors"
	"compliance-agent/internal/common/health"
	"compliance-agent/internal/common/logger"
	"compliance-agent/internal/common/metrics"

	"google.golang.org/genai"
)

// HealthComponent is the tracker key for model availability.
const HealthComponent = "gemini"

// Client calls the Gemini API. Generation failures are converted to
// empty output so callers can fall back to canned content.
type Client struct {
	cfg     config.GeminiConfig
	logger  logger.Logger
	tracker *health.Tracker

	initOnce sync.Once
	initErr  error
	genai    *genai.Client

	// generateRaw performs one non-streaming model call. Replaceable
	// in tests.
	generateRaw func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// sleep is the backoff delay hook, replaceable in tests.
	sleep func(time.Duration)
}

func NewClient(cfg config.GeminiConfig, tracker *health.Tracker, log logger.Logger) *Client {
	c := &Client{
		cfg:     cfg,
		logger:  log,
		tracker: tracker,
		sleep:   time.Sleep,
	}
	c.generateRaw = c.callModel
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.initOnce.Do(func() {
		if !c.Enabled() {
			c.initErr = apperrors.NewModelUnavailableError("gemini api key not configured")
			return
		}
		c.genai, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: c.cfg.APIKey,
		})
	})
	return c.genai, c.initErr
}

func (c *Client) generateConfig(systemPrompt string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if c.cfg.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(c.cfg.Temperature))
	}
	return cfg
}

func (c *Client) callModel(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, contents, c.generateConfig(systemPrompt))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// isRetryable matches the transient overload signals from the provider.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusServiceUnavailable {
		return true
	}
	return strings.Contains(err.Error(), "overloaded")
}

// classify maps a raw provider error onto the error catalog so logs and
// availability records carry a stable code.
func classify(err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	if isRetryable(err) {
		return apperrors.NewModelOverloadedError(err)
	}
	return apperrors.NewGenerationFailedError(err)
}

// retryWithBackoff retries transient failures with exponential backoff
// (1s, 2s, 4s). Non-retryable errors and exhausted retries propagate.
func (c *Client) retryWithBackoff(ctx context.Context, fn func() (string, error)) (string, error) {
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	initialDelay := 1000 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxRetries-1 {
			return "", err
		}

		delay := initialDelay * (1 << attempt)
		metrics.ModelRetriesTotal.WithLabelValues(c.cfg.Model).Inc()
		c.logger.Warn("Retrying model call", map[string]interface{}{
			"attempt": attempt + 1,
			"max":     maxRetries,
			"delayMs": delay.Milliseconds(),
		})

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		c.sleep(delay)
	}
	return "", lastErr
}

// Generate runs a non-streaming model call. Any failure, including
// exhausted retries, is converted to empty output with ok=false, and
// availability is recorded either way.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool) {
	out, err := c.retryWithBackoff(ctx, func() (string, error) {
		return c.generateRaw(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		stdErr := classify(err)
		metrics.ModelRequestsTotal.WithLabelValues(c.cfg.Model, "error").Inc()
		c.tracker.SetUnavailable(HealthComponent, stdErr)
		c.logger.Error("Model generation failed", map[string]interface{}{
			"model":     c.cfg.Model,
			"errorCode": string(stdErr.Code),
			"retryable": stdErr.Retryable,
			"error":     err.Error(),
		})
		return "", false
	}

	metrics.ModelRequestsTotal.WithLabelValues(c.cfg.Model, "success").Inc()
	c.tracker.SetAvailable(HealthComponent)
	return out, true
}

// GenerateStream runs a streaming model call, delivering text deltas on
// the returned channel. Failures close the channel without yields and
// mark the model unavailable.
func (c *Client) GenerateStream(ctx context.Context, systemPrompt, userPrompt string) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		client, err := c.client(ctx)
		if err != nil {
			c.tracker.SetUnavailable(HealthComponent, err)
			c.logger.Warn("Model client not available", map[string]interface{}{"error": err.Error()})
			return
		}

		contents := []*genai.Content{
			genai.NewContentFromText(userPrompt, genai.RoleUser),
		}

		yielded := false
		for resp, err := range client.Models.GenerateContentStream(ctx, c.cfg.Model, contents, c.generateConfig(systemPrompt)) {
			if err != nil {
				stdErr := classify(err)
				c.tracker.SetUnavailable(HealthComponent, stdErr)
				c.logger.Error("Model stream failed", map[string]interface{}{
					"model":     c.cfg.Model,
					"errorCode": string(stdErr.Code),
					"error":     err.Error(),
				})
				return
			}
			if text := resp.Text(); text != "" {
				yielded = true
				select {
				case out <- text:
				case <-ctx.Done():
					return
				}
			}
		}
		if yielded {
			c.tracker.SetAvailable(HealthComponent)
		}
	}()

	return out
}
