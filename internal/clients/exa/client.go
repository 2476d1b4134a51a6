// Package exa wraps the Exa search, contents, research, and chat APIs.
// Every operation is fail-soft: a missing API key or a provider error
// yields empty results, never an error to the caller.
package exa

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"compliance-agent/internal/common/config"
	apperrors "compliance-agent/internal/common/errors"
	commonhttp "compliance-agent/internal/common/http"
	"compliance-agent/internal/common/logger"
	"compliance-agent/internal/common/metrics"
	"compliance-agent/internal/models"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// searchError maps a provider failure onto the error catalog,
// distinguishing deadline expiry from everything else.
func searchError(endpoint string, err error) *apperrors.StandardError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewSearchAPITimeoutError(endpoint)
	}
	return apperrors.NewSearchAPIFailedError(endpoint, err)
}

// Message is a chat message for the Exa chat completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the Exa APIs.
type Client struct {
	cfg        config.ExaConfig
	httpClient *commonhttp.Client
	logger     logger.Logger

	chatOnce sync.Once
	chatLLM  llms.Model
	chatErr  error
}

func NewClient(cfg config.ExaConfig, httpClient *commonhttp.Client, log logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-api-key": c.cfg.APIKey}
}

// ==========================
// Search / Contents
// ==========================

type searchRequest struct {
	Query      string          `json:"query"`
	Type       string          `json:"type"`
	NumResults int             `json:"numResults"`
	Contents   contentsOptions `json:"contents"`
}

type contentsRequest struct {
	URLs []string `json:"urls"`
	Text bool     `json:"text"`
}

type contentsOptions struct {
	Text bool `json:"text"`
}

type searchResponse struct {
	Results []struct {
		Title string  `json:"title"`
		URL   string  `json:"url"`
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Search runs a web search with text contents. Provider errors are
// logged and swallowed; the caller always gets a usable slice.
func (c *Client) Search(ctx context.Context, query string, limit int) []models.WebResult {
	if !c.Enabled() {
		c.logger.Warn("Exa API key not configured, skipping web search", nil)
		return nil
	}

	req := searchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: limit,
		Contents:   contentsOptions{Text: true},
	}

	var resp searchResponse
	if err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/search", c.headers(), req, &resp); err != nil {
		stdErr := searchError("/search", err)
		metrics.SearchRequestsTotal.WithLabelValues("search", "error").Inc()
		c.logger.Error("Exa search failed", map[string]interface{}{
			"query":     query,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return nil
	}
	metrics.SearchRequestsTotal.WithLabelValues("search", "success").Inc()

	results := make([]models.WebResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, models.WebResult{
			Title: r.Title,
			URL:   r.URL,
			Text:  r.Text,
			Score: r.Score,
		})
	}
	return results
}

// FetchContent retrieves the text content of the given URLs.
func (c *Client) FetchContent(ctx context.Context, urls []string) []models.CrawledPage {
	if !c.Enabled() || len(urls) == 0 {
		return nil
	}

	req := contentsRequest{URLs: urls, Text: true}

	var resp searchResponse
	if err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/contents", c.headers(), req, &resp); err != nil {
		stdErr := apperrors.NewCrawlFailedError(strings.Join(urls, ","), err)
		metrics.SearchRequestsTotal.WithLabelValues("contents", "error").Inc()
		c.logger.Error("Exa content fetch failed", map[string]interface{}{
			"urls":      urls,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return nil
	}
	metrics.SearchRequestsTotal.WithLabelValues("contents", "success").Inc()

	pages := make([]models.CrawledPage, 0, len(resp.Results))
	for _, r := range resp.Results {
		pages = append(pages, models.CrawledPage{
			URL:     r.URL,
			Title:   r.Title,
			Content: r.Text,
			Score:   1,
		})
	}
	return pages
}

// ==========================
// Deep Research
// ==========================

type researchCreateRequest struct {
	Instructions string `json:"instructions"`
	Model        string `json:"model"`
}

type researchCreateResponse struct {
	ResearchID string `json:"research_id"`
}

type researchEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DeepResearch creates a long-form research task and consumes its
// event stream, concatenating the text deltas. Returns an empty string
// on any failure.
func (c *Client) DeepResearch(ctx context.Context, topic string) string {
	if !c.Enabled() {
		return ""
	}

	createReq := researchCreateRequest{
		Instructions: fmt.Sprintf("Provide a comprehensive summary of %s including current regulations, requirements, and best practices. Focus on crypto and blockchain compliance aspects.", topic),
		Model:        "exa-research-fast",
	}

	var created researchCreateResponse
	if err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/research/v1", c.headers(), createReq, &created); err != nil {
		stdErr := searchError("/research/v1", err)
		c.logger.Error("Exa research create failed", map[string]interface{}{
			"topic":     topic,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return ""
	}

	streamURL := fmt.Sprintf("%s/research/v1/%s?stream=true", c.cfg.BaseURL, created.ResearchID)
	text, err := c.consumeResearchStream(ctx, streamURL)
	if err != nil {
		stdErr := searchError("/research/v1/stream", err)
		c.logger.Error("Exa research stream failed", map[string]interface{}{
			"researchId": created.ResearchID,
			"errorCode":  string(stdErr.Code),
			"error":      err.Error(),
		})
		return ""
	}
	return text
}

// consumeResearchStream reads a server-sent-event stream and collects
// the text deltas.
func (c *Client) consumeResearchStream(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var event researchEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if event.Type == "text" {
			sb.WriteString(event.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return sb.String(), err
	}
	return sb.String(), nil
}

// ==========================
// Chat Completion
// ==========================

// chatModel lazily constructs the OpenAI-compatible chat client against
// the Exa endpoint.
func (c *Client) chatModel() (llms.Model, error) {
	c.chatOnce.Do(func() {
		if !c.Enabled() {
			c.chatErr = fmt.Errorf("exa api key not configured")
			return
		}
		c.chatLLM, c.chatErr = openai.New(
			openai.WithBaseURL(c.cfg.ChatBaseURL),
			openai.WithToken(c.cfg.APIKey),
			openai.WithModel(c.cfg.ChatModel),
		)
	})
	return c.chatLLM, c.chatErr
}

func toLangchainMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

// ChatCompletion sends a chat request and returns the full response
// text, or an empty string on any failure.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) string {
	model, err := c.chatModel()
	if err != nil {
		c.logger.Warn("Exa chat client not available", map[string]interface{}{"error": err.Error()})
		return ""
	}

	resp, err := model.GenerateContent(ctx, toLangchainMessages(messages))
	if err != nil {
		c.logger.Error("Exa chat completion failed", map[string]interface{}{"error": err.Error()})
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Content
}

// ChatCompletionStream sends a streaming chat request, delivering text
// deltas on the returned channel. The channel is closed when the stream
// ends; failures simply close the channel without yielding.
func (c *Client) ChatCompletionStream(ctx context.Context, messages []Message) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		model, err := c.chatModel()
		if err != nil {
			c.logger.Warn("Exa chat client not available", map[string]interface{}{"error": err.Error()})
			return
		}

		_, err = model.GenerateContent(ctx, toLangchainMessages(messages),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case out <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			c.logger.Error("Exa chat streaming failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	return out
}
