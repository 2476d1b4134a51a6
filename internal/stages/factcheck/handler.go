// internal/stages/factcheck/handler.go
package factcheck

import (
	"context"
	"fmt"
	"time"

	"compliance-agent/internal/clients/exa"
	"compliance-agent/internal/common/metrics"
	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

const (
	StageNumber = 3
	StageName   = "Fact Checker"
	metricStage = "fact_checker"

	maxResearchChars = 3000
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ModelClient produces text from a prompt pair.
type ModelClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool)
}

// ChatClient is the search-grounded chat completion path, tried first.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []exa.Message) string
}

type Handler struct {
	model     ModelClient
	chat      ChatClient
	fallbacks *templates.Renderer
	logger    Logger
}

func NewHandler(model ModelClient, chat ChatClient, fallbacks *templates.Renderer, log Logger) *Handler {
	return &Handler{
		model:     model,
		chat:      chat,
		fallbacks: fallbacks,
		logger:    log,
	}
}

const chatPromptFormat = `You are a compliance fact-checker. Analyze this information and verify its accuracy:

Topic: %s

Information to verify:
%s

Provide:
1. Verified Facts
2. Potential Inaccuracies
3. Missing Critical Details
4. Confidence Assessment (0-100%%)
5. Source Quality Assessment
6. Recommendations`

const systemPrompt = `You are a compliance fact-checker. Analyze the provided information and verify its accuracy.

Provide a detailed fact-check report with:

1. **Verified Facts**: Information confirmed by multiple sources
2. **Potential Inaccuracies**: Any questionable or outdated information
3. **Missing Critical Details**: Important information not covered
4. **Confidence Assessment**: Overall confidence level (0-100%)
5. **Source Quality**: Assessment of source reliability
6. **Recommendations**: Suggestions for verification

Format clearly with sections and bullet points.`

// Execute verifies the research context. The chat completion path is
// tried first; an empty answer falls through to the model client.
func (h *Handler) Execute(ctx context.Context, topic, ragOutput string) models.StageResult {
	start := time.Now()
	research := truncate(ragOutput, maxResearchChars)

	output := h.chat.ChatCompletion(ctx, []exa.Message{
		{Role: "user", Content: fmt.Sprintf(chatPromptFormat, topic, research)},
	})

	if output == "" {
		h.logger.Info("Chat completion unavailable, falling back to model", nil)
		var ok bool
		output, ok = h.model.Generate(ctx, systemPrompt,
			fmt.Sprintf("Topic: %s\n\nInformation to verify:\n%s", topic, research))
		if !ok {
			h.logger.Error("Stage failed, using fallback content", map[string]interface{}{"topic": topic})
			return h.finish(start, h.fallbacks.MustRender(templates.FactChecker, topic), models.StageStatusError)
		}
	}

	if output == "" {
		output = fmt.Sprintf("Fact-checking compliance information for: %s", topic)
	}
	return h.finish(start, output, models.StageStatusSuccess)
}

func (h *Handler) finish(start time.Time, output string, status models.StageStatus) models.StageResult {
	elapsed := time.Since(start)
	metrics.PipelineStagesCompleted.WithLabelValues(metricStage, string(status)).Inc()
	metrics.PipelineStageDuration.WithLabelValues(metricStage).Observe(elapsed.Seconds())

	return models.StageResult{
		Stage:      StageNumber,
		Name:       StageName,
		Status:     status,
		Output:     output,
		DurationMs: elapsed.Milliseconds(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
