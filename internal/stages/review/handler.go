// internal/stages/review/handler.go
package review

import (
	"context"
	"fmt"
	"time"

	"compliance-agent/internal/common/metrics"
	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

const (
	StageNumber = 5
	StageName   = "Reviewer"
	metricStage = "reviewer"
)

// Logger interface definition
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ModelClient produces text from a prompt pair.
type ModelClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool)
}

type Handler struct {
	model     ModelClient
	fallbacks *templates.Renderer
	logger    Logger
}

func NewHandler(model ModelClient, fallbacks *templates.Renderer, log Logger) *Handler {
	return &Handler{
		model:     model,
		fallbacks: fallbacks,
		logger:    log,
	}
}

const systemPrompt = `You are a professional editor and compliance reviewer. Provide a detailed review of the content.

Analyze and provide:

1. **Clarity Score (0-100)**: How clear and understandable is the content?
2. **Accuracy Score (0-100)**: How accurate is the compliance information?
3. **Engagement Score (0-100)**: How engaging and compelling is it?
4. **Professionalism Score (0-100)**: Is the tone appropriate?
5. **Specific Improvements**: 3-5 concrete suggestions for improvement
6. **Strengths**: What works well in the content
7. **Weaknesses**: Areas that need work
8. **Final Verdict**: Is it ready to publish? (Yes/No/With Revisions)

Be constructive and specific with actionable feedback.`

// Execute reviews the generated content.
func (h *Handler) Execute(ctx context.Context, content string) models.StageResult {
	start := time.Now()

	output, ok := h.model.Generate(ctx, systemPrompt, fmt.Sprintf("Content to review:\n\n%s", content))
	if !ok {
		h.logger.Error("Stage failed, using fallback content", nil)
		return h.finish(start, h.fallbacks.MustRender(templates.Reviewer, ""), models.StageStatusError)
	}

	if output == "" {
		output = "Reviewing content for clarity, accuracy, and engagement..."
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
