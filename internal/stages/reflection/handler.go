// internal/stages/reflection/handler.go
package reflection

import (
	"context"
	"fmt"
	"time"

	"compliance-agent/internal/common/metrics"
	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

const (
	StageNumber = 6
	StageName   = "Reflection"
	metricStage = "reflection"

	maxContentChars = 2000
	maxReviewChars  = 1000
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

const systemPrompt = `You are a compliance content strategist. Provide a final comprehensive reflection on the content.

Provide:

1. **Accuracy Score (0-100)**: How accurate is the compliance information?
2. **Engagement Score (0-100)**: How engaging and compelling is the content?
3. **Completeness Score (0-100)**: Does it cover all important aspects?
4. **Actionability Score (0-100)**: Are recommendations clear and actionable?
5. **Key Strengths**: 2-3 things that work exceptionally well
6. **Areas for Improvement**: 2-3 specific areas to enhance
7. **Target Audience Fit**: Who would benefit most from this content?
8. **Publication Readiness**: Rate readiness (Excellent/Good/Fair/Needs Work)
9. **Overall Assessment**: Final summary and recommendation

Format as a structured evaluation report.`

// Execute scores the final content against the review. The overall
// run reads its accuracy and engagement scores out of this output.
func (h *Handler) Execute(ctx context.Context, topic, content, reviewOutput string) models.StageResult {
	start := time.Now()

	userPrompt := fmt.Sprintf("Topic: %s\n\nContent:\n%s\n\nReview:\n%s",
		topic, truncate(content, maxContentChars), truncate(reviewOutput, maxReviewChars))

	output, ok := h.model.Generate(ctx, systemPrompt, userPrompt)
	if !ok {
		h.logger.Error("Stage failed, using fallback content", map[string]interface{}{"topic": topic})
		return h.finish(start, h.fallbacks.MustRender(templates.Reflection, topic), models.StageStatusError)
	}

	if output == "" {
		output = "Final assessment of compliance content quality and readiness."
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
