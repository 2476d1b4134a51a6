// internal/stages/topic/handler.go
package topic

import (
	"context"
	"fmt"
	"time"

	"compliance-agent/internal/common/metrics"
	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

const (
	StageNumber = 1
	StageName   = "Topic Understanding"
	metricStage = "topic_understanding"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ModelClient produces text from a prompt pair.
type ModelClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool)
}

// Researcher provides optional long-form topic research.
type Researcher interface {
	DeepResearch(ctx context.Context, topic string) string
}

type Handler struct {
	model      ModelClient
	researcher Researcher
	fallbacks  *templates.Renderer
	logger     Logger
}

func NewHandler(model ModelClient, researcher Researcher, fallbacks *templates.Renderer, log Logger) *Handler {
	return &Handler{
		model:      model,
		researcher: researcher,
		fallbacks:  fallbacks,
		logger:     log,
	}
}

const systemPrompt = `You are a compliance expert analyzing a compliance topic. For the given topic, provide a detailed analysis with:

1. **Topic Summary**: Brief overview of what's being asked
2. **Key Compliance Areas**: Specific regulatory domains involved
3. **Relevant Jurisdictions**: Countries/regions with applicable regulations
4. **Regulatory Frameworks**: Specific laws, regulations, or standards
5. **Stakeholders**: Who needs to comply
6. **Potential Risks**: Key compliance risks to address

Format each section clearly with headers and bullet points.`

// Execute analyzes the topic, optionally enriched with deep research.
// A model failure substitutes the canned analysis block.
func (h *Handler) Execute(ctx context.Context, topic string) models.StageResult {
	start := time.Now()

	// Research is best-effort; the client already fails soft to "".
	research := h.researcher.DeepResearch(ctx, topic)
	if research == "" {
		h.logger.Info("Research unavailable, proceeding with model only", nil)
	}

	userPrompt := fmt.Sprintf("Topic: %s", topic)
	if research != "" {
		userPrompt = fmt.Sprintf("Based on this research:\n%s\n\nTopic: %s", research, topic)
	}

	output, ok := h.model.Generate(ctx, systemPrompt, userPrompt)
	if !ok {
		h.logger.Error("Stage failed, using fallback content", map[string]interface{}{"topic": topic})
		return h.finish(start, h.fallbacks.MustRender(templates.TopicUnderstanding, topic), models.StageStatusError)
	}

	if output == "" {
		output = fmt.Sprintf("Analysis of: %s", topic)
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
