// internal/stages/contentgen/handler.go
package contentgen

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
	StageNumber = 4
	StageName   = "Content Generator"
	metricStage = "content_generator"

	maxResearchChars  = 2000
	maxFactCheckChars = 1000
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

const chatPromptFormat = `You are an expert compliance content writer. Create a professional, engaging LinkedIn post about this compliance topic.

Topic: %s

Research:
%s

Fact Check:
%s

Requirements:
1. Hook: Start with a compelling question or statement (1-2 sentences)
2. Context: Explain why this matters (2-3 sentences)
3. Key Points: 3-4 main compliance requirements or insights
4. Practical Implications: Real-world impact and what businesses need to do
5. Actionable Takeaways: Specific steps to take
6. Call-to-Action: Encourage engagement or learning
7. Tone: Professional but accessible, avoid jargon where possible
8. Length: 250-350 words

Format as a complete, ready-to-publish LinkedIn post.`

const systemPrompt = `You are an expert compliance content writer. Create a professional, engaging LinkedIn post about the compliance topic.

Requirements:
1. **Hook**: Start with a compelling question or statement (1-2 sentences)
2. **Context**: Explain why this matters (2-3 sentences)
3. **Key Points**: 3-4 main compliance requirements or insights
4. **Practical Implications**: Real-world impact and what businesses need to do
5. **Actionable Takeaways**: Specific steps to take
6. **Call-to-Action**: Encourage engagement or learning
7. **Tone**: Professional but accessible, avoid jargon where possible
8. **Length**: 250-350 words

Format as a complete, ready-to-publish LinkedIn post.`

// Execute drafts the LinkedIn post from the research context and the
// fact-check report. The factCheck argument may be empty when the
// generator runs in parallel with the fact checker.
func (h *Handler) Execute(ctx context.Context, topic, ragOutput, factCheck string) models.StageResult {
	start := time.Now()
	research := truncate(ragOutput, maxResearchChars)
	verified := truncate(factCheck, maxFactCheckChars)

	output := h.chat.ChatCompletion(ctx, []exa.Message{
		{Role: "user", Content: fmt.Sprintf(chatPromptFormat, topic, research, verified)},
	})

	if output == "" {
		h.logger.Info("Chat completion unavailable, falling back to model", nil)
		var ok bool
		output, ok = h.model.Generate(ctx, systemPrompt,
			fmt.Sprintf("Topic: %s\n\nResearch:\n%s\n\nFact Check:\n%s", topic, research, verified))
		if !ok {
			h.logger.Error("Stage failed, using fallback content", map[string]interface{}{"topic": topic})
			return h.finish(start, h.fallbacks.MustRender(templates.ContentGenerator, topic), models.StageStatusError)
		}
	}

	if output == "" {
		output = fmt.Sprintf("Generating educational content about %s...", topic)
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
