// internal/compliance/analyzer.go

// Package compliance answers compliance questions by combining the
// curated knowledge base, live web research, and a structured model
// assessment.
package compliance

import (
	"context"
	"fmt"
	"strings"

	"compliance-agent/internal/clients/gemini"
	"compliance-agent/internal/models"
)

const (
	maxWebResults    = 5
	maxSnippetChars  = 500
	streamingSystem  = "You are an expert crypto compliance advisor. Analyze the compliance question using the provided context and provide a detailed assessment."
	streamingFormat  = "Context:\n%s\n\nQuestion: %s"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
}

// KnowledgeBase provides curated regulatory context.
type KnowledgeBase interface {
	BuildContext(query string) string
	Search(query string, limit int) []models.KnowledgeHit
}

// WebSearcher provides fail-soft live search.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) []models.WebResult
}

// AnalysisClient produces the structured assessment and the
// streaming answer.
type AnalysisClient interface {
	StructuredAnalysis(ctx context.Context, query, researchContext string) *gemini.ComplianceAnalysis
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string) <-chan string
}

type Analyzer struct {
	knowledge KnowledgeBase
	web       WebSearcher
	model     AnalysisClient
	logger    Logger
}

func NewAnalyzer(knowledge KnowledgeBase, web WebSearcher, model AnalysisClient, log Logger) *Analyzer {
	return &Analyzer{
		knowledge: knowledge,
		web:       web,
		model:     model,
		logger:    log,
	}
}

// Analyze builds the combined research context and asks the model for
// a structured assessment. The result is always non-nil.
func (a *Analyzer) Analyze(ctx context.Context, query string) *gemini.ComplianceAnalysis {
	combined := a.buildContext(ctx, query)
	return a.model.StructuredAnalysis(ctx, query, combined)
}

// AnalyzeStream answers the question as a token stream for SSE
// responses. The channel closes when generation finishes.
func (a *Analyzer) AnalyzeStream(ctx context.Context, query string) <-chan string {
	combined := a.buildContext(ctx, query)
	return a.model.GenerateStream(ctx, streamingSystem, fmt.Sprintf(streamingFormat, combined, query))
}

func (a *Analyzer) buildContext(ctx context.Context, query string) string {
	knowledgeContext := a.knowledge.BuildContext(query)

	webResults := a.web.Search(ctx, query, maxWebResults)
	webBlocks := make([]string, 0, len(webResults))
	for _, r := range webResults {
		webBlocks = append(webBlocks, fmt.Sprintf("[%s]\n%s\nSource: %s", r.Title, truncate(r.Text, maxSnippetChars), r.URL))
	}
	webContext := strings.Join(webBlocks, "\n\n")

	sections := make([]string, 0, 2)
	if knowledgeContext != "" {
		sections = append(sections, knowledgeContext)
	}
	if webContext != "" {
		sections = append(sections, webContext)
	}

	if len(sections) == 0 {
		a.logger.Info("No research context available for query", nil)
	}
	return strings.Join(sections, "\n\n---\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
