// internal/stages/ragsearch/handler.go
package ragsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance-agent/internal/common/metrics"
	"compliance-agent/internal/models"
)

const (
	StageNumber = 2
	StageName   = "RAG Search"
	metricStage = "rag_search"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// KnowledgeSearcher returns ranked knowledge base hits.
type KnowledgeSearcher interface {
	Search(query string, limit int) []models.KnowledgeHit
}

// WebSearcher runs fail-soft web search and content fetch.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) []models.WebResult
	FetchContent(ctx context.Context, urls []string) []models.CrawledPage
}

type Handler struct {
	knowledge     KnowledgeSearcher
	web           WebSearcher
	maxSearchHits int
	maxCrawlURLs  int
	logger        Logger
}

func NewHandler(knowledge KnowledgeSearcher, web WebSearcher, maxSearchHits, maxCrawlURLs int, log Logger) *Handler {
	return &Handler{
		knowledge:     knowledge,
		web:           web,
		maxSearchHits: maxSearchHits,
		maxCrawlURLs:  maxCrawlURLs,
		logger:        log,
	}
}

// Execute assembles knowledge base, web search, and crawled content
// into one labeled context blob. The web steps are individually
// best-effort, so the output is always a non-empty string.
func (h *Handler) Execute(ctx context.Context, topic string) models.StageResult {
	start := time.Now()

	kbContext := h.knowledgeContext(topic)
	webContext, crawledContent := h.webContext(ctx, topic)

	sections := make([]string, 0, 6)
	sections = append(sections, "## Knowledge Base Results")
	if kbContext != "" {
		sections = append(sections, kbContext)
	}
	if webContext != "" {
		sections = append(sections, "## Web Search Results", webContext)
	}
	if crawledContent != "" {
		sections = append(sections, "## Crawled Website Content", crawledContent)
	}

	combined := strings.Join(sections, "\n\n")
	if combined == "" {
		combined = fmt.Sprintf("Searching for compliance information on: %s", topic)
	}

	return h.finish(start, combined)
}

func (h *Handler) knowledgeContext(topic string) string {
	hits := h.knowledge.Search(topic, h.maxSearchHits)

	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		doc := hit.Doc
		blocks = append(blocks, fmt.Sprintf("[%s] %s\n%s", doc.Category, doc.Title, truncate(doc.Content, 400)))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func (h *Handler) webContext(ctx context.Context, topic string) (string, string) {
	webResults := h.web.Search(ctx, topic, h.maxSearchHits)
	if len(webResults) == 0 {
		h.logger.Info("Web search unavailable, using knowledge base only", nil)
		return "", ""
	}

	webBlocks := make([]string, 0, len(webResults))
	for _, r := range webResults {
		webBlocks = append(webBlocks, fmt.Sprintf("[WEB] %s\n%s\nSource: %s", r.Title, truncate(r.Text, 400), r.URL))
	}

	topURLs := make([]string, 0, h.maxCrawlURLs)
	for i, r := range webResults {
		if i >= h.maxCrawlURLs {
			break
		}
		topURLs = append(topURLs, r.URL)
	}

	crawled := h.web.FetchContent(ctx, topURLs)
	crawledBlocks := make([]string, 0, len(crawled))
	for _, page := range crawled {
		crawledBlocks = append(crawledBlocks, fmt.Sprintf("[CRAWLED] %s\n%s\nSource: %s", page.Title, truncate(page.Content, 500), page.URL))
	}

	return strings.Join(webBlocks, "\n\n---\n\n"), strings.Join(crawledBlocks, "\n\n---\n\n")
}

func (h *Handler) finish(start time.Time, output string) models.StageResult {
	elapsed := time.Since(start)
	metrics.PipelineStagesCompleted.WithLabelValues(metricStage, string(models.StageStatusSuccess)).Inc()
	metrics.PipelineStageDuration.WithLabelValues(metricStage).Observe(elapsed.Seconds())

	return models.StageResult{
		Stage:      StageNumber,
		Name:       StageName,
		Status:     models.StageStatusSuccess,
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
