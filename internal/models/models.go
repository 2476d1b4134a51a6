// Package models holds the shared request, response, and pipeline types.
package models

import "time"

// ==========================
// API Requests / Responses
// ==========================

// ComplianceRequest is the payload for POST /api/compliance.
type ComplianceRequest struct {
	Query        string `json:"query"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// ComplianceResponse is the answer to a compliance question.
type ComplianceResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources,omitempty"`
	Model     string   `json:"model"`
	Timestamp string   `json:"timestamp"`
}

// ContentRequest is the payload for POST /api/content-agent.
type ContentRequest struct {
	Topic string `json:"topic"`
}

// SearchRequest is the payload for POST /api/search.
type SearchRequest struct {
	Query string `json:"q"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse carries knowledge base search hits.
type SearchResponse struct {
	Results []KnowledgeHit `json:"results"`
	Total   int            `json:"total"`
}

// ==========================
// Knowledge Base
// ==========================

// KnowledgeDoc is a curated regulatory document.
type KnowledgeDoc struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Jurisdiction string   `json:"jurisdiction"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags,omitempty"`
}

// KnowledgeHit is a scored knowledge base match.
type KnowledgeHit struct {
	Doc   KnowledgeDoc `json:"doc"`
	Score float64      `json:"score"`
}

// ==========================
// Web Search
// ==========================

// WebResult is a single hit from the external search API. Score is
// the provider's relevance score, 0 when the provider omits it.
type WebResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Text    string  `json:"text,omitempty"`
	Score   float64 `json:"score"`
}

// CrawledPage is the extracted content of a fetched URL. Fetched pages
// carry a fixed score of 1: the caller asked for them by URL.
type CrawledPage struct {
	URL     string  `json:"url"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ==========================
// Pipeline
// ==========================

// StageStatus indicates how a pipeline stage finished.
type StageStatus string

const (
	StageStatusSuccess StageStatus = "success"
	StageStatusError   StageStatus = "error"
)

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	Stage      int         `json:"stage"`
	Name       string      `json:"stageName"`
	Status     StageStatus `json:"status"`
	Output     string      `json:"output"`
	Error      string      `json:"error,omitempty"`
	DurationMs int64       `json:"durationMs"`
}

// PipelineResult is the full outcome of a content generation run.
type PipelineResult struct {
	RunID           string        `json:"runId"`
	Topic           string        `json:"topic"`
	Stages          []StageResult `json:"stages"`
	FinalContent    string        `json:"finalContent"`
	AccuracyScore   int           `json:"accuracyScore"`
	EngagementScore int           `json:"engagementScore"`
	Sources         []string      `json:"sources,omitempty"`
	StartedAt       time.Time     `json:"startedAt"`
	CompletedAt     time.Time     `json:"completedAt"`
}

// ==========================
// Compliance Analysis
// ==========================

// AnalysisResult is the structured outcome of a compliance tool run.
type AnalysisResult struct {
	Tool         string   `json:"tool"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Summary      string   `json:"summary"`
	RiskLevel    string   `json:"riskLevel,omitempty"`
	Findings     []string `json:"findings,omitempty"`
	Score        int      `json:"score"`
}
