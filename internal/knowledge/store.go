// Package knowledge provides an in-memory store of regulatory documents
// with naive token-overlap search.
package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"compliance-agent/internal/models"
)

const contextHeader = "Relevant compliance information:"

// Store holds the static document set.
type Store struct {
	docs []models.KnowledgeDoc
}

// NewStore creates a store seeded with the curated compliance documents.
func NewStore() *Store {
	return &Store{docs: seedDocs}
}

// Docs returns the full document set.
func (s *Store) Docs() []models.KnowledgeDoc {
	return s.docs
}

// Search scores every document against the query and returns up to limit
// hits with positive scores, ordered by descending score. Ties keep the
// seed order.
func (s *Store) Search(query string, limit int) []models.KnowledgeHit {
	if limit <= 0 {
		return nil
	}

	queryTokens := strings.Fields(strings.ToLower(query))

	var hits []models.KnowledgeHit
	for _, doc := range s.docs {
		haystack := fmt.Sprintf("%s %s %s", doc.Title, doc.Content, strings.Join(doc.Tags, " "))
		score := similarity(queryTokens, haystack)
		if score > 0 {
			hits = append(hits, models.KnowledgeHit{Doc: doc, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// BuildContext returns a prompt context block from the top 3 matches, or
// an empty string when nothing matches. Each document contributes its
// header line and the first 300 characters of content.
func (s *Store) BuildContext(query string) string {
	hits := s.Search(query, 3)
	if len(hits) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		doc := hit.Doc
		content := doc.Content
		if len(content) > 300 {
			content = content[:300]
		}
		blocks = append(blocks, fmt.Sprintf("[%s - %s] %s\n%s...", doc.Category, doc.Jurisdiction, doc.Title, content))
	}

	return contextHeader + "\n\n" + strings.Join(blocks, "\n\n")
}

// similarity counts query tokens that overlap any document token by
// substring in either direction, normalized by the query token count.
func similarity(queryTokens []string, text string) float64 {
	textTokens := strings.Fields(strings.ToLower(text))

	matches := 0
	for _, qt := range queryTokens {
		for _, tt := range textTokens {
			if strings.Contains(tt, qt) || strings.Contains(qt, tt) {
				matches++
				break
			}
		}
	}

	denom := len(queryTokens)
	if denom < 1 {
		denom = 1
	}
	return float64(matches) / float64(denom)
}
