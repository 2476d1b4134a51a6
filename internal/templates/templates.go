// Package templates renders the canned fallback content used when a
// pipeline stage cannot produce model output.
package templates

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

//go:embed files/*.md
var files embed.FS

// Template names match the stage they back.
const (
	TopicUnderstanding = "topic_understanding"
	RAGSearch          = "rag_search"
	FactChecker        = "fact_checker"
	ContentGenerator   = "content_generator"
	Reviewer           = "reviewer"
	Reflection         = "reflection"
	PartialResult      = "partial_result"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

type templateData struct {
	Topic    string
	TopicTag string
}

// Renderer holds the parsed fallback templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded fallback templates. Parsing failures
// indicate a broken build, so this returns an error rather than panicking.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(files, "files/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render produces the fallback content for the named template.
func (r *Renderer) Render(name, topic string) (string, error) {
	var sb strings.Builder
	data := templateData{
		Topic:    topic,
		TopicTag: whitespaceRe.ReplaceAllString(topic, ""),
	}
	if err := r.templates.ExecuteTemplate(&sb, name+".md", data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return sb.String(), nil
}

// MustRender renders the fallback or returns a minimal placeholder when
// the template is missing. Fallback paths must never fail.
func (r *Renderer) MustRender(name, topic string) string {
	out, err := r.Render(name, topic)
	if err != nil {
		return fmt.Sprintf("Analysis of: %s", topic)
	}
	return out
}
