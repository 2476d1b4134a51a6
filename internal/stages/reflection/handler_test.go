// internal/stages/reflection/handler_test.go
package reflection

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

type fakeModel struct {
	output     string
	ok         bool
	userPrompt string
}

func (f *fakeModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool) {
	f.userPrompt = userPrompt
	return f.output, f.ok
}

type testLogger struct{}

func (testLogger) Error(msg string, fields map[string]interface{}) {}

func newHandler(t *testing.T, model *fakeModel) *Handler {
	t.Helper()
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	return NewHandler(model, renderer, testLogger{})
}

func TestExecute_ScoresContent(t *testing.T) {
	model := &fakeModel{output: "Accuracy Score: 92\nEngagement Score: 88", ok: true}

	h := newHandler(t, model)
	result := h.Execute(context.Background(), "stablecoin audits", "final post", "review notes")

	require.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, 6, result.Stage)
	assert.Equal(t, "Reflection", result.Name)
	assert.Contains(t, model.userPrompt, "Topic: stablecoin audits")
	assert.Contains(t, model.userPrompt, "Content:\nfinal post")
	assert.Contains(t, model.userPrompt, "Review:\nreview notes")
}

func TestExecute_TruncatesContentAndReview(t *testing.T) {
	model := &fakeModel{output: "ok", ok: true}
	content := strings.Repeat("c", 3000)
	review := strings.Repeat("v", 2000)

	h := newHandler(t, model)
	h.Execute(context.Background(), "KYC", content, review)

	assert.Contains(t, model.userPrompt, strings.Repeat("c", 2000))
	assert.NotContains(t, model.userPrompt, strings.Repeat("c", 2001))
	assert.Contains(t, model.userPrompt, strings.Repeat("v", 1000))
	assert.NotContains(t, model.userPrompt, strings.Repeat("v", 1001))
}

func TestExecute_ModelFailureUsesFallback(t *testing.T) {
	model := &fakeModel{ok: false}

	h := newHandler(t, model)
	result := h.Execute(context.Background(), "KYC", "content", "review")

	require.Equal(t, models.StageStatusError, result.Status)
	assert.Contains(t, result.Output, "Conducting final assessment...")
}

func TestExecute_EmptySuccessUsesPlaceholder(t *testing.T) {
	model := &fakeModel{output: "", ok: true}

	h := newHandler(t, model)
	result := h.Execute(context.Background(), "KYC", "content", "review")

	require.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, "Final assessment of compliance content quality and readiness.", result.Output)
}
