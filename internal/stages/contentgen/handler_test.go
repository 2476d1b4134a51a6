// internal/stages/contentgen/handler_test.go
package contentgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-agent/internal/clients/exa"
	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

// ==========================
// Fakes
// ==========================

type fakeModel struct {
	output     string
	ok         bool
	userPrompt string
}

func (f *fakeModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool) {
	f.userPrompt = userPrompt
	return f.output, f.ok
}

type fakeChat struct {
	output string
	prompt string
}

func (f *fakeChat) ChatCompletion(ctx context.Context, messages []exa.Message) string {
	if len(messages) > 0 {
		f.prompt = messages[0].Content
	}
	return f.output
}

type testLogger struct{}

func (testLogger) Info(msg string, fields map[string]interface{})  {}
func (testLogger) Error(msg string, fields map[string]interface{}) {}

func newHandler(t *testing.T, model *fakeModel, chat *fakeChat) *Handler {
	t.Helper()
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)
	return NewHandler(model, chat, renderer, testLogger{})
}

// ==========================
// Tests
// ==========================

func TestExecute_PrefersChatCompletion(t *testing.T) {
	model := &fakeModel{output: "model post", ok: true}
	chat := &fakeChat{output: "chat post"}

	h := newHandler(t, model, chat)
	result := h.Execute(context.Background(), "stablecoin reserves", "research", "fact check")

	require.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, 4, result.Stage)
	assert.Equal(t, "Content Generator", result.Name)
	assert.Equal(t, "chat post", result.Output)
	assert.Contains(t, chat.prompt, "Topic: stablecoin reserves")
	assert.Contains(t, chat.prompt, "Research:\nresearch")
	assert.Empty(t, model.userPrompt)
}

func TestExecute_AllowsEmptyFactCheck(t *testing.T) {
	model := &fakeModel{output: "model post", ok: true}
	chat := &fakeChat{}

	h := newHandler(t, model, chat)
	result := h.Execute(context.Background(), "crypto custody", "research", "")

	require.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, "model post", result.Output)
	assert.Contains(t, model.userPrompt, "Fact Check:\n")
}

func TestExecute_ModelFailureUsesCannedPost(t *testing.T) {
	model := &fakeModel{ok: false}
	chat := &fakeChat{}

	h := newHandler(t, model, chat)
	result := h.Execute(context.Background(), "DeFi lending rules", "research", "")

	require.Equal(t, models.StageStatusError, result.Status)
	assert.Contains(t, result.Output, "## LinkedIn Post: Understanding DeFi lending rules")
	assert.Contains(t, result.Output, "#Compliance #Regulations #DeFilendingrules")
}

func TestExecute_EmptySuccessUsesPlaceholder(t *testing.T) {
	model := &fakeModel{output: "", ok: true}
	chat := &fakeChat{}

	h := newHandler(t, model, chat)
	result := h.Execute(context.Background(), "VASP registration", "research", "")

	require.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, "Generating educational content about VASP registration...", result.Output)
}
