package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_AllTemplatesRender(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	names := []string{
		TopicUnderstanding,
		RAGSearch,
		FactChecker,
		ContentGenerator,
		Reviewer,
		Reflection,
		PartialResult,
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			out, err := renderer.Render(name, "DeFi lending regulations")
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestRenderer_TopicSubstitution(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	out, err := renderer.Render(TopicUnderstanding, "MiCA stablecoin rules")
	require.NoError(t, err)
	assert.Contains(t, out, "## Topic Analysis: MiCA stablecoin rules")
	assert.Contains(t, out, "### Potential Risks")
}

func TestRenderer_ContentGeneratorHashtag(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	out, err := renderer.Render(ContentGenerator, "MiCA stablecoin rules")
	require.NoError(t, err)

	// Hashtag strips all whitespace from the topic
	assert.Contains(t, out, "#MiCAstablecoinrules")
	assert.Contains(t, out, "**Hook:** Are you staying compliant with the latest MiCA stablecoin rules regulations?")
}

func TestRenderer_PartialResultPlaceholder(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	out, err := renderer.Render(PartialResult, "staking")
	require.NoError(t, err)
	assert.Equal(t, "Analysis of staking completed with partial results.", out)
}

func TestRenderer_MustRenderUnknownTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	out := renderer.MustRender("does-not-exist", "staking")
	assert.Equal(t, "Analysis of: staking", out)
}
