package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Search Tests
// ==========================

func TestStore_SearchRankedByOverlap(t *testing.T) {
	store := NewStore()

	hits := store.Search("KYC requirements", 3)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 3)

	// Every hit must actually overlap on "kyc"
	for _, hit := range hits {
		haystack := strings.ToLower(hit.Doc.Title + " " + hit.Doc.Content + " " + strings.Join(hit.Doc.Tags, " "))
		assert.Contains(t, haystack, "kyc")
		assert.Greater(t, hit.Score, 0.0)
	}

	// Descending score order
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestStore_SearchRespectsLimit(t *testing.T) {
	store := NewStore()

	hits := store.Search("compliance requirements", 2)
	assert.LessOrEqual(t, len(hits), 2)
}

func TestStore_SearchNoMatches(t *testing.T) {
	store := NewStore()

	hits := store.Search("zzzqqxy", 5)
	assert.Empty(t, hits)
}

func TestStore_SearchZeroLimit(t *testing.T) {
	store := NewStore()

	hits := store.Search("kyc", 0)
	assert.Empty(t, hits)
}

func TestStore_SearchSubstringMatchesBothDirections(t *testing.T) {
	store := NewStore()

	// "sanction" is a substring of the doc token "sanctions"
	hits := store.Search("sanction", 6)
	require.NotEmpty(t, hits)
	assert.Equal(t, "sanctions-screening", hits[0].Doc.ID)
}

// ==========================
// BuildContext Tests
// ==========================

func TestStore_BuildContextFormat(t *testing.T) {
	store := NewStore()

	ctx := store.BuildContext("KYC requirements")
	require.NotEmpty(t, ctx)

	assert.True(t, strings.HasPrefix(ctx, "Relevant compliance information:\n\n"))
	assert.Contains(t, ctx, "[KYC - US] KYC Requirements - United States")
	assert.Contains(t, ctx, "...")

	// At most 3 documents
	blocks := strings.Split(ctx, "\n\n")
	assert.LessOrEqual(t, len(blocks)-1, 3)
}

func TestStore_BuildContextTruncatesContent(t *testing.T) {
	store := NewStore()

	ctx := store.BuildContext("staking lending yield")
	require.NotEmpty(t, ctx)

	// Each document block carries at most 300 content characters plus ellipsis
	for _, doc := range store.Docs() {
		if len(doc.Content) > 300 {
			assert.NotContains(t, ctx, doc.Content)
		}
	}
}

func TestStore_BuildContextEmptyOnNoHits(t *testing.T) {
	store := NewStore()

	assert.Equal(t, "", store.BuildContext("zzzqqxy"))
}
