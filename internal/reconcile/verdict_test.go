package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict("```json\n" + `{"needsNewArticle": true, "existingArticleUpdates": [], "proposedTitle": "CrowdStrike Installation Fails Due to TLS Inspection", "sections": ["Problem Description", "Root Cause"], "reasoning": "new issue"}` + "\n```")
	require.NoError(t, err)
	assert.True(t, v.NeedsNewArticle)
	assert.Equal(t, "CrowdStrike Installation Fails Due to TLS Inspection", v.ProposedTitle)
	assert.Equal(t, []string{"Problem Description", "Root Cause"}, v.Sections)
	assert.False(t, v.NoOp())
}

func TestParseVerdict_NullFields(t *testing.T) {
	v, err := ParseVerdict(`{"needsNewArticle": false, "existingArticleUpdates": [{"articleTitle": "X", "suggestedChanges": "add step", "redraftedContent": null}], "proposedTitle": null, "sections": [], "reasoning": "r"}`)
	require.NoError(t, err)
	require.Len(t, v.ExistingArticleUpdates, 1)
	assert.Empty(t, v.ExistingArticleUpdates[0].RedraftedContent)
	assert.Empty(t, v.ProposedTitle)
}

func TestParseVerdict_Errors(t *testing.T) {
	_, err := ParseVerdict(`{"needsNewArticle": true, "proposedTitle": null}`)
	assert.ErrorIs(t, err, ErrMissingTitle)

	_, err = ParseVerdict("I think a new article is needed.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding verdict")
}

func TestVerdict_NoOp(t *testing.T) {
	v, err := ParseVerdict(`{"needsNewArticle": false, "existingArticleUpdates": [], "reasoning": "covered"}`)
	require.NoError(t, err)
	assert.True(t, v.NoOp())
}

func TestParseVerdict_KeepsMalformedUpdate(t *testing.T) {
	v, err := ParseVerdict(`{"needsNewArticle": false, "existingArticleUpdates": [{"articleTitle": "X"}, {"articleTitle": "Y", "suggestedChanges": "add step"}]}`)
	require.NoError(t, err)
	require.Len(t, v.ExistingArticleUpdates, 2)
	assert.ErrorIs(t, v.ExistingArticleUpdates[0].Validate(), ErrMalformedUpdate)
	assert.NoError(t, v.ExistingArticleUpdates[1].Validate())
}
