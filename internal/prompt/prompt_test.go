package prompt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dt-pm-tools/kbagent/internal/confluence"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

func sampleRecord() *ticket.Record {
	return &ticket.Record{
		Key:         "CSOPS-1",
		Summary:     "VPN drops",
		Status:      "Done",
		Description: "Tunnel resets every hour.",
	}
}

func TestMessages_Order(t *testing.T) {
	tmpl := Template{System: "be terse", Instructions: "Analyze {product}."}
	examples := []Message{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
	}

	got, err := tmpl.Messages(sampleRecord(), examples, nil, map[string]string{"product": "GlobalProtect"})
	require.NoError(t, err)

	want := []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
		{Role: RoleUser, Content: "## Instructions\nAnalyze GlobalProtect.\n\n## Ticket Context\n" + ticket.Format(sampleRecord())},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
}

func TestMessages_Deterministic(t *testing.T) {
	tmpl := Template{System: "s", Instructions: "i"}
	articles := []confluence.Article{{ID: "1", Title: "VPN guide", Space: "KB", URL: "https://wiki/1", Content: "<p>x</p>"}}

	first, err := tmpl.Messages(sampleRecord(), nil, articles, nil)
	require.NoError(t, err)
	second, err := tmpl.Messages(sampleRecord(), nil, articles, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated assembly differs:\n%s", diff)
	}
}

func TestMessages_ArticlesBlock(t *testing.T) {
	tmpl := Template{System: "s", Instructions: "i"}
	articles := []confluence.Article{
		{ID: "1", Title: "VPN guide", Space: "KB", URL: "https://wiki/1", Content: "<p>reset</p>"},
		{ID: "2"},
	}

	msgs, err := tmpl.Messages(sampleRecord(), nil, articles, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	final := msgs[1].Content
	assert.Contains(t, final, "\n\n## Existing Confluence Articles\nFound 2 potentially relevant articles:\n")
	assert.Contains(t, final, "\n1. VPN guide\n   Space: KB\n   URL: https://wiki/1\n   Content: <p>reset</p>\n")
	assert.Contains(t, final, "\n2. Unknown\n   Space: Unknown\n   URL: N/A\n")
	assert.NotContains(t, final, "2. Unknown\n   Space: Unknown\n   URL: N/A\n   Content")
}

func TestMessages_InvalidExample(t *testing.T) {
	tmpl := Template{System: "s", Instructions: "i"}
	tests := []struct {
		name string
		ex   Message
	}{
		{name: "no role", ex: Message{Content: "hello"}},
		{name: "bad role", ex: Message{Role: "tool", Content: "hello"}},
		{name: "system role", ex: Message{Role: RoleSystem, Content: "extra system"}},
		{name: "no content", ex: Message{Role: RoleUser}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tmpl.Messages(sampleRecord(), []Message{tt.ex}, nil, nil)
			assert.ErrorIs(t, err, ErrInvalidExample)
		})
	}
}

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"name": "Falcon", "n": "3"}
	assert.Equal(t, "Find 3 queries for Falcon", Substitute("Find {n} queries for {name}", vars))
	assert.Equal(t, "keep {unknown} and {\"json\": 1}", Substitute("keep {unknown} and {\"json\": 1}", vars))
	assert.Equal(t, "no vars {name}", Substitute("no vars {name}", nil))
}

func TestArticlesBlock_Empty(t *testing.T) {
	assert.Empty(t, ArticlesBlock(nil))
}
