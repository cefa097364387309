package llm

import "strings"

// StripCodeFence unwraps a reply enclosed in a Markdown code fence such as
// ```json ... ```. Unfenced text is returned trimmed.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")

	if i := strings.IndexByte(t, '\n'); i >= 0 {
		// The rest of the opening line is a language tag.
		if tag := strings.TrimSpace(t[:i]); !strings.ContainsAny(tag, "[{") {
			t = t[i+1:]
		}
	} else {
		t = strings.TrimPrefix(strings.TrimSpace(t), "json")
	}
	return strings.TrimSpace(t)
}
