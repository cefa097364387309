// Package prompt assembles chat message sequences for the model. Static
// content (system text, few-shot examples, instructions) always precedes
// ticket-specific content so that calls sharing a template share a prefix.
package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dt-pm-tools/kbagent/internal/confluence"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrInvalidExample is returned when a few-shot example has an unknown role
// or no content.
var ErrInvalidExample = errors.New("invalid few-shot example")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Template is the static part of a prompt.
type Template struct {
	System       string
	Instructions string
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Messages builds [system] + examples + [final user]. The final user
// message holds the instructions (with vars substituted), the formatted
// ticket and, when articles is non-empty, the article listing.
func (t Template) Messages(r *ticket.Record, examples []Message, articles []confluence.Article, vars map[string]string) ([]Message, error) {
	for i, ex := range examples {
		if err := validateExample(ex); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
	}

	msgs := make([]Message, 0, len(examples)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: t.System})
	msgs = append(msgs, examples...)

	var b strings.Builder
	b.WriteString("## Instructions\n")
	b.WriteString(Substitute(t.Instructions, vars))
	b.WriteString("\n\n## Ticket Context\n")
	b.WriteString(ticket.Format(r))
	b.WriteString(ArticlesBlock(articles))

	msgs = append(msgs, Message{Role: RoleUser, Content: b.String()})
	return msgs, nil
}

// Substitute replaces {name} placeholders whose name is a key of vars.
// Unknown placeholders and stray braces are left verbatim.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// ArticlesBlock renders search results for the final user message. It is
// empty when there are no articles.
func ArticlesBlock(articles []confluence.Article) string {
	if len(articles) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n## Existing Confluence Articles\n")
	fmt.Fprintf(&b, "Found %d potentially relevant articles:\n", len(articles))
	for i, a := range articles {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, orDefault(a.Title, "Unknown"))
		fmt.Fprintf(&b, "   Space: %s\n", orDefault(a.Space, "Unknown"))
		fmt.Fprintf(&b, "   URL: %s\n", orDefault(a.URL, "N/A"))
		if a.Content != "" {
			fmt.Fprintf(&b, "   Content: %s\n", a.Content)
		}
	}
	return b.String()
}

func validateExample(m Message) error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	case RoleSystem:
		return fmt.Errorf("%w: system role is reserved for the leading message", ErrInvalidExample)
	case "":
		return fmt.Errorf("%w: missing role", ErrInvalidExample)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidExample, m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: missing content", ErrInvalidExample)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
