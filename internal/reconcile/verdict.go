// Package reconcile applies an analysis verdict to the knowledge base:
// draft a new article, rewrite or annotate existing ones, or do nothing.
package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dt-pm-tools/kbagent/internal/llm"
)

var (
	// ErrMissingTitle is returned when a verdict asks for a new article
	// without proposing a title.
	ErrMissingTitle = errors.New("needsNewArticle is set but proposedTitle is empty")
	// ErrMalformedUpdate is recorded against an article update that lacks
	// its title or its suggested changes.
	ErrMalformedUpdate = errors.New("article update requires articleTitle and suggestedChanges")
)

// Verdict is the model's decision for one ticket.
type Verdict struct {
	NeedsNewArticle        bool            `json:"needsNewArticle"`
	ProposedTitle          string          `json:"proposedTitle,omitempty"`
	Sections               []string        `json:"sections"`
	ExistingArticleUpdates []ArticleUpdate `json:"existingArticleUpdates"`
	Reasoning              string          `json:"reasoning"`
}

// ArticleUpdate proposes a change to an existing article. An empty
// RedraftedContent means "append the suggestion" rather than "replace".
type ArticleUpdate struct {
	ArticleTitle     string `json:"articleTitle"`
	SuggestedChanges string `json:"suggestedChanges"`
	RedraftedContent string `json:"redraftedContent,omitempty"`
}

// ParseVerdict decodes model output, tolerating a surrounding code fence.
func ParseVerdict(text string) (*Verdict, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(llm.StripCodeFence(text)), &v); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks the verdict as a whole. Update entries are checked one by
// one when they are applied.
func (v *Verdict) Validate() error {
	if v.NeedsNewArticle && strings.TrimSpace(v.ProposedTitle) == "" {
		return ErrMissingTitle
	}
	return nil
}

// Validate reports ErrMalformedUpdate when u cannot be applied.
func (u ArticleUpdate) Validate() error {
	if strings.TrimSpace(u.ArticleTitle) == "" || strings.TrimSpace(u.SuggestedChanges) == "" {
		return ErrMalformedUpdate
	}
	return nil
}

// NoOp reports whether the verdict requests no wiki writes.
func (v *Verdict) NoOp() bool {
	return !v.NeedsNewArticle && len(v.ExistingArticleUpdates) == 0
}
