package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/dt-pm-tools/kbagent/internal/confluence"
)

// DraftPrefix marks pages created by the agent.
const DraftPrefix = "[DRAFT] "

// Wiki is the part of the wiki backend the engine writes through.
type Wiki interface {
	CreatePage(ctx context.Context, title, htmlBody, space, parentID string) (*confluence.Article, error)
	UpdatePage(ctx context.Context, id, title, htmlBody, versionComment string) (*confluence.Article, error)
	FindByTitle(ctx context.Context, title, space string) (*confluence.Article, error)
	GetContent(ctx context.Context, id string) (*confluence.Article, error)
}

// Action kinds.
const (
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionAppend         = "append"
	ActionFallbackCreate = "fallback_create"
)

// Action records one attempted write.
type Action struct {
	Kind    string
	Title   string
	Article *confluence.Article
	Err     error
}

// Outcome summarises one Apply call.
type Outcome struct {
	Actions []Action
}

// Failed counts actions that returned an error.
func (o Outcome) Failed() int {
	n := 0
	for _, a := range o.Actions {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// Engine executes verdicts against a wiki.
type Engine struct {
	wiki     Wiki
	space    string
	parentID string
	md       goldmark.Markdown
	now      func() time.Time
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSpace sets the space for lookups and new pages.
func WithSpace(space string) EngineOption {
	return func(e *Engine) { e.space = space }
}

// WithParentID places new pages under a parent page.
func WithParentID(id string) EngineOption {
	return func(e *Engine) { e.parentID = id }
}

// WithClock overrides the time source used for append stamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(wiki Wiki, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		wiki: wiki,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithXHTML(), gmhtml.WithUnsafe()),
		),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply performs the writes v asks for. The new-article draft comes first,
// then each update in order. Every write is attempted once; a failure is
// logged and does not stop later writes.
func (e *Engine) Apply(ctx context.Context, v *Verdict, ticketKey string) Outcome {
	log := e.logger.With(zap.String("ticket", ticketKey))
	var out Outcome

	if v.NoOp() {
		log.Info("no documentation changes needed", zap.String("reasoning", v.Reasoning))
		return out
	}

	if v.NeedsNewArticle && v.ProposedTitle != "" {
		out.Actions = append(out.Actions, e.createDraft(ctx, log, v, ticketKey))
	}
	for i, u := range v.ExistingArticleUpdates {
		if err := u.Validate(); err != nil {
			act := Action{Kind: ActionUpdate, Title: u.ArticleTitle, Err: fmt.Errorf("update %d: %w", i, err)}
			e.report(log, act)
			out.Actions = append(out.Actions, act)
			continue
		}
		out.Actions = append(out.Actions, e.applyUpdate(ctx, log, u, ticketKey))
	}
	return out
}

func (e *Engine) createDraft(ctx context.Context, log *zap.Logger, v *Verdict, key string) Action {
	title := DraftPrefix + v.ProposedTitle
	act := Action{Kind: ActionCreate, Title: title}

	act.Article, act.Err = e.wiki.CreatePage(ctx, title, NewArticleBody(key, v.Sections), e.space, e.parentID)
	e.report(log, act)
	return act
}

func (e *Engine) applyUpdate(ctx context.Context, log *zap.Logger, u ArticleUpdate, key string) Action {
	log = log.With(zap.String("article", u.ArticleTitle))

	found, err := e.wiki.FindByTitle(ctx, u.ArticleTitle, e.space)
	if err != nil {
		act := Action{Kind: ActionUpdate, Title: u.ArticleTitle, Err: fmt.Errorf("looking up article: %w", err)}
		e.report(log, act)
		return act
	}

	if found == nil {
		title := DraftPrefix + u.ArticleTitle
		act := Action{Kind: ActionFallbackCreate, Title: title}
		log.Info("article not found, creating draft instead")
		act.Article, act.Err = e.wiki.CreatePage(ctx, title, e.fallbackBody(key, u), e.space, e.parentID)
		e.report(log, act)
		return act
	}

	if u.RedraftedContent != "" {
		act := Action{Kind: ActionUpdate, Title: found.Title}
		comment := fmt.Sprintf("Updated based on ticket %s: %s", key, u.SuggestedChanges)
		act.Article, act.Err = e.wiki.UpdatePage(ctx, found.ID, found.Title, u.RedraftedContent, comment)
		e.report(log, act)
		return act
	}

	act := Action{Kind: ActionAppend, Title: found.Title}
	current, err := e.wiki.GetContent(ctx, found.ID)
	if err != nil {
		act.Err = fmt.Errorf("fetching current content: %w", err)
		e.report(log, act)
		return act
	}
	body := current.Content + e.appendSection(key, u.SuggestedChanges)
	act.Article, act.Err = e.wiki.UpdatePage(ctx, found.ID, found.Title, body, "Added suggestions from ticket "+key)
	e.report(log, act)
	return act
}

func (e *Engine) report(log *zap.Logger, act Action) {
	if act.Err != nil {
		log.Error("wiki write failed", zap.String("action", act.Kind), zap.String("title", act.Title), zap.Error(act.Err))
		return
	}
	fields := []zap.Field{zap.String("action", act.Kind), zap.String("title", act.Title)}
	if act.Article != nil {
		fields = append(fields, zap.String("id", act.Article.ID), zap.String("url", act.Article.URL))
	}
	log.Info("wiki write succeeded", fields...)
}

// NewArticleBody builds the storage-format skeleton for a new draft.
func NewArticleBody(key string, sections []string) string {
	parts := []string{
		fmt.Sprintf("<p><em>This draft was automatically generated from ticket %s</em></p>", html.EscapeString(key)),
		"<p><strong>Note:</strong> This is a draft. Please review and complete the content.</p>",
		"<hr />",
	}
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("<h2>%s</h2><p>[Content needed]</p>", html.EscapeString(s)))
	}
	return strings.Join(parts, "\n")
}

func (e *Engine) fallbackBody(key string, u ArticleUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><em>Original article '%s' not found. Created from ticket %s</em></p>",
		html.EscapeString(u.ArticleTitle), html.EscapeString(key))
	b.WriteString("<h2>Suggested Changes</h2>")
	b.WriteString(e.renderMarkdown(u.SuggestedChanges))
	if u.RedraftedContent != "" {
		b.WriteString("<h2>Content</h2>")
		b.WriteString(u.RedraftedContent)
	}
	return b.String()
}

func (e *Engine) appendSection(key, changes string) string {
	return fmt.Sprintf("\n<hr />\n<h2>Suggested Updates (from %s)</h2>%s<p><em>Added automatically on %s</em></p>",
		html.EscapeString(key), e.renderMarkdown(changes), e.now().Format("2006-01-02"))
}

// renderMarkdown converts model-written markdown to storage XHTML. Plain
// text becomes a single paragraph.
func (e *Engine) renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
