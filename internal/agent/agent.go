// Package agent runs resolved tickets through search, analysis and
// reconciliation, either once over a fixed list or in a polling loop.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dt-pm-tools/kbagent/internal/confluence"
	"github.com/dt-pm-tools/kbagent/internal/jira"
	"github.com/dt-pm-tools/kbagent/internal/llm"
	"github.com/dt-pm-tools/kbagent/internal/prompt"
	"github.com/dt-pm-tools/kbagent/internal/reconcile"
	"github.com/dt-pm-tools/kbagent/internal/state"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

// TicketSource finds and fetches resolved tickets.
type TicketSource interface {
	SearchResolved(ctx context.Context, project string, lookback time.Duration) ([]jira.ResolvedIssue, error)
	FetchFull(ctx context.Context, key string) (*ticket.Record, error)
}

// ArticleSearcher finds candidate articles for a ticket.
type ArticleSearcher interface {
	ForTicket(ctx context.Context, r *ticket.Record) []confluence.Article
}

// Reconciler applies a verdict to the wiki.
type Reconciler interface {
	Apply(ctx context.Context, v *reconcile.Verdict, ticketKey string) reconcile.Outcome
}

// Agent wires the pipeline together. Search and reconciliation are
// optional; without them the agent only analyses.
type Agent struct {
	gen      llm.Generator
	analyzer *prompt.Prompt
	searcher ArticleSearcher
	engine   Reconciler
	source   TicketSource
	store    state.Store

	project     string
	lookback    time.Duration
	interval    time.Duration
	autoSubmit  bool
	testingMode bool

	logger *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithWiki enables search augmentation and reconciliation.
func WithWiki(s ArticleSearcher, e Reconciler) Option {
	return func(a *Agent) {
		a.searcher = s
		a.engine = e
	}
}

// WithSource sets the ticket source and project polled in live mode.
func WithSource(src TicketSource, project string) Option {
	return func(a *Agent) {
		a.source = src
		a.project = project
	}
}

// WithStore sets the processed-ticket store.
func WithStore(s state.Store) Option {
	return func(a *Agent) { a.store = s }
}

// WithPolling sets the sleep between live iterations and the resolution
// lookback window.
func WithPolling(interval, lookback time.Duration) Option {
	return func(a *Agent) {
		a.interval = interval
		a.lookback = lookback
	}
}

// WithAutoSubmit makes reconciliation the default after analysis.
func WithAutoSubmit(on bool) Option {
	return func(a *Agent) { a.autoSubmit = on }
}

// WithTestingMode disables processed-ticket dedup so the same ticket is
// processed on every iteration.
func WithTestingMode(on bool) Option {
	return func(a *Agent) { a.testingMode = on }
}

// New creates an Agent. analyzer is the analysis prompt.
func New(gen llm.Generator, analyzer *prompt.Prompt, logger *zap.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		gen:      gen,
		analyzer: analyzer,
		store:    state.NewMemoryStore(),
		interval: 30 * time.Second,
		lookback: 300 * time.Minute,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SearchForTicket returns candidate articles for r, or nil when no wiki is
// configured.
func (a *Agent) SearchForTicket(ctx context.Context, r *ticket.Record) []confluence.Article {
	if a.searcher == nil {
		return nil
	}
	return a.searcher.ForTicket(ctx, r)
}

// ProcessTicket analyses r and returns the model's raw verdict text. When
// submission is enabled (auto-submit, or a non-nil submit override) the
// verdict is applied to the wiki. Reconciliation problems are logged and do
// not fail the call.
func (a *Agent) ProcessTicket(ctx context.Context, r *ticket.Record, key string, submit *bool) (string, error) {
	if key == "" {
		key = r.Key
	}
	log := a.logger.With(zap.String("ticket", key))

	articles := a.SearchForTicket(ctx, r)

	msgs, err := a.analyzer.Messages(r, a.analyzer.Examples, articles, nil)
	if err != nil {
		return "", fmt.Errorf("building analysis prompt: %w", err)
	}

	text, err := a.gen.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generating analysis: %w", err)
	}
	log.Info("analysis complete", zap.Int("articles", len(articles)))

	doSubmit := a.autoSubmit
	if submit != nil {
		doSubmit = *submit
	}
	if !doSubmit {
		log.Debug("submission disabled, returning analysis only")
		return text, nil
	}
	if a.engine == nil {
		log.Warn("confluence not configured, skipping submission")
		return text, nil
	}

	v, err := reconcile.ParseVerdict(text)
	if err != nil {
		log.Warn("analysis is not a valid verdict, skipping submission", zap.Error(err))
		return text, nil
	}

	out := a.engine.Apply(ctx, v, key)
	log.Info("submission finished", zap.Int("actions", len(out.Actions)), zap.Int("failed", out.Failed()))
	return text, nil
}
