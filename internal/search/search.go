// Package search turns a ticket into a small set of candidate knowledge-base
// articles: the model proposes short queries, each query runs against the
// wiki, and hits are deduplicated by page id and hydrated with their bodies.
package search

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/dt-pm-tools/kbagent/internal/confluence"
	"github.com/dt-pm-tools/kbagent/internal/llm"
	"github.com/dt-pm-tools/kbagent/internal/prompt"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

// DefaultLimit is the per-query result cap.
const DefaultLimit = 5

// planMaxTokens bounds the query-planning completion.
const planMaxTokens = 256

// Wiki is the part of the wiki backend the searcher needs.
type Wiki interface {
	Search(ctx context.Context, query, space string, limit int) ([]confluence.Article, error)
	GetContent(ctx context.Context, id string) (*confluence.Article, error)
}

// Searcher plans and executes knowledge-base searches for tickets.
type Searcher struct {
	gen    llm.Generator
	wiki   Wiki
	prompt *prompt.Prompt
	space  string
	limit  int
	logger *zap.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithSpace restricts searches to one space.
func WithSpace(space string) Option {
	return func(s *Searcher) { s.space = space }
}

// WithLimit sets the per-query result cap.
func WithLimit(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// New creates a Searcher. p is the query-planning prompt.
func New(gen llm.Generator, wiki Wiki, p *prompt.Prompt, logger *zap.Logger, opts ...Option) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Searcher{
		gen:    gen,
		wiki:   wiki,
		prompt: p,
		limit:  DefaultLimit,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForTicket plans queries for r and executes them. It never fails: any
// problem degrades to fewer (or no) articles. The result is never nil.
func (s *Searcher) ForTicket(ctx context.Context, r *ticket.Record) []confluence.Article {
	queries := s.PlanQueries(ctx, r)
	if len(queries) == 0 {
		return []confluence.Article{}
	}
	return s.Execute(ctx, queries)
}

// PlanQueries asks the model for search queries. A reply that is not a
// JSON array of strings yields no queries.
func (s *Searcher) PlanQueries(ctx context.Context, r *ticket.Record) []string {
	log := s.logger.With(zap.String("ticket", r.Key))

	msgs, err := s.prompt.Messages(r, s.prompt.Examples, nil, nil)
	if err != nil {
		log.Error("building search prompt", zap.Error(err))
		return nil
	}

	reply, err := s.gen.Generate(ctx, msgs, llm.WithMaxTokens(planMaxTokens))
	if err != nil {
		log.Error("generating search queries", zap.Error(err))
		return nil
	}

	queries, err := ParseQueries(reply)
	if err != nil {
		log.Warn("search queries are not a JSON array of strings", zap.String("reply", reply), zap.Error(err))
		return nil
	}
	log.Info("planned search queries", zap.Strings("queries", queries))
	return queries
}

// ParseQueries decodes a JSON array of strings, tolerating a code fence.
// Blank entries are dropped.
func ParseQueries(reply string) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(llm.StripCodeFence(reply)), &raw); err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

// Execute runs queries in order and returns each article at most once, in
// first-seen order, with its full content attached where it could be
// fetched.
func (s *Searcher) Execute(ctx context.Context, queries []string) []confluence.Article {
	seen := make(map[string]bool)
	articles := []confluence.Article{}

	for _, q := range queries {
		log := s.logger.With(zap.String("query", q))

		hits, err := s.wiki.Search(ctx, q, s.space, s.limit)
		if err != nil {
			log.Error("searching wiki", zap.Error(err))
			continue
		}
		for _, a := range hits {
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			articles = append(articles, a)
		}
		log.Debug("wiki search done", zap.Int("hits", len(hits)), zap.Int("unique", len(articles)))
	}

	for i := range articles {
		full, err := s.wiki.GetContent(ctx, articles[i].ID)
		if err != nil {
			s.logger.Warn("fetching article content",
				zap.String("article", articles[i].Title),
				zap.String("id", articles[i].ID),
				zap.Error(err),
			)
			continue
		}
		articles[i].Content = full.Content
	}

	s.logger.Info("found relevant articles", zap.Int("count", len(articles)))
	return articles
}
