package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dt-pm-tools/kbagent/internal/agent"
	"github.com/dt-pm-tools/kbagent/internal/config"
	"github.com/dt-pm-tools/kbagent/internal/confluence"
	"github.com/dt-pm-tools/kbagent/internal/jira"
	"github.com/dt-pm-tools/kbagent/internal/llm"
	"github.com/dt-pm-tools/kbagent/internal/prompt"
	"github.com/dt-pm-tools/kbagent/internal/reconcile"
	"github.com/dt-pm-tools/kbagent/internal/search"
	"github.com/dt-pm-tools/kbagent/internal/state"
)

// pipeline is everything a command needs, built from appConfig.
type pipeline struct {
	agent   *agent.Agent
	jira    *jira.Client
	hasWiki bool
	store   state.Store
}

func (p *pipeline) Close() {
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			logger.Warn("closing state store", zap.Error(err))
		}
	}
}

// buildPipeline wires the agent. withJira connects the ticket source; live
// additionally opens the processed-ticket store.
func buildPipeline(ctx context.Context, cfg config.Config, withJira, live bool) (*pipeline, error) {
	gen, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	analyzer, err := prompt.Resolve(prompt.TicketAnalyzer, cfg.Prompts.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("loading analysis prompt: %w", err)
	}

	p := &pipeline{}
	opts := []agent.Option{
		agent.WithAutoSubmit(cfg.Confluence.AutoSubmit),
		agent.WithTestingMode(cfg.Runtime.TestingMode),
		agent.WithPolling(cfg.Runtime.PollInterval(), cfg.Runtime.Lookback()),
	}

	if cfg.Confluence.Configured() {
		wiki := confluence.NewClient(cfg.Confluence)
		if err := wiki.Ping(ctx); err != nil {
			logger.Warn("confluence unreachable, running without knowledge base", zap.Error(err))
		} else {
			searchPrompt, err := prompt.Resolve(prompt.ConfluenceSearch, cfg.Prompts.Search)
			if err != nil {
				return nil, fmt.Errorf("loading search prompt: %w", err)
			}
			searcher := search.New(gen, wiki, searchPrompt, logger, search.WithSpace(cfg.Confluence.Space))
			engine := reconcile.NewEngine(wiki, logger,
				reconcile.WithSpace(cfg.Confluence.Space),
				reconcile.WithParentID(cfg.Confluence.ParentID),
			)
			opts = append(opts, agent.WithWiki(searcher, engine))
			p.hasWiki = true
			logger.Info("connected to confluence", zap.String("space", cfg.Confluence.Space))
		}
	} else {
		logger.Info("confluence not configured, running without knowledge base")
	}

	if withJira {
		p.jira = jira.NewClient(cfg.Jira)
		user, err := p.jira.Ping(ctx)
		if err != nil {
			return nil, fmt.Errorf("connecting to JIRA: %w", err)
		}
		logger.Info("connected to JIRA", zap.String("user", user.DisplayName))
		opts = append(opts, agent.WithSource(p.jira, cfg.Jira.Project))
	}

	if live {
		store, err := state.Open(cfg.Runtime.StatePath)
		if err != nil {
			return nil, fmt.Errorf("opening state store: %w", err)
		}
		p.store = store
		opts = append(opts, agent.WithStore(store))
	}

	p.agent = agent.New(gen, analyzer, logger, opts...)
	return p, nil
}
