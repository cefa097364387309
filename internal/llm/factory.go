package llm

import (
	"context"
	"fmt"

	"github.com/dt-pm-tools/kbagent/internal/config"
)

// New builds the Generator selected by cfg.LLM.Provider.
func New(ctx context.Context, cfg config.Config) (Generator, error) {
	defaults := Options{MaxTokens: cfg.LLM.MaxTokens, Temperature: cfg.LLM.Temperature}

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI, "":
		opts := []OpenAIOption{WithOpenAIDefaults(defaults)}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.LLM.BaseURL))
		}
		if cfg.LLM.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.LLM.Model))
		}
		if cfg.LLM.TimeoutSeconds > 0 {
			opts = append(opts, WithOpenAITimeout(cfg.LLM.Timeout()))
		}
		return NewOpenAI(cfg.LLM.APIKey, opts...), nil

	case config.ProviderAnthropic:
		opts := []AnthropicOption{WithAnthropicDefaults(defaults)}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, WithAnthropicBaseURL(cfg.LLM.BaseURL))
		}
		if cfg.LLM.Model != "" {
			opts = append(opts, WithAnthropicModel(cfg.LLM.Model))
		}
		if cfg.LLM.TimeoutSeconds > 0 {
			opts = append(opts, WithAnthropicTimeout(cfg.LLM.Timeout()))
		}
		return NewAnthropic(cfg.LLM.APIKey, opts...), nil

	case config.ProviderGemini:
		return NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model, defaults)

	case config.ProviderBedrock:
		return NewBedrock(ctx, cfg.AWS, cfg.LLM.Model, defaults)

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
