// Package llm adapts chat-completion providers to a single Generator
// capability. Provider-specific shaping, such as lifting the system
// message into its own request field, stays inside each adapter.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/dt-pm-tools/kbagent/internal/prompt"
)

// ErrEmptyResponse is returned when a provider answers without text.
var ErrEmptyResponse = errors.New("model returned no text")

// Generator produces a completion for an ordered message sequence.
type Generator interface {
	Generate(ctx context.Context, msgs []prompt.Message, opts ...Option) (string, error)
}

// Options are per-call generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Option overrides one generation parameter.
type Option func(*Options)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

func resolve(defaults Options, opts []Option) Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

const defaultMaxTokens = 4096

// splitSystem separates system messages (joined by a blank line) from the
// conversational turns, for APIs that take the system prompt separately.
func splitSystem(msgs []prompt.Message) (string, []prompt.Message) {
	var system []string
	rest := make([]prompt.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == prompt.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
