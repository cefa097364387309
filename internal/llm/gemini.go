package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dt-pm-tools/kbagent/internal/prompt"
)

// Gemini implements Generator on the Google GenAI SDK.
type Gemini struct {
	client   *genai.Client
	model    string
	defaults Options
}

// NewGemini creates a Gemini adapter.
func NewGemini(ctx context.Context, apiKey, model string, defaults Options) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{client: client, model: model, defaults: defaults}, nil
}

// Generate passes system messages as the system instruction and maps the
// assistant role to the model role.
func (g *Gemini) Generate(ctx context.Context, msgs []prompt.Message, opts ...Option) (string, error) {
	o := resolve(g.defaults, opts)
	system, contents := toGeminiContents(msgs)

	temperature := float32(o.Temperature)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(o.MaxTokens),
		Temperature:     &temperature,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}

func toGeminiContents(msgs []prompt.Message) (string, []*genai.Content) {
	system, turns := splitSystem(msgs)
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == prompt.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return system, contents
}
