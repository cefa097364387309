package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dt-pm-tools/kbagent/internal/prompt"
)

// OpenAI implements Generator for any OpenAI-compatible chat completions
// API (OpenAI, Azure-style gateways, vLLM, Ollama, etc.).
type OpenAI struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	model    string
	defaults Options
}

// OpenAIOption configures an OpenAI adapter.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL sets a custom API base URL.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAI) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAI) { p.model = model }
}

// WithOpenAITimeout sets the HTTP timeout.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(p *OpenAI) { p.client.Timeout = d }
}

// WithOpenAIDefaults sets generation parameters used when a call passes none.
func WithOpenAIDefaults(o Options) OpenAIOption {
	return func(p *OpenAI) { p.defaults = o }
}

// NewOpenAI creates an OpenAI-compatible adapter.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	p := &OpenAI{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: "https://api.openai.com/v1",
		apiKey:  apiKey,
		model:   "gpt-4o",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate sends msgs unchanged as chat messages.
func (p *OpenAI) Generate(ctx context.Context, msgs []prompt.Message, opts ...Option) (string, error) {
	o := resolve(p.defaults, opts)

	body := openaiRequest{
		Model:       p.model,
		Messages:    make([]openaiMessage, 0, len(msgs)),
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}
	for _, m := range msgs {
		body.Messages = append(body.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("openai: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out openaiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("openai: unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return out.Choices[0].Message.Content, nil
}

// --- OpenAI wire format types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}
