package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dt-pm-tools/kbagent/internal/prompt"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openaiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, 256, req.MaxTokens)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, []openaiMessage{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "hi"},
		}, req.Messages)

		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: `["a", "b"]`}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAI("test-key",
		WithOpenAIBaseURL(srv.URL+"/"),
		WithOpenAIModel("gpt-test"),
		WithOpenAIDefaults(Options{MaxTokens: 1024, Temperature: 0.2}),
	)

	got, err := p.Generate(context.Background(), []prompt.Message{
		{Role: prompt.RoleSystem, Content: "sys"},
		{Role: prompt.RoleUser, Content: "hi"},
	}, WithMaxTokens(256))
	require.NoError(t, err)
	assert.Equal(t, `["a", "b"]`, got)
}

func TestOpenAIGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":"rate"}`, wantErr: "status 429"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "unmarshal response"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: ErrEmptyResponse.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAI("k", WithOpenAIBaseURL(srv.URL)).Generate(context.Background(), []prompt.Message{{Role: "user", Content: "x"}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
