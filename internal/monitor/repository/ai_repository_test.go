package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAITestConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.AI.Provider = "deepseek"
	cfg.AI.Temperature = 0.3
	cfg.AI.MaxTokens = 500
	cfg.OpenAI.BaseURL = baseURL + "/"
	cfg.OpenAI.APIKey = "test-key"
	cfg.OpenAI.Model = "deepseek-chat"
	cfg.Monitor.DecisionTimeout = 5 * time.Second
	return cfg
}

func TestOpenAIRepository_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"action\":\"HOLD\"}"}}]}`))
	}))
	defer server.Close()

	repo := NewOpenAIRepository(openAITestConfig(server.URL), logger.NewNop())
	assert.Equal(t, "deepseek", repo.Name())

	reply, err := repo.Complete(context.Background(), "be brief", "600519 fell below stop loss")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"HOLD"}`, reply)
}

func TestOpenAIRepository_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains []string
	}{
		{
			name:     "error body",
			status:   http.StatusPaymentRequired,
			body:     `{"error":{"message":"Insufficient Balance","type":"unknown_error"}}`,
			contains: []string{"402", "Insufficient Balance"},
		},
		{
			name:     "error without body",
			status:   http.StatusServiceUnavailable,
			body:     `{}`,
			contains: []string{"503"},
		},
		{
			name:     "empty choices",
			status:   http.StatusOK,
			body:     `{"choices":[]}`,
			contains: []string{"empty response from deepseek"},
		},
		{
			name:     "empty content",
			status:   http.StatusOK,
			body:     `{"choices":[{"message":{"role":"assistant","content":""}}]}`,
			contains: []string{"empty response"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			repo := NewOpenAIRepository(openAITestConfig(server.URL), logger.NewNop())
			_, err := repo.Complete(context.Background(), "system", "user")
			require.Error(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestNewAIRepository(t *testing.T) {
	ctx := context.Background()
	cfg := openAITestConfig("http://localhost")

	repo, err := NewAIRepository(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "deepseek", repo.Name())

	cfg.AI.Provider = "claude"
	repo, err = NewAIRepository(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", repo.Name())

	cfg.AI.Provider = "watson"
	_, err = NewAIRepository(ctx, cfg, logger.NewNop())
	assert.Error(t, err)
}
