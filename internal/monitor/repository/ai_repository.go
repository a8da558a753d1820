package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-monitor/internal/monitor/config"
	"golang-stock-monitor/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// AIRepository sends a prompt to an LLM and returns its raw text reply.
type AIRepository interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewAIRepository builds the provider selected by cfg.AI.Provider.
func NewAIRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (AIRepository, error) {
	switch strings.ToLower(cfg.AI.Provider) {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		return NewGeminiAIRepository(cfg, log, client), nil
	case "anthropic", "claude":
		return NewAnthropicAIRepository(cfg, log), nil
	case "deepseek", "openai", "ollama":
		return NewOpenAIRepository(cfg, log), nil
	default:
		return nil, fmt.Errorf("invalid AI provider %q", cfg.AI.Provider)
	}
}

type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates an AIRepository backed by the Gemini API.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) AIRepository {
	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: newMinuteLimiter(cfg.AI.MaxRequestPerMinute),
		genAiClient:    genAiClient,
	}
}

func (r *geminiAIRepository) Name() string { return "gemini" }

func (r *geminiAIRepository) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}
	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(r.cfg.AI.Temperature),
		MaxOutputTokens:   int32(r.cfg.AI.MaxTokens),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	r.logger.DebugContext(ctx, "Gemini response received", logger.IntField("length", len(text)))
	return text, nil
}

type anthropicAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	client         anthropic.Client
}

// NewAnthropicAIRepository creates an AIRepository backed by the Anthropic Messages API.
func NewAnthropicAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	return &anthropicAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: newMinuteLimiter(cfg.AI.MaxRequestPerMinute),
		client:         anthropic.NewClient(option.WithAPIKey(cfg.Anthropic.APIKey)),
	}
}

func (r *anthropicAIRepository) Name() string { return "anthropic" }

func (r *anthropicAIRepository) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.cfg.Anthropic.Model),
		MaxTokens: int64(r.cfg.AI.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}
	if r.cfg.AI.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(r.cfg.AI.Temperature))
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}
	return text.String(), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	client         *resty.Client
}

// NewOpenAIRepository creates an AIRepository for OpenAI-compatible chat
// completion endpoints such as DeepSeek and Ollama.
func NewOpenAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.OpenAI.BaseURL, "/"))
	client.SetTimeout(cfg.Monitor.DecisionTimeout)
	client.SetHeader("Content-Type", "application/json")
	if cfg.OpenAI.APIKey != "" {
		client.SetAuthToken(cfg.OpenAI.APIKey)
	}

	return &openAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: newMinuteLimiter(cfg.AI.MaxRequestPerMinute),
		client:         client,
	}
}

func (r *openAIRepository) Name() string { return strings.ToLower(r.cfg.AI.Provider) }

func (r *openAIRepository) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	var result chatCompletionResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model: r.cfg.OpenAI.Model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: r.cfg.AI.Temperature,
			MaxTokens:   r.cfg.AI.MaxTokens,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("chat completion failed: %d %s", resp.StatusCode(), msg)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from %s", r.Name())
	}

	r.logger.DebugContext(ctx, "Chat completion received",
		logger.StringField("provider", r.Name()),
		logger.IntField("length", len(result.Choices[0].Message.Content)))
	return result.Choices[0].Message.Content, nil
}
