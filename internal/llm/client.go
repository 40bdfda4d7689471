package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/repoassist/internal/retry"
)

// Config holds the chat completion client configuration.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int
}

// Client is a chat completion client for Groq's OpenAI-compatible API. Calls
// are rate limited and retried with exponential backoff on transient errors.
type Client struct {
	model       llms.Model
	limiter     *rate.Limiter
	retryConfig retry.Config
	modelName   string
	temperature float64
	maxTokens   int
}

// NewClient creates a chat completion client from the given configuration.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if config.Model == "" {
		config.Model = "llama3-8b-8192"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 30
	}

	model, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	limit := rate.Limit(float64(config.RequestsPerMinute) / 60.0)

	return &Client{
		model:       model,
		limiter:     rate.NewLimiter(limit, 1),
		retryConfig: retry.LLMConfig(),
		modelName:   config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
	}, nil
}

// Chat sends a system and user message pair and returns the whole response
// text. There is no streaming: the call blocks until the model finishes.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}

	log.Debug().Str("model", c.modelName).Int("prompt_chars", len(system)+len(user)).
		Msg("Calling chat completion")

	var content string
	result := retry.Do(ctx, c.retryConfig, func() error {
		resp, err := c.model.GenerateContent(ctx, messages,
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(c.maxTokens),
		)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("LLM returned no choices")
		}
		content = resp.Choices[0].Content
		return nil
	})

	if !result.Success {
		return "", fmt.Errorf("LLM call failed after %d attempts: %w", result.Attempts, result.LastError)
	}

	log.Debug().Str("model", c.modelName).Int("response_chars", len(content)).
		Int("attempts", result.Attempts).Msg("Chat completion finished")

	return content, nil
}
