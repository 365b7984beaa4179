// Package openai provides a context provider backed by an
// OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hsn0918/docindex/pkg/enrich"
)

// Default client settings.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.3
	ServiceName        = "openai"
)

// Config holds the connection settings for the chat API.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the completions request body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatResponse is the completions response body.
type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Client implements enrich.ContextProvider over HTTP.
type Client struct {
	http *resty.Client
}

var _ enrich.ContextProvider = (*Client)(nil)

// NewClient creates the provider. Retry for transient statuses is
// handled by the enrichment pipeline, so the HTTP layer does not retry
// on its own.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("openai: base_url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api_key is required")
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(DefaultTimeout)

	return &Client{http: client}, nil
}

// Generate implements enrich.ContextProvider.
func (c *Client) Generate(ctx context.Context, req enrich.GenerateRequest) (enrich.GenerateResult, error) {
	body := chatRequest{
		Model: req.Model,
		Messages: []Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}

	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return enrich.GenerateResult{}, enrich.NewProviderError(enrich.ErrorCancelled, "chat", ctx.Err())
		}
		return enrich.GenerateResult{}, enrich.NewProviderError(enrich.ErrorTransient, "chat", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return enrich.GenerateResult{}, enrich.NewProviderError(
			classifyStatus(resp.StatusCode()),
			"chat",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String()),
		)
	}
	if len(result.Choices) == 0 {
		return enrich.GenerateResult{}, enrich.NewProviderError(
			enrich.ErrorTransient, "chat", errors.New("empty choices"))
	}

	return enrich.GenerateResult{
		Text:         result.Choices[0].Message.Content,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
	}, nil
}

// classifyStatus maps HTTP status codes onto the provider error kinds.
func classifyStatus(status int) enrich.ErrorKind {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return enrich.ErrorTransient
	default:
		return enrich.ErrorPermanent
	}
}
