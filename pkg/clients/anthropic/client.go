// Package anthropic provides a context provider backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hsn0918/docindex/pkg/enrich"
)

// DefaultMaxTokens bounds generated context length; contexts are short
// paragraphs, so a small budget suffices.
const DefaultMaxTokens = 1024

// Client implements enrich.ContextProvider over the Messages API.
type Client struct {
	client anthropic.Client
}

var _ enrich.ContextProvider = (*Client)(nil)

// NewClient creates the provider with the given API key.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Generate implements enrich.ContextProvider. When the request carries a
// cache hint, the system block is marked for provider-side prompt
// caching.
func (c *Client) Generate(ctx context.Context, req enrich.GenerateRequest) (enrich.GenerateResult, error) {
	system := anthropic.TextBlockParam{Text: req.SystemPrompt}
	if req.CacheHint {
		system.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: DefaultMaxTokens,
		System:    []anthropic.TextBlockParam{system},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return enrich.GenerateResult{}, classify(ctx, err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return enrich.GenerateResult{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// classify maps SDK errors onto the provider error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return enrich.NewProviderError(enrich.ErrorCancelled, "messages", ctx.Err())
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return enrich.NewProviderError(enrich.ErrorTransient, "messages", err)
		default:
			return enrich.NewProviderError(enrich.ErrorPermanent, "messages", err)
		}
	}
	// Network-level failures without an API status are transient.
	return enrich.NewProviderError(enrich.ErrorTransient, "messages", err)
}
