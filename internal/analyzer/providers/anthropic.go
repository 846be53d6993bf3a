package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jad-chahin/stock-sentiment/internal/analyzer"
	"github.com/jad-chahin/stock-sentiment/internal/config"
)

const anthropicMaxTokens = 1024

// AnthropicProvider implements analyzer.Provider using the Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider. SDK retries are
// disabled because the pipeline retries through its own rate limiter.
func NewAnthropicProvider(apiKey string, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client}
}

func (p *AnthropicProvider) Name() string { return config.ProviderAnthropic }

// Complete sends the comment as a single user turn and returns the text
// of the first text block.
func (p *AnthropicProvider) Complete(ctx context.Context, req analyzer.Request) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.Instructions}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &analyzer.APIError{
				Provider:   p.Name(),
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Error(),
				Err:        err,
			}
		}
		return "", fmt.Errorf("anthropic: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic returned no text content")
}
