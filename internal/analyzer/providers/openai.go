package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/jad-chahin/stock-sentiment/internal/analyzer"
	"github.com/jad-chahin/stock-sentiment/internal/config"
)

const openAIMaxOutputTokens = 1500

// OpenAIProvider implements analyzer.Provider with the chat completions API.
// Any OpenAI-compatible endpoint works through baseURL.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) Name() string { return config.ProviderOpenAI }

// Complete asks for a JSON object reply and returns its text.
func (p *OpenAIProvider) Complete(ctx context.Context, req analyzer.Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
			{Role: openai.ChatMessageRoleUser, Content: req.Input},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxCompletionTokens: openAIMaxOutputTokens,
	}
	if isReasoningModel(req.Model) {
		chatReq.ReasoningEffort = "low"
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		out := &analyzer.APIError{
			Provider:   p.Name(),
			StatusCode: apiErr.HTTPStatusCode,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
			Err:        err,
		}
		if apiErr.Code != nil {
			out.Code = fmt.Sprint(apiErr.Code)
		}
		return out
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &analyzer.APIError{
			Provider:   p.Name(),
			StatusCode: reqErr.HTTPStatusCode,
			Message:    strings.TrimSpace(string(reqErr.Body)),
			Err:        err,
		}
	}

	return fmt.Errorf("openai: %w", err)
}

// isReasoningModel reports whether the model accepts reasoning_effort.
func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}
