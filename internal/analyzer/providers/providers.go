// Package providers holds the LLM backends used for extraction.
package providers

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jad-chahin/stock-sentiment/internal/analyzer"
	"github.com/jad-chahin/stock-sentiment/internal/config"
)

// ErrNoAPIKey is returned when the selected provider has no key configured.
var ErrNoAPIKey = errors.New("no API key configured")

// New returns the provider selected by cfg.
func New(cfg config.AnalysisConfig) (analyzer.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.LLMProvider, ErrNoAPIKey)
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case config.ProviderAnthropic:
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		return NewAnthropicProvider(cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
