// Package analyzer turns one comment into normalized ticker mentions by
// calling a remote LLM.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jad-chahin/stock-sentiment/internal/store"
	"github.com/jad-chahin/stock-sentiment/internal/ticker"
	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// MaxInputChars bounds the text sent for one comment.
const MaxInputChars = 2000

// Request is one extraction call.
type Request struct {
	Model        string
	Instructions string
	Input        string
}

// Provider defines the interface for LLM providers. Complete returns the
// raw text of the model's answer. Failures should be reported as *APIError
// where the provider exposes an HTTP status.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configure an Analyzer.
type Options struct {
	Model string
	// CaptureExchanges writes every request/response pair to the cache dir.
	CaptureExchanges bool
	Logger           *slog.Logger
}

// Analyzer extracts mentions from comment text.
type Analyzer struct {
	provider Provider
	model    string
	capture  bool
	log      *slog.Logger
}

// New creates an analyzer backed by provider.
func New(provider Provider, opts Options) *Analyzer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		provider: provider,
		model:    opts.Model,
		capture:  opts.CaptureExchanges,
		log:      log.With("component", "analyzer", "provider", provider.Name()),
	}
}

// Model returns the model identifier recorded with results.
func (a *Analyzer) Model() string { return a.model }

// Extract sends text to the provider and returns the merged mentions,
// sorted by ticker. A reply that cannot be parsed is returned as an error
// wrapping ErrMalformedResponse.
func (a *Analyzer) Extract(ctx context.Context, text string) ([]types.Mention, error) {
	req := Request{
		Model:        a.model,
		Instructions: Instructions,
		Input:        Truncate(text, MaxInputChars),
	}

	start := time.Now()
	raw, err := a.provider.Complete(ctx, req)
	if a.capture {
		a.saveExchange(req, raw, err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	parsed, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.provider.Name(), err)
	}
	return ticker.Mentions(ticker.Merge(parsed)), nil
}

func (a *Analyzer) saveExchange(req Request, raw string, callErr error, took time.Duration) {
	ex := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  a.provider.Name(),
		Model:     req.Model,
		Input:     req.Input,
		Response:  raw,
		Duration:  took.String(),
	}
	if callErr != nil {
		ex.Error = callErr.Error()
	}
	path, err := store.SaveLLMExchange(ex)
	if err != nil {
		a.log.Warn("failed to capture LLM exchange", "error", err)
		return
	}
	a.log.Debug("captured LLM exchange", "path", path)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
