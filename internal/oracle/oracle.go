// Package oracle answers whether a normalized ticker is a known tradable
// instrument, using Yahoo Finance quotes.
package oracle

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"golang.org/x/sync/singleflight"
)

// maxMemo bounds the answer cache; it is cleared when full.
const maxMemo = 4096

// LookupFunc fetches a quote. A nil quote with a nil error means the symbol
// is unknown.
type LookupFunc func(symbol string) (*finance.Quote, error)

// Yahoo is a memoized validity oracle. It is safe for concurrent use and
// collapses concurrent lookups of the same symbol into one request.
type Yahoo struct {
	lookup LookupFunc
	log    *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]bool
}

// Option configures a Yahoo oracle.
type Option func(*Yahoo)

// WithLookup replaces the quote lookup, mainly for tests.
func WithLookup(fn LookupFunc) Option {
	return func(y *Yahoo) { y.lookup = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(y *Yahoo) { y.log = l }
}

func NewYahoo(opts ...Option) *Yahoo {
	y := &Yahoo{
		lookup: lookupQuote,
		log:    slog.Default(),
		memo:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(y)
	}
	y.log = y.log.With("component", "oracle")
	return y
}

// IsValid reports whether symbol resolves to a quote. Lookup errors are
// returned and not cached, so the caller can treat the symbol as unknown.
func (y *Yahoo) IsValid(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false, nil
	}

	y.mu.Lock()
	ok, cached := y.memo[symbol]
	y.mu.Unlock()
	if cached {
		return ok, nil
	}

	ch := y.group.DoChan(symbol, func() (any, error) {
		q, err := y.lookup(yahooSymbol(symbol))
		if err != nil {
			return false, err
		}
		valid := q != nil && q.Symbol != ""
		y.remember(symbol, valid)
		y.log.Debug("ticker looked up", "ticker", symbol, "valid", valid)
		return valid, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (y *Yahoo) remember(symbol string, valid bool) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if len(y.memo) >= maxMemo {
		clear(y.memo)
	}
	y.memo[symbol] = valid
}

// lookupQuote fetches one quote. Unlike quote.Get, an empty result without
// an error is returned as (nil, nil): Yahoo does not know the symbol.
func lookupQuote(symbol string) (*finance.Quote, error) {
	it := quote.List([]string{symbol})
	if it.Next() {
		return it.Quote(), nil
	}
	return nil, it.Err()
}

// yahooSymbol converts share-class dot notation (BRK.B) to Yahoo's dash
// form (BRK-B).
func yahooSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}
