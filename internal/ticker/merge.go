package ticker

import (
	"slices"
	"strings"

	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// Raw is a symbol/sentiment pair as returned by the extraction service,
// before normalization.
type Raw struct {
	Ticker    string `json:"ticker"`
	Sentiment string `json:"sentiment"`
}

// Merge normalizes every raw pair and collapses duplicates for one record.
// A symbol seen with disagreeing sentiments becomes neutral. Pairs whose
// symbol normalizes to "" or whose sentiment is unknown are dropped.
// Sentiment matching ignores case and surrounding space.
func Merge(raw []Raw) map[string]types.Sentiment {
	out := make(map[string]types.Sentiment, len(raw))
	for _, r := range raw {
		sym := Normalize(r.Ticker)
		if sym == "" {
			continue
		}
		s := types.Sentiment(strings.ToLower(strings.TrimSpace(r.Sentiment)))
		if !s.Valid() {
			continue
		}
		if prev, ok := out[sym]; ok && prev != s {
			out[sym] = types.Neutral
			continue
		}
		out[sym] = s
	}
	return out
}

// Mentions flattens a merged map into a slice sorted by ticker.
func Mentions(merged map[string]types.Sentiment) []types.Mention {
	out := make([]types.Mention, 0, len(merged))
	for sym, s := range merged {
		out = append(out, types.Mention{Ticker: sym, Sentiment: s})
	}
	slices.SortFunc(out, func(a, b types.Mention) int {
		return strings.Compare(a.Ticker, b.Ticker)
	})
	return out
}
