package ticker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jad-chahin/stock-sentiment/internal/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$TSLA", "TSLA"},
		{"NASDAQ:aapl", "AAPL"},
		{"BRK-B", "BRK.B"},
		{"BRK/B", "BRK.B"},
		{"  nvda  ", "NVDA"},
		{"(AMD)", "AMD"},
		{"NYSE:BRK.B", "BRK.B"},
		{"$", ""},
		{"", ""},
		{"   ", ""},
		{"!!", ""},
		{"TOOLONGX-B", "TOOLONGX-B"},
		{"SPY-2024", "SPY-2024"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"$TSLA", "NASDAQ:aapl", "BRK-B", "BRK/B", "$$X", "A:B:C", " $ x ",
		"€SAP", "rds/a", "abc-def/g", "::", "GOOG-L1", "x.y-z", "#GME",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestMerge(t *testing.T) {
	t.Run("conflict becomes neutral", func(t *testing.T) {
		got := Merge([]Raw{{"TSLA", "bullish"}, {"TSLA", "bearish"}})
		assert.Equal(t, map[string]types.Sentiment{"TSLA": types.Neutral}, got)
	})

	t.Run("agreement is kept", func(t *testing.T) {
		got := Merge([]Raw{{"TSLA", "bullish"}, {"TSLA", "bullish"}})
		assert.Equal(t, map[string]types.Sentiment{"TSLA": types.Bullish}, got)
	})

	t.Run("normalizes before merging", func(t *testing.T) {
		got := Merge([]Raw{{"$tsla", "bullish"}, {"NASDAQ:TSLA", "bearish"}, {"BRK/B", "bearish"}})
		assert.Equal(t, map[string]types.Sentiment{"TSLA": types.Neutral, "BRK.B": types.Bearish}, got)
	})

	t.Run("drops empty symbols and unknown sentiment", func(t *testing.T) {
		got := Merge([]Raw{{"$", "bullish"}, {"AAPL", "moon"}})
		assert.Empty(t, got)
	})

	t.Run("sentiment case is ignored", func(t *testing.T) {
		got := Merge([]Raw{{"TSLA", "Bullish"}, {"TSLA", "bearish"}, {"AMD", " BEARISH "}})
		assert.Equal(t, map[string]types.Sentiment{"TSLA": types.Neutral, "AMD": types.Bearish}, got)
	})

	t.Run("conflict is sticky", func(t *testing.T) {
		got := Merge([]Raw{{"GME", "bullish"}, {"GME", "bearish"}, {"GME", "bullish"}})
		assert.Equal(t, types.Neutral, got["GME"])
	})
}

func TestMentionsSorted(t *testing.T) {
	got := Mentions(map[string]types.Sentiment{"TSLA": types.Bullish, "AAPL": types.Bearish})
	assert.Equal(t, []types.Mention{
		{Ticker: "AAPL", Sentiment: types.Bearish},
		{Ticker: "TSLA", Sentiment: types.Bullish},
	}, got)
}

func TestHasFinanceHint(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"I'm buying calls", true},
		{"Time to SELL everything", true},
		{"huge sell off today", true},
		{"huge selloff today", true},
		{"huge sell-off today", true},
		{"what a beautiful day", false},
		{"rebuyer of nothing", false},
		{"", false},
		{"the bears are out", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasFinanceHint(tt.text))
		})
	}
}
