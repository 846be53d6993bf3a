package store

import "time"

// TickerSummary aggregates one ticker's mentions under a tag.
type TickerSummary struct {
	Ticker   string `json:"ticker"`
	Bullish  int    `json:"bullish"`
	Bearish  int    `json:"bearish"`
	Neutral  int    `json:"neutral"`
	Mentions int    `json:"mentions"`
	Score    int    `json:"score"` // bullish - bearish
}

// SummaryFilter narrows a ticker summary.
type SummaryFilter struct {
	Tag        string
	Subreddits []string
	Since      time.Time // zero means no lower bound on record creation
	Limit      int
}

// StatusCounts tallies status rows for a tag.
type StatusCounts struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Error   int `json:"error"`
}

// Total is the number of status rows.
func (c StatusCounts) Total() int { return c.OK + c.Skipped + c.Error }

// TagInfo describes one analysis tag.
type TagInfo struct {
	Tag      string    `json:"tag"`
	LastSeen time.Time `json:"last_seen"`
	Analyzed int       `json:"analyzed"`
	Mentions int       `json:"mentions"`
}
