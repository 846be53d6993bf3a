package types

import "time"

// Record is one collected comment. Records are immutable once stored.
type Record struct {
	ID              string    `json:"id"`
	Subreddit       string    `json:"subreddit"`
	SubmissionID    string    `json:"submission_id"`
	SubmissionTitle string    `json:"submission_title"`
	Author          string    `json:"author,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Score           int       `json:"score"`
	Body            string    `json:"body"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// Sentiment is the direction attached to a mention.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// Valid reports whether s is one of the known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case Bullish, Bearish, Neutral:
		return true
	}
	return false
}

// Status is the per-tag processing state of a record.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Mention is a normalized symbol with its merged sentiment for one record.
type Mention struct {
	Ticker    string    `json:"ticker"`
	Sentiment Sentiment `json:"sentiment"`
}

// Candidate is a record selected for (re-)analysis under a tag.
type Candidate struct {
	ID   string
	Body string
}
