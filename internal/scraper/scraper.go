// Package scraper collects Reddit comments into the record store.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jad-chahin/stock-sentiment/internal/metrics"
	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// saveBatch is how many records are buffered before a store write.
const saveBatch = 200

// Options configures the Reddit connection.
type Options struct {
	ClientID          string
	ClientSecret      string
	UserAgent         string
	RequestsPerMinute int

	// AuthURL and BaseURL override Reddit's endpoints, mainly for tests.
	AuthURL string
	BaseURL string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Params selects what to collect.
type Params struct {
	Subreddits         []string
	Listing            string
	PostLimit          int
	MaxCommentsPerPost int
	MoreLimit          int
	BotUsernames       []string
}

// Sink stores collected records. Existing ids are left untouched.
type Sink interface {
	SaveRecords(ctx context.Context, records []types.Record) (int, error)
}

// Result summarises a collection pass.
type Result struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Saved    int `json:"saved"`
}

// Scraper handles collecting comments from Reddit
type Scraper struct {
	client  *client
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a scraper. Client id and secret are required.
func New(opts Options) (*Scraper, error) {
	if strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.ClientSecret) == "" {
		return nil, fmt.Errorf("%w: missing client id or secret", ErrUnauthorized)
	}
	if opts.AuthURL == "" {
		opts.AuthURL = defaultAuthURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "stock-sentiment/1.0"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Scraper{
		client:  newClient(opts),
		log:     log.With("component", "scraper"),
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

// Collect walks each subreddit's listing and saves the comments of every
// post. Cancellation stops early; records gathered so far are still saved
// and the partial result is returned with the context error.
func (s *Scraper) Collect(ctx context.Context, p Params, sink Sink) (Result, error) {
	var (
		res   Result
		batch []types.Record
	)
	bots := make(map[string]bool, len(p.BotUsernames))
	for _, b := range p.BotUsernames {
		bots[strings.ToLower(b)] = true
	}

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Save even when ctx is done so gathered records are not lost.
		n, err := sink.SaveRecords(context.WithoutCancel(ctx), batch)
		batch = batch[:0]
		res.Saved += n
		s.metrics.Collected(n)
		return err
	}

	err := s.collect(ctx, p, bots, &res, func(r types.Record) error {
		batch = append(batch, r)
		if len(batch) >= saveBatch {
			return flush()
		}
		return nil
	})
	if ferr := flush(); ferr != nil {
		err = errors.Join(err, fmt.Errorf("save records: %w", ferr))
	}

	s.log.Info("collection finished",
		"posts", res.Posts, "comments", res.Comments, "saved", res.Saved, "error", err)
	return res, err
}

func (s *Scraper) collect(ctx context.Context, p Params, bots map[string]bool, res *Result, emit func(types.Record) error) error {
	listing := p.Listing
	if !slices.Contains([]string{"hot", "new", "rising", "top"}, listing) {
		listing = "hot"
	}

	for _, sub := range p.Subreddits {
		sub = strings.TrimPrefix(strings.TrimSpace(sub), "r/")
		if sub == "" {
			continue
		}

		posts, err := s.client.posts(ctx, sub, listing, p.PostLimit)
		if err != nil {
			return fmt.Errorf("list r/%s: %w", sub, err)
		}
		s.log.Debug("listing fetched", "subreddit", sub, "listing", listing, "posts", len(posts))

		for _, post := range posts {
			if err := ctx.Err(); err != nil {
				return err
			}

			comments, err := s.client.comments(ctx, post.ID, p.MaxCommentsPerPost, p.MoreLimit)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
					return err
				}
				// One broken thread should not end the pass.
				s.log.Warn("fetch comments failed", "post_id", post.ID, "error", err)
				continue
			}
			res.Posts++

			if p.MaxCommentsPerPost > 0 && len(comments) > p.MaxCommentsPerPost {
				comments = comments[:p.MaxCommentsPerPost]
			}
			scrapedAt := s.now().UTC()
			for _, c := range comments {
				rec, ok := toRecord(sub, post, c, bots, scrapedAt)
				if !ok {
					continue
				}
				res.Comments++
				if err := emit(rec); err != nil {
					return fmt.Errorf("save records: %w", err)
				}
			}
		}
	}
	return nil
}

func toRecord(sub string, p post, c thingData, bots map[string]bool, scrapedAt time.Time) (types.Record, bool) {
	body := strings.TrimSpace(c.Body)
	if body == "" || body == "[deleted]" || body == "[removed]" {
		return types.Record{}, false
	}
	if c.ID == "" || bots[strings.ToLower(c.Author)] {
		return types.Record{}, false
	}

	author := c.Author
	if author == "[deleted]" {
		author = ""
	}
	return types.Record{
		ID:              c.ID,
		Subreddit:       sub,
		SubmissionID:    p.ID,
		SubmissionTitle: p.Title,
		Author:          author,
		CreatedAt:       time.Unix(int64(c.CreatedUTC), 0).UTC(),
		Score:           c.Score,
		Body:            body,
		ScrapedAt:       scrapedAt,
	}, true
}
