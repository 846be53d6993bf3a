package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultBaseURL = "https://oauth.reddit.com"

	// pageSize is Reddit's maximum listing page.
	pageSize = 100
	// moreBatch is the most children ids accepted by /api/morechildren.
	moreBatch = 100
)

// ErrUnauthorized is returned when Reddit rejects the app credentials.
var ErrUnauthorized = errors.New("reddit rejected credentials")

// client is a minimal application-only OAuth Reddit API client.
type client struct {
	http    *resty.Client
	authURL string
	id      string
	secret  string
	limiter *rate.Limiter

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newClient(opts Options) *client {
	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	return &client{
		http:    rc,
		authURL: opts.AuthURL,
		id:      opts.ClientID,
		secret:  opts.ClientSecret,
		limiter: rate.NewLimiter(limit, 1),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// accessToken returns a cached token, fetching a new one shortly before
// the old one expires.
func (c *client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.id, c.secret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post(c.authURL)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return "", ErrUnauthorized
	case resp.IsError():
		return "", fmt.Errorf("request token: status %d", resp.StatusCode())
	case tok.Error != "" || tok.AccessToken == "":
		// Reddit answers bad credentials with 200 and an error field.
		return "", fmt.Errorf("%w: %s", ErrUnauthorized, tok.Error)
	}

	c.token = tok.AccessToken
	c.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// get fetches path and decodes the JSON body into out.
func (c *client) get(ctx context.Context, path string, query map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	query["raw_json"] = "1"
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return fmt.Errorf("get %s: %w", path, ErrUnauthorized)
	case resp.IsError():
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// listing is Reddit's paged container.
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

// thingData holds the union of the post (t3), comment (t1) and more stub
// fields we read.
type thingData struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Subreddit  string   `json:"subreddit"`
	Author     string   `json:"author"`
	Body       string   `json:"body"`
	Score      int      `json:"score"`
	CreatedUTC float64  `json:"created_utc"`
	Stickied   bool     `json:"stickied"`
	Replies    replies  `json:"replies"`
	Children   []string `json:"children"`
}

// replies is either "" or a nested listing.
type replies struct {
	listing *listing
}

func (r *replies) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var l listing
	if err := json.Unmarshal(b, &l); err != nil {
		return err
	}
	r.listing = &l
	return nil
}

type post struct {
	ID    string
	Title string
}

// posts pages through a subreddit listing until limit posts are read or
// the listing ends.
func (c *client) posts(ctx context.Context, sub, sort string, limit int) ([]post, error) {
	var (
		out   []post
		after string
	)
	for len(out) < limit {
		q := map[string]string{"limit": fmt.Sprint(min(pageSize, limit-len(out)))}
		if after != "" {
			q["after"] = after
		}
		if sort == "top" {
			q["t"] = "day"
		}

		var page listing
		if err := c.get(ctx, "/r/"+sub+"/"+sort, q, &page); err != nil {
			return out, err
		}
		for _, ch := range page.Data.Children {
			if ch.Kind != "t3" {
				continue
			}
			out = append(out, post{ID: ch.Data.ID, Title: ch.Data.Title})
		}
		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// comments returns a post's comment tree flattened depth first, followed
// by up to moreLimit expanded "more" stubs.
func (c *client) comments(ctx context.Context, postID string, limit, moreLimit int) ([]thingData, error) {
	q := map[string]string{}
	if limit > 0 {
		q["limit"] = fmt.Sprint(limit)
	}

	// The response is [post listing, comment listing].
	var pages []listing
	if err := c.get(ctx, "/comments/"+postID, q, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var (
		out  []thingData
		more []string
	)
	var walk func(l *listing)
	walk = func(l *listing) {
		for _, ch := range l.Data.Children {
			switch ch.Kind {
			case "t1":
				out = append(out, ch.Data)
				if ch.Data.Replies.listing != nil {
					walk(ch.Data.Replies.listing)
				}
			case "more":
				more = append(more, ch.Data.Children...)
			}
		}
	}
	walk(&pages[1])

	if moreLimit > 0 && len(more) > 0 {
		extra, err := c.moreChildren(ctx, postID, more, moreLimit)
		if err != nil {
			return out, err
		}
		out = append(out, extra...)
	}
	return out, nil
}

type moreResponse struct {
	JSON struct {
		Data struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// moreChildren expands hidden comment ids, one request per batch, for at
// most rounds requests.
func (c *client) moreChildren(ctx context.Context, postID string, ids []string, rounds int) ([]thingData, error) {
	var out []thingData
	for i := 0; i < rounds && len(ids) > 0; i++ {
		n := min(moreBatch, len(ids))
		batch := ids[:n]
		ids = ids[n:]

		var resp moreResponse
		err := c.get(ctx, "/api/morechildren", map[string]string{
			"api_type": "json",
			"link_id":  "t3_" + postID,
			"children": strings.Join(batch, ","),
		}, &resp)
		if err != nil {
			return out, err
		}
		for _, th := range resp.JSON.Data.Things {
			if th.Kind == "t1" {
				out = append(out, th.Data)
			}
		}
	}
	return out, nil
}
