package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jad-chahin/stock-sentiment/internal/analyzer"
	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/metrics"
	"github.com/jad-chahin/stock-sentiment/internal/ratelimit"
	"github.com/jad-chahin/stock-sentiment/internal/store"
	"github.com/jad-chahin/stock-sentiment/internal/types"
)

var base = time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// block makes Sleep wait for ctx instead of advancing time.
	block bool
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type extractFunc func(ctx context.Context, call int, text string) ([]types.Mention, error)

type fakeExtractor struct {
	fn    extractFunc
	calls int
	texts []string
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]types.Mention, error) {
	f.calls++
	f.texts = append(f.texts, text)
	return f.fn(ctx, f.calls, text)
}

func always(m ...types.Mention) *fakeExtractor {
	return &fakeExtractor{fn: func(context.Context, int, string) ([]types.Mention, error) { return m, nil }}
}

type fakeOracle struct {
	invalid map[string]bool
	failing map[string]bool
}

func (o fakeOracle) IsValid(_ context.Context, symbol string) (bool, error) {
	if o.failing[symbol] {
		return false, errors.New("lookup failed")
	}
	return !o.invalid[symbol], nil
}

type harness struct {
	store *store.Store
	clock *fakeClock
}

func newHarness(t *testing.T, bodies ...string) *harness {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "p.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	recs := make([]types.Record, len(bodies))
	for i, b := range bodies {
		recs[i] = types.Record{
			ID:           fmt.Sprintf("r%d", i),
			Subreddit:    "stocks",
			SubmissionID: "s1",
			CreatedAt:    base.Add(-time.Duration(i) * time.Minute),
			Body:         b,
			ScrapedAt:    base,
		}
	}
	_, err = st.SaveRecords(context.Background(), recs)
	require.NoError(t, err)

	return &harness{store: st, clock: &fakeClock{now: base}}
}

func (h *harness) scheduler(ex Extractor, oracle Oracle, opts Options) *Scheduler {
	opts.Clock = h.clock
	return New(h.store, ex, oracle, opts)
}

func (h *harness) status(t *testing.T, id string) *store.StatusRow {
	t.Helper()
	row, err := h.store.GetStatus(context.Background(), "t", id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return row
}

func runCfg() config.RunConfig {
	return config.RunConfig{Tag: "t", Model: "m", Limit: 100}
}

func apiErr(status int, typ, msg string) error {
	return &analyzer.APIError{Provider: "fake", StatusCode: status, Type: typ, Message: msg}
}

func TestRunCompletesAndConverges(t *testing.T) {
	h := newHarness(t, "TSLA calls", "GME puts", "AAPL?")
	ex := always(types.Mention{Ticker: "TSLA", Sentiment: types.Bullish})
	s := h.scheduler(ex, nil, Options{})

	out, err := s.Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, StopNone, out.Reason)
	assert.False(t, out.Stopped())
	assert.Equal(t, 3, out.Candidates)
	assert.Equal(t, 3, out.Analyzed)
	assert.Equal(t, 3, out.ModelCalls)
	assert.Zero(t, out.Errors)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, []string{"TSLA calls", "GME puts", "AAPL?"}, ex.texts)

	for _, id := range []string{"r0", "r1", "r2"} {
		row := h.status(t, id)
		require.NotNil(t, row)
		assert.Equal(t, types.StatusOK, row.Status)
		assert.Equal(t, "m", row.Model)
		ms, err := h.store.MentionsFor(context.Background(), "t", id)
		require.NoError(t, err)
		assert.Equal(t, []types.Mention{{Ticker: "TSLA", Sentiment: types.Bullish}}, ms)
	}

	again, err := s.Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Zero(t, again.Candidates)
	assert.Equal(t, 3, ex.calls)
}

func TestBlankBodiesMarkedOKWithoutCall(t *testing.T) {
	h := newHarness(t, "   \n\t", "NVDA")
	ex := always()
	s := h.scheduler(ex, nil, Options{})

	out, err := s.Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Blank)
	assert.Equal(t, 1, out.Analyzed)
	assert.Zero(t, out.Errors)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, types.StatusOK, h.status(t, "r0").Status)
}

func TestKeywordShortcut(t *testing.T) {
	h := newHarness(t, "what a nice day", "I'm buying calls")
	ex := always()
	s := h.scheduler(ex, nil, Options{})

	cfg := runCfg()
	cfg.KeywordShortcut = true
	out, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, []string{"I'm buying calls"}, ex.texts)
	assert.Equal(t, 1, out.ModelCalls)
	assert.Equal(t, 1, out.Shortcut)
	assert.Equal(t, 2, out.Analyzed)
	assert.Equal(t, types.StatusOK, h.status(t, "r0").Status)

	ms, err := h.store.MentionsFor(context.Background(), "t", "r0")
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestKeywordShortcutOffByDefault(t *testing.T) {
	h := newHarness(t, "what a nice day")
	ex := always()
	_, err := h.scheduler(ex, nil, Options{}).Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, 1, ex.calls)
}

func TestPermanentErrorIsRecordedAndRunContinues(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		if call == 2 {
			return nil, fmt.Errorf("parse: %w", analyzer.ErrMalformedResponse)
		}
		return nil, nil
	}}
	s := h.scheduler(ex, nil, Options{})

	out, err := s.Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, StopNone, out.Reason)
	assert.Equal(t, 2, out.Analyzed)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, 3, ex.calls)

	row := h.status(t, "r1")
	require.NotNil(t, row)
	assert.Equal(t, types.StatusError, row.Status)
	assert.Contains(t, row.Error, "malformed")

	cands, err := h.store.FetchCandidates(context.Background(), store.CandidateQuery{Tag: "t", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, cands)

	cands, err = h.store.FetchCandidates(context.Background(), store.CandidateQuery{Tag: "t", Limit: 10, RetryErrors: true})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "r1", cands[0].ID)
}

func TestTransientErrorsRetryWithBackoff(t *testing.T) {
	h := newHarness(t, "a")
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		switch call {
		case 1:
			return nil, apiErr(503, "", "overloaded")
		case 2:
			return nil, apiErr(429, "rate_limit_exceeded", "Rate limit reached for requests")
		case 3:
			return nil, fmt.Errorf("post: %w", context.DeadlineExceeded)
		}
		return []types.Mention{{Ticker: "AMD", Sentiment: types.Neutral}}, nil
	}}
	reg := prometheus.NewRegistry()
	s := h.scheduler(ex, nil, Options{Metrics: metrics.New(reg)})

	out, err := s.Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, 4, out.ModelCalls)
	assert.Equal(t, 3, out.Retries)
	assert.Equal(t, 1, out.Analyzed)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, h.clock.sleeps)
	assert.Equal(t, types.StatusOK, h.status(t, "r0").Status)
}

func TestRetriesRespectRateLimiter(t *testing.T) {
	h := newHarness(t, "a")
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		if call == 1 {
			return nil, apiErr(500, "", "boom")
		}
		return nil, nil
	}}
	cfg := runCfg()
	cfg.MaxRequestsPerMinute = 1

	out, err := h.scheduler(ex, nil, Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, out.ModelCalls)
	// backoff 1s, then the limiter holds the retry until the first call's
	// slot leaves the window.
	require.Len(t, h.clock.sleeps, 2)
	assert.Equal(t, time.Second, h.clock.sleeps[0])
	assert.Equal(t, ratelimit.Window-time.Second+ratelimit.Margin, h.clock.sleeps[1])
}

func TestRateLimiterPacesCalls(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	cfg := runCfg()
	cfg.MaxRequestsPerMinute = 2

	out, err := h.scheduler(always(), nil, Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Analyzed)
	require.Len(t, h.clock.sleeps, 1)
	assert.Equal(t, ratelimit.Window+ratelimit.Margin, h.clock.sleeps[0])
}

func TestQuotaExhaustedStopsRun(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		if call == 2 {
			return nil, apiErr(429, "insufficient_quota", "You exceeded your current quota, please check your plan")
		}
		return nil, nil
	}}

	out, err := h.scheduler(ex, nil, Options{}).Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, StopQuota, out.Reason)
	assert.Equal(t, 1, out.Analyzed)
	assert.Equal(t, 2, ex.calls)

	assert.Equal(t, types.StatusOK, h.status(t, "r0").Status)
	row := h.status(t, "r1")
	require.NotNil(t, row)
	assert.Equal(t, types.StatusError, row.Status)
	assert.Contains(t, row.Error, "quota")
	assert.Nil(t, h.status(t, "r2"))
}

func TestFatalAuthAbortsRun(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		if call == 2 {
			return nil, apiErr(401, "invalid_request_error", "Incorrect API key provided")
		}
		return nil, nil
	}}

	out, err := h.scheduler(ex, nil, Options{}).Run(context.Background(), runCfg())
	assert.Nil(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalAuth)

	var ae *analyzer.APIError
	assert.True(t, errors.As(err, &ae))

	assert.Equal(t, types.StatusOK, h.status(t, "r0").Status, "earlier work stays committed")
	assert.Nil(t, h.status(t, "r1"), "current item is not marked")
	assert.Nil(t, h.status(t, "r2"))
}

func TestCancellationMidBatch(t *testing.T) {
	const m, k = 6, 3
	bodies := make([]string, m)
	for i := range bodies {
		bodies[i] = fmt.Sprintf("comment %d", i)
	}
	h := newHarness(t, bodies...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		if call == k {
			cancel()
		}
		return []types.Mention{{Ticker: "SPY", Sentiment: types.Neutral}}, nil
	}}

	out, err := h.scheduler(ex, nil, Options{CheckpointEvery: 2}).Run(ctx, runCfg())
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, out.Reason)
	assert.Equal(t, k, out.Analyzed)
	assert.Equal(t, k, ex.calls)

	counts, err := h.store.StatusCounts(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCounts{OK: k}, counts)
	assert.Nil(t, h.status(t, fmt.Sprintf("r%d", k)))
}

func TestCancellationDuringCallLeavesItemUnmarked(t *testing.T) {
	h := newHarness(t, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex := &fakeExtractor{fn: func(ctx context.Context, call int, _ string) ([]types.Mention, error) {
		if call == 2 {
			cancel()
			return nil, ctx.Err()
		}
		return nil, nil
	}}

	out, err := h.scheduler(ex, nil, Options{}).Run(ctx, runCfg())
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, out.Reason)
	assert.Equal(t, 1, out.Analyzed)
	assert.Zero(t, out.Errors)
	assert.Nil(t, h.status(t, "r1"))
}

func TestTimeoutDuringBackoff(t *testing.T) {
	h := newHarness(t, "a", "b")
	h.clock.block = true
	ex := &fakeExtractor{fn: func(context.Context, int, string) ([]types.Mention, error) {
		return nil, apiErr(502, "", "bad gateway")
	}}
	cfg := runCfg()
	cfg.Timeout = 50 * time.Millisecond

	out, err := h.scheduler(ex, nil, Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StopTimeout, out.Reason)
	assert.Equal(t, 1, ex.calls)
	assert.Nil(t, h.status(t, "r0"))
}

func TestAlreadyExpiredContext(t *testing.T) {
	h := newHarness(t, "a")
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	ex := always()

	out, err := h.scheduler(ex, nil, Options{}).Run(ctx, runCfg())
	require.NoError(t, err)
	assert.Equal(t, StopTimeout, out.Reason)
	assert.Zero(t, ex.calls)
}

func TestCheckpointsCommitDuringRun(t *testing.T) {
	h := newHarness(t, "a", "b", "c", "d")
	var visible []int
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		counts, err := h.store.StatusCounts(context.Background(), "t")
		require.NoError(t, err)
		visible = append(visible, counts.OK)
		return nil, nil
	}}

	_, err := h.scheduler(ex, nil, Options{CheckpointEvery: 2}).Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 2, 2}, visible)
}

func TestValidatorPrunesRejectedTickers(t *testing.T) {
	h := newHarness(t, "a", "b")
	ex := always(
		types.Mention{Ticker: "TSLA", Sentiment: types.Bullish},
		types.Mention{Ticker: "YOLO", Sentiment: types.Bullish},
		types.Mention{Ticker: "MAYBE", Sentiment: types.Bearish},
	)
	oracle := fakeOracle{invalid: map[string]bool{"YOLO": true, "MAYBE": true}, failing: map[string]bool{"MAYBE": true}}
	cfg := runCfg()
	cfg.ValidateTickers = true

	out, err := h.scheduler(ex, oracle, Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 2, out.Pruned)

	tickers, err := h.store.DistinctTickers(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"MAYBE", "TSLA"}, tickers)

	for _, id := range []string{"r0", "r1"} {
		assert.Equal(t, types.StatusOK, h.status(t, id).Status)
	}
}

func TestValidatorSkippedWhenStoppedEarly(t *testing.T) {
	h := newHarness(t, "a", "b")
	ex := &fakeExtractor{fn: func(_ context.Context, call int, _ string) ([]types.Mention, error) {
		if call == 2 {
			return nil, apiErr(429, "", "insufficient_quota")
		}
		return []types.Mention{{Ticker: "YOLO", Sentiment: types.Bullish}}, nil
	}}
	cfg := runCfg()
	cfg.ValidateTickers = true

	out, err := h.scheduler(ex, fakeOracle{invalid: map[string]bool{"YOLO": true}}, Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StopQuota, out.Reason)
	assert.Zero(t, out.Pruned)

	tickers, err := h.store.DistinctTickers(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"YOLO"}, tickers)
}

func TestPruneWithoutOracle(t *testing.T) {
	h := newHarness(t)
	_, err := h.scheduler(always(), nil, Options{}).Prune(context.Background(), "t")
	assert.Error(t, err)
}

func TestProgressCallback(t *testing.T) {
	h := newHarness(t, "a", "b")
	var got []string
	s := h.scheduler(always(), nil, Options{Progress: func(done, total int) {
		got = append(got, fmt.Sprintf("%d/%d", done, total))
	}})
	_, err := s.Run(context.Background(), runCfg())
	require.NoError(t, err)
	assert.Equal(t, "1/2,2/2", strings.Join(got, ","))
}
