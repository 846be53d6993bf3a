package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookup(known map[string]bool, calls *atomic.Int32) LookupFunc {
	return func(symbol string) (*finance.Quote, error) {
		calls.Add(1)
		if symbol == "BOOM" {
			return nil, errors.New("remote error")
		}
		if known[symbol] {
			return &finance.Quote{Symbol: symbol}, nil
		}
		return nil, nil
	}
}

func TestIsValid(t *testing.T) {
	var calls atomic.Int32
	y := NewYahoo(WithLookup(fakeLookup(map[string]bool{"AAPL": true, "BRK-B": true}, &calls)))
	ctx := context.Background()

	ok, err := y.IsValid(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = y.IsValid(ctx, "BRK.B")
	require.NoError(t, err)
	assert.True(t, ok, "share class uses dash form for lookup")

	ok, err = y.IsValid(ctx, "YOLO")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = y.IsValid(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 3, calls.Load())
}

func TestIsValidMemoizes(t *testing.T) {
	var calls atomic.Int32
	y := NewYahoo(WithLookup(fakeLookup(map[string]bool{"MSFT": true}, &calls)))

	for range 3 {
		ok, err := y.IsValid(context.Background(), "msft")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestLookupErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	y := NewYahoo(WithLookup(fakeLookup(nil, &calls)))

	for range 2 {
		_, err := y.IsValid(context.Background(), "BOOM")
		assert.Error(t, err)
	}
	assert.EqualValues(t, 2, calls.Load())
}

func TestConcurrentLookupsCollapse(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	y := NewYahoo(WithLookup(func(symbol string) (*finance.Quote, error) {
		calls.Add(1)
		<-release
		return &finance.Quote{Symbol: symbol}, nil
	}))

	var wg, started sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			ok, err := y.IsValid(context.Background(), "NVDA")
			assert.NoError(t, err)
			results[i] = ok
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestIsValidHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	y := NewYahoo(WithLookup(func(string) (*finance.Quote, error) {
		<-block
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := y.IsValid(ctx, "SLOW")
	assert.ErrorIs(t, err, context.Canceled)
}

// yahooServer fakes the v6 quote endpoint: known symbols get a result,
// FAIL gets a 500, anything else an empty result list.
func yahooServer(t *testing.T, known ...string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v6/finance/quote" {
			http.NotFound(w, r)
			return
		}
		sym := r.URL.Query().Get("symbols")
		if sym == "FAIL" {
			http.Error(w, "upstream down", http.StatusInternalServerError)
			return
		}
		result := "[]"
		for _, k := range known {
			if k == sym {
				result = fmt.Sprintf(`[{"symbol":%q,"shortName":"Example Inc."}]`, sym)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"quoteResponse":{"result":%s,"error":null}}`, result)
	}))
	t.Cleanup(srv.Close)

	finance.SetBackend(finance.YFinBackend, &finance.BackendConfiguration{
		Type:       finance.YFinBackend,
		URL:        srv.URL,
		HTTPClient: srv.Client(),
	})
	t.Cleanup(func() { finance.SetBackend(finance.YFinBackend, nil) })
}

func TestIsValidAgainstYahooBackend(t *testing.T) {
	yahooServer(t, "AAPL", "BRK-B")
	y := NewYahoo()
	ctx := context.Background()

	ok, err := y.IsValid(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = y.IsValid(ctx, "BRK.B")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = y.IsValid(ctx, "ZZZZQX")
	require.NoError(t, err, "an empty result is an answer, not a failure")
	assert.False(t, ok)

	_, err = y.IsValid(ctx, "FAIL")
	assert.Error(t, err)
}
