package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestScheduler(t *testing.T, timeout time.Duration) (*Scheduler, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := New("UTC", timeout, log)
	require.NoError(t, err)
	return s, buf
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New("Mars/Olympus", 0, nil)
	assert.Error(t, err)
}

func TestAddJobValidatesSchedule(t *testing.T) {
	s, _ := newTestScheduler(t, 0)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.AddJob("bad", "not a schedule", noop))
	require.NoError(t, s.AddJob("hourly", "@every 1h", noop))
	assert.Error(t, s.AddJob("hourly", "@daily", noop), "duplicate names are rejected")
}

func TestListAndRemoveJobs(t *testing.T) {
	s, _ := newTestScheduler(t, 0)
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.AddJob("collect", "0 7 * * *", noop))

	s.Start(context.Background())
	defer s.Stop()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "collect", jobs[0].Name)
	assert.False(t, jobs[0].NextRun.IsZero())
	assert.Equal(t, 7, jobs[0].NextRun.In(time.UTC).Hour())

	s.RemoveJob("collect")
	assert.Empty(t, s.ListJobs())
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s, buf := newTestScheduler(t, 20*time.Millisecond)

	err := s.RunNow(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, s.RunNow(context.Background(), "fast", func(context.Context) error { return nil }))
	assert.Contains(t, buf.String(), "job completed")
}

func TestScheduledJobRunsWithParentContext(t *testing.T) {
	s, buf := newTestScheduler(t, 0)

	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "watch")

	var runs atomic.Int32
	var sawParent atomic.Bool
	require.NoError(t, s.AddJob("tick", "@every 1s", func(ctx context.Context) error {
		sawParent.Store(ctx.Value(key{}) == "watch")
		runs.Add(1)
		return errors.New("boom")
	}))

	s.Start(parent)
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	<-s.Stop().Done()

	assert.True(t, sawParent.Load())
	assert.Contains(t, buf.String(), "job failed")
}
