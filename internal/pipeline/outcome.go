package pipeline

import (
	"context"
	"errors"
	"time"
)

// StopReason says why a run ended before exhausting its candidates.
type StopReason string

const (
	StopNone      StopReason = ""
	StopCancelled StopReason = "cancelled"
	StopTimeout   StopReason = "timeout"
	StopQuota     StopReason = "quota_exhausted"
)

// Outcome summarises one run. It is not persisted by the scheduler.
type Outcome struct {
	RunID      string     `json:"run_id"`
	Tag        string     `json:"tag"`
	Model      string     `json:"model"`
	Candidates int        `json:"candidates"`
	Analyzed   int        `json:"analyzed"`
	Errors     int        `json:"errors"`
	ModelCalls int        `json:"model_calls"`
	Shortcut   int        `json:"shortcut"`
	Blank      int        `json:"blank"`
	Retries    int        `json:"retries"`
	Pruned     int64      `json:"pruned"`
	Reason     StopReason `json:"reason,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Stopped reports whether the run ended early.
func (o *Outcome) Stopped() bool { return o.Reason != StopNone }

// stopReason maps a finished context to the reason the run should report.
func stopReason(ctx context.Context) StopReason {
	err := ctx.Err()
	switch {
	case err == nil:
		return StopNone
	case errors.Is(err, context.DeadlineExceeded):
		return StopTimeout
	default:
		return StopCancelled
	}
}

// Backoff is the wait before retry number attempt (0-based):
// 1s doubling per attempt, capped at 20s.
func Backoff(attempt int) time.Duration {
	const maxWait = 20 * time.Second
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxWait
	}
	return min(time.Second<<attempt, maxWait)
}
