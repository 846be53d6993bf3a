// Package pipeline runs resumable, rate-limited analysis passes over stored
// records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/metrics"
	"github.com/jad-chahin/stock-sentiment/internal/ratelimit"
	"github.com/jad-chahin/stock-sentiment/internal/store"
	"github.com/jad-chahin/stock-sentiment/internal/ticker"
	"github.com/jad-chahin/stock-sentiment/internal/types"
)

// DefaultCheckpointEvery is how many item writes are batched per commit.
const DefaultCheckpointEvery = 10

// ErrFatalAuth wraps extraction failures caused by rejected credentials.
var ErrFatalAuth = errors.New("extraction credentials rejected")

// Store is the persistence the scheduler needs.
type Store interface {
	FetchCandidates(ctx context.Context, q store.CandidateQuery) ([]types.Candidate, error)
	Begin(ctx context.Context) (*store.Tx, error)
	DistinctTickers(ctx context.Context, tag string) ([]string, error)
	DeleteMentionsForTickers(ctx context.Context, tag string, tickers []string) (int64, error)
}

// Extractor returns the merged mentions for one comment body.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]types.Mention, error)
}

// Oracle says whether a ticker is a real tradable instrument.
type Oracle interface {
	IsValid(ctx context.Context, symbol string) (bool, error)
}

// Options tune a Scheduler. Zero values are usable.
type Options struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Clock           ratelimit.Clock
	CheckpointEvery int
	// Progress is called after each candidate with (done, total).
	Progress func(done, total int)
}

// Scheduler drives analysis runs. Candidates are processed one at a time.
type Scheduler struct {
	store     Store
	extractor Extractor
	oracle    Oracle
	log       *slog.Logger
	metrics   *metrics.Metrics
	clock     ratelimit.Clock
	every     int
	progress  func(done, total int)
}

// New creates a scheduler. oracle may be nil when tickers are never
// validated.
func New(st Store, ex Extractor, oracle Oracle, opts Options) *Scheduler {
	s := &Scheduler{
		store:     st,
		extractor: ex,
		oracle:    oracle,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		every:     opts.CheckpointEvery,
		progress:  opts.Progress,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "pipeline")
	if s.clock == nil {
		s.clock = ratelimit.RealClock
	}
	if s.every <= 0 {
		s.every = DefaultCheckpointEvery
	}
	return s
}

// run holds the state of one Run call.
type run struct {
	cfg     config.RunConfig
	out     *Outcome
	limiter *ratelimit.Limiter
	batch   *checkpointer
}

// Run processes one bounded batch of candidates for cfg.Tag.
//
// Cancellation, deadline expiry and quota exhaustion end the run early and
// are reported through Outcome.Reason with a nil error. Only rejected
// credentials (wrapping ErrFatalAuth) and store failures are returned as
// errors; work committed before the failure stays committed.
func (s *Scheduler) Run(ctx context.Context, cfg config.RunConfig) (*Outcome, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	r := &run{
		cfg: cfg,
		out: &Outcome{
			RunID:     uuid.NewString(),
			Tag:       cfg.Tag,
			Model:     cfg.Model,
			StartedAt: s.clock.Now(),
		},
		limiter: ratelimit.New(cfg.MaxRequestsPerMinute, s.clock),
		// Writes must survive cancellation so every stop path can commit.
		batch: &checkpointer{store: s.store, ctx: context.WithoutCancel(ctx), every: s.every},
	}
	defer r.batch.rollback()

	log := s.log.With("run_id", r.out.RunID, "tag", cfg.Tag)
	r.batch.log = log

	if reason := stopReason(ctx); reason != StopNone {
		return s.finish(log, r, reason), nil
	}

	candidates, err := s.store.FetchCandidates(ctx, store.CandidateQuery{
		Tag:            cfg.Tag,
		Limit:          cfg.Limit,
		RetryErrors:    cfg.RetryErrors,
		IncludeSkipped: cfg.IncludeSkipped,
		Subreddits:     cfg.Subreddits,
	})
	if err != nil {
		if reason := stopReason(ctx); reason != StopNone {
			return s.finish(log, r, reason), nil
		}
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	r.out.Candidates = len(candidates)

	log.Info("analysis run starting",
		"model", cfg.Model,
		"candidates", len(candidates),
		"rpm", cfg.MaxRequestsPerMinute,
		"retry_errors", cfg.RetryErrors,
		"shortcut", cfg.KeywordShortcut,
		"timeout", cfg.Timeout)

	reason := StopNone
	for i, c := range candidates {
		if reason = stopReason(ctx); reason != StopNone {
			break
		}

		reason, err = s.process(ctx, log, r, c)
		if err != nil {
			if cerr := r.batch.commit(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return nil, err
		}
		if s.progress != nil {
			s.progress(i+1, len(candidates))
		}
		if reason != StopNone {
			break
		}
	}

	if err := r.batch.commit(); err != nil {
		return nil, fmt.Errorf("commit results: %w", err)
	}

	if reason == StopNone && cfg.ValidateTickers {
		s.validate(ctx, log, r.out)
	}

	return s.finish(log, r, reason), nil
}

func (s *Scheduler) finish(log *slog.Logger, r *run, reason StopReason) *Outcome {
	r.out.Reason = reason
	r.out.FinishedAt = s.clock.Now()
	s.metrics.RunFinished(string(reason))

	log.Info("analysis run finished",
		"analyzed", r.out.Analyzed,
		"errors", r.out.Errors,
		"model_calls", r.out.ModelCalls,
		"shortcut", r.out.Shortcut,
		"blank", r.out.Blank,
		"pruned", r.out.Pruned,
		"reason", string(reason))
	return r.out
}

// process handles one candidate. A non-empty StopReason ends the run
// gracefully; an error aborts it.
func (s *Scheduler) process(ctx context.Context, log *slog.Logger, r *run, c types.Candidate) (StopReason, error) {
	text := strings.TrimSpace(c.Body)

	if text == "" {
		// Blank bodies still get an ok row so they are not selected again.
		if err := s.writeOK(r, c.ID, nil); err != nil {
			return StopNone, err
		}
		r.out.Blank++
		s.metrics.Item("blank")
		return StopNone, nil
	}

	if r.cfg.KeywordShortcut && !ticker.HasFinanceHint(text) {
		if err := s.writeOK(r, c.ID, nil); err != nil {
			return StopNone, err
		}
		r.out.Analyzed++
		r.out.Shortcut++
		s.metrics.Item("shortcut")
		return StopNone, nil
	}

	for attempt := 0; ; attempt++ {
		if reason := stopReason(ctx); reason != StopNone {
			return reason, nil
		}

		waited, err := r.limiter.Wait(ctx)
		s.metrics.LimiterWait(waited)
		if err != nil {
			return stopReason(ctx), nil
		}

		r.out.ModelCalls++
		s.metrics.ExtractionCall()
		mentions, err := s.extractor.Extract(ctx, text)
		if err == nil {
			if err := s.writeOK(r, c.ID, mentions); err != nil {
				return StopNone, err
			}
			r.out.Analyzed++
			s.metrics.Item("ok")
			return StopNone, nil
		}

		// The in-flight call was cut short by the run ending; leave the
		// item unmarked so the next run selects it again.
		if reason := stopReason(ctx); reason != StopNone {
			return reason, nil
		}

		class := Classify(err)
		switch class {
		case ClassFatalAuth:
			log.Error("extraction credentials rejected", "record_id", c.ID, "error", err)
			return StopNone, fmt.Errorf("%w: %w", ErrFatalAuth, err)

		case ClassQuotaExhausted:
			log.Warn("extraction quota exhausted, stopping", "record_id", c.ID, "error", err)
			if err := s.writeError(r, c.ID, err); err != nil {
				return StopNone, err
			}
			s.metrics.Item("quota")
			return StopQuota, nil

		case ClassTransient:
			wait := Backoff(attempt)
			r.out.Retries++
			s.metrics.Retry(class.String())
			log.Warn("transient extraction failure, retrying",
				"record_id", c.ID, "attempt", attempt+1, "wait", wait, "error", err)
			if err := s.clock.Sleep(ctx, wait); err != nil {
				return stopReason(ctx), nil
			}

		default:
			log.Warn("extraction failed, skipping record", "record_id", c.ID, "error", err)
			if err := s.writeError(r, c.ID, err); err != nil {
				return StopNone, err
			}
			r.out.Errors++
			s.metrics.Item("error")
			return StopNone, nil
		}
	}
}

func (s *Scheduler) writeOK(r *run, recordID string, mentions []types.Mention) error {
	tx, err := r.batch.current()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	wctx := r.batch.ctx
	if err := tx.ReplaceMentions(wctx, r.cfg.Tag, recordID, r.cfg.Model, mentions, now); err != nil {
		return fmt.Errorf("save mentions for %s: %w", recordID, err)
	}
	if err := tx.MarkOK(wctx, r.cfg.Tag, recordID, r.cfg.Model, now); err != nil {
		return fmt.Errorf("mark %s ok: %w", recordID, err)
	}
	return r.batch.wrote()
}

func (s *Scheduler) writeError(r *run, recordID string, cause error) error {
	tx, err := r.batch.current()
	if err != nil {
		return err
	}
	if err := tx.MarkError(r.batch.ctx, r.cfg.Tag, recordID, r.cfg.Model, cause.Error(), s.clock.Now()); err != nil {
		return fmt.Errorf("mark %s error: %w", recordID, err)
	}
	return r.batch.wrote()
}

// checkpointer commits item writes in batches.
type checkpointer struct {
	store   Store
	ctx     context.Context
	log     *slog.Logger
	every   int
	tx      *store.Tx
	pending int
}

func (c *checkpointer) current() (*store.Tx, error) {
	if c.tx != nil {
		return c.tx, nil
	}
	tx, err := c.store.Begin(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	c.tx = tx
	return tx, nil
}

func (c *checkpointer) wrote() error {
	c.pending++
	if c.pending >= c.every {
		return c.commit()
	}
	return nil
}

func (c *checkpointer) commit() error {
	if c.tx == nil {
		return nil
	}
	tx, n := c.tx, c.pending
	c.tx, c.pending = nil, 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	if c.log != nil {
		c.log.Debug("checkpoint committed", "writes", n)
	}
	return nil
}

func (c *checkpointer) rollback() {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
}
