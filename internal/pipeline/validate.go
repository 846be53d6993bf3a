package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// oracleConcurrency bounds parallel oracle lookups during pruning.
const oracleConcurrency = 4

// Prune deletes the tag's mentions whose ticker the oracle rejects. Lookups
// that fail count as unknown and the ticker is kept. Status rows are never
// touched. It returns the number of mention rows deleted.
func (s *Scheduler) Prune(ctx context.Context, tag string) (int64, error) {
	if s.oracle == nil {
		return 0, fmt.Errorf("no validity oracle configured")
	}

	tickers, err := s.store.DistinctTickers(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("list tickers: %w", err)
	}
	if len(tickers) == 0 {
		return 0, nil
	}

	invalid := s.findInvalid(ctx, tickers)
	if len(invalid) == 0 {
		return 0, nil
	}

	n, err := s.store.DeleteMentionsForTickers(ctx, tag, invalid)
	if err != nil {
		return 0, fmt.Errorf("delete invalid mentions: %w", err)
	}
	s.metrics.Pruned(n)
	s.log.Info("pruned mentions of invalid tickers", "tag", tag, "tickers", len(invalid), "rows", n)
	return n, nil
}

func (s *Scheduler) findInvalid(ctx context.Context, tickers []string) []string {
	var (
		mu      sync.Mutex
		invalid []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(oracleConcurrency)
	for _, t := range tickers {
		g.Go(func() error {
			ok, err := s.oracle.IsValid(gctx, t)
			if err != nil {
				s.log.Debug("ticker validity unknown, keeping", "ticker", t, "error", err)
				return nil
			}
			if !ok {
				mu.Lock()
				invalid = append(invalid, t)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(invalid)
	return invalid
}

// validate runs Prune after a completed pass. Failures are logged only;
// the analysis results stand either way.
func (s *Scheduler) validate(ctx context.Context, log *slog.Logger, out *Outcome) {
	n, err := s.Prune(ctx, out.Tag)
	if err != nil {
		log.Warn("ticker validation failed", "error", err)
		return
	}
	out.Pruned = n
}
