package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jad-chahin/stock-sentiment/internal/pipeline"
	"github.com/jad-chahin/stock-sentiment/internal/scheduler"
	"github.com/jad-chahin/stock-sentiment/internal/scraper"
)

const watchJob = "collect-analyze"

// Cycle collects new comments and then analyzes them under the current
// tag. It is the unit of work Watch schedules.
func (a *App) Cycle(ctx context.Context) error {
	if a.opts.ConfigPath != "" {
		if err := a.ReloadConfig(); err != nil {
			a.log.Warn("config reload failed, keeping previous", "error", err)
		}
	}

	res, err := a.Collect(ctx, nil)
	if err != nil {
		if errors.Is(err, scraper.ErrUnauthorized) || ctx.Err() != nil {
			return fmt.Errorf("collect: %w", err)
		}
		a.log.Warn("collection incomplete, analyzing what was saved", "saved", res.Saved, "error", err)
	}

	rc := a.Config().RunConfig()
	tag, err := a.ResolveTag(ctx, "")
	if err != nil {
		return err
	}
	rc.Tag = tag

	out, err := a.Analyze(ctx, rc)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if out.Reason == pipeline.StopQuota {
		return fmt.Errorf("analyze: extraction quota exhausted")
	}
	return nil
}

// Watch runs Cycle once and then on the cron schedule until ctx is
// cancelled. Overlapping cycles are skipped. Rejected credentials stop the
// watch.
func (a *App) Watch(ctx context.Context, spec, timezone string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sched, err := scheduler.New(timezone, 0, a.log)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		err := a.Cycle(ctx)
		if isFatal(err) {
			cancel(err)
		}
		return err
	}
	if err := sched.AddJob(watchJob, spec, job); err != nil {
		return err
	}

	if err := sched.RunNow(ctx, watchJob, job); err != nil {
		a.log.Error("job failed", "job", watchJob, "error", err)
	}

	sched.Start(ctx)
	for _, j := range sched.ListJobs() {
		a.log.Info("next run scheduled", "job", j.Name, "at", j.NextRun)
	}

	<-ctx.Done()
	<-sched.Stop().Done()

	if cause := context.Cause(ctx); isFatal(cause) {
		return cause
	}
	return nil
}

func isFatal(err error) bool {
	return errors.Is(err, pipeline.ErrFatalAuth) || errors.Is(err, scraper.ErrUnauthorized)
}
