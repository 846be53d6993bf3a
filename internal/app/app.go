// Package app wires the store, collector, analyzer and report builder into
// the operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/jad-chahin/stock-sentiment/internal/analyzer"
	"github.com/jad-chahin/stock-sentiment/internal/analyzer/providers"
	"github.com/jad-chahin/stock-sentiment/internal/auth"
	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/metrics"
	"github.com/jad-chahin/stock-sentiment/internal/oracle"
	"github.com/jad-chahin/stock-sentiment/internal/pipeline"
	"github.com/jad-chahin/stock-sentiment/internal/report"
	"github.com/jad-chahin/stock-sentiment/internal/scraper"
	"github.com/jad-chahin/stock-sentiment/internal/store"
)

// Options configure an App. Zero values are usable.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// ConfigPath is re-read by ReloadConfig.
	ConfigPath string
	// Progress receives (done, total) after every analyzed candidate.
	Progress func(done, total int)

	// Test seams.
	NewProvider func(config.AnalysisConfig) (analyzer.Provider, error)
	NewOracle   func(*slog.Logger) pipeline.Oracle
	Reddit      scraper.Options
}

// App holds the application state.
type App struct {
	mu          sync.RWMutex
	authManager *auth.Manager // immutable after creation
	store       *store.Store
	log         *slog.Logger
	opts        Options

	// Mutable; replaced by ReloadConfig. Use getConfig for reads.
	config *config.Config
}

// New creates a new App instance. st is owned by the caller.
func New(cfg *config.Config, st *store.Store, authManager *auth.Manager, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewProvider == nil {
		opts.NewProvider = providers.New
	}
	if opts.NewOracle == nil {
		opts.NewOracle = func(l *slog.Logger) pipeline.Oracle { return oracle.NewYahoo(oracle.WithLogger(l)) }
	}
	return &App{
		authManager: authManager,
		store:       st,
		log:         opts.Logger,
		opts:        opts,
		config:      cfg,
	}
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// ReloadConfig reloads the configuration from disk, keeping stored
// credentials applied.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.authManager != nil {
		if err := a.authManager.Apply(cfg); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()

	a.log.Debug("configuration reloaded")
	return nil
}

func (a *App) ensure(cfg *config.Config, need auth.Need) error {
	if a.authManager == nil {
		if missing := auth.Missing(cfg, need); len(missing) > 0 {
			return fmt.Errorf("%w: %s", auth.ErrMissingCredentials, strings.Join(missing, ", "))
		}
		return nil
	}
	return a.authManager.Ensure(cfg, need)
}

// Collect scrapes the configured subreddits into the store. subreddits
// overrides the configured list when non-empty.
func (a *App) Collect(ctx context.Context, subreddits []string) (scraper.Result, error) {
	cfg := a.Config()
	if err := a.ensure(cfg, auth.Need{Reddit: true}); err != nil {
		return scraper.Result{}, err
	}

	ropts := a.opts.Reddit
	ropts.ClientID = cfg.Collection.ClientID
	ropts.ClientSecret = cfg.Collection.ClientSecret
	ropts.UserAgent = cfg.Collection.UserAgent
	ropts.RequestsPerMinute = cfg.Collection.RequestsPerMinute
	ropts.Logger = a.log
	ropts.Metrics = a.opts.Metrics

	sc, err := scraper.New(ropts)
	if err != nil {
		return scraper.Result{}, err
	}

	if len(subreddits) == 0 {
		subreddits = cfg.Collection.Subreddits
	}
	a.log.Info("collecting",
		"subreddits", strings.Join(subreddits, ","),
		"listing", cfg.Collection.Listing,
		"post_limit", cfg.Collection.PostLimit)

	return sc.Collect(ctx, scraper.Params{
		Subreddits:         subreddits,
		Listing:            cfg.Collection.Listing,
		PostLimit:          cfg.Collection.PostLimit,
		MaxCommentsPerPost: cfg.Collection.MaxCommentsPerPost,
		MoreLimit:          cfg.Collection.MoreLimit,
		BotUsernames:       cfg.Collection.BotUsernames,
	}, a.store)
}

// ResolveTag picks the analysis tag: explicit, then the stored current
// tag, then the configured default.
func (a *App) ResolveTag(ctx context.Context, explicit string) (string, error) {
	if tag := strings.TrimSpace(explicit); tag != "" {
		return tag, nil
	}
	tag, err := a.store.CurrentTag(ctx)
	switch {
	case err == nil && tag != "":
		return tag, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", err
	}
	return a.Config().Analysis.Tag, nil
}

func (a *App) scheduler(rc config.RunConfig, ex pipeline.Extractor) *pipeline.Scheduler {
	var orc pipeline.Oracle
	if rc.ValidateTickers {
		orc = a.opts.NewOracle(a.log)
	}
	return pipeline.New(a.store, ex, orc, pipeline.Options{
		Logger:   a.log,
		Metrics:  a.opts.Metrics,
		Progress: a.opts.Progress,
	})
}

// Analyze runs one analysis pass. The outcome is saved as a run snapshot
// and rc.Tag becomes the current tag.
func (a *App) Analyze(ctx context.Context, rc config.RunConfig) (*pipeline.Outcome, error) {
	cfg := a.Config()
	if err := a.ensure(cfg, auth.Need{LLM: true}); err != nil {
		return nil, err
	}
	if rc.Tag == "" {
		return nil, fmt.Errorf("analysis tag is required")
	}
	if rc.Model == "" {
		rc.Model = cfg.Analysis.Model
	}

	provider, err := a.opts.NewProvider(cfg.Analysis)
	if err != nil {
		return nil, err
	}
	an := analyzer.New(provider, analyzer.Options{
		Model:            rc.Model,
		CaptureExchanges: cfg.Analysis.CaptureExchanges,
		Logger:           a.log,
	})

	if err := a.store.SetCurrentTag(ctx, rc.Tag); err != nil {
		return nil, fmt.Errorf("set current tag: %w", err)
	}

	out, err := a.scheduler(rc, an).Run(ctx, rc)
	if err != nil {
		return nil, err
	}

	if path, err := store.SaveRunSnapshot(rc.Tag, out); err != nil {
		a.log.Warn("failed to save run snapshot", "error", err)
	} else {
		a.log.Debug("run snapshot saved", "path", path)
	}
	return out, nil
}

// Validate prunes mentions of tickers the oracle rejects.
func (a *App) Validate(ctx context.Context, tag string) (int64, error) {
	rc := a.Config().RunConfig()
	rc.ValidateTickers = true
	return a.scheduler(rc, nil).Prune(ctx, tag)
}

// LastRun returns the most recent saved outcome for tag (any tag when
// empty) and the file it was read from.
func (a *App) LastRun(tag string) (*pipeline.Outcome, string, error) {
	out, path, err := store.LoadLatestRunSnapshot[*pipeline.Outcome](tag)
	if err != nil {
		return nil, "", err
	}
	return out, path, nil
}

// Report builds the ticker report described by f. f.Limit falls back to
// the configured top N.
func (a *App) Report(ctx context.Context, f store.SummaryFilter) (*report.Report, *report.Builder, error) {
	b, err := report.New(a.store, a.Config().Report.TopN)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.Build(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return r, b, nil
}

// WriteReport renders f to w, as HTML when html is set.
func (a *App) WriteReport(ctx context.Context, w io.Writer, f store.SummaryFilter, html bool) error {
	r, b, err := a.Report(ctx, f)
	if err != nil {
		return err
	}
	if html {
		return b.WriteHTML(w, r)
	}
	return report.Render(w, r)
}

// Tags lists known tags and the current one.
func (a *App) Tags(ctx context.Context) ([]store.TagInfo, string, error) {
	tags, err := a.store.ListTags(ctx)
	if err != nil {
		return nil, "", err
	}
	current, err := a.store.CurrentTag(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, "", err
	}
	return tags, current, nil
}

// UseTag makes tag the default for later commands.
func (a *App) UseTag(ctx context.Context, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("tag is empty")
	}
	return a.store.SetCurrentTag(ctx, tag)
}

// ClearTag deletes the analysis results of tag.
func (a *App) ClearTag(ctx context.Context, tag string) error {
	if err := a.store.ClearTag(ctx, tag); err != nil {
		return err
	}
	a.log.Info("cleared tag", "tag", tag)
	return nil
}

// ClearAll deletes every record and result.
func (a *App) ClearAll(ctx context.Context) error {
	if err := a.store.ClearAll(ctx); err != nil {
		return err
	}
	a.log.Info("cleared database")
	return nil
}

// Status returns the stored record total and the status counts of tag.
func (a *App) Status(ctx context.Context, tag string) (int, store.StatusCounts, error) {
	records, err := a.store.CountRecords(ctx)
	if err != nil {
		return 0, store.StatusCounts{}, err
	}
	counts, err := a.store.StatusCounts(ctx, tag)
	if err != nil {
		return 0, store.StatusCounts{}, err
	}
	return records, counts, nil
}
