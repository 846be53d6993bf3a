// Package cli implements the stock-sentiment command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jad-chahin/stock-sentiment/internal/app"
	"github.com/jad-chahin/stock-sentiment/internal/auth"
	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/logging"
	"github.com/jad-chahin/stock-sentiment/internal/metrics"
	"github.com/jad-chahin/stock-sentiment/internal/pipeline"
	"github.com/jad-chahin/stock-sentiment/internal/scraper"
	"github.com/jad-chahin/stock-sentiment/internal/store"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitFatalAuth = 2
	ExitQuota     = 3
)

// errQuota marks a run that stopped because the provider quota ran out.
var errQuota = errors.New("extraction quota exhausted")

// env is the state shared by the commands of one invocation.
type env struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	verbose    bool

	stdout io.Writer
	stderr io.Writer
	// interactive enables prompts and progress output.
	interactive bool

	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	creds    *auth.Manager
	store    *store.Store
	app      *app.App
}

// Execute runs the CLI with the process arguments and returns the exit
// code. SIGINT and SIGTERM cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd()),
	}
	return e.run(ctx, os.Args[1:])
}

func (e *env) run(ctx context.Context, args []string) int {
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	err := root.ExecuteContext(ctx)
	e.close()
	if err != nil {
		fmt.Fprintln(e.stderr, "Error:", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(e.stderr, hint)
		}
	}
	return ExitCode(err)
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, pipeline.ErrFatalAuth), errors.Is(err, scraper.ErrUnauthorized):
		return ExitFatalAuth
	case errors.Is(err, errQuota):
		return ExitQuota
	default:
		return ExitError
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrFatalAuth):
		return "The extraction provider rejected the API key. Run `stock-sentiment setup` to update it."
	case errors.Is(err, scraper.ErrUnauthorized):
		return "Reddit rejected the app credentials. Run `stock-sentiment setup` to update them."
	case errors.Is(err, auth.ErrMissingCredentials):
		return "Set the variables in the environment or a .env file, or run `stock-sentiment setup`."
	case errors.Is(err, errQuota):
		return "Add credit or wait for the quota to reset, then run analyze again to resume."
	}
	return ""
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "stock-sentiment",
		Short:         "Collect Reddit comments and extract ticker sentiment with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "config file (default is the user config dir)")
	pf.StringVar(&e.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&e.logFormat, "log-format", "", "log format: text or json")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newAnalyzeCmd(e),
		newScrapeCmd(e),
		newReportCmd(e),
		newStatusCmd(e),
		newValidateCmd(e),
		newTagsCmd(e),
		newClearCmd(e),
		newSetupCmd(e),
		newWatchCmd(e),
		newConfigCmd(e),
	)
	return root
}

// setup loads configuration and builds the logger. The store is opened
// lazily by commands that need it.
func (e *env) setup() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.dbPath != "" {
		cfg.Database.Path = e.dbPath
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if e.verbose {
		cfg.Log.Level = "debug"
	}
	if e.logFormat != "" {
		cfg.Log.Format = e.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg

	e.log = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: e.stderr})
	slog.SetDefault(e.log)

	credPath, err := auth.DefaultCredentialStorePath()
	if err != nil {
		return err
	}
	var prompter auth.Prompter
	if e.interactive {
		prompter = auth.SurveyPrompter{}
	}
	e.creds = auth.NewManager(auth.NewCredentialStore(credPath), prompter)
	e.registry = prometheus.NewRegistry()
	return nil
}

// open opens the database and builds the App.
func (e *env) open() error {
	if e.app != nil {
		return nil
	}
	st, err := store.New(e.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	e.store = st

	opts := app.Options{
		Logger:     e.log,
		Metrics:    metrics.New(e.registry),
		ConfigPath: e.configPath,
	}
	if e.interactive {
		opts.Progress = progressPrinter(e.stderr)
	}
	e.app = app.New(e.cfg, st, e.creds, opts)
	return nil
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil && e.log != nil {
			e.log.Warn("close database", "error", err)
		}
		e.store = nil
	}
}

func progressPrinter(w io.Writer) func(done, total int) {
	return func(done, total int) {
		fmt.Fprintf(w, "\ranalyzed %d/%d", done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
