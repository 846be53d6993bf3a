package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/pipeline"
)

type analyzeFlags struct {
	tag            string
	model          string
	limit          int
	rpm            int
	retryErrors    bool
	includeSkipped bool
	subreddits     string
	timeout        time.Duration
	shortcut       bool
	validate       bool
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:     "analyze",
		Aliases: []string{"run"},
		Short:   "Extract ticker sentiment from collected comments",
		Long: `Analyze sends every stored comment that has no result under the tag to
the extraction model. Runs are resumable: interrupting one keeps the work
done so far, and the next run continues where it stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			ctx := cmd.Context()

			rc := f.apply(cmd, e.cfg.RunConfig())
			tag, err := e.app.ResolveTag(ctx, f.tag)
			if err != nil {
				return err
			}
			rc.Tag = tag

			out, err := e.app.Analyze(ctx, rc)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			if out.Reason == pipeline.StopQuota {
				return errQuota
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.tag, "tag", "", "analysis tag (default: current tag)")
	fl.StringVar(&f.model, "model", "", "extraction model")
	fl.IntVar(&f.limit, "limit", 0, "maximum comments to analyze")
	fl.IntVar(&f.rpm, "rpm", 0, "maximum extraction calls per minute (0 = unlimited)")
	fl.BoolVar(&f.retryErrors, "retry-errors", false, "re-analyze comments whose last attempt failed")
	fl.BoolVar(&f.includeSkipped, "include-skipped", false, "re-analyze comments previously skipped")
	fl.StringVar(&f.subreddits, "subreddits", "", "only analyze comments from these subreddits (comma separated)")
	fl.DurationVar(&f.timeout, "timeout", 0, "stop the run after this long")
	fl.BoolVar(&f.shortcut, "shortcut", false, "skip the model for comments without buy/sell terms")
	fl.BoolVar(&f.validate, "validate", false, "prune tickers unknown to Yahoo Finance after the run")
	return cmd
}

// apply overlays the flags the user set on rc.
func (f *analyzeFlags) apply(cmd *cobra.Command, rc config.RunConfig) config.RunConfig {
	fl := cmd.Flags()
	if fl.Changed("model") {
		rc.Model = f.model
	}
	if fl.Changed("limit") {
		rc.Limit = f.limit
	}
	if fl.Changed("rpm") {
		rc.MaxRequestsPerMinute = f.rpm
	}
	if fl.Changed("retry-errors") {
		rc.RetryErrors = f.retryErrors
	}
	if fl.Changed("include-skipped") {
		rc.IncludeSkipped = f.includeSkipped
	}
	if fl.Changed("subreddits") {
		rc.Subreddits = config.SplitList(f.subreddits)
	}
	if fl.Changed("timeout") {
		rc.Timeout = f.timeout
	}
	if fl.Changed("shortcut") {
		rc.KeywordShortcut = f.shortcut
	}
	if fl.Changed("validate") {
		rc.ValidateTickers = f.validate
	}
	return rc
}

func printOutcome(w io.Writer, o *pipeline.Outcome) {
	fmt.Fprintf(w, "Tag %q, model %s\n", o.Tag, o.Model)
	fmt.Fprintf(w, "  candidates:  %d\n", o.Candidates)
	fmt.Fprintf(w, "  analyzed:    %d\n", o.Analyzed)
	fmt.Fprintf(w, "  errors:      %d\n", o.Errors)
	fmt.Fprintf(w, "  model calls: %d (retries %d)\n", o.ModelCalls, o.Retries)
	if o.Shortcut > 0 || o.Blank > 0 {
		fmt.Fprintf(w, "  skipped:     %d without buy/sell terms, %d blank\n", o.Shortcut, o.Blank)
	}
	if o.Pruned > 0 {
		fmt.Fprintf(w, "  pruned:      %d mentions of unknown tickers\n", o.Pruned)
	}
	switch o.Reason {
	case pipeline.StopNone:
		fmt.Fprintln(w, "Run complete.")
	case pipeline.StopQuota:
		fmt.Fprintln(w, "Stopped: provider quota exhausted.")
	default:
		fmt.Fprintf(w, "Stopped (%s). Run analyze again to resume.\n", o.Reason)
	}
}
