package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/store"
)

func newReportCmd(e *env) *cobra.Command {
	var (
		tag        string
		top        int
		subreddits string
		since      time.Duration
		htmlPath   string
		open       bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the most mentioned tickers and their sentiment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			ctx := cmd.Context()

			resolved, err := e.app.ResolveTag(ctx, tag)
			if err != nil {
				return err
			}
			f := store.SummaryFilter{
				Tag:        resolved,
				Subreddits: config.SplitList(subreddits),
				Limit:      top,
			}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}

			if htmlPath == "" {
				return e.app.WriteReport(ctx, cmd.OutOrStdout(), f, false)
			}

			out, err := os.Create(htmlPath)
			if err != nil {
				return err
			}
			if err := e.app.WriteReport(ctx, out, f, true); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", htmlPath)

			if open {
				abs, err := filepath.Abs(htmlPath)
				if err != nil {
					return err
				}
				return browser.OpenFile(abs)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&tag, "tag", "", "analysis tag (default: current tag)")
	fl.IntVarP(&top, "top", "n", 0, "number of tickers to show (default from config)")
	fl.StringVar(&subreddits, "subreddits", "", "only count comments from these subreddits (comma separated)")
	fl.DurationVar(&since, "since", 0, "only count comments newer than this, e.g. 24h")
	fl.StringVar(&htmlPath, "html", "", "write an HTML report to this file")
	fl.BoolVar(&open, "open", false, "open the HTML report in the browser")
	return cmd
}
