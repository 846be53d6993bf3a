package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jad-chahin/stock-sentiment/internal/store"
)

func newStatusCmd(e *env) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show analysis progress and the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			resolved, err := e.app.ResolveTag(ctx, tag)
			if err != nil {
				return err
			}
			records, counts, err := e.app.Status(ctx, resolved)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "Database: %s\n", e.cfg.Database.Path)
			fmt.Fprintf(w, "Tag:      %s\n", resolved)
			fmt.Fprintf(w, "Comments: %d stored, %d pending\n", records, max(records-counts.OK-counts.Skipped-counts.Error, 0))
			fmt.Fprintf(w, "Results:  %d ok, %d skipped, %d error\n", counts.OK, counts.Skipped, counts.Error)

			last, _, err := e.app.LastRun(resolved)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fmt.Fprintln(w, "No runs recorded for this tag.")
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(w, "\nLast run %s (%s)\n", last.RunID, last.FinishedAt.Local().Format("2006-01-02 15:04"))
			printOutcome(w, last)
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "analysis tag (default: current tag)")
	return cmd
}

func newValidateCmd(e *env) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Remove mentions of tickers Yahoo Finance does not know",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			resolved, err := e.app.ResolveTag(cmd.Context(), tag)
			if err != nil {
				return err
			}
			n, err := e.app.Validate(cmd.Context(), resolved)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d mentions from tag %q.\n", n, resolved)
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "analysis tag (default: current tag)")
	return cmd
}
