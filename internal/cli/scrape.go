package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jad-chahin/stock-sentiment/internal/config"
)

func newScrapeCmd(e *env) *cobra.Command {
	var subreddits string
	cmd := &cobra.Command{
		Use:     "scrape",
		Aliases: []string{"collect"},
		Short:   "Collect comments from the configured subreddits",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			res, err := e.app.Collect(cmd.Context(), config.SplitList(subreddits))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collected %d comments from %d posts (%d new).\n", res.Comments, res.Posts, res.Saved)
			return nil
		},
	}
	cmd.Flags().StringVar(&subreddits, "subreddits", "", "subreddits to collect (comma separated, default from config)")
	return cmd
}
