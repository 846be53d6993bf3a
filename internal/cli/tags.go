package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

func newTagsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List analysis tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			tags, current, err := e.app.Tags(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(w, "No tags yet. Run analyze to create one.")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tTAG\tANALYZED\tMENTIONS\tLAST USED")
			for _, t := range tags {
				mark := ""
				if t.Tag == current {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", mark, t.Tag, t.Analyzed, t.Mentions,
					t.LastSeen.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "use TAG",
		Short: "Make TAG the default for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			if err := e.app.UseTag(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current tag is now %q.\n", args[0])
			return nil
		},
	})
	return cmd
}

func newClearCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored results",
	}
	cmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(&cobra.Command{
		Use:   "tag TAG",
		Short: "Delete the results of one tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.confirm(yes, fmt.Sprintf("Delete all results for tag %q?", args[0])); err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			if err := e.app.ClearTag(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared tag %q.\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Delete every comment and result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.confirm(yes, "Delete every stored comment and result?"); err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			if err := e.app.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database cleared.")
			return nil
		},
	})
	return cmd
}

var errNotConfirmed = errors.New("not confirmed")

// confirm asks before a destructive action. Without a terminal the
// action needs --yes.
func (e *env) confirm(yes bool, message string) error {
	if yes {
		return nil
	}
	if !e.interactive {
		return fmt.Errorf("%w: pass --yes to run without a terminal", errNotConfirmed)
	}
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message}, &ok); err != nil {
		return err
	}
	if !ok {
		return errNotConfirmed
	}
	return nil
}
