package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jad-chahin/stock-sentiment/internal/config"
)

func newSetupCmd(e *env) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Store the API key and Reddit app credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if reset {
				if err := e.creds.Reset(); err != nil {
					return err
				}
				fmt.Fprintln(w, "Stored credentials removed.")
				return nil
			}
			if err := e.creds.Setup(e.cfg); err != nil {
				return err
			}
			fmt.Fprintln(w, "Credentials saved.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete stored credentials")
	return cmd
}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.resolvedConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.resolvedConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created default config at %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func (e *env) resolvedConfigPath() (string, error) {
	if e.configPath != "" {
		return e.configPath, nil
	}
	return config.ConfigPath()
}
