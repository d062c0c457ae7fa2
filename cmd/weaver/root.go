package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

// rootCmd is the weaver CLI entry point. Grounded on the teacher's
// cmd/reglet/root.go shape: a PersistentPreRunE wiring logging and
// viper config-loading ahead of every subcommand's RunE.
var rootCmd = &cobra.Command{
	Use:   "weaver",
	Short: "Materializes modules into a workspace and keeps them reconciled",
	Long: `weaver resolves versioned modules, instantiates them against a
workspace's apps, and reconciles their files, templates, and ensures
against what is actually on disk — detecting drift, applying updates,
and running declared checks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := cliutil.BindViper(cmd); err != nil {
			return err
		}
		cliutil.SetupLogging(cmd)
		return nil
	},
}

// Execute runs the root command and returns a process exit code per
// spec.md 6 (0 success, 1 any error, 2 plan-detected drift).
func Execute() int {
	cliutil.AddPersistentFlags(rootCmd)
	rootCmd.PersistentFlags().String("config", "", "path to a weaver CLI config file (default $HOME/.weaver/config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return weavererr.ExitCode(err)
	}
	return 0
}

func init() {
	rootCmd.AddCommand(
		initCmd,
		planCmd,
		applyCmd,
		listCmd,
		describeCmd,
		moduleCmd,
		checkCmd,
		runCmd,
		pluginsCmd,
		versionCmd,
	)
}
