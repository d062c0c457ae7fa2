package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/reconcile"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile the workspace's apps against their modules",
	Long: `apply resolves every app's module, runs its ensures, and writes its
files and templates, detecting drift against any file weaver has
previously written.`,
	RunE: cliutil.Wrap(runApply),
}

func init() {
	applyCmd.Flags().Bool("auto-approve", false, "apply without prompting to confirm plan actions")
	applyCmd.Flags().String("strategy", "stop", "drift strategy: stop or overwrite")
}

func runApply(c *cliutil.Context, cmd *cobra.Command, _ []string) error {
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	strategy, _ := cmd.Flags().GetString("strategy")
	if strategy != "stop" && strategy != "overwrite" {
		return fmt.Errorf("--strategy must be \"stop\" or \"overwrite\", got %q", strategy)
	}

	result, err := c.Engine.Apply(c.Ctx, c.Workspace, reconcile.Options{
		Strategy:    strategy,
		AutoApprove: autoApprove,
	})
	if result != nil {
		printPlanResult(c, result)
	}
	if err != nil {
		var drift *weavererr.DriftDetected
		if errors.As(err, &drift) {
			fmt.Fprintf(c.Stderr, "drift detected: %s\n", drift.Path)
		}
		return err
	}
	return nil
}

func printPlanResult(c *cliutil.Context, result *reconcile.Result) {
	for _, app := range result.Apps {
		fmt.Fprintf(c.Stdout, "app %s:\n", app.App)
		for _, e := range app.Plan.EnsurePlans {
			fmt.Fprintf(c.Stdout, "  ensure[%d] %s: %s\n", e.Index, e.Type, e.Plan.Description)
			for _, action := range e.Plan.Actions {
				fmt.Fprintf(c.Stdout, "    - %s\n", action)
			}
		}
		for _, fa := range app.Plan.FileActions {
			fmt.Fprintf(c.Stdout, "  %s %s\n", fa.Kind, fa.Path)
		}
	}
}
