package main

import (
	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would do without writing anything",
	Long:  `plan runs the same reconciliation algorithm as apply in dry-run mode, reporting drift instead of resolving it.`,
	RunE:  cliutil.Wrap(runPlan),
}

func runPlan(c *cliutil.Context, _ *cobra.Command, _ []string) error {
	result, err := c.Engine.Plan(c.Ctx, c.Workspace)
	if result != nil {
		printPlanResult(c, result)
	}
	return err
}
