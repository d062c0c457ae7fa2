package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/module"
	"github.com/weaver-dev/weaver/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workspace's apps and their tasks",
	RunE:  cliutil.Wrap(runList),
}

func init() {
	listCmd.Flags().Bool("apps-only", false, "list only apps, not their tasks")
	listCmd.Flags().Bool("tasks-only", false, "list only tasks, not apps")
}

func runList(c *cliutil.Context, cmd *cobra.Command, _ []string) error {
	appsOnly, _ := cmd.Flags().GetBool("apps-only")
	tasksOnly, _ := cmd.Flags().GetBool("tasks-only")
	if appsOnly && tasksOnly {
		return fmt.Errorf("--apps-only and --tasks-only are mutually exclusive")
	}

	f, err := c.Formatter()
	if err != nil {
		return err
	}

	if !tasksOnly {
		if err := listApps(c, f); err != nil {
			return err
		}
	}
	if !appsOnly {
		if err := listTasks(c, f); err != nil {
			return err
		}
	}
	return nil
}

func listApps(c *cliutil.Context, f output.Formatter) error {
	rows := make([][]string, 0, len(c.Workspace.Apps))
	for _, app := range c.Workspace.Apps {
		rows = append(rows, []string{app.Name, app.Module, app.Path})
	}
	return f.Write([]string{"APP", "MODULE", "PATH"}, rows)
}

func listTasks(c *cliutil.Context, f output.Formatter) error {
	lf, err := lockfile.Load(c.Engine.Paths.LockfilePath)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, app := range c.Workspace.Apps {
		decl, ok := c.Workspace.ModuleByName(app.Module)
		if !ok {
			continue
		}
		modPath, err := c.Engine.ResolveModulePath(c.Ctx, decl, lf)
		if err != nil {
			return err
		}
		manifest, err := module.LoadManifest(modPath)
		if err != nil {
			return err
		}
		for name, task := range manifest.Tasks {
			rows = append(rows, []string{app.Name, name, task.Description})
		}
	}
	return f.Write([]string{"APP", "TASK", "DESCRIPTION"}, rows)
}
