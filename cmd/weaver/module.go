package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/resolve"
)

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Inspect or refresh the workspace's declared modules",
}

var moduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workspace's declared modules",
	RunE:  cliutil.Wrap(runModuleList),
}

var moduleUpdateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Re-resolve one module (or every module) against its current ref",
	Args:  cobra.MaximumNArgs(1),
	RunE:  cliutil.Wrap(runModuleUpdate),
}

func init() {
	moduleCmd.AddCommand(moduleListCmd, moduleUpdateCmd)
}

func runModuleList(c *cliutil.Context, _ *cobra.Command, _ []string) error {
	f, err := c.Formatter()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(c.Workspace.Modules))
	for _, m := range c.Workspace.Modules {
		rows = append(rows, []string{m.Name, m.Source, m.Ref})
	}
	return f.Write([]string{"MODULE", "SOURCE", "REF"}, rows)
}

func runModuleUpdate(c *cliutil.Context, _ *cobra.Command, args []string) error {
	lf, err := lockfile.Load(c.Engine.Paths.LockfilePath)
	if err != nil {
		return err
	}

	targets := c.Workspace.Modules
	if len(args) == 1 {
		decl, ok := c.Workspace.ModuleByName(args[0])
		if !ok {
			return fmt.Errorf("no module named %q in this workspace", args[0])
		}
		targets = []config.ModuleDecl{decl}
	}

	for _, decl := range targets {
		if err := updateOne(c, decl, lf); err != nil {
			return err
		}
	}
	return lockfile.Save(c.Engine.Paths.LockfilePath, lf)
}

// updateOne re-resolves decl, skipping local-path modules (which have
// no ref to advance and no cache entry to refresh).
func updateOne(c *cliutil.Context, decl config.ModuleDecl, lf *lockfile.Lockfile) error {
	if resolve.IsLocalPath(decl.Source) {
		fmt.Fprintf(c.Stdout, "module %s is a local-path source, nothing to update\n", decl.Name)
		return nil
	}
	path, err := c.Engine.Resolver.Refresh(c.Ctx, decl.Source, decl.Ref, lf)
	if err != nil {
		return fmt.Errorf("updating module %q: %w", decl.Name, err)
	}
	fmt.Fprintf(c.Stdout, "module %s updated at %s\n", decl.Name, path)
	return nil
}
