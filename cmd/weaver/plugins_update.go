package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/pluginhost"
)

var pluginsUpdateCmd = &cobra.Command{
	Use:   "update [<name>|--all]",
	Short: "Re-resolve one plugin (or every declared plugin) through the resolver chain",
	Args:  cobra.MaximumNArgs(1),
	RunE:  cliutil.Wrap(runPluginsUpdate),
}

func init() {
	pluginsUpdateCmd.Flags().Bool("all", false, "update every plugin declared in the workspace")
}

func runPluginsUpdate(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all && len(args) == 1 {
		return fmt.Errorf("--all and a plugin name are mutually exclusive")
	}
	names := pluginNames(c.Workspace, args)
	if len(names) == 0 {
		fmt.Fprintln(c.Stdout, "no plugins declared in this workspace")
		return nil
	}

	root, err := globalCacheRoot()
	if err != nil {
		return err
	}
	if err := pluginhost.EnsureCacheWritable(root); err != nil {
		return err
	}
	chain := resolverChain(c, root, false)

	lf, err := lockfile.Load(c.Engine.Paths.LockfilePath)
	if err != nil {
		return err
	}

	for _, name := range names {
		p, ok := c.Workspace.Plugins[name]
		if !ok {
			return fmt.Errorf("no plugin named %q in this workspace", name)
		}
		resolved, err := chain.Resolve(c.Ctx, declarationFor(name, p))
		if err != nil {
			return fmt.Errorf("updating plugin %q: %w", name, err)
		}
		lf.SetPlugin(name, lockfile.PluginLock{
			Version:    resolved.Version,
			Source:     resolved.Metadata.SourceURL,
			SHA256:     resolved.Metadata.SHA256,
			ResolvedAt: resolved.Metadata.ResolvedAt,
		})
		fmt.Fprintf(c.Stdout, "plugin %s updated to %s (%s)\n", name, resolved.Version, resolved.Metadata.SHA256[:12])
	}
	return lockfile.Save(c.Engine.Paths.LockfilePath, lf)
}
