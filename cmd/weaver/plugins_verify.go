package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/pluginhost"
)

var pluginsVerifyCmd = &cobra.Command{
	Use:   "verify [name]",
	Short: "Re-hash cached plugins and compare against the lockfile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  cliutil.Wrap(runPluginsVerify),
}

func runPluginsVerify(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	lf, err := lockfile.Load(c.Engine.Paths.LockfilePath)
	if err != nil {
		return err
	}

	root, err := globalCacheRoot()
	if err != nil {
		return err
	}

	names := pluginNames(c.Workspace, args)
	if len(names) == 0 {
		fmt.Fprintln(c.Stdout, "no plugins declared in this workspace")
		return nil
	}

	failed := false
	for _, name := range names {
		lock, ok := lf.Plugin(name)
		if !ok {
			fmt.Fprintf(c.Stderr, "plugin %q: no lockfile entry, run `weaver plugins update %s` first\n", name, name)
			failed = true
			continue
		}
		p := c.Workspace.Plugins[name]
		version := lock.Version
		var wasmPath string
		if p.HasLocal() {
			wasmPath = p.LocalPath + "/plugin.wasm"
		} else {
			wasmPath = root + "/" + name + "/" + version + "/plugin.wasm"
		}
		if err := pluginhost.VerifyAgainstLock(name, wasmPath, lock.SHA256); err != nil {
			fmt.Fprintf(c.Stderr, "plugin %q: %v\n", name, err)
			failed = true
			continue
		}
		fmt.Fprintf(c.Stdout, "plugin %q: ok (%s)\n", name, lock.SHA256[:12])
	}
	if failed {
		return fmt.Errorf("one or more plugins failed verification")
	}
	return nil
}

// pluginNames returns args if it names exactly one plugin, else every
// plugin declared in ws.
func pluginNames(ws *config.Workspace, args []string) []string {
	if len(args) == 1 {
		return []string{args[0]}
	}
	names := make([]string, 0, len(ws.Plugins))
	for name := range ws.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
