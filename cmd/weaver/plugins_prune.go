package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/lockfile"
)

var pluginsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached plugin versions no longer referenced by the lockfile",
	RunE:  cliutil.Wrap(runPluginsPrune),
}

func runPluginsPrune(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	root, err := globalCacheRoot()
	if err != nil {
		return err
	}

	lf, err := lockfile.Load(c.Engine.Paths.LockfilePath)
	if err != nil {
		return err
	}
	keep := make(map[string]map[string]bool)
	for name, lock := range lf.Plugins {
		if keep[name] == nil {
			keep[name] = make(map[string]bool)
		}
		keep[name][lock.Version] = true
	}

	names, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	removed := 0
	for _, nameEnt := range names {
		if !nameEnt.IsDir() {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(root, nameEnt.Name()))
		if err != nil {
			continue
		}
		for _, verEnt := range versions {
			if !verEnt.IsDir() {
				continue
			}
			if keep[nameEnt.Name()][verEnt.Name()] {
				continue
			}
			path := filepath.Join(root, nameEnt.Name(), verEnt.Name())
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("removing %s: %w", path, err)
			}
			fmt.Fprintf(c.Stdout, "removed %s/%s\n", nameEnt.Name(), verEnt.Name())
			removed++
		}
	}
	if removed == 0 {
		fmt.Fprintln(c.Stdout, "nothing to prune")
	}
	return nil
}
