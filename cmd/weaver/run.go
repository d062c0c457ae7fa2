package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/module"
)

var runCmd = &cobra.Command{
	Use:                "run <app> <task> [-- args...]",
	Short:              "Run one of an app's module-declared tasks",
	Args:               cobra.MinimumNArgs(2),
	DisableFlagParsing: true,
	RunE:               cliutil.Wrap(runRun),
}

func runRun(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	appName, taskName, extra := args[0], args[1], args[2:]
	if len(extra) > 0 && extra[0] == "--" {
		extra = extra[1:]
	}

	appDecl, ok := findApp(c.Workspace, appName)
	if !ok {
		return fmt.Errorf("no app named %q in this workspace", appName)
	}
	decl, ok := c.Workspace.ModuleByName(appDecl.Module)
	if !ok {
		return fmt.Errorf("app %q references unknown module %q", appName, appDecl.Module)
	}

	lf, err := lockfile.Load(c.Engine.Paths.LockfilePath)
	if err != nil {
		return err
	}
	modPath, err := c.Engine.ResolveModulePath(c.Ctx, decl, lf)
	if err != nil {
		return err
	}
	manifest, err := module.LoadManifest(modPath)
	if err != nil {
		return err
	}
	task, ok := manifest.Tasks[taskName]
	if !ok {
		return fmt.Errorf("module %q declares no task named %q", appDecl.Module, taskName)
	}

	appPath := appDecl.Path
	if !filepath.IsAbs(appPath) {
		appPath = filepath.Join(c.WorkspaceDir, appPath)
	}

	command := task.Command
	if len(extra) > 0 {
		command = command + " " + strings.Join(extra, " ")
	}

	ex := exec.CommandContext(c.Ctx, "sh", "-c", command)
	ex.Dir = appPath
	ex.Stdout = c.Stdout
	ex.Stderr = c.Stderr
	ex.Stdin = os.Stdin
	return ex.Run()
}
