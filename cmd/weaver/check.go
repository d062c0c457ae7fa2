package main

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/expr-lang/expr"
	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check [app]",
	Short: "Run declared checks against the workspace, or one app",
	Long: `check runs every workspace-level check declaration, plus every
per-app check declaration for the named app (or every app, if none is
named). Each check's "when" field is a shell command; a non-zero exit
fails the check. A per-app check's optional "if" field is an expression
gating whether it runs at all for that app (e.g. "app.tags contains
'prod'"); a gated-out check is reported as skipped, not failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: cliutil.Wrap(runCheck),
}

type checkOutcome struct {
	Name    string
	App     string
	Passed  bool
	Skipped bool
	Output  string
}

// checkEnv is the expr-lang evaluation environment for a per-app check's
// If expression (SPEC_FULL 4.A's filter-expression addition), exposing
// the app's declared tags so a workspace can gate checks like
// `if: "app.tags contains 'prod'"`.
type checkEnv struct {
	App struct {
		Name string   `expr:"name"`
		Tags []string `expr:"tags"`
	} `expr:"app"`
}

// shouldRunCheck reports whether chk applies to app, per its optional If
// expression. An empty If always runs.
func shouldRunCheck(chk config.Check, app config.AppDecl) (bool, error) {
	if chk.If == "" {
		return true, nil
	}

	var env checkEnv
	env.App.Name = app.Name
	env.App.Tags = app.Tags

	program, err := expr.Compile(chk.If, expr.Env(checkEnv{}), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compiling check %q's if expression: %w", chk.Name, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating check %q's if expression: %w", chk.Name, err)
	}
	return out.(bool), nil
}

func runCheck(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	var only string
	if len(args) == 1 {
		only = args[0]
		if _, ok := findApp(c.Workspace, only); !ok {
			return fmt.Errorf("no app named %q in this workspace", only)
		}
	}

	var outcomes []checkOutcome

	if only == "" {
		for _, chk := range c.Workspace.Checks {
			outcomes = append(outcomes, runOneCheck(c.Ctx, chk, c.WorkspaceDir))
		}
	}

	for _, app := range c.Workspace.Apps {
		if only != "" && app.Name != only {
			continue
		}
		dir := app.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.WorkspaceDir, dir)
		}
		for _, chk := range app.Checks {
			run, err := shouldRunCheck(chk, app)
			if err != nil {
				return err
			}
			if !run {
				outcomes = append(outcomes, checkOutcome{Name: chk.Name, App: app.Name, Skipped: true})
				continue
			}
			o := runOneCheck(c.Ctx, chk, dir)
			o.App = app.Name
			outcomes = append(outcomes, o)
		}
	}

	f, err := c.Formatter()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(outcomes))
	failed := false
	for _, o := range outcomes {
		status := "pass"
		switch {
		case o.Skipped:
			status = "skip"
		case !o.Passed:
			status = "fail"
			failed = true
		}
		rows = append(rows, []string{o.App, o.Name, status})
	}
	if err := f.Write([]string{"APP", "CHECK", "STATUS"}, rows); err != nil {
		return err
	}
	for _, o := range outcomes {
		if !o.Passed && !o.Skipped {
			fmt.Fprintf(c.Stderr, "check %q failed:\n%s\n", o.Name, o.Output)
		}
	}
	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}

func runOneCheck(ctx context.Context, chk config.Check, dir string) checkOutcome {
	cmd := exec.CommandContext(ctx, "sh", "-c", chk.When)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return checkOutcome{Name: chk.Name, Passed: err == nil, Output: string(out)}
}

func findApp(ws *config.Workspace, name string) (config.AppDecl, bool) {
	for _, a := range ws.Apps {
		if a.Name == name {
			return a, true
		}
	}
	return config.AppDecl{}, false
}
