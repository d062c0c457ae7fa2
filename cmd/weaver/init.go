package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new weaver.yaml in the current workspace",
	Long: `init writes a starter weaver.yaml with one module and one app,
prompting interactively for the module source unless --no-interactive
is set.`,
	RunE: cliutil.WrapNoConfig(runInit),
}

func init() {
	initCmd.Flags().String("module-source", "", "git source (or local path) for the initial module")
	initCmd.Flags().String("module-ref", "main", "ref to check out for the initial module")
	initCmd.Flags().Bool("no-interactive", false, "skip prompts, failing if a required value is missing")
}

func runInit(c *cliutil.Context, cmd *cobra.Command, _ []string) error {
	manifestPath := filepath.Join(c.WorkspaceDir, "weaver.yaml")
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("%s already exists", manifestPath)
	}

	source, _ := cmd.Flags().GetString("module-source")
	ref, _ := cmd.Flags().GetString("module-ref")
	noInteractive, _ := cmd.Flags().GetBool("no-interactive")

	if source == "" && !noInteractive {
		if err := huh.NewInput().
			Title("Module source (git URL or local path)").
			Value(&source).
			Run(); err != nil {
			return fmt.Errorf("prompting for module source: %w", err)
		}
	}
	if source == "" {
		return fmt.Errorf("--module-source is required with --no-interactive")
	}

	content := fmt.Sprintf(`version: "1"
modules:
  - name: app
    source: %s
    ref: %s
apps:
  - name: app
    module: app
    path: app
`, source, ref)

	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", manifestPath, err)
	}
	fmt.Fprintf(c.Stdout, "wrote %s\n", manifestPath)
	return nil
}
