// Package cliutil wires the cobra commands in cmd/weaver to the engine
// packages under internal/. Grounded on the teacher's
// cmd/reglet/command_helper.go withContainer pattern: commands stay
// thin RunE functions focused on business logic, while this package
// owns config loading, logger setup, and dependency construction.
package cliutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weaver-dev/weaver/internal/capability"
	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/ensure"
	"github.com/weaver-dev/weaver/internal/logging"
	"github.com/weaver-dev/weaver/internal/output"
	"github.com/weaver-dev/weaver/internal/reconcile"
	"github.com/weaver-dev/weaver/internal/redact"
	"github.com/weaver-dev/weaver/internal/registry"
	"github.com/weaver-dev/weaver/internal/resolve"
)

// Context carries every dependency a command handler needs: the loaded
// workspace config, the reconciliation engine, and the cross-cutting
// concerns (redaction, output formatting) every command shares.
type Context struct {
	Ctx context.Context

	WorkspaceDir string
	Workspace    *config.Workspace

	Engine   *reconcile.Engine
	Ensures  *ensure.Registry
	Gate     *capability.Gatekeeper
	Redactor *redact.Redactor
	Registry *registry.Client

	Format  string
	NoColor bool

	Stdout, Stderr *redact.Writer
}

// Formatter returns an output.Formatter writing to c's redacted stdout
// in c.Format ("table" by default).
func (c *Context) Formatter() (output.Formatter, error) {
	return output.New(c.Format, c.Stdout, output.Options{NoColor: c.NoColor})
}

// Handler is a command's business logic, run once Context is built.
type Handler func(*Context, *cobra.Command, []string) error

// Wrap adapts handler into a cobra RunE, loading the workspace config
// and constructing every dependency beforehand. Commands that don't
// need a loaded weaver.yaml (e.g. `init`, `version`) should call
// Build directly instead and skip workspace loading themselves.
func Wrap(handler Handler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := Build(cmd, true)
		if err != nil {
			return err
		}
		return handler(c, cmd, args)
	}
}

// WrapNoConfig is Wrap for commands that must run without an existing
// weaver.yaml (init being the main one).
func WrapNoConfig(handler Handler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := Build(cmd, false)
		if err != nil {
			return err
		}
		return handler(c, cmd, args)
	}
}

// Build constructs a Context from cmd's persistent flags: workspace
// directory, output format, color, and (when loadConfig is true) the
// parsed weaver.yaml plus every engine dependency layered on top of it.
func Build(cmd *cobra.Command, loadConfig bool) (*Context, error) {
	workspaceDir, _ := cmd.Flags().GetString("workspace")
	if workspaceDir == "" {
		workspaceDir = "."
	}
	absDir, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace directory: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if j, _ := cmd.Flags().GetBool("json"); j {
		format = "json"
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	if os.Getenv("NO_COLOR") != "" {
		noColor = true
	}

	redactor, err := redact.New(redact.Config{})
	if err != nil {
		slog.Warn("secret redaction disabled: failed to build redactor", "error", err)
		redactor = nil
	}

	c := &Context{
		Ctx:          cmd.Context(),
		WorkspaceDir: absDir,
		Format:       format,
		NoColor:      noColor,
		Redactor:     redactor,
		Stdout:       redact.NewWriter(cmd.OutOrStdout(), redactor),
		Stderr:       redact.NewWriter(cmd.ErrOrStderr(), redactor),
	}

	if !loadConfig {
		return c, nil
	}

	manifestPath := filepath.Join(absDir, "weaver.yaml")
	ws, err := config.LoadWorkspace(manifestPath)
	if err != nil {
		return nil, err
	}
	c.Workspace = ws

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("finding home directory: %w", err)
	}

	resolver := resolve.New(filepath.Join(home, ".rw", "store"))
	c.Registry = registry.New(registry.ResolveURL(ws.Registry.URL))

	ensures := ensure.Default(ensure.NoopPatchGenerator{})
	c.Ensures = ensures

	store := capability.NewFileStore(filepath.Join(absDir, ".rw", "capabilities.yaml"))
	prompter := NewCapabilityPrompter(!quietOrNonInteractive(cmd))
	c.Gate = capability.NewGatekeeper(store, prompter, ws.Security.Level)

	c.Engine = reconcile.NewEngine(resolver, ensures, NewInputPrompter(!quietOrNonInteractive(cmd)), absDir)

	return c, nil
}

// quietOrNonInteractive reports whether prompts should be suppressed:
// --quiet was passed, or stdin is not a terminal.
func quietOrNonInteractive(cmd *cobra.Command) bool {
	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet {
		return true
	}
	return !IsInteractiveStdin()
}

// AddPersistentFlags installs the global flags spec.md 6 lists
// (--no-color, --verbose, --quiet, --json) plus weaver's own
// --workspace/--format/--trust-plugins, mirroring the teacher's
// root.go persistent-flag set.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("workspace", ".", "path to the workspace root (containing weaver.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().Bool("verbose", false, "equivalent to --log-level=debug")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "suppress all log output and interactive prompts")
	cmd.PersistentFlags().Bool("json", false, "shorthand for --format=json")
	cmd.PersistentFlags().String("format", "table", "output format: table, json, yaml")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	cmd.PersistentFlags().Bool("trust-plugins", false, "auto-grant every capability a plugin requests")
}

// SetupLogging wires the --log-level/--verbose/--quiet flags into
// internal/logging, meant to run from a PersistentPreRunE.
func SetupLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	logging.Setup(level, quiet)
}

// BindViper loads a config file (if --config was passed, or
// $HOME/.weaver/config.yaml if it exists) the way the teacher's
// cmd/reglet/root.go initConfig does, so persistent flags can be set
// from environment/config as well as the command line.
func BindViper(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.AddConfigPath(filepath.Join(home, ".weaver"))
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvPrefix("WEAVER")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // optional: silently continue if absent
	return nil
}
