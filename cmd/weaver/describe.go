package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/cliutil"
	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/module"
	"github.com/weaver-dev/weaver/internal/secret"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

var describeCmd = &cobra.Command{
	Use:   "describe <app>",
	Short: "Describe one app's resolved module, inputs, and tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  cliutil.Wrap(runDescribe),
}

func init() {
	describeCmd.Flags().Bool("show-secrets", false, "reveal sensitive input values instead of masking them")
}

// describeView is what describe --json/--yaml serializes; a plain
// struct so output's JSON/YAML formatters round-trip it losslessly.
type describeView struct {
	App     string                       `json:"app" yaml:"app"`
	Module  string                       `json:"module" yaml:"module"`
	Path    string                       `json:"path" yaml:"path"`
	Inputs  map[string]any               `json:"inputs" yaml:"inputs"`
	Outputs map[string]module.OutputSpec `json:"outputs" yaml:"outputs"`
	Tasks   map[string]module.Task       `json:"tasks" yaml:"tasks"`
}

func runDescribe(c *cliutil.Context, cmd *cobra.Command, args []string) error {
	name := args[0]
	showSecrets, _ := cmd.Flags().GetBool("show-secrets")

	var appDecl *config.AppDecl
	for i, a := range c.Workspace.Apps {
		if a.Name == name {
			appDecl = &c.Workspace.Apps[i]
			break
		}
	}
	if appDecl == nil {
		return fmt.Errorf("no app named %q in this workspace", name)
	}

	decl, ok := c.Workspace.ModuleByName(appDecl.Module)
	if !ok {
		return &weavererr.UnknownModuleError{App: name, Module: appDecl.Module}
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

	answers, err := module.LoadAnswers(c.Engine.Paths.AnswersPath)
	if err != nil {
		return err
	}

	resolved, err := module.Instantiate(name, appDecl.Module, appDecl.Path, appDecl.Inputs, manifest, answers, nil)
	if err != nil {
		return err
	}

	inputs := resolved.Inputs
	if showSecrets {
		inputs = exposeSecrets(resolved.Inputs)
	}

	view := describeView{
		App:     name,
		Module:  appDecl.Module,
		Path:    appDecl.Path,
		Inputs:  inputs,
		Outputs: manifest.Outputs,
		Tasks:   manifest.Tasks,
	}

	if c.Format == "json" || c.Format == "yaml" {
		f, err := c.Formatter()
		if err != nil {
			return err
		}
		return f.WriteValue(view)
	}

	fmt.Fprintf(c.Stdout, "app %s (module %s at %s)\n", view.App, view.Module, view.Path)
	fmt.Fprintln(c.Stdout, "inputs:")
	for k, v := range view.Inputs {
		fmt.Fprintf(c.Stdout, "  %s: %v\n", k, v)
	}
	fmt.Fprintln(c.Stdout, "tasks:")
	for k, t := range view.Tasks {
		fmt.Fprintf(c.Stdout, "  %s: %s\n", k, t.Description)
	}
	return nil
}

// exposeSecrets unwraps any secret.Secret[string] values produced for
// sensitive manifest inputs so --show-secrets actually reveals them,
// rather than printing the masked "***" Stringer output.
func exposeSecrets(inputs map[string]any) map[string]any {
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		if s, ok := v.(secret.Secret[string]); ok {
			out[k] = *s.Expose()
			continue
		}
		out[k] = v
	}
	return out
}
