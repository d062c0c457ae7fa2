package ensure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// npmScriptEnsure implements npm.script: the package.json scripts.<name>
// entry is set to the desired command if it differs.
type npmScriptEnsure struct {
	name    string
	command string
}

func newNpmScriptEnsure(config map[string]any) (Ensure, error) {
	e := &npmScriptEnsure{
		name:    stringField(config, "name"),
		command: stringField(config, "command"),
	}
	if e.name == "" || e.command == "" {
		return nil, fmt.Errorf("npm.script requires name and command")
	}
	return e, nil
}

func (e *npmScriptEnsure) packageJSON(ectx Context) string {
	return filepath.Join(ectx.AppPath, "package.json")
}

func (e *npmScriptEnsure) current(ectx Context) (string, error) {
	path := e.packageJSON(ectx)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("npm.script: reading %s: %w", path, err)
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("npm.script: parsing %s: %w", path, err)
	}
	return pkg.Scripts[e.name], nil
}

func (e *npmScriptEnsure) Plan(ctx context.Context, ectx Context) (*Plan, error) {
	current, err := e.current(ectx)
	if err != nil {
		return nil, err
	}
	if current == e.command {
		return &Plan{Description: fmt.Sprintf("npm script %q already set to %q (no action)", e.name, e.command)}, nil
	}
	return &Plan{
		Description: fmt.Sprintf("Set npm script '%s' to '%s'", e.name, e.command),
		Actions:     []string{fmt.Sprintf("npm pkg set scripts.%s=%s", e.name, e.command)},
	}, nil
}

func (e *npmScriptEnsure) Execute(ctx context.Context, ectx Context) error {
	current, err := e.current(ectx)
	if err != nil {
		return err
	}
	if current == e.command || ectx.DryRun {
		return nil
	}
	cmd := exec.CommandContext(ctx, "npm", "pkg", "set", fmt.Sprintf("scripts.%s=%s", e.name, e.command))
	cmd.Dir = ectx.AppPath
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("npm.script: %w: %s", err, out)
	}
	return nil
}
