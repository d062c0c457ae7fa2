package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/ensure"
	"github.com/weaver-dev/weaver/internal/module"
	"github.com/weaver-dev/weaver/internal/resolve"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

// writeModule materializes a minimal module at dir: a manifest with one
// optional input and a single file under files/.
func writeModule(t *testing.T, dir string, manifestYAML string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, module.ManifestFileName), []byte(manifestYAML), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "files"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "file.txt"), []byte("file v1 content"), 0o644))
}

func newTestEngine(t *testing.T, workspaceDir string) *Engine {
	t.Helper()
	resolver := resolve.New(t.TempDir())
	registry := ensure.Default(ensure.NoopPatchGenerator{})
	return NewEngine(resolver, registry, nil, workspaceDir)
}

func simpleWorkspace(modulePath string) *config.Workspace {
	return &config.Workspace{
		Version: "1",
		Modules: []config.ModuleDecl{{Name: "m", Source: modulePath, Ref: "ignored"}},
		Apps:    []config.AppDecl{{Name: "app", Module: "m", Path: "app"}},
	}
}

// S1-ish: a clean apply writes the module's file verbatim and records state.
func TestEngine_Apply_WritesFileAndState(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs: {}\n")

	e := newTestEngine(t, workspaceDir)
	result, err := e.Apply(context.Background(), simpleWorkspace(modulePath), Options{Strategy: "stop"})
	require.NoError(t, err)
	require.Len(t, result.Apps, 1)

	written, err := os.ReadFile(filepath.Join(workspaceDir, "app", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file v1 content", string(written))

	_, err = os.Stat(filepath.Join(workspaceDir, ".rw", "state.yaml"))
	assert.NoError(t, err)
}

// Idempotence: a second clean apply produces only noop actions.
func TestEngine_Apply_SecondRunIsNoop(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs: {}\n")

	e := newTestEngine(t, workspaceDir)
	ws := simpleWorkspace(modulePath)
	_, err := e.Apply(context.Background(), ws, Options{Strategy: "stop"})
	require.NoError(t, err)

	result, err := e.Apply(context.Background(), ws, Options{Strategy: "stop"})
	require.NoError(t, err)
	for _, action := range result.Apps[0].Plan.FileActions {
		assert.Equal(t, "noop", action.Kind, "action for %s", action.Path)
	}
}

// S3-ish: drift stop. A user edit to a managed file causes the next
// apply to fail with DriftDetected under the default "stop" strategy,
// and the user's edit is left untouched.
func TestEngine_Apply_DriftStopsByDefault(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs: {}\n")

	e := newTestEngine(t, workspaceDir)
	ws := simpleWorkspace(modulePath)
	_, err := e.Apply(context.Background(), ws, Options{Strategy: "stop"})
	require.NoError(t, err)

	target := filepath.Join(workspaceDir, "app", "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("user modified content"), 0o644))

	_, err = e.Apply(context.Background(), ws, Options{Strategy: "stop"})
	require.Error(t, err)
	var drift *weavererr.DriftDetected
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, target, drift.Path)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "user modified content", string(content))
}

// S4-ish: apply --strategy overwrite --auto-approve restores the
// module's content over a drifted file.
func TestEngine_Apply_OverwriteRestoresContent(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs: {}\n")

	e := newTestEngine(t, workspaceDir)
	ws := simpleWorkspace(modulePath)
	_, err := e.Apply(context.Background(), ws, Options{Strategy: "stop"})
	require.NoError(t, err)

	target := filepath.Join(workspaceDir, "app", "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("user modified content"), 0o644))

	_, err = e.Apply(context.Background(), ws, Options{Strategy: "overwrite", AutoApprove: true})
	require.NoError(t, err)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "file v1 content", string(content))
}

// Auto-approve alone (without --strategy overwrite) also silently
// permits overwrite, per the Open Question decision in DESIGN.md.
func TestEngine_Apply_AutoApproveAloneOverwrites(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs: {}\n")

	e := newTestEngine(t, workspaceDir)
	ws := simpleWorkspace(modulePath)
	_, err := e.Apply(context.Background(), ws, Options{Strategy: "stop"})
	require.NoError(t, err)

	target := filepath.Join(workspaceDir, "app", "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("user modified content"), 0o644))

	_, err = e.Apply(context.Background(), ws, Options{Strategy: "stop", AutoApprove: true})
	require.NoError(t, err)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "file v1 content", string(content))
}

// S7-ish: a required input with no default, no saved answer, and no
// explicit value fails non-interactively naming the app and key.
func TestEngine_Apply_MissingRequiredInputFails(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs:\n  name:\n    type: string\n    required: true\n")

	e := newTestEngine(t, workspaceDir)
	_, err := e.Apply(context.Background(), simpleWorkspace(modulePath), Options{Strategy: "stop", AutoApprove: true})
	require.Error(t, err)

	var missing *weavererr.MissingRequiredInput
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "app", missing.App)
	assert.Equal(t, "m", missing.Module)
	assert.Equal(t, "name", missing.Key)
}

// Plan mode never writes to disk and never mutates state.
func TestEngine_Plan_DoesNotWrite(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs: {}\n")

	e := newTestEngine(t, workspaceDir)
	result, err := e.Plan(context.Background(), simpleWorkspace(modulePath))
	require.NoError(t, err)
	require.Len(t, result.Apps, 1)
	assert.Equal(t, "create", result.Apps[0].Plan.FileActions[0].Kind)

	_, err = os.Stat(filepath.Join(workspaceDir, "app", "file.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(workspaceDir, ".rw", "state.yaml"))
	assert.True(t, os.IsNotExist(err))
}

// tfvars synthesis: an app with resolved inputs gets a
// terraform.tfvars.json written alongside its files.
func TestEngine_Apply_SynthesizesTfvars(t *testing.T) {
	workspaceDir := t.TempDir()
	modulePath := filepath.Join(workspaceDir, "module-src")
	writeModule(t, modulePath, "inputs:\n  name:\n    type: string\n    default: widget\n")

	e := newTestEngine(t, workspaceDir)
	_, err := e.Apply(context.Background(), simpleWorkspace(modulePath), Options{Strategy: "stop"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(workspaceDir, "app", "terraform.tfvars.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "widget")
}
