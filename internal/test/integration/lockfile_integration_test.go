package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/ensure"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/module"
	"github.com/weaver-dev/weaver/internal/reconcile"
	"github.com/weaver-dev/weaver/internal/resolve"
)

// TestApply_GeneratesLockfile exercises the full resolve -> instantiate ->
// apply path against a local-path module and checks that a lockfile.yaml
// entry is written for it, even though the module source is a plain
// directory rather than a git remote.
func TestApply_GeneratesLockfile(t *testing.T) {
	workspaceDir := t.TempDir()

	modulePath := filepath.Join(workspaceDir, "modules", "greeter")
	require.NoError(t, os.MkdirAll(modulePath, 0o755))
	manifest := `
inputs:
  name:
    type: string
    default: world
`
	require.NoError(t, os.WriteFile(filepath.Join(modulePath, module.ManifestFileName), []byte(manifest), 0o644))

	ws := &config.Workspace{
		Version: "1",
		Modules: []config.ModuleDecl{
			{Name: "greeter", Source: modulePath, Ref: "local"},
		},
		Apps: []config.AppDecl{
			{Name: "hello", Module: "greeter", Path: "apps/hello"},
		},
	}

	engine := reconcile.NewEngine(resolve.New(filepath.Join(workspaceDir, ".rw", "store")), ensure.NewRegistry(), nil, workspaceDir)

	ctx := context.Background()
	_, err := engine.Apply(ctx, ws, reconcile.Options{})
	require.NoError(t, err)

	lockPath := engine.Paths.LockfilePath
	require.FileExists(t, lockPath)

	lf, err := lockfile.Load(lockPath)
	require.NoError(t, err)

	lock, ok := lf.Module(modulePath)
	require.True(t, ok, "lockfile should carry an entry for the resolved module source")
	assert.Equal(t, modulePath, lock.Source)
	assert.Equal(t, "local", lock.Ref)
}
