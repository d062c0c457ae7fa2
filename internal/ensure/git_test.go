package ensure

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubmoduleEnsure_RequiresAllFields(t *testing.T) {
	_, err := newSubmoduleEnsure(map[string]any{"path": "vendor/lib"})
	assert.Error(t, err)
}

func TestNewClonePinnedEnsure_RequiresAllFields(t *testing.T) {
	_, err := newClonePinnedEnsure(map[string]any{"url": "https://example.com/lib.git"})
	assert.Error(t, err)
}

func TestClonePinnedEnsure_PlanProposesCloneWhenAbsent(t *testing.T) {
	e, err := newClonePinnedEnsure(map[string]any{"path": "vendor/lib", "url": "https://example.com/lib.git", "ref": "v1.0.0"})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), Context{AppPath: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 2)
}

func TestSubmoduleEnsure_PlanProposesAddWhenAbsent(t *testing.T) {
	e, err := newSubmoduleEnsure(map[string]any{"path": "vendor/lib", "url": "https://example.com/lib.git", "ref": "main"})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), Context{AppPath: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 2)
}

func TestClonePinnedEnsure_PlanDetectsExistingWorktreeAndDirtyState(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	appDir := t.TempDir()
	target := filepath.Join(appDir, "vendor", "lib")
	require.NoError(t, runGit(context.Background(), "", "init", target))
	require.NoError(t, writeDirtyFile(target))

	e, err := newClonePinnedEnsure(map[string]any{"path": "vendor/lib", "url": "https://example.com/lib.git", "ref": "main"})
	require.NoError(t, err)

	_, err = e.Plan(context.Background(), Context{AppPath: appDir})
	assert.Error(t, err)
}

func TestIsGitWorktree(t *testing.T) {
	assert.False(t, isGitWorktree(t.TempDir()))
}

func writeDirtyFile(dir string) error {
	return os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("dirty"), 0o644)
}
