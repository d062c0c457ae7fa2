package ensure

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAIPatchFactory_RequiresVerifyCommand(t *testing.T) {
	factory := NewAIPatchFactory(NoopPatchGenerator{})
	_, err := factory(map[string]any{})
	assert.Error(t, err)
}

func TestAIPatchEnsure_PlanNoActionWhenVerificationPasses(t *testing.T) {
	factory := NewAIPatchFactory(NoopPatchGenerator{})
	e, err := factory(map[string]any{"verify_command": "true"})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), Context{AppPath: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, plan.Actions)
}

func TestAIPatchEnsure_PlanProposesPatchWhenVerificationFails(t *testing.T) {
	factory := NewAIPatchFactory(NoopPatchGenerator{})
	e, err := factory(map[string]any{"verify_command": "false"})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), Context{AppPath: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 3)
}

func TestAIPatchEnsure_ExecuteNoopOnPassingVerification(t *testing.T) {
	factory := NewAIPatchFactory(NoopPatchGenerator{})
	e, err := factory(map[string]any{"verify_command": "true"})
	require.NoError(t, err)

	err = e.Execute(context.Background(), Context{AppPath: t.TempDir()})
	assert.NoError(t, err)
}

func TestAIPatchEnsure_ExecuteDryRunNeverGeneratesPatch(t *testing.T) {
	factory := NewAIPatchFactory(NoopPatchGenerator{})
	e, err := factory(map[string]any{"verify_command": "false"})
	require.NoError(t, err)

	err = e.Execute(context.Background(), Context{AppPath: t.TempDir(), DryRun: true})
	assert.NoError(t, err)
}

func TestAIPatchEnsure_ExecuteFailsWithoutGenerator(t *testing.T) {
	factory := NewAIPatchFactory(NoopPatchGenerator{})
	e, err := factory(map[string]any{"verify_command": "false"})
	require.NoError(t, err)

	err = e.Execute(context.Background(), Context{AppPath: t.TempDir()})
	assert.Error(t, err)
}

type scriptedGenerator struct {
	patch []byte
}

func (g scriptedGenerator) GeneratePatch(ctx context.Context, appPath, verifyOutput string) ([]byte, error) {
	return g.patch, nil
}

func TestAIPatchEnsure_ExecuteAppliesPatchAndReverifies(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	require.NoError(t, runGit(context.Background(), "", "init", dir))
	require.NoError(t, runGit(context.Background(), dir, "config", "user.email", "test@example.com"))
	require.NoError(t, runGit(context.Background(), dir, "config", "user.name", "test"))

	target := filepath.Join(dir, "marker.txt")
	require.NoError(t, os.WriteFile(target, []byte("before\n"), 0o644))
	require.NoError(t, runGit(context.Background(), dir, "add", "marker.txt"))
	require.NoError(t, runGit(context.Background(), dir, "commit", "-m", "seed"))

	require.NoError(t, os.WriteFile(target, []byte("after\n"), 0o644))
	var diffOut bytes.Buffer
	diffCmd := exec.Command("git", "diff")
	diffCmd.Dir = dir
	diffCmd.Stdout = &diffOut
	require.NoError(t, diffCmd.Run())
	require.NoError(t, runGit(context.Background(), dir, "checkout", "--", "marker.txt"))

	factory := NewAIPatchFactory(scriptedGenerator{patch: diffOut.Bytes()})
	e, err := factory(map[string]any{"verify_command": "grep -q after marker.txt"})
	require.NoError(t, err)

	err = e.Execute(context.Background(), Context{AppPath: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(data))
}
