package ensure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePackageJSON(t *testing.T, dir string, scripts map[string]string) {
	t.Helper()
	body := `{"scripts":{`
	first := true
	for k, v := range scripts {
		if !first {
			body += ","
		}
		first = false
		body += `"` + k + `":"` + v + `"`
	}
	body += `}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(body), 0o644))
}

func TestNpmScriptEnsure_PlanNoActionWhenAlreadySet(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, map[string]string{"build": "tsc"})

	e, err := newNpmScriptEnsure(map[string]any{"name": "build", "command": "tsc"})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), Context{AppPath: dir})
	require.NoError(t, err)
	assert.Empty(t, plan.Actions)
}

func TestNpmScriptEnsure_PlanProposesActionWhenDifferent(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, map[string]string{"build": "old-command"})

	e, err := newNpmScriptEnsure(map[string]any{"name": "build", "command": "tsc"})
	require.NoError(t, err)

	plan, err := e.Plan(context.Background(), Context{AppPath: dir})
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 1)
}

func TestNpmScriptEnsure_ExecuteDryRunNeverShellsOut(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, map[string]string{"build": "old-command"})

	e, err := newNpmScriptEnsure(map[string]any{"name": "build", "command": "tsc"})
	require.NoError(t, err)

	err = e.Execute(context.Background(), Context{AppPath: dir, DryRun: true})
	assert.NoError(t, err)
}

func TestNewNpmScriptEnsure_RequiresNameAndCommand(t *testing.T) {
	_, err := newNpmScriptEnsure(map[string]any{"name": "build"})
	assert.Error(t, err)
	_, err = newNpmScriptEnsure(map[string]any{"command": "tsc"})
	assert.Error(t, err)
}

func TestNpmScriptEnsure_MissingPackageJSONErrors(t *testing.T) {
	e, err := newNpmScriptEnsure(map[string]any{"name": "build", "command": "tsc"})
	require.NoError(t, err)

	_, err = e.Plan(context.Background(), Context{AppPath: t.TempDir()})
	assert.Error(t, err)
}
