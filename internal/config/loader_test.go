package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWorkspace_MergesIncludesInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "b.yaml", `
apps:
  - name: b-app
    module: m
    path: b
`)
	writeYAML(t, dir, "a.yaml", `
apps:
  - name: a-app
    module: m
    path: a
`)
	root := writeYAML(t, dir, "weaver.yaml", `
version: "1"
modules:
  - name: m
    source: file://./mod
    ref: main
includes:
  - "*.yaml"
apps: []
`)

	ws, err := LoadWorkspace(root)
	require.NoError(t, err)
	assert.Len(t, ws.Apps, 2)
}

func TestMergedYAML_IsByteIdenticalAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "extra.yaml", `
apps:
  - name: extra
    module: m
    path: extra
`)
	root := writeYAML(t, dir, "weaver.yaml", `
version: "1"
modules:
  - name: m
    source: file://./mod
    ref: main
includes:
  - "*.yaml"
apps: []
`)

	first, err := MergedYAML(root)
	require.NoError(t, err)
	second, err := MergedYAML(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate_DuplicateAppNames(t *testing.T) {
	ws := &Workspace{
		Modules: []ModuleDecl{{Name: "m", Source: "file://./mod", Ref: "main"}},
		Apps: []AppDecl{
			{Name: "dup", Module: "m", Path: "a"},
			{Name: "dup", Module: "m", Path: "b"},
		},
	}
	err := Validate(ws)
	assert.Error(t, err)
}

func TestValidate_UnknownModule(t *testing.T) {
	ws := &Workspace{
		Apps: []AppDecl{{Name: "app", Module: "missing", Path: "a"}},
	}
	err := Validate(ws)
	assert.Error(t, err)
}

func TestValidate_PluginSourceExclusivity(t *testing.T) {
	both := &Workspace{
		Plugins: map[string]Plugin{
			"docker": {GitSource: "https://example.com/p.git", LocalPath: "/local/p"},
		},
	}
	assert.Error(t, Validate(both))

	neither := &Workspace{
		Plugins: map[string]Plugin{"docker": {}},
	}
	assert.Error(t, Validate(neither))

	exactlyOne := &Workspace{
		Plugins: map[string]Plugin{"docker": {LocalPath: "/local/p"}},
	}
	assert.NoError(t, Validate(exactlyOne))
}
