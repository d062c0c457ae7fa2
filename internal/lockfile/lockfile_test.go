package lockfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsNew(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(filepath.Join(dir, "lockfile.yaml"))
	require.NoError(t, err)
	assert.Equal(t, formatVersion, lf.Version)
	assert.Empty(t, lf.Modules)
	assert.Empty(t, lf.Plugins)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockfile.yaml")

	lf := New()
	lf.SetModule("app", ModuleLock{Source: "git:example.com/app", Ref: "main", Checksum: "abc123"})
	lf.SetPlugin("docker", PluginLock{Version: "1.2.3", Source: "registry:docker", SHA256: "deadbeef", ResolvedAt: time.Now().UTC().Truncate(time.Second)})

	require.NoError(t, Save(path, lf))

	loaded, err := Load(path)
	require.NoError(t, err)

	m, ok := loaded.Module("app")
	require.True(t, ok)
	assert.Equal(t, "abc123", m.Checksum)

	p, ok := loaded.Plugin("docker")
	require.True(t, ok)
	assert.Equal(t, "1.2.3", p.Version)
	assert.Equal(t, "deadbeef", p.SHA256)
}

func TestSetModule_OverwritesByName(t *testing.T) {
	lf := New()
	lf.SetModule("app", ModuleLock{Checksum: "old"})
	lf.SetModule("app", ModuleLock{Checksum: "new"})

	m, ok := lf.Module("app")
	require.True(t, ok)
	assert.Equal(t, "new", m.Checksum)
}

func TestModuleSource(t *testing.T) {
	assert.Equal(t, "path:/srv/app", ModuleSource("file:///srv/app"))
	assert.Equal(t, "git:https://example.com/app.git", ModuleSource("https://example.com/app.git"))
}

func TestPluginSource(t *testing.T) {
	assert.Equal(t, "path:/plugins/docker", PluginSource("path", "/plugins/docker"))
	assert.Equal(t, "git:https://example.com/plugin.git", PluginSource("git", "https://example.com/plugin.git"))
	assert.Equal(t, "registry:docker", PluginSource("registry", "docker"))
}
