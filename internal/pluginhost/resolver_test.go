package pluginhost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaver-dev/weaver/internal/weavererr"
)

func writeWasm(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestChain_TriesLinksInOrder(t *testing.T) {
	dir := t.TempDir()
	localDir := filepath.Join(dir, "local")
	writeWasm(t, filepath.Join(localDir, "plugin.wasm"), "local-bytes")

	cacheRoot := filepath.Join(dir, "cache")

	chain := NewChain(LocalResolver{}, CacheResolver{CacheRoot: cacheRoot})

	resolved, err := chain.Resolve(context.Background(), Declaration{Name: "docker", LocalPath: localDir})
	require.NoError(t, err)
	assert.Equal(t, "local", resolved.Version)
	assert.Equal(t, "local", resolved.Metadata.BuildMethod)
}

func TestChain_FallsThroughToNextLink(t *testing.T) {
	dir := t.TempDir()
	cacheRoot := filepath.Join(dir, "cache")
	writeWasm(t, filepath.Join(cacheRoot, "docker", "v1", "plugin.wasm"), "cached-bytes")

	chain := NewChain(LocalResolver{}, CacheResolver{CacheRoot: cacheRoot})

	resolved, err := chain.Resolve(context.Background(), Declaration{Name: "docker", Version: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "v1", resolved.Version)
	assert.Equal(t, "cached", resolved.Metadata.BuildMethod)
}

func TestChain_NoResolverMatchesIsError(t *testing.T) {
	chain := NewChain(LocalResolver{})
	_, err := chain.Resolve(context.Background(), Declaration{Name: "docker", Version: "v1"})
	assert.Error(t, err)
}

func TestCacheResolver_OfflineModeMissIsPluginNotCached(t *testing.T) {
	dir := t.TempDir()
	r := CacheResolver{CacheRoot: dir, OfflineMode: true}
	_, err := r.Resolve(context.Background(), Declaration{Name: "docker", Version: "v1"})
	require.Error(t, err)

	var notCached *weavererr.PluginNotCached
	assert.True(t, errors.As(err, &notCached))
}

func TestDevModeResolver_AscendsUpToTwoLevels(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeWasm(t, filepath.Join(dir, "a", "plugins", "docker", "plugin.wasm"), "dev-bytes")

	r := DevModeResolver{StartDir: nested}
	resolved, err := r.Resolve(context.Background(), Declaration{Name: "docker", GitSource: "https://example.com/docker.git"})
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "dev", resolved.Version)
}

func TestDevModeResolver_IgnoresNonGitDeclarations(t *testing.T) {
	r := DevModeResolver{StartDir: t.TempDir()}
	resolved, err := r.Resolve(context.Background(), Declaration{Name: "docker", LocalPath: "/local"})
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestChecksum_And_VerifyAgainstLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.wasm")
	writeWasm(t, path, "hello")

	sum, err := Checksum(path)
	require.NoError(t, err)

	assert.NoError(t, VerifyAgainstLock("docker", path, sum))
	assert.Error(t, VerifyAgainstLock("docker", path, "wrong-digest"))
}
