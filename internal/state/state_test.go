package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsEmptyState(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "state.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.Files)
	assert.False(t, s.Managed("anything"))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")

	s := New()
	now := time.Now().UTC().Truncate(time.Second)
	s.Set("/app/file.txt", "deadbeef", now)

	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Managed("/app/file.txt"))

	rec, ok := loaded.Get("/app/file.txt")
	require.True(t, ok)
	assert.Equal(t, "deadbeef", rec.Checksum)
	assert.True(t, now.Equal(rec.LastUpdated))
}

func TestChecksumSnapshot(t *testing.T) {
	s := New()
	s.Set("/a", "aaa", time.Now())
	s.Set("/b", "bbb", time.Now())

	snap := s.ChecksumSnapshot()
	assert.Equal(t, map[string]string{"/a": "aaa", "/b": "bbb"}, snap)
}

func TestChecksum_MatchesChecksumBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.txt")
	content := []byte("hello weaver")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fromPath, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, ChecksumBytes(content), fromPath)
}
