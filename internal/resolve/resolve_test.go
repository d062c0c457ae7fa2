package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaver-dev/weaver/internal/lockfile"
)

func initRepo(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "weaver.module.yaml"), []byte(content), 0o644))
	_, err = wt.Add("weaver.module.yaml")
	require.NoError(t, err)

	_, err = wt.Commit("seed", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

func TestResolve_ClonesOnceAndCachesOnSecondCall(t *testing.T) {
	source := initRepo(t, "inputs: {}\n")
	store := t.TempDir()
	r := New(store)

	first, err := r.Resolve(context.Background(), source, "master", nil)
	require.NoError(t, err)

	info, err := os.Stat(first)
	require.NoError(t, err)
	firstModTime := info.ModTime()

	second, err := r.Resolve(context.Background(), source, "master", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info2, err := os.Stat(second)
	require.NoError(t, err)
	assert.Equal(t, firstModTime, info2.ModTime())
}

func TestResolve_WritesLockfileEntry(t *testing.T) {
	source := initRepo(t, "inputs: {}\n")
	store := t.TempDir()
	r := New(store)
	lf := lockfile.New()

	_, err := r.Resolve(context.Background(), source, "master", lf)
	require.NoError(t, err)

	lock, ok := lf.Module(source)
	require.True(t, ok)
	assert.NotEmpty(t, lock.Checksum)
	assert.Equal(t, "master", lock.Ref)
}

func TestRefresh_PicksUpNewCommit(t *testing.T) {
	source := initRepo(t, "inputs: {}\n")
	store := t.TempDir()
	r := New(store)
	lf := lockfile.New()

	_, err := r.Resolve(context.Background(), source, "master", lf)
	require.NoError(t, err)
	firstLock, ok := lf.Module(source)
	require.True(t, ok)
	firstChecksum := firstLock.Checksum

	repo, err := git.PlainOpen(source)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(source, "weaver.module.yaml"), []byte("inputs: {x: {type: string}}\n"), 0o644))
	_, err = wt.Add("weaver.module.yaml")
	require.NoError(t, err)
	_, err = wt.Commit("update", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	path, err := r.Refresh(context.Background(), source, "master", lf)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(path, "weaver.module.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "x:")

	secondLock, ok := lf.Module(source)
	require.True(t, ok)
	assert.NotEqual(t, firstChecksum, secondLock.Checksum)
}

func TestIsLocalPath(t *testing.T) {
	assert.True(t, IsLocalPath("./modules/app"))
	assert.True(t, IsLocalPath("../modules/app"))
	assert.True(t, IsLocalPath("/srv/modules/app"))
	assert.False(t, IsLocalPath("https://example.com/app.git"))
	assert.False(t, IsLocalPath("git@github.com:org/app.git"))
}
