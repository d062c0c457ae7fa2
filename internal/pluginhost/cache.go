package pluginhost

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weaver-dev/weaver/internal/weavererr"
)

// EnsureCacheWritable creates root if needed and verifies it is writable
// by creating and deleting a probe file, per spec.md 4.D's cache
// lifecycle ("on first use the cache root is created and write-tested").
func EnsureCacheWritable(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return &weavererr.CacheNotWritable{Path: root}
	}
	probe := filepath.Join(root, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return &weavererr.CacheNotWritable{Path: root}
	}
	_ = os.Remove(probe)
	return nil
}

// PurgeBrokenSymlinks removes any dangling symlink directly under dir.
// Called once per resolver start against a project's .rw/plugins/
// directory, which may hold symlinks into the global cache.
func PurgeBrokenSymlinks(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			_ = os.Remove(path)
		}
	}
	return nil
}

// Checksum returns the hex-lowercase SHA-256 digest of the file at path.
func Checksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyAgainstLock re-hashes the cached plugin at wasmPath and compares
// it to expectedSHA256, the digest recorded in the lockfile at resolution
// time (spec.md 4.D's "Verification").
func VerifyAgainstLock(name, wasmPath, expectedSHA256 string) error {
	actual, err := Checksum(wasmPath)
	if err != nil {
		return err
	}
	if actual != expectedSHA256 {
		return &weavererr.ChecksumMismatch{Name: name, Expected: expectedSHA256, Actual: actual}
	}
	return nil
}

func cachePath(cacheRoot, name, version string) string {
	return filepath.Join(cacheRoot, name, version, "plugin.wasm")
}
