// Package resolve implements the module resolver (spec.md 4.B):
// resolve(source, ref) -> local-path, backed by in-process git plumbing
// rather than a subprocess, grounded on invowk's pkg/invowkmod.GitFetcher.
package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/weaver-dev/weaver/internal/lockfile"
)

// Resolver resolves module sources into local checkouts under StoreDir,
// caching by (source, ref) so repeated applies make no network calls.
type Resolver struct {
	StoreDir string

	auth transport.AuthMethod
}

// New returns a Resolver rooted at storeDir (typically
// "<user-home>/.rw/store"), probing for SSH and HTTP auth the way
// invowk's GitFetcher.setupAuth does.
func New(storeDir string) *Resolver {
	r := &Resolver{StoreDir: storeDir}
	r.auth = firstNonNil(trySSHAuth(), tryHTTPAuth())
	return r
}

// Resolve returns the local path of source checked out at ref, cloning
// into the cache on a miss. lf, if non-nil, is consulted and updated per
// spec.md 4.B point 3: a lockfile ref disagreement never blocks the
// current apply, but the resulting checksum is written back on success.
func (r *Resolver) Resolve(ctx context.Context, source, ref string, lf *lockfile.Lockfile) (string, error) {
	cachePath := r.cachePath(source, ref)

	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return "", fmt.Errorf("creating module cache directory: %w", err)
	}

	repo, cloneErr := git.PlainCloneContext(ctx, cachePath, false, &git.CloneOptions{
		URL:  source,
		Auth: r.auth,
	})
	if cloneErr != nil {
		_ = os.RemoveAll(cachePath)
		return "", fmt.Errorf("cloning module source %q: %w", source, cloneErr)
	}

	commit, checkoutErr := checkoutRef(repo, ref)
	if checkoutErr != nil {
		_ = os.RemoveAll(cachePath)
		return "", fmt.Errorf("checking out %q at ref %q: %w", source, ref, checkoutErr)
	}

	if lf != nil {
		lf.SetModule(source, lockfile.ModuleLock{Source: source, Ref: ref, Checksum: commit})
	}

	return cachePath, nil
}

// ResolveCached behaves like Resolve but, on a clone failure, falls back
// to an existing cached copy instead of failing outright (spec.md 4.B's
// offline-fallback semantics: "a clone failure when a cached copy exists
// is logged as a warning and the cached copy is used").
func (r *Resolver) ResolveCached(ctx context.Context, source, ref string, lf *lockfile.Lockfile) (string, error) {
	cachePath := r.cachePath(source, ref)
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	path, err := r.Resolve(ctx, source, ref, lf)
	if err != nil {
		if _, statErr := os.Stat(cachePath); statErr == nil {
			slog.Warn("module fetch failed, falling back to cached copy", "source", source, "ref", ref, "error", err)
			return cachePath, nil
		}
		return "", err
	}
	return path, nil
}

// Refresh discards any cached checkout of (source, ref) and re-clones it,
// used by `weaver module update` to pull new commits pushed to a branch
// ref whose name hasn't changed (a plain Resolve call would return the
// stale cache unconditionally, since the cache key is (source, ref)).
func (r *Resolver) Refresh(ctx context.Context, source, ref string, lf *lockfile.Lockfile) (string, error) {
	if err := os.RemoveAll(r.cachePath(source, ref)); err != nil {
		return "", fmt.Errorf("clearing cached checkout of %q@%q: %w", source, ref, err)
	}
	return r.Resolve(ctx, source, ref, lf)
}

func (r *Resolver) cachePath(source, ref string) string {
	return filepath.Join(r.StoreDir, url.PathEscape(source), ref)
}

func checkoutRef(repo *git.Repository, ref string) (string, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	hash, err := resolveHash(repo, ref)
	if err != nil {
		return "", err
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}
	return hash.String(), nil
}

func resolveHash(repo *git.Repository, ref string) (plumbing.Hash, error) {
	candidates := []plumbing.ReferenceName{
		plumbing.NewTagReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewRemoteReferenceName("origin", ref),
	}
	for _, name := range candidates {
		if r, err := repo.Reference(name, true); err == nil {
			if tagObj, err := repo.TagObject(r.Hash()); err == nil {
				return tagObj.Target, nil
			}
			return r.Hash(), nil
		}
	}
	if h := plumbing.NewHash(ref); !h.IsZero() {
		if _, err := repo.CommitObject(h); err == nil {
			return h, nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("ref %q not found as tag, branch, or commit", ref)
}

func trySSHAuth() transport.AuthMethod {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

func tryHTTPAuth() transport.AuthMethod {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "gitlab-ci-token", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}
	return nil
}

func firstNonNil(methods ...transport.AuthMethod) transport.AuthMethod {
	for _, m := range methods {
		if m != nil {
			return m
		}
	}
	return nil
}

// ChecksumDir returns a deterministic lowercase hex SHA-256 digest over
// every regular file under root (relative path and content, visited in
// the same lexical order os.ReadDir already guarantees), used as the
// Lockfile checksum for a local-path ModuleDecl.Source in place of the
// git commit hash Resolve records for a cloned one.
func ChecksumDir(root string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00", filepath.ToSlash(rel))

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(h, f)
		f.Close()
		if copyErr != nil {
			return copyErr
		}
		h.Write([]byte{0})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hashing module directory %q: %w", root, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsLocalPath reports whether source looks like a filesystem path rather
// than a remote git URL (no scheme, no scp-like "host:path" form).
func IsLocalPath(source string) bool {
	if strings.Contains(source, "://") {
		return false
	}
	if strings.HasPrefix(source, "git@") {
		return false
	}
	return strings.HasPrefix(source, "/") || strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") || strings.HasPrefix(source, "~")
}
