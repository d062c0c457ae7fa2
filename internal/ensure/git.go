package ensure

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// submoduleEnsure implements git.submodule (spec.md 4.D). It shells out
// to the git binary rather than go-git: it mutates a foreign, app-owned
// repository via `git submodule`, an operation go-git/v5 does not
// implement (unlike internal/resolve, which clones the module cache
// in-process).
type submoduleEnsure struct {
	path string
	url  string
	ref  string
}

func newSubmoduleEnsure(config map[string]any) (Ensure, error) {
	e := &submoduleEnsure{
		path: stringField(config, "path"),
		url:  stringField(config, "url"),
		ref:  stringField(config, "ref"),
	}
	if e.path == "" || e.url == "" || e.ref == "" {
		return nil, fmt.Errorf("git.submodule requires path, url, and ref")
	}
	return e, nil
}

func (e *submoduleEnsure) target(ectx Context) string {
	return filepath.Join(ectx.AppPath, e.path)
}

func (e *submoduleEnsure) Plan(ctx context.Context, ectx Context) (*Plan, error) {
	target := e.target(ectx)
	if isGitWorktree(target) {
		if dirty, err := isDirty(ctx, target); err != nil {
			return nil, err
		} else if dirty {
			return nil, fmt.Errorf("git.submodule: %s has uncommitted changes, refusing to update", target)
		}
		return &Plan{
			Description: fmt.Sprintf("sync and update submodule %s to %s", e.path, e.ref),
			Actions:     []string{"git submodule sync", "git submodule update --init --recursive", fmt.Sprintf("git checkout %s", e.ref)},
		}, nil
	}
	return &Plan{
		Description: fmt.Sprintf("add submodule %s from %s at %s", e.path, e.url, e.ref),
		Actions:     []string{fmt.Sprintf("git submodule add --force %s %s", e.url, e.path), fmt.Sprintf("git checkout %s", e.ref)},
	}, nil
}

func (e *submoduleEnsure) Execute(ctx context.Context, ectx Context) error {
	if ectx.DryRun {
		return nil
	}
	target := e.target(ectx)

	if isGitWorktree(target) {
		if dirty, err := isDirty(ctx, target); err != nil {
			return err
		} else if dirty {
			return fmt.Errorf("git.submodule: %s has uncommitted changes, refusing to update", target)
		}
		if err := runGit(ctx, ectx.AppPath, "submodule", "sync", "--", e.path); err != nil {
			return fmt.Errorf("git.submodule: sync failed: %w", err)
		}
		if err := runGit(ctx, ectx.AppPath, "submodule", "update", "--init", "--recursive", "--", e.path); err != nil {
			// Offline tolerance: a failed update keeps the cached checkout.
			return logAndContinue("git.submodule update failed, keeping existing checkout", err)
		}
		return runGit(ctx, target, "checkout", e.ref)
	}

	if err := runGit(ctx, ectx.AppPath, "submodule", "add", "--force", e.url, e.path); err != nil {
		return fmt.Errorf("git.submodule: add failed: %w", err)
	}
	return runGit(ctx, target, "checkout", e.ref)
}

// clonePinnedEnsure implements git.clone_pinned.
type clonePinnedEnsure struct {
	path string
	url  string
	ref  string
}

func newClonePinnedEnsure(config map[string]any) (Ensure, error) {
	e := &clonePinnedEnsure{
		path: stringField(config, "path"),
		url:  stringField(config, "url"),
		ref:  stringField(config, "ref"),
	}
	if e.path == "" || e.url == "" || e.ref == "" {
		return nil, fmt.Errorf("git.clone_pinned requires path, url, and ref")
	}
	return e, nil
}

func (e *clonePinnedEnsure) target(ectx Context) string {
	return filepath.Join(ectx.AppPath, e.path)
}

func (e *clonePinnedEnsure) Plan(ctx context.Context, ectx Context) (*Plan, error) {
	target := e.target(ectx)
	if isGitWorktree(target) {
		if dirty, err := isDirty(ctx, target); err != nil {
			return nil, err
		} else if dirty {
			return nil, fmt.Errorf("git.clone_pinned: %s has uncommitted changes, refusing to update", target)
		}
		return &Plan{Description: fmt.Sprintf("check out %s at %s", e.path, e.ref), Actions: []string{fmt.Sprintf("git checkout %s", e.ref)}}, nil
	}
	return &Plan{Description: fmt.Sprintf("clone %s into %s at %s", e.url, e.path, e.ref), Actions: []string{fmt.Sprintf("git clone %s %s", e.url, e.path), fmt.Sprintf("git checkout %s", e.ref)}}, nil
}

func (e *clonePinnedEnsure) Execute(ctx context.Context, ectx Context) error {
	if ectx.DryRun {
		return nil
	}
	target := e.target(ectx)

	if isGitWorktree(target) {
		if dirty, err := isDirty(ctx, target); err != nil {
			return err
		} else if dirty {
			return fmt.Errorf("git.clone_pinned: %s has uncommitted changes, refusing to update", target)
		}
		return runGit(ctx, target, "checkout", e.ref)
	}

	if err := runGit(ctx, "", "clone", e.url, target); err != nil {
		if isGitWorktree(target) {
			return logAndContinue("git.clone_pinned clone failed, keeping existing checkout", err)
		}
		return fmt.Errorf("git.clone_pinned: clone failed: %w", err)
	}
	return runGit(ctx, target, "checkout", e.ref)
}

func isGitWorktree(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}

func isDirty(ctx context.Context, path string) (bool, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = path
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("git status in %s: %w", path, err)
	}
	return out.Len() > 0, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %v: %w: %s", args, err, stderr.String())
	}
	return nil
}

func stringField(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}
