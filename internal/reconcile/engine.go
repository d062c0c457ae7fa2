// Package reconcile implements the per-app apply algorithm spec.md 4.E
// fixes: resolve+instantiate, run ensures, walk files/templates, detect
// drift, write, and persist state — tying together the Config Loader,
// Module Resolver, Manifest/App Instantiation, Ensure Registry, State
// Store, and Lockfile packages into one apply/plan entry point.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/weaver-dev/weaver/internal/config"
	"github.com/weaver-dev/weaver/internal/ensure"
	"github.com/weaver-dev/weaver/internal/lockfile"
	"github.com/weaver-dev/weaver/internal/module"
	"github.com/weaver-dev/weaver/internal/resolve"
	"github.com/weaver-dev/weaver/internal/state"
	"github.com/weaver-dev/weaver/internal/weavererr"
)

// Paths locates a workspace's persisted stores, rooted at its .rw/
// directory (spec.md 6).
type Paths struct {
	StatePath    string
	LockfilePath string
	AnswersPath  string
	LockFilePath string // advisory process lock, spec.md 5
}

// DefaultPaths returns the standard .rw/-rooted paths for a workspace root.
func DefaultPaths(workspaceDir string) Paths {
	dir := filepath.Join(workspaceDir, ".rw")
	return Paths{
		StatePath:    filepath.Join(dir, "state.yaml"),
		LockfilePath: filepath.Join(dir, "lockfile.yaml"),
		AnswersPath:  filepath.Join(dir, "answers.yaml"),
		LockFilePath: filepath.Join(dir, "state.lock"),
	}
}

// Options governs one apply/plan invocation.
type Options struct {
	DryRun      bool
	Strategy    string // "stop" (default) or "overwrite"
	AutoApprove bool
}

// Plan mode is apply with DryRun=true and Strategy="stop", never
// auto-approve (spec.md 4.E).
func PlanOptions() Options {
	return Options{DryRun: true, Strategy: "stop", AutoApprove: false}
}

// Engine ties the Module Resolver, Manifest/App Instantiation, Ensure
// Registry, State Store, and Lockfile together.
type Engine struct {
	Resolver     *resolve.Resolver
	Ensures      *ensure.Registry
	Prompter     module.Prompter
	Paths        Paths
	WorkspaceDir string
}

// NewEngine constructs an Engine rooted at workspaceDir, resolving modules
// through resolver and building ensures through ensures.
func NewEngine(resolver *resolve.Resolver, ensures *ensure.Registry, prompter module.Prompter, workspaceDir string) *Engine {
	return &Engine{
		Resolver:     resolver,
		Ensures:      ensures,
		Prompter:     prompter,
		Paths:        DefaultPaths(workspaceDir),
		WorkspaceDir: workspaceDir,
	}
}

// Result is what one apply/plan invocation reports, one AppResult per app
// in the order apps were declared (spec.md 4.E's ordering guarantee).
type Result struct {
	Apps []AppResult
}

// AppResult carries what was planned (or, in plan mode, would be done)
// for one app, plus whether it was actually applied.
type AppResult struct {
	App     string
	Plan    AppPlan
	Applied bool
}

// AppPlan describes the ensure plans and file actions for one app.
type AppPlan struct {
	App         string
	EnsurePlans []EnsurePlanEntry
	FileActions []FileAction
}

// EnsurePlanEntry pairs a manifest-declared ensure's position and type
// with the Plan it produced.
type EnsurePlanEntry struct {
	Index int
	Type  string
	Plan  *ensure.Plan
}

// FileAction records what the write protocol did (or would do) for one
// destination file.
type FileAction struct {
	Path string
	Kind string // "create", "update", "noop", "drift"
}

// Apply runs the full reconciliation algorithm for every app in ws, in
// declaration order. On any per-app error it stops immediately (spec.md
// 4.E/7: "no partial-failure semantics across apps") and does not persist
// state, lockfile, or answers — any individual file already written by a
// prior app, or earlier in the failing app, stays on disk.
func (e *Engine) Apply(ctx context.Context, ws *config.Workspace, opts Options) (*Result, error) {
	runID := uuid.New().String()
	slog.Info("apply started", "run_id", runID, "apps", len(ws.Apps), "dry_run", opts.DryRun)

	if !opts.DryRun {
		if err := os.MkdirAll(filepath.Dir(e.Paths.LockFilePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating workspace .rw directory: %w", err)
		}
		wl := NewWorkspaceLock(e.Paths.LockFilePath)
		acquired, err := wl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquiring workspace lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("another apply already holds the lock at %s", e.Paths.LockFilePath)
		}
		defer wl.Unlock()
	}

	st, err := state.Load(e.Paths.StatePath)
	if err != nil {
		return nil, &weavererr.StateError{Path: e.Paths.StatePath, Err: err}
	}
	lf, err := lockfile.Load(e.Paths.LockfilePath)
	if err != nil {
		return nil, fmt.Errorf("loading lockfile: %w", err)
	}
	answers, err := module.LoadAnswers(e.Paths.AnswersPath)
	if err != nil {
		return nil, fmt.Errorf("loading answers: %w", err)
	}

	prompter := e.Prompter
	if opts.AutoApprove || opts.DryRun {
		// Non-interactive: auto-approve and plan mode never prompt
		// (spec.md 4.C step 4, 4.E plan-mode definition).
		prompter = nil
	}

	result := &Result{}
	for _, appDecl := range ws.Apps {
		appResult, err := e.applyOne(ctx, ws, appDecl, st, lf, answers, opts, prompter)
		if err != nil {
			return result, err
		}
		result.Apps = append(result.Apps, *appResult)
	}

	if opts.DryRun {
		slog.Info("plan finished", "run_id", runID, "apps", len(result.Apps))
		return result, nil
	}

	if err := module.Save(e.Paths.AnswersPath, answers); err != nil {
		return result, fmt.Errorf("saving answers: %w", err)
	}
	if err := lockfile.Save(e.Paths.LockfilePath, lf); err != nil {
		return result, fmt.Errorf("saving lockfile: %w", err)
	}
	if err := state.Save(e.Paths.StatePath, st); err != nil {
		return result, &weavererr.StateError{Path: e.Paths.StatePath, Err: err}
	}
	slog.Info("apply finished", "run_id", runID, "apps", len(result.Apps))
	return result, nil
}

// Plan runs Apply in plan mode (dry-run, strategy stop, never
// auto-approve) and returns what would happen, including a
// *weavererr.DriftDetected error if any managed file has drifted.
func (e *Engine) Plan(ctx context.Context, ws *config.Workspace) (*Result, error) {
	return e.Apply(ctx, ws, PlanOptions())
}

func (e *Engine) applyOne(ctx context.Context, ws *config.Workspace, appDecl config.AppDecl, st *state.State, lf *lockfile.Lockfile, answers *module.Answers, opts Options, prompter module.Prompter) (*AppResult, error) {
	moduleDecl, ok := ws.ModuleByName(appDecl.Module)
	if !ok {
		return nil, &weavererr.UnknownModuleError{App: appDecl.Name, Module: appDecl.Module}
	}

	modulePath, err := e.resolveModulePath(ctx, moduleDecl, lf)
	if err != nil {
		return nil, &weavererr.ResolutionError{Module: moduleDecl.Name, Err: err}
	}

	manifest, err := module.LoadManifest(modulePath)
	if err != nil {
		return nil, &weavererr.ResolutionError{Module: moduleDecl.Name, Err: err}
	}

	resolvedApp, err := module.Instantiate(appDecl.Name, moduleDecl.Name, appDecl.Path, appDecl.Inputs, manifest, answers, prompter)
	if err != nil {
		return nil, fmt.Errorf("instantiating app %q: %w", appDecl.Name, err)
	}

	appPath := resolvedApp.Path
	if !filepath.IsAbs(appPath) {
		appPath = filepath.Join(e.WorkspaceDir, appPath)
	}

	plan := AppPlan{App: appDecl.Name}

	ectx := ensure.Context{AppPath: appPath, DryRun: opts.DryRun, Snapshot: st.ChecksumSnapshot()}

	ensurePlans, err := e.planEnsures(ctx, appDecl.Name, manifest, ectx, opts)
	if err != nil {
		return nil, err
	}
	plan.EnsurePlans = ensurePlans

	if !opts.DryRun {
		for i, cfg := range manifest.Ensures {
			impl, err := e.Ensures.Build(cfg.Type, cfg.Config)
			if err != nil {
				return nil, &weavererr.EnsureError{Ensure: cfg.Type, App: appDecl.Name, Err: err}
			}
			if err := impl.Execute(ctx, ectx); err != nil {
				return nil, &weavererr.EnsureError{Ensure: manifest.Ensures[i].Type, App: appDecl.Name, Err: err}
			}
		}
	}

	fileActions, err := e.filesPass(modulePath, appPath, st, opts)
	if err != nil {
		return nil, err
	}
	plan.FileActions = append(plan.FileActions, fileActions...)

	templateActions, err := e.templatesPass(modulePath, appPath, resolvedApp, st, opts)
	if err != nil {
		return nil, err
	}
	plan.FileActions = append(plan.FileActions, templateActions...)

	if len(resolvedApp.Inputs) > 0 {
		tfvarsAction, err := e.tfvarsPass(appPath, resolvedApp, st, opts)
		if err != nil {
			return nil, err
		}
		plan.FileActions = append(plan.FileActions, *tfvarsAction)
	}

	return &AppResult{App: appDecl.Name, Plan: plan, Applied: !opts.DryRun}, nil
}

// planEnsures computes every ensure's Plan for one app. In plan mode
// (opts.DryRun) this is pure observation — no mutation occurs — so it
// fans the manifest's ensures out across a bounded errgroup, grounded on
// reglet's executeObservationsParallel/errgroup.SetLimit pattern
// (internal/engine/engine.go); an apply's mutating Execute pass, by
// contrast, stays strictly sequential per spec.md 5's concurrency model.
func (e *Engine) planEnsures(ctx context.Context, appName string, manifest *module.Manifest, ectx ensure.Context, opts Options) ([]EnsurePlanEntry, error) {
	entries := make([]EnsurePlanEntry, len(manifest.Ensures))

	if !opts.DryRun || len(manifest.Ensures) <= 1 {
		for i, cfg := range manifest.Ensures {
			ePlan, err := e.planOne(ctx, appName, cfg, ectx)
			if err != nil {
				return nil, err
			}
			entries[i] = EnsurePlanEntry{Index: i, Type: cfg.Type, Plan: ePlan}
		}
		return entries, nil
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, cfg := range manifest.Ensures {
		i, cfg := i, cfg
		group.Go(func() error {
			ePlan, err := e.planOne(gctx, appName, cfg, ectx)
			if err != nil {
				return err
			}
			entries[i] = EnsurePlanEntry{Index: i, Type: cfg.Type, Plan: ePlan}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *Engine) planOne(ctx context.Context, appName string, cfg module.EnsureConfig, ectx ensure.Context) (*ensure.Plan, error) {
	impl, err := e.Ensures.Build(cfg.Type, cfg.Config)
	if err != nil {
		return nil, &weavererr.EnsureError{Ensure: cfg.Type, App: appName, Err: err}
	}
	ePlan, err := impl.Plan(ctx, ectx)
	if err != nil {
		return nil, &weavererr.EnsureError{Ensure: cfg.Type, App: appName, Err: err}
	}
	return ePlan, nil
}

// ResolveModulePath resolves decl's module source to a local directory,
// exported so callers outside the apply/plan path (list, describe, run)
// can load a module's manifest without duplicating resolution logic.
func (e *Engine) ResolveModulePath(ctx context.Context, decl config.ModuleDecl, lf *lockfile.Lockfile) (string, error) {
	return e.resolveModulePath(ctx, decl, lf)
}

func (e *Engine) resolveModulePath(ctx context.Context, decl config.ModuleDecl, lf *lockfile.Lockfile) (string, error) {
	var root string
	if resolve.IsLocalPath(decl.Source) {
		root = decl.Source
		if !filepath.IsAbs(root) {
			root = filepath.Join(e.WorkspaceDir, root)
		}
		if lf != nil {
			sum, err := resolve.ChecksumDir(root)
			if err != nil {
				return "", fmt.Errorf("checksumming local module %q: %w", decl.Source, err)
			}
			lf.SetModule(decl.Source, lockfile.ModuleLock{Source: decl.Source, Ref: decl.Ref, Checksum: sum})
		}
	} else {
		resolved, err := e.Resolver.ResolveCached(ctx, decl.Source, decl.Ref, lf)
		if err != nil {
			return "", err
		}
		root = resolved
	}
	if decl.Subpath != "" {
		root = filepath.Join(root, decl.Subpath)
	}
	return root, nil
}
