// Package wasm hosts WASM ensure plugins: one wazero.Runtime per process,
// a fresh module instance per plan()/execute() call (spec.md 4.D).
package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/weaver-dev/weaver/internal/wasm/hostfuncs"
)

// Runtime owns the wazero runtime and the set of compiled plugins loaded
// into it, keyed by plugin name.
type Runtime struct {
	runtime wazero.Runtime
	plugins map[string]*Plugin
}

// NewRuntime creates a WASM runtime whose exec host function is gated by
// checker.
func NewRuntime(ctx context.Context, checker hostfuncs.Checker) (*Runtime, error) {
	r := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}

	if err := hostfuncs.Register(ctx, r, checker); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("registering host functions: %w", err)
	}

	return &Runtime{runtime: r, plugins: make(map[string]*Plugin)}, nil
}

// LoadPlugin compiles wasmBytes and caches it under name. Compiling is
// the only thing cached: instances are still created fresh per call.
func (r *Runtime) LoadPlugin(ctx context.Context, name string, wasmBytes []byte) (*Plugin, error) {
	if p, ok := r.plugins[name]; ok {
		return p, nil
	}

	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compiling plugin %s: %w", name, err)
	}

	plugin := &Plugin{name: name, module: compiled, runtime: r.runtime}
	r.plugins[name] = plugin
	return plugin, nil
}

// GetPlugin retrieves a previously loaded plugin by name.
func (r *Runtime) GetPlugin(name string) (*Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// Close closes the underlying wazero runtime.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
