package wasm

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/weaver-dev/weaver/internal/wasm/hostfuncs"
	"github.com/weaver-dev/weaver/internal/wireformat"
)

// Plugin is a compiled WASM ensure plugin. Every plan()/execute() call
// gets a freshly instantiated module: this is what makes concurrent
// calls into the same Plugin safe without any locking in this type.
type Plugin struct {
	name    string
	module  wazero.CompiledModule
	runtime wazero.Runtime
}

// Name returns the plugin's name.
func (p *Plugin) Name() string { return p.name }

func (p *Plugin) moduleConfig() wazero.ModuleConfig {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	return wazero.NewModuleConfig().
		WithFSConfig(wazero.NewFSConfig().WithDirMount(cwd, "/")).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader).
		WithStderr(os.Stderr).
		WithStdout(os.Stderr)
}

func (p *Plugin) newInstance(ctx context.Context) (api.Module, error) {
	instance, err := p.runtime.InstantiateModule(ctx, p.module, p.moduleConfig())
	if err != nil {
		return nil, fmt.Errorf("instantiating plugin %s: %w", p.name, err)
	}
	if initFn := instance.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = instance.Close(ctx)
			return nil, fmt.Errorf("initializing plugin %s: %w", p.name, err)
		}
	}
	return instance, nil
}

// Plan calls the plugin's plan(reqPtr) export, returning the
// wireformat.EnsurePlanWire it produces for req.
func (p *Plugin) Plan(ctx context.Context, req wireformat.EnsureRequestWire) (*wireformat.EnsurePlanWire, error) {
	var plan wireformat.EnsurePlanWire
	if err := p.call(ctx, "plan", req, &plan); err != nil {
		return nil, err
	}
	if plan.Error != nil {
		return nil, plan.Error
	}
	return &plan, nil
}

// Execute calls the plugin's execute(reqPtr) export. A non-nil
// wireformat.ErrorDetail in the reply is returned as the error.
func (p *Plugin) Execute(ctx context.Context, req wireformat.EnsureRequestWire) error {
	var resp wireformat.EnsureErrorWire
	if err := p.call(ctx, "execute", req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

func (p *Plugin) call(ctx context.Context, export string, req any, out any) error {
	ctx = hostfuncs.WithPluginName(ctx, p.name)

	instance, err := p.newInstance(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = instance.Close(ctx) }()

	fn := instance.ExportedFunction(export)
	if fn == nil {
		return fmt.Errorf("plugin %s does not export %s()", p.name, export)
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", export, err)
	}
	reqPtr, err := p.writeToMemory(ctx, instance, reqData)
	if err != nil {
		return fmt.Errorf("writing %s request to guest memory: %w", export, err)
	}
	defer func() {
		if dealloc := instance.ExportedFunction("deallocate"); dealloc != nil {
			_, _ = dealloc.Call(ctx, uint64(reqPtr), uint64(len(reqData)))
		}
	}()

	results, err := fn.Call(ctx, packPtrLen(reqPtr, uint32(len(reqData))))
	if err != nil {
		return fmt.Errorf("calling %s(): %w", export, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("%s() returned no results", export)
	}

	resPtr, resLen := unpackPtrLen(results[0])
	if resPtr == 0 || resLen == 0 {
		return fmt.Errorf("%s() returned a null result", export)
	}
	data, err := p.readFromMemory(ctx, instance, resPtr, resLen)
	if err != nil {
		return fmt.Errorf("reading %s() result: %w", export, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s() result: %w", export, err)
	}
	return nil
}

func (p *Plugin) readFromMemory(ctx context.Context, instance api.Module, ptr, size uint32) ([]byte, error) {
	defer func() {
		if dealloc := instance.ExportedFunction("deallocate"); dealloc != nil {
			_, _ = dealloc.Call(ctx, uint64(ptr), uint64(size))
		}
	}()
	data, ok := instance.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("reading memory at offset %d", ptr)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func (p *Plugin) writeToMemory(ctx context.Context, instance api.Module, data []byte) (uint32, error) {
	allocate := instance.ExportedFunction("allocate")
	if allocate == nil {
		return 0, fmt.Errorf("plugin does not export allocate()")
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("allocating guest memory: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocate() returned no results")
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, fmt.Errorf("allocate() returned a null pointer")
	}
	if !instance.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("writing to guest memory at offset %d", ptr)
	}
	return ptr, nil
}

func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
