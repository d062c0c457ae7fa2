package pluginhost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weaver-dev/weaver/internal/weavererr"
)

// Resolver is one link in the plugin resolution chain: it either
// resolves ref itself or delegates to Next.
type Resolver interface {
	Resolve(ctx context.Context, decl Declaration) (*ResolvedPlugin, error)
}

// Chain runs resolvers in order, returning the first non-nil result. A
// resolver signals "not mine" by returning (nil, nil); any other error
// aborts the chain (grounded on the teacher's chain-of-responsibility
// plugin resolvers, generalized into an explicit slice instead of an
// embedded-struct "next" pointer).
type Chain struct {
	links []Resolver
}

// NewChain builds a Chain that tries each resolver in order. spec.md 4.D
// fixes the order: local -> cache -> dev-mode -> registry.
func NewChain(links ...Resolver) *Chain {
	return &Chain{links: links}
}

func (c *Chain) Resolve(ctx context.Context, decl Declaration) (*ResolvedPlugin, error) {
	for _, link := range c.links {
		resolved, err := link.Resolve(ctx, decl)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}
	return nil, fmt.Errorf("plugin %q: no resolver in the chain could resolve it", decl.Name)
}

// LocalResolver handles Declaration.IsLocal(): read <path>/plugin.wasm
// directly; version is always "local" (spec.md 4.D point 1).
type LocalResolver struct{}

func (LocalResolver) Resolve(ctx context.Context, decl Declaration) (*ResolvedPlugin, error) {
	if !decl.IsLocal() {
		return nil, nil
	}
	wasmPath := filepath.Join(decl.LocalPath, "plugin.wasm")
	data, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, fmt.Errorf("reading local plugin %q: %w", decl.Name, err)
	}
	sum := sha256.Sum256(data)
	return &ResolvedPlugin{
		Name:     decl.Name,
		Version:  "local",
		WasmPath: wasmPath,
		Metadata: Metadata{SHA256: hex.EncodeToString(sum[:]), SourceURL: decl.LocalPath, BuildMethod: "local"},
	}, nil
}

// CacheResolver handles a (name, version) cache hit under CacheRoot
// (spec.md 4.D point 2). It never fetches; a miss defers to the next
// link, except in OfflineMode, where a miss is PluginNotCached.
type CacheResolver struct {
	CacheRoot   string
	OfflineMode bool
}

func (c CacheResolver) Resolve(ctx context.Context, decl Declaration) (*ResolvedPlugin, error) {
	if decl.IsLocal() {
		return nil, nil
	}
	version := decl.Version
	if version == "" {
		version = decl.Ref
	}
	wasmPath := filepath.Join(c.CacheRoot, decl.Name, version, "plugin.wasm")
	data, err := os.ReadFile(wasmPath)
	if err != nil {
		if c.OfflineMode {
			return nil, &weavererr.PluginNotCached{Name: decl.Name, Version: version}
		}
		return nil, nil
	}
	sum := sha256.Sum256(data)
	return &ResolvedPlugin{
		Name:     decl.Name,
		Version:  version,
		WasmPath: wasmPath,
		Metadata: Metadata{SHA256: hex.EncodeToString(sum[:]), BuildMethod: "cached"},
	}, nil
}

// DevModeResolver handles spec.md 4.D point 3: for git sources, look for
// a development-mode copy at plugins/<name>/plugin.wasm found by
// ascending from StartDir up to two parent levels.
type DevModeResolver struct {
	StartDir string
}

func (d DevModeResolver) Resolve(ctx context.Context, decl Declaration) (*ResolvedPlugin, error) {
	if !decl.IsGit() {
		return nil, nil
	}
	dir := d.StartDir
	for level := 0; level <= 2; level++ {
		candidate := filepath.Join(dir, "plugins", decl.Name, "plugin.wasm")
		if data, err := os.ReadFile(candidate); err == nil {
			sum := sha256.Sum256(data)
			return &ResolvedPlugin{
				Name:     decl.Name,
				Version:  "dev",
				WasmPath: candidate,
				Metadata: Metadata{SHA256: hex.EncodeToString(sum[:]), SourceURL: decl.GitSource, BuildMethod: "dev-mode"},
			}, nil
		}
		dir = filepath.Dir(dir)
	}
	return nil, nil
}
