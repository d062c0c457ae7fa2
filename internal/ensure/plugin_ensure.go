package ensure

import (
	"context"
	"fmt"

	"github.com/weaver-dev/weaver/internal/wasm"
	"github.com/weaver-dev/weaver/internal/wireformat"
)

// pluginEnsure adapts a loaded wasm.Plugin to the Ensure interface. It is
// the registry's fallback for any declared ensure type that doesn't match
// a built-in: spec.md 4.D's dotted-to-dashed name (PluginName) is what the
// plugin host resolves and loads before this wrapper is built.
type pluginEnsure struct {
	plugin *wasm.Plugin
	config map[string]any
}

// NewPluginEnsureFactory returns a Factory that wraps plugin in the Ensure
// interface, ignoring the config argument Registry.Build passes in favor
// of the config captured at load time (every manifest-declared instance
// of a given plugin-backed ensure shares the same loaded plugin).
func NewPluginEnsureFactory(plugin *wasm.Plugin) Factory {
	return func(config map[string]any) (Ensure, error) {
		return &pluginEnsure{plugin: plugin, config: config}, nil
	}
}

func (e *pluginEnsure) request(ectx Context) wireformat.EnsureRequestWire {
	return wireformat.EnsureRequestWire{
		AppPath:  ectx.AppPath,
		DryRun:   ectx.DryRun,
		Config:   e.config,
		Snapshot: ectx.Snapshot,
	}
}

func (e *pluginEnsure) Plan(ctx context.Context, ectx Context) (*Plan, error) {
	wire, err := e.plugin.Plan(ctx, e.request(ectx))
	if err != nil {
		return nil, fmt.Errorf("plugin %s: plan: %w", e.plugin.Name(), err)
	}
	return &Plan{Description: wire.Description, Actions: wire.Actions}, nil
}

func (e *pluginEnsure) Execute(ctx context.Context, ectx Context) error {
	if ectx.DryRun {
		return nil
	}
	if err := e.plugin.Execute(ctx, e.request(ectx)); err != nil {
		return fmt.Errorf("plugin %s: execute: %w", e.plugin.Name(), err)
	}
	return nil
}
