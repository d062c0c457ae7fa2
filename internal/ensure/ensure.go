// Package ensure implements spec.md 4.D's Ensure registry: built-in
// variants (git.submodule, git.clone_pinned, npm.script, ai.patch) and
// the plugin-backed fallback for any other declared type.
package ensure

import (
	"context"
	"fmt"
	"strings"
)

// Context carries what every Ensure variant needs to plan or execute:
// the app's materialized path, whether this is a dry run, and a
// snapshot of the state store's checksums for drift-aware ensures.
type Context struct {
	AppPath  string
	DryRun   bool
	Snapshot map[string]string // path -> checksum
}

// Plan is a human-readable description plus the list of action strings
// an execute() call would perform.
type Plan struct {
	Description string
	Actions     []string
}

// Ensure is the polymorphic capability spec.md 4.D defines:
// {plan(ctx) -> Plan, execute(ctx) -> ()}.
type Ensure interface {
	Plan(ctx context.Context, ectx Context) (*Plan, error)
	Execute(ctx context.Context, ectx Context) error
}

// Factory builds an Ensure from its manifest-declared config.
type Factory func(config map[string]any) (Ensure, error)

// Registry maps ensure type names to factories. Built-ins are registered
// by Default(); plugin-backed types are added as manifests reference them.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for typeName.
func (r *Registry) Register(typeName string, factory Factory) {
	r.factories[typeName] = factory
}

// Build constructs the Ensure declared by typeName with config, looking
// it up directly first and, on a miss, trying the plugin name spec.md
// 4.D's dotted-to-dashed mapping produces ("a.b" -> plugin "a-b").
func (r *Registry) Build(typeName string, config map[string]any) (Ensure, error) {
	if factory, ok := r.factories[typeName]; ok {
		return factory(config)
	}
	pluginName := PluginName(typeName)
	if factory, ok := r.factories[pluginName]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown ensure type %q (no built-in or plugin named %q is registered)", typeName, pluginName)
}

// PluginName maps a dotted ensure type ("a.b") to the plugin name spec.md
// 4.D's Plugin Host resolves it as ("a-b").
func PluginName(typeName string) string {
	return strings.ReplaceAll(typeName, ".", "-")
}

// Default returns a Registry with the four built-in ensure types
// registered: git.submodule, git.clone_pinned, npm.script, and
// ai.patch. Plugin-backed types are added afterward, per manifest, via
// Register(ensure.PluginName(type), ensure.NewPluginEnsureFactory(plugin)).
func Default(patchGenerator PatchGenerator) *Registry {
	r := NewRegistry()
	r.Register("git.submodule", func(config map[string]any) (Ensure, error) { return newSubmoduleEnsure(config) })
	r.Register("git.clone_pinned", func(config map[string]any) (Ensure, error) { return newClonePinnedEnsure(config) })
	r.Register("npm.script", func(config map[string]any) (Ensure, error) { return newNpmScriptEnsure(config) })
	r.Register("ai.patch", NewAIPatchFactory(patchGenerator))
	return r
}
