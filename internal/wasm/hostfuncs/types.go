// Package hostfuncs implements the host functions a WASM plugin may call:
// exactly the one spec.md 4.D wires through, exec(ExecRequest) -> ExecResult,
// gated by the per-plugin capability grant.
package hostfuncs

import (
	"context"

	"github.com/weaver-dev/weaver/internal/capability"
)

// Checker reports whether a plugin holds a given capability.
type Checker interface {
	Check(pluginName, kind, pattern string) error
}

// policyChecker adapts internal/capability's Policy+Grant to the Checker
// interface hostfuncs needs, keyed per plugin.
type policyChecker struct {
	policy *capability.Policy
	grants map[string]capability.Grant // plugin name -> granted capabilities
}

// NewChecker returns a Checker enforcing grants per plugin name.
func NewChecker(grants map[string]capability.Grant) Checker {
	return &policyChecker{policy: capability.NewPolicy(), grants: grants}
}

func (c *policyChecker) Check(pluginName, kind, pattern string) error {
	granted := c.grants[pluginName]
	request := capability.Capability{Kind: kind, Pattern: pattern}
	if c.policy.IsGranted(request, granted) {
		return nil
	}
	return &capabilityDeniedError{capability: request}
}

type capabilityDeniedError struct {
	capability capability.Capability
}

func (e *capabilityDeniedError) Error() string {
	return "capability denied: " + e.capability.String() + " (no matching grant)"
}

type pluginNameKey struct{}

// WithPluginName returns a context carrying name, so host functions can
// identify which plugin is calling without threading it through every
// exported function's parameters.
func WithPluginName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, pluginNameKey{}, name)
}

// PluginNameFromContext retrieves the plugin name set by WithPluginName.
func PluginNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(pluginNameKey{}).(string)
	return name, ok
}
