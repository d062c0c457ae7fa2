// Package capability gates what a plugin may ask the host to do on its
// behalf. spec.md 4.D wires through exactly one host capability (exec);
// the richer Kind/Pattern model is kept so a plugin manifest can still
// declare fs/network/env needs for documentation and future allow-listing,
// per SPEC_FULL 4.D.
package capability

import "fmt"

// Capability is a single permission requirement or grant.
type Capability struct {
	Kind    string // fs, network, env, exec
	Pattern string
}

// String renders a capability as "<kind>:<pattern>", the form used both
// for map keys and for user-facing prompts.
func (c Capability) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.Pattern)
}

// RiskDescription gives a short human-readable explanation of what
// granting this capability exposes, used by the gatekeeper's prompt.
func (c Capability) RiskDescription() string {
	switch c.Kind {
	case "exec":
		return "allows the plugin to run arbitrary host programs"
	case "network":
		return "allows the plugin to make outbound network connections"
	case "fs":
		return "allows the plugin to read or write files outside its sandbox"
	case "env":
		return "allows the plugin to read host environment variables"
	default:
		return "grants a host-side capability to the plugin"
	}
}

// Exec builds the exec capability for a specific command, the only
// capability the MVP host actually wires through.
func Exec(command string) Capability {
	return Capability{Kind: "exec", Pattern: command}
}

// Grant is an unordered set of granted capabilities.
type Grant []Capability

// NewGrant returns an empty Grant.
func NewGrant() Grant { return Grant{} }

// Contains reports whether g already contains c (by Kind+Pattern).
func (g Grant) Contains(c Capability) bool {
	for _, existing := range g {
		if existing == c {
			return true
		}
	}
	return false
}

// Add appends c to g if not already present, returning the updated grant.
func (g *Grant) Add(c Capability) {
	if !g.Contains(c) {
		*g = append(*g, c)
	}
}
