package capability

import (
	"fmt"
	"log/slog"
)

// Info carries metadata about a capability used to decide whether the
// security policy should auto-deny, auto-allow, or prompt for it.
type Info struct {
	IsBroad bool
}

// Prompter asks the operator whether to grant a capability. It returns
// whether the grant was allowed and whether the decision should persist
// ("always"). cmd/weaver supplies a terminal implementation; tests supply
// a scripted one.
type Prompter interface {
	IsInteractive() bool
	PromptForCapability(c Capability, info Info) (granted bool, always bool, err error)
}

// Gatekeeper mediates between a plugin's required capabilities and what
// the operator has granted, enforcing the workspace's security level and
// persisting "always" decisions to a FileStore.
type Gatekeeper struct {
	store         *FileStore
	prompter      Prompter
	securityLevel string // strict | standard | permissive
}

// NewGatekeeper returns a Gatekeeper backed by store, prompting through
// prompter, enforcing securityLevel ("" behaves like "standard").
func NewGatekeeper(store *FileStore, prompter Prompter, securityLevel string) *Gatekeeper {
	if securityLevel == "" {
		securityLevel = "standard"
	}
	return &Gatekeeper{store: store, prompter: prompter, securityLevel: securityLevel}
}

// Grant resolves required against saved grants and interactive prompts,
// honoring trustAll (the --trust-plugins escape hatch) and the
// workspace's security level.
func (g *Gatekeeper) Grant(required Grant, info map[string]Info, trustAll bool) (Grant, error) {
	if trustAll {
		slog.Warn("auto-granting all requested capabilities (--trust-plugins)")
		return required, nil
	}

	existing, err := g.store.Load()
	if err != nil {
		existing = NewGrant()
	}

	missing := g.missing(required, existing)
	if len(missing) == 0 {
		return existing, nil
	}

	if !g.prompter.IsInteractive() {
		return nil, formatNonInteractiveError(missing)
	}

	granted := existing
	shouldSave := false
	for _, c := range missing {
		allow, always, err := g.evaluate(c, info)
		if err != nil {
			return nil, err
		}
		if !allow {
			return nil, fmt.Errorf("capability denied by user: %s", c.String())
		}
		granted.Add(c)
		if always {
			shouldSave = true
		}
	}

	if shouldSave {
		if err := g.store.Save(granted); err != nil {
			slog.Warn("failed to persist capability grants", "error", err)
		}
	}

	return granted, nil
}

func (g *Gatekeeper) evaluate(c Capability, info map[string]Info) (allow bool, always bool, err error) {
	meta, hasInfo := info[c.String()]

	if hasInfo && meta.IsBroad {
		switch g.securityLevel {
		case "strict":
			slog.Error("broad capability denied by security policy", "level", "strict", "capability", c.String(), "risk", c.RiskDescription())
			return false, false, fmt.Errorf("broad capability denied by strict security policy: %s", c.String())
		case "permissive":
			slog.Warn("auto-granting broad capability (permissive mode)", "capability", c.String())
			return true, false, nil
		}
	}

	if g.securityLevel == "permissive" {
		return true, false, nil
	}

	return g.prompter.PromptForCapability(c, meta)
}

func (g *Gatekeeper) missing(required, granted Grant) Grant {
	out := NewGrant()
	for _, c := range required {
		if !granted.Contains(c) {
			out.Add(c)
		}
	}
	return out
}

func formatNonInteractiveError(missing Grant) error {
	msg := "plugin requires additional permissions (running in non-interactive mode)\n\nrequired permissions:\n"
	for _, c := range missing {
		msg += fmt.Sprintf("  - %s\n", c.RiskDescription())
	}
	msg += "\nto grant these permissions:\n  1. run interactively and approve when prompted\n  2. pass --trust-plugins (grants all permissions)\n  3. edit the capability store directly\n"
	return fmt.Errorf("%s", msg)
}
