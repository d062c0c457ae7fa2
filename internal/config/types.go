// Package config loads and validates weaver.yaml workspace configuration:
// multi-fragment YAML with glob-based includes, deep merging, and
// deterministic ordering (spec.md 4.A).
package config

// Workspace is the root entity loaded from weaver.yaml (plus merged
// includes). See spec.md 3.
type Workspace struct {
	Version  string            `yaml:"version"`
	Modules  []ModuleDecl      `yaml:"modules"`
	Apps     []AppDecl         `yaml:"apps"`
	Secrets  map[string]Secret `yaml:"secrets"`
	Plugins  map[string]Plugin `yaml:"plugins"`
	Includes []string          `yaml:"includes"`
	Checks   []Check           `yaml:"checks"`

	// Security and Registry are ambient additions (SPEC_FULL 3) governing
	// the capability gatekeeper's default posture and plugin-registry
	// resolution; both are optional and zero-valued when absent.
	Security Security `yaml:"security"`
	Registry Registry `yaml:"registry"`
}

// ModuleDecl declares a named, versioned module source.
type ModuleDecl struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	Ref     string `yaml:"ref"`
	Subpath string `yaml:"subpath,omitempty"`
}

// AppDecl declares a named instance of a module materialized at a target path.
type AppDecl struct {
	Name   string         `yaml:"name"`
	Module string         `yaml:"module"`
	Path   string         `yaml:"path"`
	Inputs map[string]any `yaml:"inputs,omitempty"`
	Checks []Check        `yaml:"checks,omitempty"`

	// Tags is an ambient addition (SPEC_FULL 3): free-form labels a
	// check's If expression can filter on ("app.tags contains 'prod'").
	Tags []string `yaml:"tags,omitempty"`
}

// Secret declares a secret input resolved at apply time via environment or
// a future plugin-backed resolver.
type Secret struct {
	Key string `yaml:"key"`
}

// Plugin declares an additional ensure-type implementation, resolved from
// exactly one of GitSource or LocalPath (spec.md 3's invariant).
type Plugin struct {
	GitSource string `yaml:"git-source,omitempty"`
	Ref       string `yaml:"ref,omitempty"`
	LocalPath string `yaml:"local-path,omitempty"`

	// Version pins an exact registry tag ("1.2.3"), or, as an ambient
	// addition (SPEC_FULL 3), names a semver constraint range ("^1.2",
	// ">=1.0.0 <2.0.0") resolved against the registry's published tags
	// via Masterminds/semver/v3.
	Version string `yaml:"version,omitempty"`

	// RequireSignature and PublicKeyRef are SPEC_FULL 3's Plugin
	// Declaration addition: a registry-resolved plugin must carry a
	// valid cosign signature under PublicKeyRef before it is trusted.
	RequireSignature bool   `yaml:"require-signature,omitempty"`
	PublicKeyRef     string `yaml:"public-key-ref,omitempty"`

	// Capabilities is an ambient addition (SPEC_FULL 3): an allow-list
	// narrowing what the plugin may request from the capability
	// gatekeeper at runtime. An empty list imposes no extra narrowing
	// beyond what the user grants interactively.
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// HasGit reports whether the plugin is sourced from git.
func (p Plugin) HasGit() bool { return p.GitSource != "" }

// HasLocal reports whether the plugin is sourced from a local path.
func (p Plugin) HasLocal() bool { return p.LocalPath != "" }

// Check is a named, filterable assertion evaluated against resolved apps.
// When is a shell command run via "sh -c"; a non-zero exit fails the
// check. If, an ambient addition (SPEC_FULL 4.A), is an optional
// expr-lang boolean expression over the app it's attached to ("app.tags
// contains 'prod'") gating whether When even runs for that app — a check
// skipped by If is reported neither passed nor failed.
type Check struct {
	Name string `yaml:"name"`
	When string `yaml:"when,omitempty"`
	If   string `yaml:"if,omitempty"`
}

// Security configures the capability gatekeeper's default posture.
// Grounded on the teacher's CapabilityGatekeeper security levels.
type Security struct {
	Level string `yaml:"level,omitempty"` // strict | standard | permissive
}

// Registry configures the plugin registry weaver resolves registry-sourced
// plugins from, overridable by WEAVER_REGISTRY_URL / RW_REGISTRY_URL.
type Registry struct {
	URL string `yaml:"url,omitempty"`
}

// ModuleByName returns the module declaration named name, if any.
func (w *Workspace) ModuleByName(name string) (ModuleDecl, bool) {
	for _, m := range w.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleDecl{}, false
}
