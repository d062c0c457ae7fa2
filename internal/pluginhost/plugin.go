// Package pluginhost resolves ensure-plugin declarations into cached,
// integrity-checked WASM binaries (spec.md 4.D's "Plugin resolution").
package pluginhost

import "time"

// Metadata describes how a resolved plugin was obtained.
type Metadata struct {
	SHA256      string
	ResolvedAt  time.Time
	SourceURL   string
	BuildMethod string
}

// ResolvedPlugin is the outcome of resolving a plugin declaration.
type ResolvedPlugin struct {
	Name     string
	Version  string
	WasmPath string
	Metadata Metadata
}

// Declaration is a plugin source as declared in weaver.yaml (config.Plugin
// projected into resolver terms).
type Declaration struct {
	Name      string
	LocalPath string // set for a local-path source
	GitSource string // set for a git source
	Ref       string
	Registry  string // set for a registry source (the plugin name as published)
	Version   string // exact version, "latest", or a semver constraint range

	// RequireSignature and PublicKeyRef are SPEC_FULL 3's Plugin
	// Declaration addition: when set, a registry-resolved plugin must
	// carry a valid cosign signature under PublicKeyRef before it is
	// trusted (spec.md 4.D's signature failure is reported separately
	// from a checksum mismatch).
	RequireSignature bool
	PublicKeyRef     string
}

// IsLocal reports whether d names a local-path source.
func (d Declaration) IsLocal() bool { return d.LocalPath != "" }

// IsGit reports whether d names a git source.
func (d Declaration) IsGit() bool { return d.GitSource != "" }

// IsRegistry reports whether d names a registry source.
func (d Declaration) IsRegistry() bool { return !d.IsLocal() && !d.IsGit() }
