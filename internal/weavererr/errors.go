// Package weavererr defines the error taxonomy shared across weaver's
// subsystems. Every error the engine returns implements ExitCoder so the
// CLI layer can map failures to process exit codes without a type switch
// scattered across commands.
package weavererr

import "fmt"

// ExitCoder is implemented by every error in the taxonomy.
type ExitCoder interface {
	error
	ExitCode() int
	Remediation() string
}

const (
	exitOK         = 0
	exitError      = 1
	exitDriftFound = 2
)

// ConfigError wraps a configuration-loading failure: missing file, parse
// failure, duplicate app names, plugin declaring neither or both of
// {git, path}, or a reference to an unknown module. Always fatal.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config error in %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error   { return e.Err }
func (e *ConfigError) ExitCode() int   { return exitError }
func (e *ConfigError) Remediation() string {
	return "fix weaver.yaml (or its includes) and re-run"
}

// DuplicateAppError reports a duplicate app name across the merged config.
type DuplicateAppError struct {
	Name string
}

func (e *DuplicateAppError) Error() string {
	return fmt.Sprintf("Duplicate app name: %q", e.Name)
}
func (e *DuplicateAppError) ExitCode() int { return exitError }
func (e *DuplicateAppError) Remediation() string {
	return fmt.Sprintf("rename one of the apps named %q so names are unique across all includes", e.Name)
}

// UnknownModuleError reports an app referencing a module that was never declared.
type UnknownModuleError struct {
	App    string
	Module string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("app %q references unknown module %q", e.App, e.Module)
}
func (e *UnknownModuleError) ExitCode() int { return exitError }
func (e *UnknownModuleError) Remediation() string {
	return fmt.Sprintf("declare a module named %q, or fix app %q's module reference", e.Module, e.App)
}

// PluginSourceError reports a plugin declaration with zero or two of {git, path}.
type PluginSourceError struct {
	Plugin string
}

func (e *PluginSourceError) Error() string {
	return fmt.Sprintf("plugin %q must declare exactly one of {git-source, local-path}", e.Plugin)
}
func (e *PluginSourceError) ExitCode() int { return exitError }
func (e *PluginSourceError) Remediation() string {
	return fmt.Sprintf("set exactly one of git-source/local-path on plugin %q", e.Plugin)
}

// ResolutionError wraps module-resolution failures (git clone/checkout
// failure with no cached fallback, manifest load failure). Fatal per-app.
type ResolutionError struct {
	Module string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving module %q: %v", e.Module, e.Err)
}
func (e *ResolutionError) Unwrap() error { return e.Err }
func (e *ResolutionError) ExitCode() int { return exitError }
func (e *ResolutionError) Remediation() string {
	return "check network access and that the module source/ref exist"
}

// MissingRequiredInput reports an input with no provided value, saved
// answer, default, or prompt (non-interactive).
type MissingRequiredInput struct {
	App    string
	Module string
	Key    string
}

func (e *MissingRequiredInput) Error() string {
	return fmt.Sprintf("app %q (module %q): missing required input %q", e.App, e.Module, e.Key)
}
func (e *MissingRequiredInput) ExitCode() int { return exitError }
func (e *MissingRequiredInput) Remediation() string {
	return fmt.Sprintf("provide a value for input %q on app %q, or run interactively", e.Key, e.App)
}

// DriftDetected reports a managed file whose on-disk checksum diverged
// from recorded state under strategy "stop". Fatal; maps to exit code 2.
type DriftDetected struct {
	Path string
}

func (e *DriftDetected) Error() string {
	return fmt.Sprintf("Drift detected: %s", e.Path)
}
func (e *DriftDetected) ExitCode() int { return exitDriftFound }
func (e *DriftDetected) Remediation() string {
	return "re-run with --strategy overwrite --auto-approve to accept the module's content, or revert your edit"
}

// EnsureError wraps a failure inside a built-in or plugin-backed ensure.
type EnsureError struct {
	Ensure string
	App    string
	Err    error
}

func (e *EnsureError) Error() string {
	return fmt.Sprintf("ensure %q failed for app %q: %v", e.Ensure, e.App, e.Err)
}
func (e *EnsureError) Unwrap() error { return e.Err }
func (e *EnsureError) ExitCode() int { return exitError }
func (e *EnsureError) Remediation() string {
	return "inspect the ensure's plan output and the app's target directory, then re-run"
}

// Plugin error kinds, per spec.md 4.D / 7.
type (
	// PathNotFound is returned when a local plugin path has no plugin.wasm.
	PathNotFound struct{ Path string }
	// ChecksumMismatch is returned when a cached/fetched plugin's digest
	// disagrees with the lockfile.
	ChecksumMismatch struct {
		Name, Expected, Actual string
	}
	// CacheNotWritable is returned when the plugin cache root fails its
	// write-probe.
	CacheNotWritable struct{ Path string }
	// InvalidWasm is returned when plugin bytes fail to compile as a WASM module.
	InvalidWasm struct {
		Name string
		Err  error
	}
	// FetchError wraps a registry/git fetch failure after backoff is exhausted.
	FetchError struct {
		Name string
		Err  error
	}
	// PluginNotCached is returned on an offline miss for a git/registry plugin.
	PluginNotCached struct{ Name, Version string }
	// BuildError is returned when a dev-mode plugin build step fails.
	BuildError struct {
		Name string
		Err  error
	}
)

func (e *PathNotFound) Error() string { return fmt.Sprintf("plugin path not found: %s", e.Path) }
func (e *PathNotFound) ExitCode() int { return exitError }
func (e *PathNotFound) Remediation() string {
	return fmt.Sprintf("create %s/plugin.wasm or fix the plugin's local-path", e.Path)
}

func (e *ChecksumMismatch) Error() string {
	return fmt.Sprintf("plugin %q: checksum mismatch (expected %s, got %s)", e.Name, e.Expected, e.Actual)
}
func (e *ChecksumMismatch) ExitCode() int { return exitError }
func (e *ChecksumMismatch) Remediation() string {
	return fmt.Sprintf("delete the cached copy of plugin %q and re-resolve, or update weaver.lock if the new content is trusted", e.Name)
}

func (e *CacheNotWritable) Error() string { return fmt.Sprintf("plugin cache not writable: %s", e.Path) }
func (e *CacheNotWritable) ExitCode() int { return exitError }
func (e *CacheNotWritable) Remediation() string {
	return fmt.Sprintf("check permissions on %s", e.Path)
}

func (e *InvalidWasm) Error() string { return fmt.Sprintf("plugin %q is not a valid WASM module: %v", e.Name, e.Err) }
func (e *InvalidWasm) Unwrap() error { return e.Err }
func (e *InvalidWasm) ExitCode() int { return exitError }
func (e *InvalidWasm) Remediation() string {
	return fmt.Sprintf("rebuild plugin %q and ensure it targets wasip1", e.Name)
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetching plugin %q: %v", e.Name, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }
func (e *FetchError) ExitCode() int { return exitError }
func (e *FetchError) Remediation() string {
	return "check network access and registry URL (WEAVER_REGISTRY_URL)"
}

func (e *PluginNotCached) Error() string {
	return fmt.Sprintf("plugin %q@%s is not cached and offline mode is set", e.Name, e.Version)
}
func (e *PluginNotCached) ExitCode() int { return exitError }
func (e *PluginNotCached) Remediation() string {
	return fmt.Sprintf("run online once to populate the cache for %q@%s", e.Name, e.Version)
}

func (e *BuildError) Error() string { return fmt.Sprintf("building plugin %q: %v", e.Name, e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }
func (e *BuildError) ExitCode() int { return exitError }
func (e *BuildError) Remediation() string {
	return fmt.Sprintf("run the plugin's build step manually under plugins/%s to see the underlying failure", e.Name)
}

// SignatureMismatch is returned when a plugin's registry source sets
// require_signature: true and the fetched artifact fails cosign
// verification. Reported separately from ChecksumMismatch so a corrupted
// download and a tampered-but-intact one aren't conflated.
type SignatureMismatch struct {
	Name string
	Err  error
}

func (e *SignatureMismatch) Error() string {
	return fmt.Sprintf("plugin %q: signature verification failed: %v", e.Name, e.Err)
}
func (e *SignatureMismatch) Unwrap() error { return e.Err }
func (e *SignatureMismatch) ExitCode() int { return exitError }
func (e *SignatureMismatch) Remediation() string {
	return fmt.Sprintf("verify plugin %q was published by a trusted signer, or unset require_signature if this is a dev registry", e.Name)
}

// StateError wraps an I/O failure reading or writing the state store. Fatal.
type StateError struct {
	Path string
	Err  error
}

func (e *StateError) Error() string { return fmt.Sprintf("state store %s: %v", e.Path, e.Err) }
func (e *StateError) Unwrap() error { return e.Err }
func (e *StateError) ExitCode() int { return exitError }
func (e *StateError) Remediation() string {
	return fmt.Sprintf("check permissions and disk space for %s", e.Path)
}

// ExitCode returns the process exit code for any error, defaulting to the
// generic error code for types outside the taxonomy and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ec ExitCoder
	if as(err, &ec) {
		return ec.ExitCode()
	}
	return exitError
}

// as is a tiny errors.As wrapper kept local to avoid importing "errors"
// into every call site that just wants ExitCode.
func as(err error, target *ExitCoder) bool {
	for err != nil {
		if ec, ok := err.(ExitCoder); ok {
			*target = ec
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
