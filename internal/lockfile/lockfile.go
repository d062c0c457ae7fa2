// Package lockfile implements the persisted integrity record for module and
// plugin content, generalizing the teacher's plugin-only
// internal/domain/entities.Lockfile to also carry module locks, as
// spec.md 4.G and 3 require.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// formatVersion is the current lockfile format version.
const formatVersion = 1

// ModuleLock pins a resolved module source+ref to the checksum of its
// materialized content.
type ModuleLock struct {
	Source   string `yaml:"source"`
	Ref      string `yaml:"ref"`
	Checksum string `yaml:"checksum"`
}

// PluginLock pins a resolved plugin version to the sha256 digest of its
// wasm bytes and when it was resolved.
type PluginLock struct {
	Version    string    `yaml:"version"`
	Source     string    `yaml:"source"`
	SHA256     string    `yaml:"sha256"`
	ResolvedAt time.Time `yaml:"resolved_at"`
}

// Lockfile is the top-level persisted integrity record.
type Lockfile struct {
	Version int                   `yaml:"lockfile_version"`
	Modules map[string]ModuleLock `yaml:"modules"`
	Plugins map[string]PluginLock `yaml:"plugins"`
}

// New returns an empty, current-version lockfile.
func New() *Lockfile {
	return &Lockfile{
		Version: formatVersion,
		Modules: make(map[string]ModuleLock),
		Plugins: make(map[string]PluginLock),
	}
}

// Load reads a lockfile from path, returning a fresh Lockfile if the file
// does not exist yet ("load-or-create", per spec.md 4.G).
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading lockfile %s: %w", path, err)
	}
	if len(data) == 0 {
		return New(), nil
	}
	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lockfile %s: %w", path, err)
	}
	if lf.Modules == nil {
		lf.Modules = make(map[string]ModuleLock)
	}
	if lf.Plugins == nil {
		lf.Plugins = make(map[string]PluginLock)
	}
	if lf.Version == 0 {
		lf.Version = formatVersion
	}
	return &lf, nil
}

// Save writes the lockfile to path via a temp-file-then-rename, the same
// atomic-write idiom internal/state.Save uses, so a crash mid-write never
// leaves a torn lockfile for the next apply to load.
func Save(path string, lf *Lockfile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating lockfile directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lockfile-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("creating temp lockfile: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp lockfile: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming lockfile into place: %w", err)
	}
	return nil
}

// SetModule merges (overwriting by name) a module lock entry.
func (lf *Lockfile) SetModule(name string, lock ModuleLock) {
	if lf.Modules == nil {
		lf.Modules = make(map[string]ModuleLock)
	}
	lf.Modules[name] = lock
}

// SetPlugin merges (overwriting by name) a plugin lock entry.
func (lf *Lockfile) SetPlugin(name string, lock PluginLock) {
	if lf.Plugins == nil {
		lf.Plugins = make(map[string]PluginLock)
	}
	lf.Plugins[name] = lock
}

// Module looks up a module lock by name.
func (lf *Lockfile) Module(name string) (ModuleLock, bool) {
	m, ok := lf.Modules[name]
	return m, ok
}

// Plugin looks up a plugin lock by name.
func (lf *Lockfile) Plugin(name string) (PluginLock, bool) {
	p, ok := lf.Plugins[name]
	return p, ok
}

// ModuleSource formats a module's lock source string: "path:<path>" or
// "git:<url>@<ref>", per spec.md 4.G.
func ModuleSource(sourceURI string) string {
	if isLocalSource(sourceURI) {
		return "path:" + trimFileScheme(sourceURI)
	}
	return "git:" + sourceURI
}

// PluginSource formats a plugin's lock source string, per spec.md 4.G:
// "path:<path>", "git:<url>@<ref>", or "registry:<name>".
func PluginSource(kind, value string) string {
	switch kind {
	case "path":
		return "path:" + value
	case "git":
		return "git:" + value
	case "registry":
		return "registry:" + value
	default:
		return kind + ":" + value
	}
}

func isLocalSource(uri string) bool {
	return len(uri) >= 7 && uri[:7] == "file://"
}

func trimFileScheme(uri string) string {
	if isLocalSource(uri) {
		return uri[7:]
	}
	return uri
}
