package config

import (
	"fmt"

	"github.com/weaver-dev/weaver/internal/weavererr"
)

// Validate checks the invariants spec.md 3 places on a merged Workspace:
// app names are unique, every app's module exists, and every plugin
// declares exactly one of {git-source, local-path}.
func Validate(ws *Workspace) error {
	seen := make(map[string]struct{}, len(ws.Apps))
	for _, app := range ws.Apps {
		if _, dup := seen[app.Name]; dup {
			return &weavererr.DuplicateAppError{Name: app.Name}
		}
		seen[app.Name] = struct{}{}

		if _, ok := ws.ModuleByName(app.Module); !ok {
			return &weavererr.UnknownModuleError{App: app.Name, Module: app.Module}
		}
	}

	for name, plugin := range ws.Plugins {
		if plugin.HasGit() == plugin.HasLocal() {
			// Either both set, or neither: fails the "exactly one" invariant.
			return &weavererr.PluginSourceError{Plugin: name}
		}
	}

	if err := validateRegistryURL(ws.Registry.URL); err != nil {
		return fmt.Errorf("invalid registry configuration: %w", err)
	}

	return nil
}

func validateRegistryURL(url string) error {
	if url == "" {
		return nil
	}
	if len(url) < 4 {
		return fmt.Errorf("registry url %q is too short to be valid", url)
	}
	return nil
}
