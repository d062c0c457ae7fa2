// Package module loads a module's weaver.module.yaml manifest and
// instantiates apps against it (spec.md 4.C).
package module

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// InputSpec declares one manifest input: its type, optional default,
// description, and whether it is required.
type InputSpec struct {
	Type        string `yaml:"type"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	// Sensitive marks an input whose value should be wrapped in
	// secret.Secret[string] once resolved (SPEC_FULL 4.H ambient addition).
	Sensitive bool `yaml:"sensitive,omitempty"`
}

// OutputSpec declares one manifest output's type and description.
type OutputSpec struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// Task declares a named shell task a module exposes via `weaver run`.
type Task struct {
	Command     string `yaml:"command"`
	Description string `yaml:"description,omitempty"`
}

// EnsureConfig is the tagged-variant configuration for one ensure, as
// decoded straight off the manifest YAML. Type names the closed built-in
// set {git.submodule, git.clone_pinned, npm.script, ai.patch} or a
// plugin-registered name; Config carries the variant's own fields as a
// generic map so each ensure constructor can decode only what it needs.
type EnsureConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:",inline"`
}

// UnmarshalYAML decodes an EnsureConfig, capturing every field besides
// "type" into Config so built-in and plugin ensures can each pull out
// their own shape.
func (e *EnsureConfig) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string]any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	t, _ := raw["type"].(string)
	e.Type = t
	e.Config = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "type" {
			continue
		}
		e.Config[k] = v
	}
	return nil
}

// Manifest is weaver.module.yaml at a resolved module root.
type Manifest struct {
	Inputs  map[string]InputSpec  `yaml:"inputs,omitempty"`
	Outputs map[string]OutputSpec `yaml:"outputs,omitempty"`
	Tasks   map[string]Task       `yaml:"tasks,omitempty"`
	Ensures []EnsureConfig        `yaml:"ensures,omitempty"`
}

// ManifestFileName is the manifest's fixed filename at a module root.
const ManifestFileName = "weaver.module.yaml"

// LoadManifest loads weaver.module.yaml from modulePath.
func LoadManifest(modulePath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(modulePath, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("reading module manifest: %w", err)
	}
	if err := validateManifestSchema(data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing module manifest: %w", err)
	}
	return &m, nil
}
