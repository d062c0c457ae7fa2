package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/weaver-dev/weaver/internal/weavererr"
)

// LoadWorkspace loads path (typically weaver.yaml), expands its includes
// field as an ordered list of glob patterns relative to path's directory,
// deep-merges each matched fragment in lexicographic order, and
// deserializes+validates the result into a Workspace.
//
// For identical inputs the merged tree is byte-identical (spec.md 8.4):
// glob matches are visited in sorted order and the merged tree is
// canonicalized (sorted-key yaml.MapSlice) before being re-marshaled for
// the final decode, so the result never depends on Go's randomized map
// iteration order.
func LoadWorkspace(path string) (*Workspace, error) {
	merged, err := MergedYAML(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if err := ValidateSchema(merged); err != nil {
		return nil, &weavererr.ConfigError{Path: path, Err: err}
	}

	var ws Workspace
	if err := yaml.UnmarshalWithOptions(merged, &ws, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing merged configuration: %w", err)
	}

	if err := Validate(&ws); err != nil {
		return nil, err
	}

	return &ws, nil
}

// MergedYAML re-derives and returns the byte-identical merged YAML tree for
// path, without deserializing into a Workspace. Exposed for tooling and for
// the merge-determinism property test (spec.md 8.4).
func MergedYAML(path string) ([]byte, error) {
	root, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for _, pattern := range extractIncludes(root) {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			slog.Warn("include pattern matched no files", "pattern", pattern)
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			fragment, err := decodeFile(match)
			if err != nil {
				return nil, err
			}
			root = mergeTree(root, fragment)
		}
	}
	return yaml.Marshal(canonicalize(root))
}

func decodeFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing YAML in %s: %w", path, err)
	}
	return tree, nil
}

func extractIncludes(tree any) []string {
	m, ok := asStringMap(tree)
	if !ok {
		return nil
	}
	raw, ok := m["includes"]
	if !ok {
		return nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(seq))
	for _, e := range seq {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
