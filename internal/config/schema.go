package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// workspaceSchemaDoc is a JSON Schema compiled from the Workspace
// Configuration's own struct tags (SPEC_FULL 4.A), giving structured,
// path-qualified errors ("apps/0/module: missing property") ahead of the
// Go-side invariant checks in Validate, which still run afterward for the
// invariants a schema can't express (cross-field uniqueness, exactly-one-of).
const workspaceSchemaDoc = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["version"],
	"properties": {
		"version": {"type": "string"},
		"modules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "source"],
				"properties": {
					"name": {"type": "string"},
					"source": {"type": "string"},
					"ref": {"type": "string"},
					"subpath": {"type": "string"}
				}
			}
		},
		"apps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "module", "path"],
				"properties": {
					"name": {"type": "string"},
					"module": {"type": "string"},
					"path": {"type": "string"},
					"inputs": {"type": "object"},
					"tags": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"plugins": {"type": "object"},
		"secrets": {"type": "object"},
		"includes": {"type": "array", "items": {"type": "string"}},
		"checks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"},
					"when": {"type": "string"},
					"if": {"type": "string"}
				}
			}
		}
	}
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledWorkspaceSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("weaver-workspace.json", bytes.NewReader([]byte(workspaceSchemaDoc))); err != nil {
			schemaErr = fmt.Errorf("loading workspace schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("weaver-workspace.json")
	})
	return schema, schemaErr
}

// ValidateSchema checks merged (the byte-identical merged YAML tree
// MergedYAML produces) against the Workspace Configuration's JSON Schema,
// ahead of Go-side deserialization, so a malformed weaver.yaml reports the
// offending path instead of a generic strict-decode error.
func ValidateSchema(merged []byte) error {
	s, err := compiledWorkspaceSchema()
	if err != nil {
		return err
	}

	var tree any
	if err := yamlToJSONCompatible(merged, &tree); err != nil {
		return fmt.Errorf("normalizing configuration for schema validation: %w", err)
	}

	if err := s.Validate(tree); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// yamlToJSONCompatible decodes YAML data and round-trips it through
// encoding/json so jsonschema sees the exact value shapes (map[string]any,
// []any, float64, string, bool, nil) it expects, rather than goccy/go-yaml's
// own generic decode types.
func yamlToJSONCompatible(data []byte, out *any) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, out)
}
