package module

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchemaDoc mirrors Manifest's own shape, giving a malformed
// weaver.module.yaml a JSON-pointer path in its error rather than just a
// strict-decode field name (SPEC_FULL 4.C ambient addition, same
// jsonschema library as the Config Loader).
const manifestSchemaDoc = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"inputs": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string"},
					"description": {"type": "string"},
					"required": {"type": "boolean"},
					"sensitive": {"type": "boolean"}
				}
			}
		},
		"outputs": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string"},
					"description": {"type": "string"}
				}
			}
		},
		"tasks": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["command"],
				"properties": {
					"command": {"type": "string"},
					"description": {"type": "string"}
				}
			}
		},
		"ensures": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string"}
				}
			}
		}
	}
}`

var (
	manifestSchemaOnce sync.Once
	manifestSchema     *jsonschema.Schema
	manifestSchemaErr  error
)

func compiledManifestSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("weaver-module.json", bytes.NewReader([]byte(manifestSchemaDoc))); err != nil {
			manifestSchemaErr = fmt.Errorf("loading module manifest schema: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = c.Compile("weaver-module.json")
	})
	return manifestSchema, manifestSchemaErr
}

// validateManifestSchema checks raw manifest YAML against the manifest
// JSON Schema, ahead of the strict Go-side decode in LoadManifest.
func validateManifestSchema(data []byte) error {
	s, err := compiledManifestSchema()
	if err != nil {
		return err
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing module manifest: %w", err)
	}
	jsonBytes, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(jsonBytes, &tree); err != nil {
		return err
	}

	if err := s.Validate(tree); err != nil {
		return fmt.Errorf("module manifest schema validation: %w", err)
	}
	return nil
}
