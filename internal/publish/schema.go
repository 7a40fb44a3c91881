package publish

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// manifestSchema is the minimal shape every package.json must satisfy before
// ingest. Everything else in the manifest is optional.
const manifestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["name", "publisher", "version", "engines"],
	"properties": {
		"name": {
			"type": "string",
			"pattern": "^[a-zA-Z0-9][a-zA-Z0-9\\-\\._]*$"
		},
		"publisher": {
			"type": "string",
			"pattern": "^[a-zA-Z0-9][a-zA-Z0-9\\-\\._]*$"
		},
		"version": {
			"type": "string",
			"minLength": 1
		},
		"engines": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string"}
		}
	}
}`

var (
	compileSchemaOnce sync.Once
	compiledSchema    *jsonschema.Schema
	compileSchemaErr  error
)

// validateManifest checks the raw package.json against manifestSchema.
func validateManifest(data []byte) error {
	compileSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchema))
		if err != nil {
			compileSchemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			compileSchemaErr = err
			return
		}
		compiledSchema, compileSchemaErr = c.Compile("manifest.schema.json")
	})
	if compileSchemaErr != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", compileSchemaErr)
	}

	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid package.json: %w", err)
	}
	if err := compiledSchema.Validate(value); err != nil {
		return fmt.Errorf("invalid package.json: %w", err)
	}
	return nil
}
