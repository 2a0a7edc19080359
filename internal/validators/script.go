package validators

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"sigs.k8s.io/yaml"
)

const scriptSchemaURL = "script.schema.json"

//go:embed script.schema.json
var scriptSchemaJSON []byte

var scriptSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(scriptSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse script schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(scriptSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add script schema: %w", err)
	}
	return c.Compile(scriptSchemaURL)
})

// ValidateScript checks the shape of a YAML session script: known fields,
// value types, actions and frame numbers. Cross-field rules are left to the caller.
func ValidateScript(data []byte) error {
	schema, err := scriptSchema()
	if err != nil {
		return err
	}

	// An empty document is an empty script
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to convert script to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to decode script: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("script does not match schema: %w", err)
	}
	return nil
}
