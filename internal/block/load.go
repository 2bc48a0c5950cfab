package block

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// catalogSchema constrains blocks.yaml. The decoded YAML document is
// validated against it before the catalog is built, so a malformed file is
// rejected with a precise path instead of producing a half-usable catalog.
const catalogSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["blocks"],
  "additionalProperties": false,
  "properties": {
    "blocks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 0, "maximum": 255},
          "name": {"type": "string", "minLength": 1},
          "opaque": {"type": "boolean"},
          "removable": {"type": "boolean"},
          "invisible": {"type": "boolean"},
          "luminance": {"type": "integer", "minimum": 0, "maximum": 16}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("blocks.schema.json", catalogSchema)

type catalogFile struct {
	Blocks []Def `yaml:"blocks"`
}

// Load reads a block catalog from a YAML file. Definitions in the file
// replace the built-in defaults per id; types absent from the file keep
// their default definition.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse builds a catalog from raw YAML.
func Parse(raw []byte) (*Catalog, error) {
	// Validate the generic document first. The schema library expects a
	// json-decoded value, so the YAML document is round-tripped through JSON.
	var yamlDoc any
	if err := yaml.Unmarshal(raw, &yamlDoc); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}
	jsonRaw, err := json.Marshal(yamlDoc)
	if err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonRaw, &doc); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}

	c := Default()
	for _, d := range f.Blocks {
		c.defs[d.ID] = d
	}
	return c, nil
}
