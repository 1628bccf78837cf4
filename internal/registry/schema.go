package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const snapshotSchemaURL = "registry-snapshot.schema.json"

// snapshotSchema only checks the top-level structure. Individual rules are
// decoded one by one so a damaged entry costs only itself.
const snapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rules"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": ["string", "null"]},
    "rules": {"type": "array"}
  }
}`

var compiledSnapshotSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(snapshotSchemaURL, strings.NewReader(snapshotSchema)); err != nil {
		panic(fmt.Sprintf("registry schema: %v", err))
	}
	return c.MustCompile(snapshotSchemaURL)
}

// validateSnapshot checks that data is JSON with the shape of a registry snapshot.
func validateSnapshot(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := compiledSnapshotSchema.Validate(doc); err != nil {
		return fmt.Errorf("unexpected structure: %w", err)
	}
	return nil
}
