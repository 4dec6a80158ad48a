package file

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/matzehuels/depotview/pkg/errors"
)

//go:embed layout.schema.json
var schemaJSON string

const schemaURL = "https://depotview.local/schema/layout.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the compiled layout schema.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// SchemaJSON returns the layout schema document.
func SchemaJSON() string { return schemaJSON }

func validate(data []byte) error {
	s, err := Schema()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "compile layout schema")
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse layout")
	}
	if err := s.Validate(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "layout does not match schema")
	}
	return nil
}
