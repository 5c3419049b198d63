package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed testconfig.schema.json
var schemaSource string

const schemaURL = "testconfig.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7

		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
			schemaErr = fmt.Errorf("invalid schema: %w", err)
			return
		}

		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("invalid schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// CheckSchema validates the structure of a JSON document against the
// configuration schema. Structural problems are returned as ValidationErrors.
func CheckSchema(jsonData []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	errs := &ValidationErrors{}
	collectSchemaErrors(ve, errs)
	if !errs.HasErrors() {
		errs.Add("", ve.Message)
	}
	return errs
}

// collectSchemaErrors flattens the error tree into its leaves.
func collectSchemaErrors(ve *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(ve.Causes) == 0 {
		errs.Add(fieldPath(ve.InstanceLocation), ve.Message)
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaErrors(cause, errs)
	}
}

// fieldPath converts a JSON pointer such as /scenarios/0/weight into
// scenarios[0].weight.
func fieldPath(pointer string) string {
	var sb strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if part == "" {
			continue
		}
		if isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// yamlToJSON re-encodes a YAML document as JSON for schema validation.
func yamlToJSON(doc interface{}) ([]byte, error) {
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return json.Marshal(doc)
}
