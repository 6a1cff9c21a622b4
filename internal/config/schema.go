// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the configuration schema.
const SchemaID = "https://zyric.dev/schemas/config.schema.json"

// durationPattern matches Go duration strings such as "90s" or "1h30m".
const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	schemaErr      error
)

// GenerateSchema returns the JSON Schema for config.yaml.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     durationPattern,
					Description: "Go duration, e.g. 30s or 1h",
				}
			}
			return nil
		},
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Zyric Configuration"
	schema.Description = "Schema for the zyric config.yaml file"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateSchema checks YAML config data against the schema. It catches
// unknown keys and wrong types that Load would silently ignore.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code("CONFIG_EMPTY").Errorf("config data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_INVALID_YAML").Wrap(err)
	}

	sch, err := schema()
	if err != nil {
		return err
	}
	if err := sch.Validate(normalizeYAML(doc)); err != nil {
		return oops.Code("CONFIG_SCHEMA_VIOLATION").Wrap(err)
	}
	return nil
}

func schema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			schemaErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("config.schema.json", doc); err != nil {
			schemaErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
			return
		}
		compiledSchema, schemaErr = c.Compile("config.schema.json")
		if schemaErr != nil {
			schemaErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrap(schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// normalizeYAML turns yaml.v3 output into the value types the validator
// expects. Scalars decoded as time values are turned back into strings.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

// FormatSchemaError returns the validator's message without wrapping context.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	var verr *jschema.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return err.Error()
}
