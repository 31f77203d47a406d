// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package functiontool

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects T into an inline object schema.
//
// Supported tags:
//   - json:"name" and json:",omitempty"
//   - jsonschema:"required"
//   - jsonschema:"description=..."
//   - jsonschema:"enum=a,enum=b"
//   - jsonschema:"minimum=N,maximum=M"
func generateSchema[T any]() (map[string]any, error) {
	// Expanding needs a type name; unnamed structs are inlined instead.
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             reflect.TypeFor[T]().Name() != "",
		DoNotReference:             true,
	}

	reflected, err := reflectSchema[T](reflector)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to convert schema to map: %w", err)
	}

	if raw["type"] != "object" {
		delete(raw, "$schema")
		delete(raw, "$id")
		return raw, nil
	}

	// LLM providers want a bare object schema without $schema or $defs.
	properties, ok := raw["properties"].(map[string]any)
	if !ok {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if required, ok := raw["required"]; ok && required != nil {
		schema["required"] = required
	}
	return schema, nil
}

func reflectSchema[T any](reflector *jsonschema.Reflector) (schema *jsonschema.Schema, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to reflect schema for %s: %v", reflect.TypeFor[T](), r)
		}
	}()
	return reflector.Reflect(new(T)), nil
}
