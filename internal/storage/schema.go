/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// ManifestSchema is the JSON Schema the grid.json manifest must satisfy. It is
// the structural wire contract; semantic rules (panel id/position agreement,
// crop containment and so on) live in domain validation.
//
//go:embed grid.schema.json
var ManifestSchema []byte

// ValidateManifestBytes checks raw manifest JSON against the embedded schema.
// It returns nil for conforming documents and an error listing every schema
// violation otherwise.
func ValidateManifestBytes(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(ManifestSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var sb strings.Builder
	for i, e := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.String())
	}
	return fmt.Errorf("manifest does not conform to schema: %s", sb.String())
}
