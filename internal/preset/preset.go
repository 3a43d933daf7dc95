/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preset builds and ships the transform/crop bundles applied to a
// whole grid at once. Construction validates arity and content so a stored
// preset is always structurally valid; the apply step lives in the editor
// and wraps all nine panels in a single history entry.
package preset

import (
	"fmt"

	"storycore/internal/domain"
)

// NewPreset builds a validated preset. Both slices must have exactly
// domain.PanelCount entries, row-major; anything else is programmer misuse
// and fails immediately rather than at apply time. The input slices are
// copied.
func NewPreset(id, name, description string, transforms []domain.Transform, crops []*domain.CropRegion) (domain.Preset, error) {
	if len(transforms) != domain.PanelCount {
		return domain.Preset{}, fmt.Errorf("preset %q: need %d transforms, got %d", name, domain.PanelCount, len(transforms))
	}
	if len(crops) != domain.PanelCount {
		return domain.Preset{}, fmt.Errorf("preset %q: need %d crops, got %d", name, domain.PanelCount, len(crops))
	}
	p := domain.Preset{
		ID:              id,
		Name:            name,
		Description:     description,
		PanelTransforms: append([]domain.Transform(nil), transforms...),
		PanelCrops:      copyCrops(crops),
	}
	if r := domain.ValidatePreset(p); !r.OK() {
		return domain.Preset{}, fmt.Errorf("preset %q: %w", name, r.Err())
	}
	return p, nil
}

func copyCrops(crops []*domain.CropRegion) []*domain.CropRegion {
	out := make([]*domain.CropRegion, len(crops))
	for i, c := range crops {
		if c != nil {
			cc := *c
			out[i] = &cc
		}
	}
	return out
}
