/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preset

import "storycore/internal/domain"

// Built-in preset ids.
const (
	BuiltinCinematic = "cinematic"
	BuiltinComicBook = "comic-book"
	BuiltinPortrait  = "portrait"
	BuiltinLandscape = "landscape"
)

// The built-ins are pure data: identity transforms composed with a
// category-specific crop rectangle per panel.

func identityTransforms() []domain.Transform {
	ts := make([]domain.Transform, domain.PanelCount)
	for i := range ts {
		ts[i] = domain.IdentityTransform()
	}
	return ts
}

func uniformCrops(c domain.CropRegion) []*domain.CropRegion {
	crops := make([]*domain.CropRegion, domain.PanelCount)
	for i := range crops {
		cc := c
		crops[i] = &cc
	}
	return crops
}

// mustPreset backs the built-in library; a failure here is a bug in this
// file, so it panics at init rather than returning an error nobody can
// handle.
func mustPreset(id, name, desc string, transforms []domain.Transform, crops []*domain.CropRegion) domain.Preset {
	p, err := NewPreset(id, name, desc, transforms, crops)
	if err != nil {
		panic(err)
	}
	return p
}

// BuiltinPresets returns fresh copies of the built-in library, safe for the
// caller to modify.
func BuiltinPresets() []domain.Preset {
	return []domain.Preset{
		mustPreset(BuiltinCinematic, "Cinematic",
			"Widescreen 2.39:1 bands for filmic framing",
			identityTransforms(),
			uniformCrops(domain.CropRegion{X: 0, Y: 0.29, Width: 1, Height: 0.42})),
		mustPreset(BuiltinComicBook, "Comic Book",
			"Uniform gutter inset for punchy panel framing",
			identityTransforms(),
			uniformCrops(domain.CropRegion{X: 0.05, Y: 0.05, Width: 0.9, Height: 0.9})),
		mustPreset(BuiltinPortrait, "Portrait",
			"Vertical 3:4 slice centered on the subject",
			identityTransforms(),
			uniformCrops(domain.CropRegion{X: 0.125, Y: 0, Width: 0.75, Height: 1})),
		mustPreset(BuiltinLandscape, "Landscape",
			"Horizontal 4:3 band for establishing shots",
			identityTransforms(),
			uniformCrops(domain.CropRegion{X: 0, Y: 0.125, Width: 1, Height: 0.75})),
	}
}

// LookupBuiltin returns a fresh copy of the built-in preset with the given
// id.
func LookupBuiltin(id string) (domain.Preset, bool) {
	for _, p := range BuiltinPresets() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Preset{}, false
}
