/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validators reject structurally invalid values with a field-addressable
// result. They never panic and never return a Go error for content problems;
// invalid input yields a Result listing every failing field. Out-of-range
// but well-typed values that the constrain family would normalize silently
// still fail here: validation is for boundaries (file load/save, imports),
// constraining is for live editing.

// FieldError pinpoints one failing field of a validation pass.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Path + ": " + e.Message }

// Result is the outcome of a validation pass.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// OK reports whether the validated value passed.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Err converts the result into a single error for boundary code, nil when
// the result is OK.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return errors.New(strings.Join(parts, "; "))
}

func (r *Result) addf(path, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// merge appends another result's errors under a path prefix.
func (r *Result) merge(prefix string, other Result) {
	for _, e := range other.Errors {
		path := prefix
		if e.Path != "" {
			path = prefix + "." + e.Path
		}
		r.Errors = append(r.Errors, FieldError{Path: path, Message: e.Message})
	}
}

// cropEpsilon absorbs float rounding in the containment sums; anything a
// constrainer can produce stays well inside it.
const cropEpsilon = 1e-9

// inUnit reports v in [0,1]. Written so NaN fails.
func inUnit(v float64) bool { return v >= 0 && v <= 1 }

// ValidateTransform checks scale positivity, rotation range and pivot
// bounds.
func ValidateTransform(t Transform) Result {
	var r Result
	if !(t.Scale.X > 0) {
		r.addf("scale.x", "must be positive, got %v", t.Scale.X)
	}
	if !(t.Scale.Y > 0) {
		r.addf("scale.y", "must be positive, got %v", t.Scale.Y)
	}
	if !(t.Rotation >= -MaxRotationDeg && t.Rotation <= MaxRotationDeg) {
		r.addf("rotation", "must be within [-%v, %v], got %v", MaxRotationDeg, MaxRotationDeg, t.Rotation)
	}
	if !inUnit(t.Pivot.X) {
		r.addf("pivot.x", "must be within [0, 1], got %v", t.Pivot.X)
	}
	if !inUnit(t.Pivot.Y) {
		r.addf("pivot.y", "must be within [0, 1], got %v", t.Pivot.Y)
	}
	return r
}

// ValidateCropRegion checks normalized bounds, the minimum extent and
// containment in the unit square.
func ValidateCropRegion(c CropRegion) Result {
	var r Result
	if !inUnit(c.X) {
		r.addf("x", "must be within [0, 1], got %v", c.X)
	}
	if !inUnit(c.Y) {
		r.addf("y", "must be within [0, 1], got %v", c.Y)
	}
	if !(c.Width >= MinCropSize) {
		r.addf("width", "must be at least %v, got %v", MinCropSize, c.Width)
	}
	if !(c.Height >= MinCropSize) {
		r.addf("height", "must be at least %v, got %v", MinCropSize, c.Height)
	}
	if c.X+c.Width > 1+cropEpsilon {
		r.addf("width", "x+width exceeds the unit square: %v", c.X+c.Width)
	}
	if c.Y+c.Height > 1+cropEpsilon {
		r.addf("height", "y+height exceeds the unit square: %v", c.Y+c.Height)
	}
	return r
}

func validBlendMode(m BlendMode) bool {
	switch m {
	case BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDarken, BlendLighten:
		return true
	}
	return false
}

// ValidateLayer checks the layer envelope and that the content payload
// matches the declared type.
func ValidateLayer(l Layer) Result {
	var r Result
	if strings.TrimSpace(l.ID) == "" {
		r.addf("id", "must not be empty")
	}
	if !inUnit(l.Opacity) {
		r.addf("opacity", "must be within [0, 1], got %v", l.Opacity)
	}
	if !validBlendMode(l.BlendMode) {
		r.addf("blendMode", "unknown blend mode %q", l.BlendMode)
	}
	switch l.Type {
	case LayerImage:
		if l.Content.Image == nil {
			r.addf("content", "image layer without image content")
		} else if strings.TrimSpace(l.Content.Image.URL) == "" {
			r.addf("content.url", "must not be empty")
		}
	case LayerAnnotation:
		if l.Content.Annotation == nil {
			r.addf("content", "annotation layer without annotation content")
		}
	case LayerEffect:
		if l.Content.Effect == nil {
			r.addf("content", "effect layer without effect content")
		} else if strings.TrimSpace(l.Content.Effect.EffectType) == "" {
			r.addf("content.effectType", "must not be empty")
		}
	default:
		r.addf("type", "unknown layer type %q", l.Type)
	}
	return r
}

// ValidatePanel checks the id/position pairing and every nested value.
func ValidatePanel(p Panel) Result {
	var r Result
	if !IsValidPanelPosition(p.Position.Row, p.Position.Col) {
		r.addf("position", "outside the %dx%d grid: row=%d col=%d", GridRows, GridCols, p.Position.Row, p.Position.Col)
	} else if p.ID != GeneratePanelID(p.Position.Row, p.Position.Col) {
		r.addf("id", "id %q does not match position (%d,%d)", p.ID, p.Position.Row, p.Position.Col)
	}
	r.merge("transform", ValidateTransform(p.Transform))
	if p.Crop != nil {
		r.merge("crop", ValidateCropRegion(*p.Crop))
	}
	for i, l := range p.Layers {
		r.merge(fmt.Sprintf("layers[%d]", i), ValidateLayer(l))
	}
	return r
}

// ValidatePreset checks the arity invariant and every bundled value.
func ValidatePreset(p Preset) Result {
	var r Result
	if strings.TrimSpace(p.ID) == "" {
		r.addf("id", "must not be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		r.addf("name", "must not be empty")
	}
	if len(p.PanelTransforms) != PanelCount {
		r.addf("panelTransforms", "must have exactly %d entries, got %d", PanelCount, len(p.PanelTransforms))
	} else {
		for i, t := range p.PanelTransforms {
			r.merge(fmt.Sprintf("panelTransforms[%d]", i), ValidateTransform(t))
		}
	}
	if len(p.PanelCrops) != PanelCount {
		r.addf("panelCrops", "must have exactly %d entries, got %d", PanelCount, len(p.PanelCrops))
	} else {
		for i, c := range p.PanelCrops {
			if c != nil {
				r.merge(fmt.Sprintf("panelCrops[%d]", i), ValidateCropRegion(*c))
			}
		}
	}
	return r
}

var versionRe = regexp.MustCompile(`^\d+\.\d+$`)

// ValidateGrid enforces the whole-grid invariants: version format, exact
// panel count, unique positions covering the full 3x3 range, valid nested
// values and usable timestamps. Non-matching input is rejected wholesale;
// downstream consumers assume a complete grid.
func ValidateGrid(g GridConfiguration) Result {
	var r Result
	if !versionRe.MatchString(g.Version) {
		r.addf("version", "must match MAJOR.MINOR, got %q", g.Version)
	}
	if strings.TrimSpace(g.ProjectID) == "" {
		r.addf("projectId", "must not be empty")
	}
	if len(g.Panels) != PanelCount {
		r.addf("panels", "must have exactly %d panels, got %d", PanelCount, len(g.Panels))
	} else {
		seen := make(map[PanelPosition]bool, PanelCount)
		for i, p := range g.Panels {
			r.merge(fmt.Sprintf("panels[%d]", i), ValidatePanel(p))
			if seen[p.Position] {
				r.addf("panels", "duplicate panel position (%d,%d)", p.Position.Row, p.Position.Col)
			}
			seen[p.Position] = true
		}
	}
	for i, p := range g.Presets {
		r.merge(fmt.Sprintf("presets[%d]", i), ValidatePreset(p))
	}
	if g.Metadata.CreatedAt.IsZero() {
		r.addf("metadata.createdAt", "must be set")
	}
	if g.Metadata.ModifiedAt.IsZero() {
		r.addf("metadata.modifiedAt", "must be set")
	}
	return r
}

// Boolean wrappers over the validators for use in conditional logic.

func IsValidLayer(l Layer) bool            { return ValidateLayer(l).OK() }
func IsValidPanel(p Panel) bool            { return ValidatePanel(p).OK() }
func IsValidPreset(p Preset) bool          { return ValidatePreset(p).OK() }
func IsValidGrid(g GridConfiguration) bool { return ValidateGrid(g).OK() }
