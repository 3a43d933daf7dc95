/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preset

import (
	"testing"

	"storycore/internal/domain"
)

func TestNewPresetArity(t *testing.T) {
	short := make([]domain.Transform, 8)
	crops := make([]*domain.CropRegion, domain.PanelCount)
	if _, err := NewPreset("p", "Short", "", short, crops); err == nil {
		t.Fatalf("expected arity error for 8 transforms")
	}
	if _, err := NewPreset("p", "Short", "", identityTransforms(), make([]*domain.CropRegion, 3)); err == nil {
		t.Fatalf("expected arity error for 3 crops")
	}
	p, err := NewPreset("p", "Full", "", identityTransforms(), crops)
	if err != nil {
		t.Fatalf("valid preset rejected: %v", err)
	}
	if r := domain.ValidatePreset(p); !r.OK() {
		t.Fatalf("constructed preset does not validate: %v", r.Errors)
	}
}

func TestNewPresetRejectsInvalidContent(t *testing.T) {
	ts := identityTransforms()
	ts[4].Scale.X = 0
	if _, err := NewPreset("p", "BadScale", "", ts, make([]*domain.CropRegion, domain.PanelCount)); err == nil {
		t.Fatalf("expected content validation error")
	}
}

func TestNewPresetCopiesInput(t *testing.T) {
	ts := identityTransforms()
	crops := uniformCrops(domain.CropRegion{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5})
	p, err := NewPreset("p", "Copy", "", ts, crops)
	if err != nil {
		t.Fatalf("NewPreset: %v", err)
	}
	ts[0].Rotation = 90
	crops[0].X = 0.4
	if p.PanelTransforms[0].Rotation != 0 {
		t.Fatalf("preset shares transform slice with caller")
	}
	if p.PanelCrops[0].X != 0.25 {
		t.Fatalf("preset shares crop pointers with caller")
	}
}

func TestBuiltinPresets(t *testing.T) {
	all := BuiltinPresets()
	if len(all) != 4 {
		t.Fatalf("expected 4 built-ins, got %d", len(all))
	}
	wantIDs := []string{BuiltinCinematic, BuiltinComicBook, BuiltinPortrait, BuiltinLandscape}
	for i, p := range all {
		if p.ID != wantIDs[i] {
			t.Fatalf("built-in %d has id %q, want %q", i, p.ID, wantIDs[i])
		}
		if r := domain.ValidatePreset(p); !r.OK() {
			t.Fatalf("built-in %q invalid: %v", p.ID, r.Errors)
		}
		if len(p.PanelTransforms) != domain.PanelCount || len(p.PanelCrops) != domain.PanelCount {
			t.Fatalf("built-in %q arity wrong", p.ID)
		}
	}
}

func TestBuiltinPresetsReturnFreshCopies(t *testing.T) {
	a := BuiltinPresets()
	a[0].PanelCrops[0].X = 0.77
	b := BuiltinPresets()
	if b[0].PanelCrops[0].X == 0.77 {
		t.Fatalf("built-ins share state across calls")
	}
}

func TestLookupBuiltin(t *testing.T) {
	p, ok := LookupBuiltin(BuiltinPortrait)
	if !ok || p.Name != "Portrait" {
		t.Fatalf("LookupBuiltin(portrait) = %+v, %v", p, ok)
	}
	if _, ok := LookupBuiltin("no-such-preset"); ok {
		t.Fatalf("unknown id should not resolve")
	}
}
