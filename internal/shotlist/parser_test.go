/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package shotlist

import "testing"

func TestParseSectionsAndShots(t *testing.T) {
	input := `# Act One
PANEL 0,0
PROMPT: wide shot of the harbor @establishing
  mist over the water @mood
SEED: 42
STYLE: refs/harbor.png
; keep the horizon level

PANEL 0 1
PROMPT: close on the captain`

	sl, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(sl.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sl.Sections))
	}
	sec := sl.Sections[0]
	if sec.Title != "Act One" {
		t.Fatalf("unexpected section title: %q", sec.Title)
	}
	if len(sec.Shots) != 2 {
		t.Fatalf("expected 2 shots, got %d", len(sec.Shots))
	}

	s0 := sec.Shots[0]
	if s0.Row != 0 || s0.Col != 0 || !s0.Assigned() {
		t.Fatalf("shot 1 not assigned to 0,0: %+v", s0)
	}
	if s0.Prompt != "wide shot of the harbor @establishing\nmist over the water @mood" {
		t.Fatalf("unexpected prompt: %q", s0.Prompt)
	}
	if !s0.HasSeed || s0.Seed != 42 {
		t.Fatalf("seed not captured: %+v", s0)
	}
	if s0.Style != "refs/harbor.png" {
		t.Fatalf("style not captured: %q", s0.Style)
	}
	if len(s0.Notes) != 1 || s0.Notes[0] != "keep the horizon level" {
		t.Fatalf("note not captured: %+v", s0.Notes)
	}
	if len(s0.Tags) != 2 || s0.Tags[0] != "establishing" || s0.Tags[1] != "mood" {
		t.Fatalf("tags not merged from continuation: %+v", s0.Tags)
	}

	s1 := sec.Shots[1]
	if s1.Row != 0 || s1.Col != 1 {
		t.Fatalf("space-separated marker not parsed: %+v", s1)
	}
	if s1.PanelID() != "panel-0-1" {
		t.Fatalf("unexpected panel id: %q", s1.PanelID())
	}
}

func TestImplicitSectionAndLooseText(t *testing.T) {
	input := `rough plan before layout
PROMPT: something early
; loose note`

	sl, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(sl.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sl.Sections))
	}
	sec := sl.Sections[0]
	if sec.Title != "Untitled" {
		t.Fatalf("expected implicit Untitled section, got %q", sec.Title)
	}
	if len(sec.Notes) != 1 || sec.Notes[0] != "rough plan before layout" {
		t.Fatalf("loose text lost: %+v", sec.Notes)
	}
	un := sl.UnassignedShots()
	if len(un) != 1 || un[0].Prompt != "something early" {
		t.Fatalf("unassigned shot lost: %+v", un)
	}
	if un[0].Metadata().Notes != "loose note" {
		t.Fatalf("shot note lost: %+v", un[0].Notes)
	}
	if un[0].PanelID() != "" {
		t.Fatalf("unassigned shot has a panel id: %q", un[0].PanelID())
	}
}

func TestParseReportsContentErrors(t *testing.T) {
	input := `PANEL 5,0
PROMPT: out of range but kept
PANEL 1,1
SEED: twelve
PANEL 1,1
PROMPT: duplicate cell`

	sl, errs := Parse(input)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %+v", len(errs), errs)
	}
	if errs[0].Line != 1 || errs[1].Line != 4 || errs[2].Line != 5 {
		t.Fatalf("unexpected error lines: %+v", errs)
	}

	var shots []Shot
	for _, sec := range sl.Sections {
		shots = append(shots, sec.Shots...)
	}
	if len(shots) != 3 {
		t.Fatalf("expected 3 shots kept, got %d", len(shots))
	}
	if shots[0].Assigned() || shots[0].Prompt != "out of range but kept" {
		t.Fatalf("out-of-range shot not preserved: %+v", shots[0])
	}
	if shots[1].HasSeed {
		t.Fatalf("bad seed should not be stored: %+v", shots[1])
	}
	set := sl.AssignedPanelSet()
	if len(set) != 1 {
		t.Fatalf("expected one assigned cell, got %v", set)
	}
	if _, ok := set["panel-1-1"]; !ok {
		t.Fatalf("panel-1-1 missing from assigned set: %v", set)
	}
}

func TestPanelUpdatesRowMajorLastWins(t *testing.T) {
	input := `# order
PANEL 2,2
PROMPT: last cell
PANEL 0,1
PROMPT: early cell
SEED: 7
PANEL 2,2
PROMPT: replacement`

	sl, errs := Parse(input)
	if len(errs) != 1 {
		t.Fatalf("expected duplicate-marker error, got %+v", errs)
	}
	ups := sl.PanelUpdates()
	if len(ups) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(ups))
	}
	if ups[0].PanelID != "panel-0-1" || ups[1].PanelID != "panel-2-2" {
		t.Fatalf("updates not in row-major order: %+v", ups)
	}
	if ups[0].Meta.Prompt != "early cell" || ups[0].Meta.Seed != 7 {
		t.Fatalf("metadata mapping wrong: %+v", ups[0].Meta)
	}
	if ups[1].Meta.Prompt != "replacement" {
		t.Fatalf("duplicate cell should keep the later shot: %+v", ups[1].Meta)
	}
}
