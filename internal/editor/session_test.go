/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"testing"

	"storycore/internal/domain"
	"storycore/internal/preset"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	g := domain.NewGridConfiguration("proj-test")
	s, err := NewSession(&g, Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSessionRejectsBrokenGrid(t *testing.T) {
	if _, err := NewSession(nil, Options{}); err == nil {
		t.Fatalf("nil grid accepted")
	}
	g := domain.NewGridConfiguration("p")
	g.Version = "junk"
	if _, err := NewSession(&g, Options{}); err == nil {
		t.Fatalf("invalid grid accepted")
	}
}

func TestSetTransformConstrainsAndRecords(t *testing.T) {
	s := newSession(t)
	in := domain.IdentityTransform()
	in.Scale = domain.Point{X: 0, Y: -5}
	in.Rotation = 400
	if err := s.SetTransform("panel-0-0", in); err != nil {
		t.Fatalf("SetTransform: %v", err)
	}
	got := s.Grid().FindPanel("panel-0-0").Transform
	if got.Scale.X != domain.MinScale || got.Scale.Y != domain.MinScale {
		t.Fatalf("scale not floored: %+v", got.Scale)
	}
	if got.Rotation != domain.MaxRotationDeg {
		t.Fatalf("rotation not clamped: %v", got.Rotation)
	}
	if u, _ := s.History().Depths(); u != 1 {
		t.Fatalf("history depth = %d, want 1", u)
	}
}

func TestUndoRedoTransformRoundTrip(t *testing.T) {
	s := newSession(t)
	before := s.Grid().FindPanel("panel-0-0").Transform

	changed := before
	changed.Rotation = 45
	changed.Position = domain.Point{X: 12, Y: -7}
	if err := s.SetTransform("panel-0-0", changed); err != nil {
		t.Fatalf("SetTransform: %v", err)
	}

	op, err := s.Undo()
	if err != nil || op == nil {
		t.Fatalf("Undo: op=%v err=%v", op, err)
	}
	if got := s.Grid().FindPanel("panel-0-0").Transform; got != before {
		t.Fatalf("undo did not restore: %+v vs %+v", got, before)
	}

	op, err = s.Redo()
	if err != nil || op == nil {
		t.Fatalf("Redo: op=%v err=%v", op, err)
	}
	if got := s.Grid().FindPanel("panel-0-0").Transform; got != changed {
		t.Fatalf("redo did not reapply: %+v vs %+v", got, changed)
	}
}

func TestUndoRedoEmptySession(t *testing.T) {
	s := newSession(t)
	if op, err := s.Undo(); op != nil || err != nil {
		t.Fatalf("empty undo: op=%v err=%v", op, err)
	}
	if op, err := s.Redo(); op != nil || err != nil {
		t.Fatalf("empty redo: op=%v err=%v", op, err)
	}
}

func TestSetCropAndClear(t *testing.T) {
	s := newSession(t)
	if err := s.SetCrop("panel-1-1", &domain.CropRegion{X: 0.75, Y: 0, Width: 0.5, Height: 0.5}); err != nil {
		t.Fatalf("SetCrop: %v", err)
	}
	c := s.Grid().FindPanel("panel-1-1").Crop
	if c == nil || c.Width != 0.25 {
		t.Fatalf("crop not constrained on apply: %+v", c)
	}
	if err := s.SetCrop("panel-1-1", nil); err != nil {
		t.Fatalf("clear crop: %v", err)
	}
	if s.Grid().FindPanel("panel-1-1").Crop != nil {
		t.Fatalf("crop not cleared")
	}
	// Undoing the clear restores the constrained crop.
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	c = s.Grid().FindPanel("panel-1-1").Crop
	if c == nil || c.X != 0.75 || c.Width != 0.25 {
		t.Fatalf("undo did not restore crop: %+v", c)
	}
}

func TestUnknownPanelIDs(t *testing.T) {
	s := newSession(t)
	if err := s.SetTransform("panel-9-9", domain.IdentityTransform()); err == nil {
		t.Fatalf("out-of-range id accepted")
	}
	if err := s.SetCrop("bogus", nil); err == nil {
		t.Fatalf("malformed id accepted")
	}
	if _, err := s.BuildGenerationRequest("panel-5-0"); err == nil {
		t.Fatalf("out-of-range id accepted by request builder")
	}
}

func TestLayerLifecycleWithUndo(t *testing.T) {
	s := newSession(t)
	l := domain.NewImageLayer("bg", "panels/a.png", 256, 256)
	if err := s.AddLayer("panel-0-1", l); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	if err := s.RemoveLayer("panel-0-1", l.ID); err != nil {
		t.Fatalf("RemoveLayer: %v", err)
	}
	if got := s.Grid().FindPanel("panel-0-1").Layers; len(got) != 0 {
		t.Fatalf("layer not removed: %+v", got)
	}
	// Undo the removal, then the addition.
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo remove: %v", err)
	}
	if got := s.Grid().FindPanel("panel-0-1").Layers; len(got) != 1 || got[0].ID != l.ID {
		t.Fatalf("undo did not restore layer: %+v", got)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo add: %v", err)
	}
	if got := s.Grid().FindPanel("panel-0-1").Layers; len(got) != 0 {
		t.Fatalf("undo did not remove layer: %+v", got)
	}

	if err := s.RemoveLayer("panel-0-1", "layer-0-0"); err == nil {
		t.Fatalf("removing a missing layer should fail")
	}
	if err := s.AddLayer("panel-0-1", domain.Layer{}); err == nil {
		t.Fatalf("invalid layer accepted")
	}
}

func TestReorderLayer(t *testing.T) {
	s := newSession(t)
	a := domain.NewImageLayer("a", "a.png", 0, 0)
	b := domain.NewImageLayer("b", "b.png", 0, 0)
	c := domain.NewImageLayer("c", "c.png", 0, 0)
	for _, l := range []domain.Layer{a, b, c} {
		if err := s.AddLayer("panel-2-2", l); err != nil {
			t.Fatalf("AddLayer: %v", err)
		}
	}
	if err := s.ReorderLayer("panel-2-2", 0, 2); err != nil {
		t.Fatalf("ReorderLayer: %v", err)
	}
	got := s.Grid().FindPanel("panel-2-2").Layers
	if got[0].ID != b.ID || got[1].ID != c.ID || got[2].ID != a.ID {
		t.Fatalf("unexpected order: %s %s %s", got[0].Name, got[1].Name, got[2].Name)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got = s.Grid().FindPanel("panel-2-2").Layers
	if got[0].ID != a.ID || got[2].ID != c.ID {
		t.Fatalf("undo did not restore order: %s %s %s", got[0].Name, got[1].Name, got[2].Name)
	}
	if err := s.ReorderLayer("panel-2-2", 0, 5); err == nil {
		t.Fatalf("out-of-range reorder accepted")
	}
}

func TestUpdateLayer(t *testing.T) {
	s := newSession(t)
	l := domain.NewImageLayer("bg", "a.png", 0, 0)
	if err := s.AddLayer("panel-0-0", l); err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	opacity := 3.0
	hidden := false
	mode := domain.BlendMultiply
	if err := s.UpdateLayer("panel-0-0", l.ID, LayerUpdate{Opacity: &opacity, Visible: &hidden, BlendMode: &mode}); err != nil {
		t.Fatalf("UpdateLayer: %v", err)
	}
	got := s.Grid().FindPanel("panel-0-0").Layers[0]
	if got.Opacity != 1 || got.Visible || got.BlendMode != domain.BlendMultiply {
		t.Fatalf("update not applied/constrained: %+v", got)
	}
	bad := domain.BlendMode("dissolve")
	if err := s.UpdateLayer("panel-0-0", l.ID, LayerUpdate{BlendMode: &bad}); err == nil {
		t.Fatalf("unknown blend mode accepted")
	}
}

func TestAnnotationsWithUndo(t *testing.T) {
	s := newSession(t)
	id, err := s.AddAnnotation("panel-1-0", domain.Annotation{Text: "fix hands", Position: domain.Point{X: 0.2, Y: 0.3}})
	if err != nil || id == "" {
		t.Fatalf("AddAnnotation: id=%q err=%v", id, err)
	}
	if err := s.RemoveAnnotation("panel-1-0", id); err != nil {
		t.Fatalf("RemoveAnnotation: %v", err)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	anns := s.Grid().FindPanel("panel-1-0").Annotations
	if len(anns) != 1 || anns[0].Text != "fix hands" {
		t.Fatalf("annotation not restored: %+v", anns)
	}
	if err := s.RemoveAnnotation("panel-1-0", "annot-0-0"); err == nil {
		t.Fatalf("removing a missing annotation should fail")
	}
}

func TestApplyPresetIsOneUndoStep(t *testing.T) {
	s := newSession(t)
	pr, ok := preset.LookupBuiltin(preset.BuiltinCinematic)
	if !ok {
		t.Fatalf("builtin missing")
	}
	if err := s.ApplyPreset(pr); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	for _, p := range s.Grid().Panels {
		if p.Crop == nil {
			t.Fatalf("panel %s missing preset crop", p.ID)
		}
	}
	if u, _ := s.History().Depths(); u != 1 {
		t.Fatalf("preset apply should be one history entry, depth=%d", u)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	for _, p := range s.Grid().Panels {
		if p.Crop != nil {
			t.Fatalf("undo left a preset crop on %s", p.ID)
		}
	}

	broken := pr
	broken.PanelTransforms = broken.PanelTransforms[:5]
	if err := s.ApplyPreset(broken); err == nil {
		t.Fatalf("preset with wrong arity accepted")
	}
}

func TestRecordGenerationResult(t *testing.T) {
	s := newSession(t)
	res := domain.GenerationResult{
		PanelID:  "panel-2-0",
		ImageURL: "panels/gen-2-0.png",
		Metadata: domain.GenerationMetadata{Seed: 1234, GenerationTimeMs: 900, QualityScore: 0.82},
	}
	if err := s.RecordGenerationResult(res); err != nil {
		t.Fatalf("RecordGenerationResult: %v", err)
	}
	layers := s.Grid().FindPanel("panel-2-0").Layers
	if len(layers) != 1 || layers[0].Content.Image == nil {
		t.Fatalf("result not stored as image layer: %+v", layers)
	}
	gen := layers[0].Content.Image.Generation
	if gen == nil || gen.Seed != 1234 {
		t.Fatalf("generation metadata missing: %+v", gen)
	}
	if err := s.RecordGenerationResult(domain.GenerationResult{PanelID: "panel-2-0"}); err == nil {
		t.Fatalf("result without image url accepted")
	}
}

func TestBuildGenerationRequest(t *testing.T) {
	s := newSession(t)
	if err := s.SetPanelMetadata("panel-0-2", domain.PanelMetadata{Prompt: "stone bridge at dawn", Seed: 7, StyleReference: "ref/sheet.png"}); err != nil {
		t.Fatalf("SetPanelMetadata: %v", err)
	}
	if err := s.SetCrop("panel-0-2", &domain.CropRegion{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}); err != nil {
		t.Fatalf("SetCrop: %v", err)
	}
	req, err := s.BuildGenerationRequest("panel-0-2")
	if err != nil {
		t.Fatalf("BuildGenerationRequest: %v", err)
	}
	if req.Prompt != "stone bridge at dawn" || req.Seed != 7 || req.Crop == nil {
		t.Fatalf("request incomplete: %+v", req)
	}
	// The request's crop is a copy, not an alias into the grid.
	req.Crop.X = 0.9
	if s.Grid().FindPanel("panel-0-2").Crop.X == 0.9 {
		t.Fatalf("request aliases the live crop")
	}
}

func TestViewportTransience(t *testing.T) {
	s := newSession(t)
	s.SetZoom(99)
	if got := s.Viewport().Zoom; got != domain.MaxZoom {
		t.Fatalf("zoom not constrained: %v", got)
	}
	s.SetZoom(0.001)
	if got := s.Viewport().Zoom; got != domain.MinZoom {
		t.Fatalf("zoom floor not applied: %v", got)
	}
	s.SetPan(domain.Point{X: -400, Y: 250})
	s.SetViewportBounds(domain.Size{Width: 1920, Height: 1080})
	if u, r := s.History().Depths(); u != 0 || r != 0 {
		t.Fatalf("viewport changes entered history: (%d,%d)", u, r)
	}
}

type collectingJournal struct {
	ops []domain.Operation
}

func (j *collectingJournal) AppendOperation(op domain.Operation) error {
	j.ops = append(j.ops, op)
	return nil
}

func TestJournalReceivesCommits(t *testing.T) {
	g := domain.NewGridConfiguration("proj-journal")
	j := &collectingJournal{}
	s, err := NewSession(&g, Options{Journal: j})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.SetTransform("panel-0-0", domain.IdentityTransform()); err != nil {
		t.Fatalf("SetTransform: %v", err)
	}
	if err := s.SetCrop("panel-0-0", &domain.CropRegion{X: 0, Y: 0, Width: 0.5, Height: 0.5}); err != nil {
		t.Fatalf("SetCrop: %v", err)
	}
	if len(j.ops) != 2 || j.ops[0].Type != domain.OpTransform || j.ops[1].Type != domain.OpCrop {
		t.Fatalf("journal missed commits: %+v", j.ops)
	}
}
