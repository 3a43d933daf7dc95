/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package presetpack

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"storycore/internal/domain"
	"storycore/internal/preset"
)

func twoPresets(t *testing.T) []domain.Preset {
	t.Helper()
	a, err := preset.NewPreset("wide-bands", "Wide Bands", "test fixture",
		identityTransforms(), uniformCrops(domain.CropRegion{X: 0, Y: 0.25, Width: 1, Height: 0.5}))
	if err != nil {
		t.Fatalf("build preset a: %v", err)
	}
	b, err := preset.NewPreset("tight-center", "Tight Center", "",
		identityTransforms(), uniformCrops(domain.CropRegion{X: 0.2, Y: 0.2, Width: 0.6, Height: 0.6}))
	if err != nil {
		t.Fatalf("build preset b: %v", err)
	}
	return []domain.Preset{a, b}
}

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

func TestExportAndImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "packs", "framing.zip")
	want := twoPresets(t)
	if err := ExportPresets(want, zipPath); err != nil {
		t.Fatalf("export: %v", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	_ = r.Close()
	for _, n := range []string{ManifestName, "presets/wide-bands.json", "presets/tight-center.json"} {
		if !names[n] {
			t.Fatalf("zip missing entry %s, have %v", n, names)
		}
	}

	got, issues, err := ImportPresets(zipPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(got) != 2 {
		t.Fatalf("imported %d presets, want 2", len(got))
	}
	byID := map[string]domain.Preset{}
	for _, p := range got {
		byID[p.ID] = p
	}
	wide, ok := byID["wide-bands"]
	if !ok {
		t.Fatalf("wide-bands not imported: %v", byID)
	}
	if wide.Name != "Wide Bands" || len(wide.PanelTransforms) != domain.PanelCount {
		t.Fatalf("round-trip mangled preset: %+v", wide)
	}
	if wide.PanelCrops[4] == nil || wide.PanelCrops[4].Height != 0.5 {
		t.Fatalf("crop did not survive round-trip: %+v", wide.PanelCrops[4])
	}
}

func TestExportRefusesBadPresets(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bad.zip")

	short := domain.Preset{ID: "short", Name: "Short", PanelTransforms: identityTransforms()[:3], PanelCrops: uniformCrops(domain.CropRegion{X: 0, Y: 0, Width: 1, Height: 1})}
	if err := ExportPresets([]domain.Preset{short}, zipPath); err == nil {
		t.Fatal("expected arity error")
	}

	sneaky := twoPresets(t)[0]
	sneaky.ID = "../escape"
	if err := ExportPresets([]domain.Preset{sneaky}, zipPath); err == nil {
		t.Fatal("expected unsafe id error")
	}

	dup := twoPresets(t)
	dup[1].ID = dup[0].ID
	if err := ExportPresets(dup, zipPath); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestImportCollectsPerEntryIssues(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "mixed.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)

	good := twoPresets(t)[0]
	data, err := json.Marshal(good)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	w, _ := zw.Create("presets/good.json")
	_, _ = w.Write(data)

	w, _ = zw.Create("presets/broken.json")
	_, _ = w.Write([]byte("{ not json"))

	stub := domain.Preset{ID: "stub", Name: "Stub"}
	stubData, _ := json.Marshal(stub)
	w, _ = zw.Create("presets/stub.json")
	_, _ = w.Write(stubData)

	w, _ = zw.Create("presets/../evil.json")
	_, _ = w.Write(data)

	w, _ = zw.Create("refs/readme.txt")
	_, _ = w.Write([]byte("not a preset, should be ignored"))

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	got, issues, err := ImportPresets(zipPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got) != 1 || got[0].ID != good.ID {
		t.Fatalf("imported %v, want just %s", got, good.ID)
	}
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3: %v", len(issues), issues)
	}
	byName := map[string]bool{}
	for _, is := range issues {
		if is.Err == nil {
			t.Fatalf("issue without error: %+v", is)
		}
		byName[is.Name] = true
	}
	for _, n := range []string{"presets/broken.json", "presets/stub.json", "presets/../evil.json"} {
		if !byName[n] {
			t.Fatalf("missing issue for %s: %v", n, issues)
		}
	}
}

func TestImportDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "dup.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	data, err := json.Marshal(twoPresets(t)[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	w, _ := zw.Create("presets/one.json")
	_, _ = w.Write(data)
	w, _ = zw.Create("presets/two.json")
	_, _ = w.Write(data)
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	got, issues, err := ImportPresets(zipPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("imported %d, want 1", len(got))
	}
	if len(issues) != 1 || issues[0].Name != "presets/two.json" {
		t.Fatalf("issues = %v, want duplicate on presets/two.json", issues)
	}
}

func TestImportBuiltinsSurviveThePack(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "builtin.zip")
	if err := ExportPresets(preset.BuiltinPresets(), zipPath); err != nil {
		t.Fatalf("export builtins: %v", err)
	}
	got, issues, err := ImportPresets(zipPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(got) != len(preset.BuiltinPresets()) {
		t.Fatalf("imported %d, want %d", len(got), len(preset.BuiltinPresets()))
	}
}

func TestExportEmptyArgs(t *testing.T) {
	if err := ExportPresets(nil, ""); err == nil {
		t.Fatal("expected error on empty zip path")
	}
	if _, _, err := ImportPresets(""); err == nil {
		t.Fatal("expected error on empty pack path")
	}
}
