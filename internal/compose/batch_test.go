/*
 * Copyright (c) 2025
 */
package compose

import (
	"os"
	"path/filepath"
	"testing"

	"storycore/internal/domain"
)

func TestBatchExport_ReviewPreset(t *testing.T) {
	ph, root := sheetProject(t)
	if err := BatchExport(ph, BatchOptions{Preset: PresetReview, CellSize: 16}); err != nil {
		t.Fatalf("batch export review: %v", err)
	}
	checks := []string{
		filepath.Join(root, "exports", "review", "pdf", "sheet.pdf"),
		filepath.Join(root, "exports", "review", "png", "sheet.png"),
	}
	for _, p := range checks {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
}

func TestBatchExport_ReferencePreset(t *testing.T) {
	ph, root := sheetProject(t)
	if err := BatchExport(ph, BatchOptions{Preset: PresetReference, CellSize: 16}); err != nil {
		t.Fatalf("batch export reference: %v", err)
	}
	checks := []string{
		filepath.Join(root, "exports", "reference", "png", "sheet.png"),
	}
	for row := 0; row < domain.GridRows; row++ {
		for col := 0; col < domain.GridCols; col++ {
			checks = append(checks, filepath.Join(root, "exports", "reference", "tiles", domain.GeneratePanelID(row, col)+".png"))
		}
	}
	for _, p := range checks {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "reference", "pdf")); !os.IsNotExist(err) {
		t.Fatalf("reference preset should not write a pdf, stat err = %v", err)
	}
}

func TestBatchExport_UnknownFormat(t *testing.T) {
	ph, _ := sheetProject(t)
	err := BatchExport(ph, BatchOptions{Preset: PresetReview, Formats: []string{"docx"}, CellSize: 16})
	if err == nil {
		t.Fatal("expected unknown format error")
	}
}
