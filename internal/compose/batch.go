/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package compose

import (
	"fmt"
	"path/filepath"
	"strings"

	"storycore/internal/storage"
)

// PresetName selects a ready-made export bundle.
type PresetName string

const (
	// PresetReview targets humans: contact sheet and guided PNG with markup.
	PresetReview PresetName = "review"
	// PresetReference targets the generation pipeline: clean sheet plus tiles.
	PresetReference PresetName = "reference"
	// PresetArchive keeps everything: contact sheet, full sheet and tiles.
	PresetArchive PresetName = "archive"
)

// BatchOptions controls preset-driven export fan-out.
//
// Path semantics:
//   - If OutDir is empty or relative, outputs land under
//     <project>/exports/<preset>/ grouped by format.
//   - Formats allowed: png, pdf, tiles; empty means preset defaults.
type BatchOptions struct {
	Preset             PresetName
	Formats            []string
	CellSize           int
	IncludeGuides      *bool // overrides the preset default when set
	IncludeAnnotations *bool // overrides the preset default when set
	OutDir             string
}

// BatchExport runs the exports selected by the preset.
func BatchExport(ph *storage.ProjectHandle, opt BatchOptions) error {
	if ph == nil {
		return fmt.Errorf("project handle is nil")
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.Root, "exports", baseOut)
	}

	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}
	markup := presetIncludeAnnotations(opt.Preset)
	if opt.IncludeAnnotations != nil {
		markup = *opt.IncludeAnnotations
	}
	sheetOpt := SheetOptions{CellSize: opt.CellSize, IncludeGuides: guides, IncludeAnnotations: markup}

	for _, f := range formats {
		switch f {
		case "png":
			out := filepath.Join(baseOut, "png", "sheet.png")
			if err := ExportSheetPNG(ph, out, sheetOpt); err != nil {
				return fmt.Errorf("png sheet: %w", err)
			}
		case "pdf":
			out := filepath.Join(baseOut, "pdf", "sheet.pdf")
			po := PDFOptions{IncludeGuides: guides, IncludeAnnotations: markup, CellSize: opt.CellSize}
			if err := ExportSheetPDF(ph, out, po); err != nil {
				return fmt.Errorf("pdf sheet: %w", err)
			}
		case "tiles":
			to := sheetOpt
			// guide frames never go into tiles; they would end up
			// inside regenerated panels
			to.IncludeGuides = false
			if err := ExportPanelTiles(ph, filepath.Join(baseOut, "tiles"), to); err != nil {
				return fmt.Errorf("panel tiles: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s", f)
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetReview:
		return []string{"pdf", "png"}
	case PresetReference:
		return []string{"png", "tiles"}
	case PresetArchive:
		return []string{"pdf", "png", "tiles"}
	default:
		return []string{"png"}
	}
}

func presetIncludeGuides(p PresetName) bool {
	switch p {
	case PresetReview:
		return true
	default:
		return false
	}
}

func presetIncludeAnnotations(p PresetName) bool {
	switch p {
	case PresetReference:
		return false
	default:
		return true
	}
}
