/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"storycore/internal/domain"
	"storycore/internal/storage"
)

// ExportSheetPNG renders the project's master sheet and writes it as one
// PNG. A relative outPath is anchored under the project's exports folder;
// an empty outPath defaults to sheet.png.
func ExportSheetPNG(ph *storage.ProjectHandle, outPath string, opt SheetOptions) error {
	if ph == nil {
		return fmt.Errorf("project handle is nil")
	}
	if outPath == "" {
		outPath = "sheet.png"
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, "exports", outPath)
	}
	sheet, err := RenderSheet(ph.Grid, DirResolver{Root: ph.Root}, opt)
	if err != nil {
		return err
	}
	return writePNG(outPath, sheet)
}

// ExportPanelTiles writes each composited cell as its own PNG named after
// the panel id, for feeding single panels back into the generation
// pipeline. A relative outDir is anchored under the project's exports
// folder.
func ExportPanelTiles(ph *storage.ProjectHandle, outDir string, opt SheetOptions) error {
	if ph == nil {
		return fmt.Errorf("project handle is nil")
	}
	if outDir == "" {
		outDir = "tiles"
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(ph.Root, "exports", outDir)
	}
	sheet, err := RenderSheet(ph.Grid, DirResolver{Root: ph.Root}, opt)
	if err != nil {
		return err
	}
	cell := sheet.Bounds().Dx() / domain.GridCols
	for i := range ph.Grid.Panels {
		p := &ph.Grid.Panels[i]
		x0 := p.Position.Col * cell
		y0 := p.Position.Row * cell
		tile := sheet.SubImage(image.Rect(x0, y0, x0+cell, y0+cell))
		if err := writePNG(filepath.Join(outDir, p.ID+".png"), tile); err != nil {
			return fmt.Errorf("tile %s: %w", p.ID, err)
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}
