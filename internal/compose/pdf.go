/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"storycore/internal/domain"
	"storycore/internal/storage"
)

// PDFOptions controls contact sheet output. Units are points; built-in
// Helvetica keeps text vector without embedding fonts.
type PDFOptions struct {
	IncludeGuides      bool
	IncludeAnnotations bool
	CellSize           int // raster resolution per cell in pixels; 0 means DefaultCellSize
}

// ExportSheetPDF writes a one-page contact sheet: title header, the nine
// composited cells in grid order and a caption with the panel id and prompt
// under each. A relative outPath is anchored under the project's exports
// folder; an empty outPath defaults to sheet.pdf.
func ExportSheetPDF(ph *storage.ProjectHandle, outPath string, opt PDFOptions) error {
	if ph == nil {
		return fmt.Errorf("project handle is nil")
	}
	if outPath == "" {
		outPath = "sheet.pdf"
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, "exports", outPath)
	}

	sheet, err := RenderSheet(ph.Grid, DirResolver{Root: ph.Root}, SheetOptions{
		CellSize:           opt.CellSize,
		IncludeAnnotations: opt.IncludeAnnotations,
	})
	if err != nil {
		return err
	}

	const (
		margin  = 36.0 // pt
		gap     = 10.0
		headerH = 40.0
		labelH  = 14.0
		cellPt  = 156.0
	)
	pageW := 2*margin + 3*cellPt + 2*gap
	pageH := 2*margin + headerH + 3*(cellPt+labelH) + 2*gap

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
		OrientationStr: "",
	})
	title := ph.Grid.Metadata.Title
	if title == "" {
		title = ph.Grid.ProjectID
	}
	pdf.SetTitle(fmt.Sprintf("%s - Coherence Sheet", title), false)
	pdf.SetAuthor("StoryCore", false)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, margin+14, title)
	pdf.SetFont("Helvetica", "", 9)
	meta := fmt.Sprintf("project %s / grid v%s / modified %s",
		ph.Grid.ProjectID, ph.Grid.Version, ph.Grid.Metadata.ModifiedAt.Format("2006-01-02 15:04"))
	pdf.Text(margin, margin+28, meta)

	side := sheet.Bounds().Dx() / domain.GridCols
	for i := range ph.Grid.Panels {
		p := &ph.Grid.Panels[i]
		x0 := p.Position.Col * side
		y0 := p.Position.Row * side
		tile := sheet.SubImage(image.Rect(x0, y0, x0+side, y0+side))

		var buf bytes.Buffer
		if err := png.Encode(&buf, tile); err != nil {
			return fmt.Errorf("encode cell %s: %w", p.ID, err)
		}
		name := "cell-" + p.ID
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)

		cx := margin + float64(p.Position.Col)*(cellPt+gap)
		cy := margin + headerH + float64(p.Position.Row)*(cellPt+labelH+gap)
		pdf.ImageOptions(name, cx, cy, cellPt, cellPt, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		if opt.IncludeGuides {
			pdf.SetDrawColor(255, 0, 0)
			pdf.SetLineWidth(0.4)
			pdf.Rect(cx, cy, cellPt, cellPt, "D")
		}

		label := p.ID
		if s := strings.TrimSpace(p.Metadata.Prompt); s != "" {
			if r := []rune(s); len(r) > 38 {
				s = string(r[:38]) + "..."
			}
			label += "  " + s
		}
		pdf.SetFont("Helvetica", "", 8)
		pdf.Text(cx, cy+cellPt+10, label)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
