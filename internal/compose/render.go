/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose renders the 3x3 master sheet from a grid configuration:
// per panel it resolves image layers, applies the panel transform and crop,
// blends the layer stack and optionally draws markup and cell guides. The
// sheet is what generation consumes, so cells tile seamlessly with no
// gutters.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"storycore/internal/domain"
	"storycore/internal/geom"
)

// DefaultCellSize is the pixel edge length of one cell when SheetOptions
// leaves CellSize zero.
const DefaultCellSize = 512

// resampler handles every scale and transform pass.
var resampler draw.Interpolator = draw.CatmullRom

// SheetOptions controls sheet rendering.
// Zero-value colors get defaults: white background, red guides.
type SheetOptions struct {
	CellSize           int
	IncludeGuides      bool
	IncludeAnnotations bool
	Background         color.RGBA
	GuideColor         color.RGBA
}

// RenderSheet composites the full 3x3 sheet for a valid grid. Panels land
// at (col*cell, row*cell); the result is always 3*cell wide and tall.
func RenderSheet(grid domain.GridConfiguration, assets AssetResolver, opt SheetOptions) (*image.RGBA, error) {
	if err := domain.ValidateGrid(grid).Err(); err != nil {
		return nil, fmt.Errorf("refusing to render invalid grid: %w", err)
	}

	// Defaults
	cell := opt.CellSize
	if cell <= 0 {
		cell = DefaultCellSize
	}
	bg := opt.Background
	if bg == (color.RGBA{}) {
		bg = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	guideCol := opt.GuideColor
	if guideCol == (color.RGBA{}) {
		guideCol = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	}
	if assets == nil {
		assets = nullResolver{}
	}

	sheet := image.NewRGBA(image.Rect(0, 0, domain.GridCols*cell, domain.GridRows*cell))
	draw.Draw(sheet, sheet.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	for i := range grid.Panels {
		p := &grid.Panels[i]
		tile, err := renderPanel(p, assets, cell, bg, opt.IncludeAnnotations)
		if err != nil {
			return nil, fmt.Errorf("panel %s: %w", p.ID, err)
		}
		origin := image.Pt(p.Position.Col*cell, p.Position.Row*cell)
		dr := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cell, cell))}
		draw.Draw(sheet, dr, tile, tile.Bounds().Min, draw.Src)
	}

	if opt.IncludeGuides {
		for row := 0; row < domain.GridRows; row++ {
			for col := 0; col < domain.GridCols; col++ {
				strokeRect(sheet, col*cell, row*cell, (col+1)*cell-1, (row+1)*cell-1, guideCol)
			}
		}
	}
	return sheet, nil
}

// renderPanel composites one cell. Layers blend in content space first so
// the panel transform and crop act on the finished stack, not per layer.
func renderPanel(p *domain.Panel, assets AssetResolver, cell int, bg color.RGBA, withMarkup bool) (*image.RGBA, error) {
	content := image.NewRGBA(image.Rect(0, 0, cell, cell))
	draw.Draw(content, content.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	for _, l := range p.Layers {
		if !l.Visible || l.Opacity <= 0 {
			continue
		}
		switch l.Type {
		case domain.LayerImage:
			if l.Content.Image == nil {
				continue
			}
			if err := compositeImageLayer(content, l, assets); err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.ID, err)
			}
		case domain.LayerAnnotation:
			if withMarkup && l.Content.Annotation != nil {
				scratch := image.NewRGBA(content.Bounds())
				drawMarkup(scratch, *l.Content.Annotation)
				blendImage(content, scratch, l.BlendMode, l.Opacity)
			}
		case domain.LayerEffect:
			if l.Content.Effect != nil {
				applyEffect(content, *l.Content.Effect, l.Opacity)
			}
		}
	}

	tile := content
	if p.Crop != nil || p.Transform != domain.IdentityTransform() {
		tile = image.NewRGBA(image.Rect(0, 0, cell, cell))
		draw.Draw(tile, tile.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

		sr := content.Bounds()
		if p.Crop != nil {
			cr := geom.CropRect(*p.Crop, float64(cell), float64(cell))
			sr = sr.Intersect(image.Rect(
				int(math.Round(cr.X)), int(math.Round(cr.Y)),
				int(math.Round(cr.X+cr.W)), int(math.Round(cr.Y+cr.H)),
			))
		}
		if !sr.Empty() {
			m := geom.TransformMatrix(p.Transform, float64(cell), float64(cell))
			resampler.Transform(tile, aff3(m), content, sr, draw.Over, nil)
		}
	}

	if withMarkup {
		for _, a := range p.Annotations {
			drawNote(tile, a, cell)
		}
	}
	return tile, nil
}

// compositeImageLayer resolves the layer's asset, stretches it to content
// size and blends it onto the stack. Missing assets draw a placeholder so a
// deleted take leaves a visible gap instead of failing the whole sheet.
func compositeImageLayer(dst *image.RGBA, l domain.Layer, assets AssetResolver) error {
	src, err := assets.Resolve(l.Content.Image.URL)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			drawPlaceholder(dst, l.Name)
			return nil
		}
		return err
	}
	scratch := image.NewRGBA(dst.Bounds())
	resampler.Scale(scratch, scratch.Bounds(), src, src.Bounds(), draw.Src, nil)
	blendImage(dst, scratch, l.BlendMode, l.Opacity)
	return nil
}

// blendImage composites src over dst with the given mode and layer opacity.
// dst must be opaque, which holds for content stacks built over an opaque
// base fill.
func blendImage(dst, src *image.RGBA, mode domain.BlendMode, opacity float64) {
	if opacity > 1 {
		opacity = 1
	}
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		si := src.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, di, si = x+1, di+4, si+4 {
			sa := float64(src.Pix[si+3]) / 255
			if sa <= 0 {
				continue
			}
			w := sa * opacity
			for c := 0; c < 3; c++ {
				d := float64(dst.Pix[di+c]) / 255
				// Pix stores premultiplied channels; divide the
				// source alpha back out before blending.
				s := float64(src.Pix[si+c]) / 255 / sa
				if s > 1 {
					s = 1
				}
				v := blendChannel(mode, d, s)
				dst.Pix[di+c] = clamp8((d + (v-d)*w) * 255)
			}
		}
	}
}

func blendChannel(mode domain.BlendMode, d, s float64) float64 {
	switch mode {
	case domain.BlendMultiply:
		return d * s
	case domain.BlendScreen:
		return 1 - (1-d)*(1-s)
	case domain.BlendOverlay:
		if d < 0.5 {
			return 2 * d * s
		}
		return 1 - 2*(1-d)*(1-s)
	case domain.BlendDarken:
		return math.Min(d, s)
	case domain.BlendLighten:
		return math.Max(d, s)
	default:
		return s
	}
}

var defaultMarkupColor = color.RGBA{R: 255, G: 64, B: 64, A: 255}

// drawMarkup renders an annotation layer's strokes and text labels. Points
// and positions are panel-normalized.
func drawMarkup(dst *image.RGBA, a domain.AnnotationContent) {
	b := dst.Bounds()
	w := float64(b.Dx())
	h := float64(b.Dy())
	for _, s := range a.Strokes {
		col := parseHexColor(s.Color, defaultMarkupColor)
		for i := 1; i < len(s.Points); i++ {
			p0 := s.Points[i-1]
			p1 := s.Points[i]
			drawLine(dst, int(p0.X*w), int(p0.Y*h), int(p1.X*w), int(p1.Y*h), col)
		}
	}
	for _, t := range a.Texts {
		col := parseHexColor(t.Color, defaultMarkupColor)
		drawLabel(dst, int(t.Position.X*w), int(t.Position.Y*h), t.Text, col)
	}
}

// drawNote draws a panel-pinned note as a small marker plus label. Notes
// live outside the layer stack and render in cell space, on top of the
// transformed content.
func drawNote(dst *image.RGBA, a domain.Annotation, cell int) {
	col := parseHexColor(a.Color, color.RGBA{R: 255, G: 196, B: 0, A: 255})
	x := int(a.Position.X * float64(cell))
	y := int(a.Position.Y * float64(cell))
	fillRect(dst, x-2, y-2, x+2, y+2, col)
	drawLabel(dst, x+5, y+4, a.Text, col)
}

// drawPlaceholder marks a missing image asset: flat gray with a cross and
// the layer name, so the gap is obvious on review sheets.
func drawPlaceholder(dst *image.RGBA, name string) {
	b := dst.Bounds()
	fillRect(dst, b.Min.X, b.Min.Y, b.Max.X-1, b.Max.Y-1, color.RGBA{R: 210, G: 210, B: 210, A: 255})
	cross := color.RGBA{R: 120, G: 120, B: 120, A: 255}
	drawLine(dst, b.Min.X, b.Min.Y, b.Max.X-1, b.Max.Y-1, cross)
	drawLine(dst, b.Min.X, b.Max.Y-1, b.Max.X-1, b.Min.Y, cross)
	drawLabel(dst, b.Min.X+4, b.Min.Y+14, name, cross)
}

func drawLabel(dst *image.RGBA, x, y int, text string, col color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// drawLine draws a 1px line, endpoints inclusive. Out-of-bounds pixels are
// dropped by SetRGBA.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of
// endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// parseHexColor reads #rrggbb; anything else falls back to def.
func parseHexColor(s string, def color.RGBA) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return def
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return def
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func aff3(m geom.Affine2D) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
