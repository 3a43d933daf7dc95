/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the 2D geometry behind panel placement: affine
// transforms in pixel space and the constraint/snapping rules applied to
// values entering the model. Coordinates are float64 to match the grid file
// format.
package geom

import (
	"math"

	"storycore/internal/domain"
)

// Rect is an axis-aligned rectangle defined by min corner and size, in
// pixels.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() domain.Point { return domain.Point{X: r.X, Y: r.Y} }
func (r Rect) Max() domain.Point { return domain.Point{X: r.X + r.W, Y: r.Y + r.H} }

func (r Rect) Contains(p domain.Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p domain.Point) domain.Point {
	return domain.Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }
func Rotate(rad float64) Affine2D {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return Affine2D{A: c, B: s, C: -s, D: c}
}

// TransformMatrix builds the placement matrix for panel content of size
// w x h pixels: scale and rotation act around the normalized pivot, then the
// pixel position offset applies on top.
func TransformMatrix(t domain.Transform, w, h float64) Affine2D {
	px := t.Pivot.X * w
	py := t.Pivot.Y * h
	rad := t.Rotation * math.Pi / 180
	m := Translate(t.Position.X+px, t.Position.Y+py)
	m = m.Mul(Rotate(rad))
	m = m.Mul(Scale(t.Scale.X, t.Scale.Y))
	return m.Mul(Translate(-px, -py))
}

// CropRect maps a normalized crop region onto a w x h pixel surface.
func CropRect(c domain.CropRegion, w, h float64) Rect {
	return R(c.X*w, c.Y*h, c.Width*w, c.Height*h)
}
