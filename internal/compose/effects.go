/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"image"
	"math"

	"storycore/internal/domain"
)

// applyEffect runs an effect layer against the content stack below it. The
// layer opacity mixes the processed result with the untouched input. Effect
// types this build does not know render as a no-op; their parameters stay
// in the file untouched.
func applyEffect(dst *image.RGBA, e domain.EffectContent, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	switch e.EffectType {
	case domain.EffectBlur:
		if e.Blur != nil {
			boxBlur(dst, e.Blur.Radius, opacity)
		}
	case domain.EffectSharpen:
		if e.Sharpen != nil {
			sharpen(dst, e.Sharpen.Amount, opacity)
		}
	case domain.EffectColorAdjust:
		if e.ColorAdjust != nil {
			colorAdjust(dst, *e.ColorAdjust, opacity)
		}
	}
}

// boxBlur is a two-pass box blur. Radius is in pixels at render resolution;
// anything under one pixel is a no-op.
func boxBlur(img *image.RGBA, radius, opacity float64) {
	r := int(math.Round(radius))
	if r < 1 {
		return
	}
	orig := cloneRGBA(img)
	tmp := image.NewRGBA(img.Bounds())
	blurPass(tmp, orig, r, true)
	out := image.NewRGBA(img.Bounds())
	blurPass(out, tmp, r, false)
	mixInto(img, orig, out, opacity)
}

// sharpen is an unsharp mask: the 1px-blurred image is subtracted from the
// original and the difference added back scaled by amount.
func sharpen(img *image.RGBA, amount, opacity float64) {
	if amount <= 0 {
		return
	}
	orig := cloneRGBA(img)
	tmp := image.NewRGBA(img.Bounds())
	blurPass(tmp, orig, 1, true)
	soft := image.NewRGBA(img.Bounds())
	blurPass(soft, tmp, 1, false)
	out := image.NewRGBA(img.Bounds())
	for i := range out.Pix {
		v := float64(orig.Pix[i]) + amount*(float64(orig.Pix[i])-float64(soft.Pix[i]))
		out.Pix[i] = clamp8(v)
	}
	mixInto(img, orig, out, opacity)
}

// colorAdjust shifts brightness, contrast and saturation. Parameters are
// offsets around zero: brightness adds v to the normalized channel,
// contrast and saturation scale by (1+v). All zeros leave the image
// unchanged.
func colorAdjust(img *image.RGBA, p domain.ColorAdjustParams, opacity float64) {
	orig := cloneRGBA(img)
	out := cloneRGBA(img)
	ck := 1 + p.Contrast
	sk := 1 + p.Saturation
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := out.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, i = x+1, i+4 {
			r := float64(out.Pix[i]) / 255
			g := float64(out.Pix[i+1]) / 255
			bl := float64(out.Pix[i+2]) / 255

			r += p.Brightness
			g += p.Brightness
			bl += p.Brightness

			r = (r-0.5)*ck + 0.5
			g = (g-0.5)*ck + 0.5
			bl = (bl-0.5)*ck + 0.5

			luma := 0.299*r + 0.587*g + 0.114*bl
			r = luma + (r-luma)*sk
			g = luma + (g-luma)*sk
			bl = luma + (bl-luma)*sk

			out.Pix[i] = clamp8(r * 255)
			out.Pix[i+1] = clamp8(g * 255)
			out.Pix[i+2] = clamp8(bl * 255)
		}
	}
	mixInto(img, orig, out, opacity)
}

// blurPass averages a 1D window of width 2r+1 along one axis, clamping the
// window at the image edges.
func blurPass(dst, src *image.RGBA, r int, horizontal bool) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sum [4]int
			n := 0
			for k := -r; k <= r; k++ {
				xi, yi := x, y
				if horizontal {
					xi += k
				} else {
					yi += k
				}
				if xi < b.Min.X || xi >= b.Max.X || yi < b.Min.Y || yi >= b.Max.Y {
					continue
				}
				i := src.PixOffset(xi, yi)
				for c := 0; c < 4; c++ {
					sum[c] += int(src.Pix[i+c])
				}
				n++
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[o+c] = uint8(sum[c] / n)
			}
		}
	}
}

// mixInto writes a+(b-a)*t into dst. All three images share bounds.
func mixInto(dst, a, b *image.RGBA, t float64) {
	if t >= 1 {
		copy(dst.Pix, b.Pix)
		return
	}
	for i := range dst.Pix {
		av := float64(a.Pix[i])
		bv := float64(b.Pix[i])
		dst.Pix[i] = uint8(math.Round(av + (bv-av)*t))
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
