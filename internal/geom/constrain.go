/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"

	"storycore/internal/domain"
)

// The constrain family normalizes instead of rejecting: live editing wants
// out-of-range values pulled back silently, not errored. All functions here
// are pure, total and idempotent. Strict validation of the same bounds lives
// in the domain validators.

// DefaultSnapStep is the rotation snapping grid in degrees.
const DefaultSnapStep = 15.0

// Clamp limits v to [lo, hi]. NaN maps to lo so the constrainers stay total.
func Clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ConstrainTransform floors scale at MinScale, clamps rotation to
// [-MaxRotationDeg, MaxRotationDeg] and pulls the pivot into the unit
// square. Position is unconstrained.
func ConstrainTransform(t domain.Transform) domain.Transform {
	if !(t.Scale.X >= domain.MinScale) {
		t.Scale.X = domain.MinScale
	}
	if !(t.Scale.Y >= domain.MinScale) {
		t.Scale.Y = domain.MinScale
	}
	t.Rotation = Clamp(t.Rotation, -domain.MaxRotationDeg, domain.MaxRotationDeg)
	t.Pivot.X = Clamp(t.Pivot.X, 0, 1)
	t.Pivot.Y = Clamp(t.Pivot.Y, 0, 1)
	return t
}

// ConstrainCropRegion pulls a crop back into the unit square. Position is
// clamped before size, leaving room for the minimum extent, so a crop
// anchored at an edge shrinks rather than overflows.
func ConstrainCropRegion(c domain.CropRegion) domain.CropRegion {
	c.X = Clamp(c.X, 0, 1-domain.MinCropSize)
	c.Y = Clamp(c.Y, 0, 1-domain.MinCropSize)
	c.Width = Clamp(c.Width, domain.MinCropSize, 1-c.X)
	c.Height = Clamp(c.Height, domain.MinCropSize, 1-c.Y)
	return c
}

// ConstrainZoom limits a viewport zoom factor to [MinZoom, MaxZoom].
func ConstrainZoom(z float64) float64 {
	return Clamp(z, domain.MinZoom, domain.MaxZoom)
}

// ConstrainOpacity limits a layer opacity to [0, 1].
func ConstrainOpacity(o float64) float64 {
	return Clamp(o, 0, 1)
}

// SnapRotation snaps angle to the nearest multiple of step when it lies
// within step/4 degrees of one; otherwise the angle passes through
// unchanged. Used for hold-modifier-to-snap interactions. A step <= 0 falls
// back to DefaultSnapStep.
func SnapRotation(angle, step float64) float64 {
	if step <= 0 {
		step = DefaultSnapStep
	}
	nearest := math.Round(angle/step) * step
	if math.Abs(angle-nearest) <= step/4 {
		return nearest
	}
	return angle
}
