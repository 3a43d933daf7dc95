/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package shotlist

import "storycore/internal/domain"

// AssignedPanelSet returns the ids of grid cells that have at least one shot.
func (sl ShotList) AssignedPanelSet() map[string]struct{} {
	out := map[string]struct{}{}
	for _, sec := range sl.Sections {
		for _, sh := range sec.Shots {
			if sh.Assigned() {
				out[sh.PanelID()] = struct{}{}
			}
		}
	}
	return out
}

// UnassignedShots lists shots that never received a panel marker, in file
// order. These are the entries a planning review should chase down.
func (sl ShotList) UnassignedShots() []Shot {
	var out []Shot
	for _, sec := range sl.Sections {
		for _, sh := range sec.Shots {
			if !sh.Assigned() {
				out = append(out, sh)
			}
		}
	}
	return out
}

// PanelUpdate pairs a grid cell with the metadata a shot plans for it.

type PanelUpdate struct {
	Row, Col int
	PanelID  string
	Meta     domain.PanelMetadata
}

// PanelUpdates flattens assigned shots into per-cell metadata updates in
// row-major order. When several shots target one cell the one latest in the
// file wins, matching reading order.
func (sl ShotList) PanelUpdates() []PanelUpdate {
	var byCell [domain.PanelCount]*domain.PanelMetadata
	for _, sec := range sl.Sections {
		for _, sh := range sec.Shots {
			if !sh.Assigned() {
				continue
			}
			m := sh.Metadata()
			byCell[sh.Row*domain.GridCols+sh.Col] = &m
		}
	}
	var out []PanelUpdate
	for i, m := range byCell {
		if m == nil {
			continue
		}
		r, c := i/domain.GridCols, i%domain.GridCols
		out = append(out, PanelUpdate{Row: r, Col: c, PanelID: domain.GeneratePanelID(r, c), Meta: *m})
	}
	return out
}
