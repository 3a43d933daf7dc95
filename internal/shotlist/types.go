/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package shotlist

import (
	"strings"

	"storycore/internal/domain"
)

// ShotList is a parsed planning document: sequences of shots, each shot
// describing what should be generated into one grid cell.

type ShotList struct {
	Sections []Section
}

// Section groups shots under a "# heading" line. Files without headings get a
// single implicit section.

type Section struct {
	Title string
	Shots []Shot
	Notes []string
}

// Shot is one planned generation. Row/Col are the target cell from a
// "PANEL r,c" marker, or -1/-1 while the shot is still unassigned.
// LineNo is the 1-based line the shot started on.

type Shot struct {
	Row, Col int
	Prompt   string
	Seed     int64
	HasSeed  bool
	Style    string
	Notes    []string
	Tags     []string
	LineNo   int
}

// Assigned reports whether the shot targets a grid cell.
func (s Shot) Assigned() bool {
	return s.Row >= 0 && s.Col >= 0
}

// PanelID returns the id of the target cell, or "" for unassigned shots.
func (s Shot) PanelID() string {
	if !s.Assigned() {
		return ""
	}
	return domain.GeneratePanelID(s.Row, s.Col)
}

// Metadata converts the shot into the panel metadata it plans.
func (s Shot) Metadata() domain.PanelMetadata {
	return domain.PanelMetadata{
		Prompt:         s.Prompt,
		Seed:           s.Seed,
		StyleReference: s.Style,
		Notes:          strings.Join(s.Notes, "\n"),
	}
}

// Error represents a parse problem with position context. Content problems
// are reported this way rather than aborting the parse.

type Error struct {
	Line    int
	Column  int
	Message string
}
