/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"strings"

	"storycore/internal/domain"
)

// DocRow is one searchable text row derived from a grid. Cell is the 0-based
// cell ordinal, -1 for rows that are not panel-scoped.
type DocRow struct {
	Type    string
	Path    string
	Cell    int
	PanelID string
	Text    string
}

// DocumentRows derives the searchable rows for a grid plus optional shot list
// text. The embedded SQLite index and the sync server's Postgres documents
// table are both populated from this one extraction, which keeps local and
// remote search over the same text.
func DocumentRows(grid domain.GridConfiguration, shotsText string) []DocRow {
	rows := make([]DocRow, 0, 64)
	add := func(typ, path string, cell int, panelID, text string) {
		if s := strings.TrimSpace(text); s != "" {
			rows = append(rows, DocRow{Type: typ, Path: path, Cell: cell, PanelID: panelID, Text: s})
		}
	}
	add("project", "project:id", -1, "", grid.ProjectID)
	add("project_title", "project:title", -1, "", grid.Metadata.Title)
	add("project_notes", "project:notes", -1, "", grid.Metadata.Notes)
	for _, p := range grid.Panels {
		cell := p.Position.Row*domain.GridCols + p.Position.Col
		add("prompt", "panel:"+p.ID+":prompt", cell, p.ID, p.Metadata.Prompt)
		add("panel_notes", "panel:"+p.ID+":notes", cell, p.ID, p.Metadata.Notes)
		add("style_ref", "panel:"+p.ID+":style", cell, p.ID, p.Metadata.StyleReference)
		for _, a := range p.Annotations {
			add("annotation", "panel:"+p.ID+":annotation:"+a.ID, cell, p.ID, a.Text)
		}
		for _, l := range p.Layers {
			add("layer_name", "panel:"+p.ID+":layer:"+l.ID, cell, p.ID, l.Name)
			if l.Content.Annotation == nil {
				continue
			}
			for i, t := range l.Content.Annotation.Texts {
				add("layer_text", fmt.Sprintf("panel:%s:layer:%s:text:%d", p.ID, l.ID, i), cell, p.ID, t.Text)
			}
		}
	}
	for _, pr := range grid.Presets {
		add("preset_name", "preset:"+pr.ID+":name", -1, "", pr.Name)
		add("preset_desc", "preset:"+pr.ID+":description", -1, "", pr.Description)
	}
	add("shots", "shots:"+ShotListFileName, -1, "", shotsText)
	return rows
}
