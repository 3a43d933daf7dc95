/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

type docRow struct {
	typ   string
	path  string
	cell  any // int or nil
	panel any // string or nil
	text  string
}

func seedDocs(t *testing.T, db *sql.DB, rows []docRow) {
	t.Helper()
	ctx := context.Background()
	for _, r := range rows {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO documents(type, path, cell, panel_id, text) VALUES(?,?,?,?,?)`,
			r.typ, r.path, r.cell, r.panel, r.text); err != nil {
			t.Fatalf("seed doc %s: %v", r.path, err)
		}
	}
}

func openSeeded(t *testing.T, rows []docRow) *sql.DB {
	t.Helper()
	db, err := InitOrOpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	seedDocs(t, db, rows)
	return db
}

func TestSearchFTSWithSnippet(t *testing.T) {
	db := openSeeded(t, []docRow{
		{"prompt", "panel:panel-0-0:prompt", 0, "panel-0-0", "a lighthouse keeper walks the spiral stair"},
		{"prompt", "panel:panel-0-1:prompt", 1, "panel-0-1", "gulls over the breakwater"},
	})
	ctx := context.Background()
	res, err := searchDB(ctx, db, SearchQuery{Text: "lighthouse"})
	if err != nil {
		t.Fatalf("searchDB: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("got %d rows, want 1", len(res))
	}
	if !strings.Contains(res[0].Snippet, "[lighthouse]") {
		t.Fatalf("snippet not highlighted: %q", res[0].Snippet)
	}
	if res[0].PanelID != "panel-0-0" || res[0].Cell != 0 {
		t.Fatalf("wrong row: %+v", res[0])
	}
}

func TestSearchNonFTSFallbackWithTypeFilter(t *testing.T) {
	db := openSeeded(t, []docRow{
		{"prompt", "panel:panel-0-0:prompt", 0, "panel-0-0", "a"},
		{"panel_notes", "panel:panel-0-0:notes", 0, "panel-0-0", "b"},
		{"annotation", "panel:panel-1-0:annotation:x", 3, "panel-1-0", "c"},
	})
	ctx := context.Background()
	res, err := searchDB(ctx, db, SearchQuery{Types: []string{"prompt", "annotation"}})
	if err != nil {
		t.Fatalf("searchDB: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d rows, want 2", len(res))
	}
	if res[0].Type != "prompt" || res[1].Type != "annotation" {
		t.Fatalf("unexpected rows: %+v", res)
	}
	if res[0].Snippet != "" {
		t.Fatalf("fallback scan should not produce snippets: %q", res[0].Snippet)
	}
}

func TestSearchPanelAndCellFilters(t *testing.T) {
	db := openSeeded(t, []docRow{
		{"prompt", "panel:panel-0-0:prompt", 0, "panel-0-0", "dawn"},
		{"prompt", "panel:panel-1-1:prompt", 4, "panel-1-1", "noon"},
		{"prompt", "panel:panel-2-2:prompt", 8, "panel-2-2", "dusk"},
	})
	ctx := context.Background()

	res, err := searchDB(ctx, db, SearchQuery{PanelID: "panel-1-1"})
	if err != nil || len(res) != 1 || res[0].PanelID != "panel-1-1" {
		t.Fatalf("panel filter: %v %+v", err, res)
	}

	// Cells 5..9 ordinal = cells 4..8 zero-based
	res, err = searchDB(ctx, db, SearchQuery{CellFrom: 5, CellTo: 9})
	if err != nil || len(res) != 2 {
		t.Fatalf("cell range: %v len=%d", err, len(res))
	}
	if res[0].Cell != 4 || res[1].Cell != 8 {
		t.Fatalf("cell range rows: %+v", res)
	}

	// Open-ended lower bound
	res, err = searchDB(ctx, db, SearchQuery{CellFrom: 9})
	if err != nil || len(res) != 1 || res[0].Cell != 8 {
		t.Fatalf("open range: %v %+v", err, res)
	}
}

func TestSearchTagsRequireAll(t *testing.T) {
	db := openSeeded(t, []docRow{
		{"prompt", "panel:panel-0-0:prompt", 0, "panel-0-0", "quiet pier @mood @night"},
		{"prompt", "panel:panel-0-1:prompt", 1, "panel-0-1", "busy market @mood"},
	})
	ctx := context.Background()
	res, err := searchDB(ctx, db, SearchQuery{Tags: []string{"mood", "night"}})
	if err != nil {
		t.Fatalf("searchDB: %v", err)
	}
	if len(res) != 1 || res[0].PanelID != "panel-0-0" {
		t.Fatalf("tag AND semantics broken: %+v", res)
	}

	// Tags match case-insensitively
	res, err = searchDB(ctx, db, SearchQuery{Tags: []string{"MOOD"}})
	if err != nil || len(res) != 2 {
		t.Fatalf("case-insensitive tags: %v len=%d", err, len(res))
	}
}

func TestSearchOrderingAndPagination(t *testing.T) {
	db := openSeeded(t, []docRow{
		{"project_title", "project:title", nil, nil, "sequence title"},
		{"prompt", "panel:panel-0-2:prompt", 2, "panel-0-2", "c"},
		{"prompt", "panel:panel-0-0:prompt", 0, "panel-0-0", "a"},
		{"prompt", "panel:panel-0-1:prompt", 1, "panel-0-1", "b"},
	})
	ctx := context.Background()

	res, err := searchDB(ctx, db, SearchQuery{})
	if err != nil {
		t.Fatalf("searchDB: %v", err)
	}
	if len(res) != 4 {
		t.Fatalf("got %d rows, want 4", len(res))
	}
	// Panel rows come in cell order; the project row has no cell and sorts last.
	if res[0].Cell != 0 || res[1].Cell != 1 || res[2].Cell != 2 {
		t.Fatalf("cell ordering broken: %+v", res)
	}
	if res[3].Type != "project_title" || res[3].Cell != -1 {
		t.Fatalf("project row should sort last with cell -1: %+v", res[3])
	}

	page, err := searchDB(ctx, db, SearchQuery{Limit: 2, Offset: 1})
	if err != nil || len(page) != 2 {
		t.Fatalf("pagination: %v len=%d", err, len(page))
	}
	if page[0].Cell != 1 || page[1].Cell != 2 {
		t.Fatalf("page window wrong: %+v", page)
	}
}
