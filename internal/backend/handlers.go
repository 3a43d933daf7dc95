/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storycore/internal/domain"
	"storycore/internal/storage"
)

// maxGridBytes caps a pushed manifest. A fully annotated nine panel grid
// serializes to well under a megabyte.
const maxGridBytes = 8 << 20

func handleListProjects(w http.ResponseWriter, r *http.Request, db *sql.DB) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rows, err := db.QueryContext(r.Context(), `SELECT id, stable_id, name, version, updated_at FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() { _ = rows.Close() }()
	type proj struct {
		ID        int64     `json:"id"`
		StableID  string    `json:"stable_id"`
		Name      string    `json:"name"`
		Version   int64     `json:"version"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	list := make([]proj, 0, 16)
	for rows.Next() {
		var p proj
		if err := rows.Scan(&p.ID, &p.StableID, &p.Name, &p.Version, &p.UpdatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleProjectSubtree routes /api/projects/{ref}/grid and
// /api/projects/{ref}/search. The ref segment is either the numeric server
// id or the client's stable project id from grid.json.
func handleProjectSubtree(w http.ResponseWriter, r *http.Request, db *sql.DB, l *slog.Logger) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "api" || parts[1] != "projects" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ref := parts[2]
	switch parts[3] {
	case "grid":
		switch r.Method {
		case http.MethodGet:
			handleGetGrid(w, r, db, ref)
		case http.MethodPut:
			handlePushGrid(w, r, db, l, ref)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "search":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleSearchProject(w, r, db, ref)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// resolveProject looks a project up by numeric server id or stable id.
func resolveProject(ctx context.Context, db *sql.DB, ref string) (id int64, stableID string, err error) {
	if n, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		err = db.QueryRowContext(ctx, `SELECT id, stable_id FROM projects WHERE id = $1`, n).Scan(&id, &stableID)
		return id, stableID, err
	}
	err = db.QueryRowContext(ctx, `SELECT id, stable_id FROM projects WHERE stable_id = $1`, ref).Scan(&id, &stableID)
	return id, stableID, err
}

func handleGetGrid(w http.ResponseWriter, r *http.Request, db *sql.DB, ref string) {
	pid, stable, err := resolveProject(r.Context(), db, ref)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown project %q", ref))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var (
		ver     int64
		snap    []byte
		created time.Time
	)
	row := db.QueryRowContext(r.Context(), `SELECT version, snapshot, created_at FROM grid_snapshots WHERE project_id = $1 ORDER BY version DESC, id DESC LIMIT 1`, pid)
	switch err := row.Scan(&ver, &snap, &created); {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, fmt.Errorf("no grid snapshot for project %q", ref))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// Snapshots only get in through the validating push, so the JSONB column
	// can pass through as-is.
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": pid,
		"stable_id":  stable,
		"version":    ver,
		"created_at": created.UTC().Format(time.RFC3339),
		"grid":       json.RawMessage(snap),
	})
}

func handlePushGrid(w http.ResponseWriter, r *http.Request, db *sql.DB, l *slog.Logger, ref string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxGridBytes+1))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(body) > maxGridBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("grid payload too large"))
		return
	}
	if err := storage.ValidateManifestBytes(body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var grid domain.GridConfiguration
	if err := json.Unmarshal(body, &grid); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse grid: %w", err))
		return
	}
	if err := domain.ValidateGrid(grid).Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pid, stable, err := resolveProject(r.Context(), db, ref)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Pushing to an unknown stable id creates the project. Numeric ids
		// are server-assigned and must already exist.
		if _, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown project %q", ref))
			return
		}
		pid, stable, err = createProject(r.Context(), db, ref, grid.Metadata.Title)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if grid.ProjectID != stable {
		writeError(w, http.StatusBadRequest, fmt.Errorf("grid project id %q does not match project %q", grid.ProjectID, stable))
		return
	}

	tx, err := db.BeginTx(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var ver int64
	if err := tx.QueryRowContext(r.Context(),
		`UPDATE projects SET version = version + 1, updated_at = now(), name = $2 WHERE id = $1 RETURNING version`,
		pid, projectName(grid, stable)).Scan(&ver); err != nil {
		_ = tx.Rollback()
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := tx.ExecContext(r.Context(),
		`INSERT INTO grid_snapshots(project_id, version, snapshot) VALUES ($1, $2, $3)`,
		pid, ver, string(body)); err != nil {
		_ = tx.Rollback()
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := replaceDocuments(r.Context(), tx, pid, grid); err != nil {
		_ = tx.Rollback()
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	l.Info("grid pushed", slog.String("project", stable), slog.Int64("version", ver))
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": pid,
		"stable_id":  stable,
		"version":    ver,
	})
}

func projectName(grid domain.GridConfiguration, stable string) string {
	if s := strings.TrimSpace(grid.Metadata.Title); s != "" {
		return s
	}
	return stable
}

func createProject(ctx context.Context, db *sql.DB, stableID, title string) (int64, string, error) {
	name := strings.TrimSpace(title)
	if name == "" {
		name = stableID
	}
	var id int64
	if err := db.QueryRowContext(ctx, `INSERT INTO projects(stable_id, name) VALUES ($1, $2) RETURNING id`, stableID, name).Scan(&id); err != nil {
		return 0, "", fmt.Errorf("create project: %w", err)
	}
	return id, stableID, nil
}

// replaceDocuments mirrors the project's searchable rows from the pushed
// grid. The shot list is not part of the push payload, so shots rows exist
// only in the local index.
func replaceDocuments(ctx context.Context, tx *sql.Tx, projectID int64, grid domain.GridConfiguration) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	for _, d := range storage.DocumentRows(grid, "") {
		var cell any
		if d.Cell >= 0 {
			cell = d.Cell
		}
		var panel any
		if d.PanelID != "" {
			panel = d.PanelID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents(project_id, doc_type, path, cell_num, panel_id, raw_text) VALUES ($1, $2, $3, $4, $5, $6)`,
			projectID, d.Type, d.Path, cell, panel, d.Text); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}
	return nil
}

func handleSearchProject(w http.ResponseWriter, r *http.Request, db *sql.DB, ref string) {
	pid, _, err := resolveProject(r.Context(), db, ref)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown project %q", ref))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	qs := r.URL.Query()
	q := storage.SearchQuery{
		Text:     qs.Get("q"),
		PanelID:  qs.Get("panel"),
		Types:    qs["type"],
		Tags:     qs["tag"],
		CellFrom: atoiOrZero(qs.Get("cell_from")),
		CellTo:   atoiOrZero(qs.Get("cell_to")),
		Limit:    atoiOrZero(qs.Get("limit")),
		Offset:   atoiOrZero(qs.Get("offset")),
	}
	res, err := SearchPG(r.Context(), db, pid, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type searchHit struct {
		DocID   int64  `json:"doc_id"`
		Type    string `json:"type"`
		Path    string `json:"path"`
		Cell    int    `json:"cell"`
		PanelID string `json:"panel_id"`
		Snippet string `json:"snippet"`
	}
	hits := make([]searchHit, 0, len(res))
	for _, m := range res {
		hits = append(hits, searchHit{DocID: m.DocID, Type: m.Type, Path: m.Path, Cell: m.Cell, PanelID: m.PanelID, Snippet: m.Snippet})
	}
	writeJSON(w, http.StatusOK, hits)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
