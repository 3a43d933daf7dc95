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
	"errors"
	"time"

	"storycore/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertGenerationSQL = `INSERT INTO generations(panel_id, ts, image_url, seed, time_ms, quality) VALUES (?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listGenerationsSQL = `SELECT panel_id, ts, image_url, seed, time_ms, quality FROM generations ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const listGenerationsForPanelSQL = `SELECT panel_id, ts, image_url, seed, time_ms, quality FROM generations WHERE panel_id = ? ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneGenerationsSQL = `DELETE FROM generations WHERE id NOT IN (
	SELECT id FROM generations ORDER BY ts DESC LIMIT ?
)`

// GenerationRecord is one row of the per-project generation log.
type GenerationRecord struct {
	PanelID  string
	TS       time.Time
	ImageURL string
	Metadata domain.GenerationMetadata
}

// RecordGeneration logs a generation result with a timestamp. The log is a
// planning aid for comparing takes per panel; the grid itself only keeps the
// latest accepted image.
func RecordGeneration(ctx context.Context, projectRoot string, res domain.GenerationResult, ts time.Time) error {
	if res.PanelID == "" {
		return errors.New("generation result has no panel id")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertGenerationSQL,
		res.PanelID, ts.UTC().Format(time.RFC3339Nano), res.ImageURL,
		res.Metadata.Seed, res.Metadata.GenerationTimeMs, res.Metadata.QualityScore)
	return err
}

// ListGenerations returns up to limit log rows, newest first. An empty
// panelID lists across all panels.
func ListGenerations(ctx context.Context, projectRoot string, panelID string, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	var q string
	var args []any
	if panelID == "" {
		q = listGenerationsSQL
		args = []any{limit}
	} else {
		q = listGenerationsForPanelSQL
		args = []any{panelID, limit}
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		var tsStr string
		if err := rows.Scan(&rec.PanelID, &tsStr, &rec.ImageURL, &rec.Metadata.Seed, &rec.Metadata.GenerationTimeMs, &rec.Metadata.QualityScore); err != nil {
			return nil, err
		}
		rec.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneGenerations keeps at most keepLast log rows and deletes older ones.
func PruneGenerations(ctx context.Context, projectRoot string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneGenerationsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
