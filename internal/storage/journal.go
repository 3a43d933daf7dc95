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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storycore/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertOpSQL = `INSERT INTO ops(op_type, panel_id, ts, payload) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listOpsSQL = `SELECT payload FROM ops ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const listOpsForPanelSQL = `SELECT payload FROM ops WHERE panel_id = ? ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOpsSQL = `DELETE FROM ops WHERE id NOT IN (
	SELECT id FROM ops ORDER BY id DESC LIMIT ?
)`

// language=SQL
// dialect=SQLite
const countOpsSQL = `SELECT COUNT(*) FROM ops`

// AppendOperation persists one editor operation to the project's journal.
// The journal outlives the in-memory undo stack; it is a flat audit trail,
// not a second undo mechanism.
func AppendOperation(ctx context.Context, projectRoot string, op domain.Operation) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}
	var pid any
	if op.Data.PanelID != "" {
		pid = op.Data.PanelID
	}
	_, err = db.ExecContext(ctx, insertOpSQL, string(op.Type), pid, op.Timestamp.UTC().Format(time.RFC3339Nano), payload)
	return err
}

// ListOperations returns up to limit journal entries, newest first. An empty
// panelID lists across all panels.
func ListOperations(ctx context.Context, projectRoot string, panelID string, limit int) ([]domain.Operation, error) {
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
		q = listOpsSQL
		args = []any{limit}
	} else {
		q = listOpsForPanelSQL
		args = []any{panelID, limit}
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Operation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var op domain.Operation
		if err := json.Unmarshal(payload, &op); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// PruneOperations keeps at most keepLast journal entries and deletes older ones.
func PruneOperations(ctx context.Context, projectRoot string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOpsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountOperations returns the number of journal entries.
func CountOperations(ctx context.Context, projectRoot string) (int64, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	var n int64
	if err := db.QueryRowContext(ctx, countOpsSQL).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// JournalWriter adapts the journal to the editor session's commit hook.
// The zero value is unusable; construct with NewJournalWriter.
type JournalWriter struct {
	root    string
	timeout time.Duration
}

// NewJournalWriter returns a writer that appends committed operations to the
// journal of the project at root.
func NewJournalWriter(root string) *JournalWriter {
	return &JournalWriter{root: root, timeout: 5 * time.Second}
}

// AppendOperation implements the editor session's journal hook.
func (w *JournalWriter) AppendOperation(op domain.Operation) error {
	if w == nil || w.root == "" {
		return errors.New("journal writer not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return AppendOperation(ctx, w.root, op)
}
