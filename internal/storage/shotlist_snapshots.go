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
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertShotSnapshotSQL = `INSERT INTO shot_snapshots(ts, text) VALUES (?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestShotSnapshotSQL = `SELECT ts, text FROM shot_snapshots ORDER BY id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listShotSnapshotsSQL = `SELECT ts, text FROM shot_snapshots ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneShotSnapshotsSQL = `DELETE FROM shot_snapshots WHERE id NOT IN (
	SELECT id FROM shot_snapshots ORDER BY id DESC LIMIT ?
)`

// ShotListSnapshot is one saved revision of the shot list text.
type ShotListSnapshot struct {
	TS   time.Time
	Text string
}

// SaveShotListSnapshot records the full shot list text with a timestamp.
// The index database is ephemeral and derived; this history is for change
// tracking in the editor, not canonical storage.
func SaveShotListSnapshot(ctx context.Context, ph *ProjectHandle, text string, ts time.Time) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertShotSnapshotSQL, ts.UTC().Format(time.RFC3339Nano), text)
	return err
}

// GetLatestShotListSnapshot returns the most recent revision, or a zero
// snapshot if none exists.
func GetLatestShotListSnapshot(ctx context.Context, ph *ProjectHandle) (ShotListSnapshot, error) {
	if ph == nil {
		return ShotListSnapshot{}, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return ShotListSnapshot{}, err
	}
	defer func() { _ = db.Close() }()
	var tsStr, txt string
	err = db.QueryRowContext(ctx, selectLatestShotSnapshotSQL).Scan(&tsStr, &txt)
	if errors.Is(err, sql.ErrNoRows) {
		return ShotListSnapshot{}, nil
	}
	if err != nil {
		return ShotListSnapshot{}, err
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return ShotListSnapshot{TS: ts, Text: txt}, nil
}

// ListShotListSnapshots returns up to limit revisions, newest first.
func ListShotListSnapshots(ctx context.Context, ph *ProjectHandle, limit int) ([]ShotListSnapshot, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listShotSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ShotListSnapshot
	for rows.Next() {
		var tsStr, txt string
		if err := rows.Scan(&tsStr, &txt); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, ShotListSnapshot{TS: ts, Text: txt})
	}
	return out, rows.Err()
}

// PruneShotListSnapshots keeps at most keepLast revisions and deletes older ones.
func PruneShotListSnapshots(ctx context.Context, ph *ProjectHandle, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneShotSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
