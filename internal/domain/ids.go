/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Panel ids are the only externally visible identifier scheme of the grid:
// "panel-{row}-{col}" with row,col in {0,1,2}. UI selection, generation
// request correlation and the sync protocol all go through these two
// functions to stay in sync.

// GeneratePanelID derives the canonical id for a grid cell.
func GeneratePanelID(row, col int) string {
	return fmt.Sprintf("panel-%d-%d", row, col)
}

// ParsePanelID reverses GeneratePanelID. ok is false for malformed ids and
// for positions outside the grid; a corrupt id is an expected, recoverable
// outcome, not an error.
func ParsePanelID(id string) (row, col int, ok bool) {
	rest, found := strings.CutPrefix(id, "panel-")
	if !found {
		return 0, 0, false
	}
	rs, cs, found := strings.Cut(rest, "-")
	if !found {
		return 0, 0, false
	}
	r, err := strconv.Atoi(rs)
	if err != nil {
		return 0, 0, false
	}
	c, err := strconv.Atoi(cs)
	if err != nil {
		return 0, 0, false
	}
	if !IsValidPanelPosition(r, c) {
		return 0, 0, false
	}
	// Reject non-canonical spellings like "panel-01-2" so the round trip
	// is lossless in both directions.
	if GeneratePanelID(r, c) != id {
		return 0, 0, false
	}
	return r, c, true
}

// IsValidPanelPosition reports whether (row, col) addresses a cell of the
// 3x3 grid.
func IsValidPanelPosition(row, col int) bool {
	return row >= 0 && row < GridRows && col >= 0 && col < GridCols
}

// idSeq disambiguates ids minted within the same millisecond. Process-wide;
// ids are unique within a session and sortable enough across sessions.
var idSeq atomic.Int64

func mintID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixMilli(), idSeq.Add(1))
}

// NewLayerID returns a fresh layer id, unique within the process.
func NewLayerID() string { return mintID("layer") }

// NewAnnotationID returns a fresh panel annotation id.
func NewAnnotationID() string { return mintID("annot") }
