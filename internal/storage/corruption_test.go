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
	"os"
	"path/filepath"
	"testing"
	"time"

	"storycore/internal/domain"
)

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	grid := domain.NewGridConfiguration("proj-corrupt")
	grid.Panels[0].Metadata.Prompt = "granite quay in the rain"
	ph, err := InitProject(root, grid)
	if err != nil || ph == nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := BuildIndexIfEmpty(ctx, root, grid); err != nil {
		t.Fatalf("BuildIndexIfEmpty: %v", err)
	}

	// Corrupt the DB file by writing junk
	idx := IndexPath(root)
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}

	rebuilt, err := DetectAndRebuildIndex(ctx, root, grid)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}

	st, err := os.Stat(IndexPath(root))
	if err != nil || st.Size() == 0 {
		t.Fatalf("rebuilt index missing or empty: %v", err)
	}
	bdir := filepath.Join(root, IndexDirName, "backups")
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}

	// Content is searchable again after the rebuild
	res, err := Search(ctx, root, SearchQuery{Text: "quay"})
	if err != nil || len(res) != 1 {
		t.Fatalf("search after rebuild: %v len=%d", err, len(res))
	}
}

func TestDetectAndRebuildIndex_HealthyIsNoOp(t *testing.T) {
	root := t.TempDir()
	grid := domain.NewGridConfiguration("proj-healthy")
	if _, err := InitProject(root, grid); err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := BuildIndexIfEmpty(ctx, root, grid); err != nil {
		t.Fatalf("BuildIndexIfEmpty: %v", err)
	}

	rebuilt, err := DetectAndRebuildIndex(ctx, root, grid)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if rebuilt {
		t.Fatalf("healthy index should not be rebuilt")
	}
}
