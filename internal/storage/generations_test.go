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
	"testing"
	"time"

	"storycore/internal/domain"
)

func TestRecordAndListGenerations(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	takes := []struct {
		res domain.GenerationResult
		ts  time.Time
	}{
		{domain.GenerationResult{PanelID: "panel-0-0", ImageURL: "gen/a1.png",
			Metadata: domain.GenerationMetadata{Seed: 11, GenerationTimeMs: 900, QualityScore: 0.7}}, base},
		{domain.GenerationResult{PanelID: "panel-1-2", ImageURL: "gen/b1.png",
			Metadata: domain.GenerationMetadata{Seed: 22, GenerationTimeMs: 1200, QualityScore: 0.8}}, base.Add(time.Second)},
		{domain.GenerationResult{PanelID: "panel-0-0", ImageURL: "gen/a2.png",
			Metadata: domain.GenerationMetadata{Seed: 33, GenerationTimeMs: 800, QualityScore: 0.9}}, base.Add(2 * time.Second)},
	}
	for _, tk := range takes {
		if err := RecordGeneration(ctx, root, tk.res, tk.ts); err != nil {
			t.Fatalf("RecordGeneration: %v", err)
		}
	}

	all, err := ListGenerations(ctx, root, "", 10)
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d rows, want 3", len(all))
	}
	if all[0].ImageURL != "gen/a2.png" || all[2].ImageURL != "gen/a1.png" {
		t.Fatalf("unexpected order: %s .. %s", all[0].ImageURL, all[2].ImageURL)
	}
	if all[0].Metadata.Seed != 33 || all[0].Metadata.GenerationTimeMs != 800 || all[0].Metadata.QualityScore != 0.9 {
		t.Fatalf("metadata did not round-trip: %+v", all[0].Metadata)
	}
	if !all[0].TS.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("timestamp did not round-trip: %v", all[0].TS)
	}

	forPanel, err := ListGenerations(ctx, root, "panel-0-0", 10)
	if err != nil {
		t.Fatalf("ListGenerations panel: %v", err)
	}
	if len(forPanel) != 2 {
		t.Fatalf("panel filter returned %d rows, want 2", len(forPanel))
	}
	for _, rec := range forPanel {
		if rec.PanelID != "panel-0-0" {
			t.Fatalf("foreign panel in filtered listing: %+v", rec)
		}
	}
}

func TestRecordGenerationRequiresPanel(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	err := RecordGeneration(ctx, root, domain.GenerationResult{ImageURL: "gen/x.png"}, time.Now())
	if err == nil {
		t.Fatalf("expected error for missing panel id")
	}
}

func TestPruneGenerations(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		res := domain.GenerationResult{PanelID: "panel-2-2", ImageURL: "gen/take.png",
			Metadata: domain.GenerationMetadata{Seed: int64(i)}}
		if err := RecordGeneration(ctx, root, res, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordGeneration: %v", err)
		}
	}

	removed, err := PruneGenerations(ctx, root, 2)
	if err != nil {
		t.Fatalf("PruneGenerations: %v", err)
	}
	if removed != 2 {
		t.Fatalf("pruned %d rows, want 2", removed)
	}
	left, err := ListGenerations(ctx, root, "", 10)
	if err != nil || len(left) != 2 {
		t.Fatalf("ListGenerations: %v len=%d", err, len(left))
	}
	if left[0].Metadata.Seed != 3 || left[1].Metadata.Seed != 2 {
		t.Fatalf("prune kept wrong rows: seeds %d, %d", left[0].Metadata.Seed, left[1].Metadata.Seed)
	}
}
