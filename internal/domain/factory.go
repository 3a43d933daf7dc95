/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// IdentityTransform returns the no-op placement: origin position, unit
// scale, no rotation, centered pivot.
func IdentityTransform() Transform {
	return Transform{
		Scale: Point{X: 1, Y: 1},
		Pivot: Point{X: 0.5, Y: 0.5},
	}
}

// NewEmptyPanel constructs the blank cell for (row, col): identity
// transform, no crop, empty layer stack.
func NewEmptyPanel(row, col int) Panel {
	return Panel{
		ID:        GeneratePanelID(row, col),
		Position:  PanelPosition{Row: row, Col: col},
		Layers:    []Layer{},
		Transform: IdentityTransform(),
	}
}

// NewGridConfiguration builds the canonical empty grid: PanelCount blank
// panels in row-major order, version CurrentVersion, createdAt=modifiedAt=now.
func NewGridConfiguration(projectID string) GridConfiguration {
	now := time.Now().UTC()
	panels := make([]Panel, 0, PanelCount)
	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			panels = append(panels, NewEmptyPanel(row, col))
		}
	}
	return GridConfiguration{
		Version:   CurrentVersion,
		ProjectID: projectID,
		Panels:    panels,
		Metadata:  GridMetadata{CreatedAt: now, ModifiedAt: now},
	}
}

func newLayer(name string, typ LayerType, content LayerContent) Layer {
	return Layer{
		ID:        NewLayerID(),
		Name:      name,
		Type:      typ,
		Visible:   true,
		Opacity:   1,
		BlendMode: BlendNormal,
		Content:   content,
	}
}

// NewImageLayer returns a visible, unlocked image layer at full opacity.
func NewImageLayer(name, url string, width, height int) Layer {
	return newLayer(name, LayerImage, LayerContent{
		Image: &ImageContent{URL: url, Width: width, Height: height},
	})
}

// NewAnnotationLayer returns an empty markup layer ready for strokes/texts.
func NewAnnotationLayer(name string) Layer {
	return newLayer(name, LayerAnnotation, LayerContent{
		Annotation: &AnnotationContent{},
	})
}

// NewEffectLayer returns an effect layer carrying the given parameters.
func NewEffectLayer(name string, effect EffectContent) Layer {
	return newLayer(name, LayerEffect, LayerContent{Effect: &effect})
}

// NewOperation stamps the current time and snapshots before/after as JSON.
// The snapshots are opaque to the history log; whoever applies an undo knows
// the shape for the operation type. A nil before/after stays empty (e.g. the
// before of a layer_add).
func NewOperation(typ OperationType, panelID string, before, after any) (Operation, error) {
	op := Operation{
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      OperationData{PanelID: panelID},
	}
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return Operation{}, fmt.Errorf("snapshot before state: %w", err)
		}
		op.Data.Before = b
	}
	if after != nil {
		a, err := json.Marshal(after)
		if err != nil {
			return Operation{}, fmt.Errorf("snapshot after state: %w", err)
		}
		op.Data.After = a
	}
	return op, nil
}

// FindPanel returns a pointer into the grid's panel slice for the given id,
// or nil when the id does not address a panel of this grid.
func (g *GridConfiguration) FindPanel(id string) *Panel {
	row, col, ok := ParsePanelID(id)
	if !ok {
		return nil
	}
	// Row-major layout makes the lookup constant-time, but fall back to a
	// scan in case the slice was built in a different order.
	if idx := row*GridCols + col; idx < len(g.Panels) && g.Panels[idx].ID == id {
		return &g.Panels[idx]
	}
	for i := range g.Panels {
		if g.Panels[i].ID == id {
			return &g.Panels[i]
		}
	}
	return nil
}

// Touch bumps the modification timestamp. Call after any mutation.
func (g *GridConfiguration) Touch() {
	g.Metadata.ModifiedAt = time.Now().UTC()
}
