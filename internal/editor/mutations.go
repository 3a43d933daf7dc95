/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"

	"storycore/internal/domain"
	"storycore/internal/geom"
)

// SetTransform constrains and applies a new transform to a panel. Live drag
// input goes through here, so out-of-range values are normalized, never
// rejected.
func (s *Session) SetTransform(panelID string, t domain.Transform) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	next := geom.ConstrainTransform(t)
	op, err := domain.NewOperation(domain.OpTransform, panelID, p.Transform, next)
	if err != nil {
		return err
	}
	p.Transform = next
	s.commit(op)
	return nil
}

// SetCrop applies a constrained crop region; nil clears the crop.
func (s *Session) SetCrop(panelID string, c *domain.CropRegion) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	var next *domain.CropRegion
	if c != nil {
		cc := geom.ConstrainCropRegion(*c)
		next = &cc
	}
	op, err := domain.NewOperation(domain.OpCrop, panelID, p.Crop, next)
	if err != nil {
		return err
	}
	p.Crop = next
	s.commit(op)
	return nil
}

// AddLayer appends a layer to a panel's stack. The layer must validate;
// factories from the domain package produce valid ones.
func (s *Session) AddLayer(panelID string, l domain.Layer) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	if r := domain.ValidateLayer(l); !r.OK() {
		return fmt.Errorf("invalid layer: %w", r.Err())
	}
	next := append(append([]domain.Layer(nil), p.Layers...), l)
	op, err := domain.NewOperation(domain.OpLayerAdd, panelID, p.Layers, next)
	if err != nil {
		return err
	}
	p.Layers = next
	s.commit(op)
	return nil
}

// RemoveLayer deletes a layer by id, preserving the order of the rest.
func (s *Session) RemoveLayer(panelID, layerID string) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	idx := layerIndex(p.Layers, layerID)
	if idx < 0 {
		return fmt.Errorf("layer %q not found in panel %q", layerID, panelID)
	}
	next := append([]domain.Layer(nil), p.Layers...)
	next = append(next[:idx], next[idx+1:]...)
	op, err := domain.NewOperation(domain.OpLayerRemove, panelID, p.Layers, next)
	if err != nil {
		return err
	}
	p.Layers = next
	s.commit(op)
	return nil
}

// ReorderLayer moves the layer at index from to index to, both in the
// current stack order.
func (s *Session) ReorderLayer(panelID string, from, to int) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	n := len(p.Layers)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder out of range: from=%d to=%d with %d layers", from, to, n)
	}
	if from == to {
		return nil
	}
	next := append([]domain.Layer(nil), p.Layers...)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]domain.Layer{moved}, next[to:]...)...)
	op, err := domain.NewOperation(domain.OpLayerReorder, panelID, p.Layers, next)
	if err != nil {
		return err
	}
	p.Layers = next
	s.commit(op)
	return nil
}

// LayerUpdate selects the layer envelope fields to change; nil fields keep
// their value. Opacity is constrained, the blend mode must be known.
type LayerUpdate struct {
	Name      *string
	Visible   *bool
	Locked    *bool
	Opacity   *float64
	BlendMode *domain.BlendMode
}

// UpdateLayer modifies a layer's envelope (name, visibility, lock, opacity,
// blend mode) in place.
func (s *Session) UpdateLayer(panelID, layerID string, u LayerUpdate) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	idx := layerIndex(p.Layers, layerID)
	if idx < 0 {
		return fmt.Errorf("layer %q not found in panel %q", layerID, panelID)
	}
	next := append([]domain.Layer(nil), p.Layers...)
	l := &next[idx]
	if u.Name != nil {
		l.Name = *u.Name
	}
	if u.Visible != nil {
		l.Visible = *u.Visible
	}
	if u.Locked != nil {
		l.Locked = *u.Locked
	}
	if u.Opacity != nil {
		l.Opacity = geom.ConstrainOpacity(*u.Opacity)
	}
	if u.BlendMode != nil {
		l.BlendMode = *u.BlendMode
	}
	if r := domain.ValidateLayer(*l); !r.OK() {
		return fmt.Errorf("invalid layer update: %w", r.Err())
	}
	op, err := domain.NewOperation(domain.OpLayerModify, panelID, p.Layers, next)
	if err != nil {
		return err
	}
	p.Layers = next
	s.commit(op)
	return nil
}

// AddAnnotation pins a note to a panel and returns its id. An empty id is
// minted.
func (s *Session) AddAnnotation(panelID string, a domain.Annotation) (string, error) {
	p, err := s.panel(panelID)
	if err != nil {
		return "", err
	}
	if a.ID == "" {
		a.ID = domain.NewAnnotationID()
	}
	next := append(append([]domain.Annotation(nil), p.Annotations...), a)
	op, err := domain.NewOperation(domain.OpAnnotationAdd, panelID, p.Annotations, next)
	if err != nil {
		return "", err
	}
	p.Annotations = next
	s.commit(op)
	return a.ID, nil
}

// RemoveAnnotation deletes a pinned note by id.
func (s *Session) RemoveAnnotation(panelID, annotationID string) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	idx := -1
	for i, a := range p.Annotations {
		if a.ID == annotationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("annotation %q not found in panel %q", annotationID, panelID)
	}
	next := append([]domain.Annotation(nil), p.Annotations...)
	next = append(next[:idx], next[idx+1:]...)
	op, err := domain.NewOperation(domain.OpAnnotationRemove, panelID, p.Annotations, next)
	if err != nil {
		return err
	}
	p.Annotations = next
	s.commit(op)
	return nil
}

// ApplyPreset assigns a preset's nine transforms and crops to the grid as
// one atomic, single-step-undoable batch. Values are constrained on the way
// in; panels are matched by position, row-major.
func (s *Session) ApplyPreset(pr domain.Preset) error {
	if r := domain.ValidatePreset(pr); !r.OK() {
		return fmt.Errorf("invalid preset %q: %w", pr.ID, r.Err())
	}
	next := append([]domain.Panel(nil), s.grid.Panels...)
	for i := range next {
		k := next[i].Position.Row*domain.GridCols + next[i].Position.Col
		next[i].Transform = geom.ConstrainTransform(pr.PanelTransforms[k])
		if c := pr.PanelCrops[k]; c != nil {
			cc := geom.ConstrainCropRegion(*c)
			next[i].Crop = &cc
		} else {
			next[i].Crop = nil
		}
	}
	op, err := domain.NewOperation(domain.OpBatchGeneration, "", s.grid.Panels, next)
	if err != nil {
		return err
	}
	s.grid.Panels = next
	s.commit(op)
	return nil
}

// RecordGenerationResult stores a resolved panel render as a new image
// layer carrying the generation metadata. The model applies results as
// handed to it; discarding stale ones is the orchestrating caller's job.
func (s *Session) RecordGenerationResult(res domain.GenerationResult) error {
	p, err := s.panel(res.PanelID)
	if err != nil {
		return err
	}
	if res.ImageURL == "" {
		return fmt.Errorf("generation result for %q has no image url", res.PanelID)
	}
	l := domain.NewImageLayer("generated", res.ImageURL, 0, 0)
	meta := res.Metadata
	l.Content.Image.Generation = &meta
	next := append(append([]domain.Layer(nil), p.Layers...), l)
	op, err := domain.NewOperation(domain.OpLayerAdd, res.PanelID, p.Layers, next)
	if err != nil {
		return err
	}
	p.Layers = next
	s.commit(op)
	return nil
}

// BuildGenerationRequest assembles the outbound generation contract for a
// panel from its planning metadata and current placement.
func (s *Session) BuildGenerationRequest(panelID string) (domain.GenerationRequest, error) {
	p, err := s.panel(panelID)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	req := domain.GenerationRequest{
		PanelID:        p.ID,
		Prompt:         p.Metadata.Prompt,
		Seed:           p.Metadata.Seed,
		Transform:      p.Transform,
		StyleReference: p.Metadata.StyleReference,
	}
	if p.Crop != nil {
		c := *p.Crop
		req.Crop = &c
	}
	return req, nil
}

// SetPanelMetadata replaces a panel's planning metadata (prompt, seed,
// style reference, notes). Planning data sits outside the undo log; it is
// not part of the composition state the history tracks.
func (s *Session) SetPanelMetadata(panelID string, md domain.PanelMetadata) error {
	p, err := s.panel(panelID)
	if err != nil {
		return err
	}
	p.Metadata = md
	s.grid.Touch()
	return nil
}

func layerIndex(layers []domain.Layer, id string) int {
	for i, l := range layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
