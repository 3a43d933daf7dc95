/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor drives a live editing session over one grid. Every
// mutation validates or constrains its input, snapshots the affected
// sub-state before and after, applies the change and records it in the
// history log, so each user action is one reversible step.
//
// A session owns its grid exclusively and is driven from one event loop;
// methods are not safe for concurrent use. The history manager underneath
// is, but interleaving mutations from multiple goroutines has no defined
// ordering.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storycore/internal/domain"
	"storycore/internal/geom"
	"storycore/internal/history"
	applog "storycore/internal/log"
)

// Journal receives every committed operation for durable audit (the project
// index keeps one). Append failures must not fail the edit; they are logged
// and dropped.
type Journal interface {
	AppendOperation(op domain.Operation) error
}

// Options tunes a session. Zero values fall back to history defaults.
type Options struct {
	MaxUndoDepth   int
	CoalesceWindow time.Duration
	Journal        Journal
}

// Session is one grid-editing session: the grid, its linear history and the
// transient viewport.
type Session struct {
	grid     *domain.GridConfiguration
	hist     *history.Manager
	viewport domain.ViewportState
	journal  Journal
	log      *slog.Logger
}

// NewSession wraps an existing grid. The grid must validate; a session never
// starts on a broken aggregate.
func NewSession(grid *domain.GridConfiguration, opts Options) (*Session, error) {
	if grid == nil {
		return nil, errors.New("editor: nil grid")
	}
	if r := domain.ValidateGrid(*grid); !r.OK() {
		return nil, fmt.Errorf("editor: grid invalid: %w", r.Err())
	}
	return &Session{
		grid:     grid,
		hist:     history.NewManager(history.Config{MaxDepth: opts.MaxUndoDepth, MinInterval: opts.CoalesceWindow}),
		viewport: domain.ViewportState{Zoom: 1},
		journal:  opts.Journal,
		log:      applog.WithComponent("editor"),
	}, nil
}

// Grid exposes the session's aggregate. Callers must go through session
// methods for mutations; direct writes bypass history.
func (s *Session) Grid() *domain.GridConfiguration { return s.grid }

// History exposes the undo/redo log for diagnostics.
func (s *Session) History() *history.Manager { return s.hist }

func (s *Session) CanUndo() bool { return s.hist.CanUndo() }
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// panel resolves a panel id to the live panel, distinguishing malformed ids
// from ids that simply address no panel of this grid.
func (s *Session) panel(id string) (*domain.Panel, error) {
	if _, _, ok := domain.ParsePanelID(id); !ok {
		return nil, fmt.Errorf("malformed panel id %q", id)
	}
	p := s.grid.FindPanel(id)
	if p == nil {
		return nil, fmt.Errorf("panel %q not found", id)
	}
	return p, nil
}

// commit records an applied operation: history, modification stamp, journal.
func (s *Session) commit(op domain.Operation) {
	s.hist.Push(op)
	s.grid.Touch()
	if s.journal != nil {
		if err := s.journal.AppendOperation(op); err != nil {
			s.log.Warn("operation journal append failed", "type", string(op.Type), "err", err)
		}
	}
}

// Undo reverses the newest recorded operation by applying its before
// snapshot. Returns (nil, nil) when there is nothing to undo.
func (s *Session) Undo() (*domain.Operation, error) {
	op, ok := s.hist.Undo()
	if !ok {
		return nil, nil
	}
	if err := s.applySnapshot(op, op.Data.Before); err != nil {
		// Put the record back so history and grid stay consistent.
		s.hist.Redo()
		return nil, fmt.Errorf("undo %s: %w", op.Type, err)
	}
	s.grid.Touch()
	return &op, nil
}

// Redo re-applies the newest undone operation via its after snapshot.
// Returns (nil, nil) when there is nothing to redo.
func (s *Session) Redo() (*domain.Operation, error) {
	op, ok := s.hist.Redo()
	if !ok {
		return nil, nil
	}
	if err := s.applySnapshot(op, op.Data.After); err != nil {
		s.hist.Undo()
		return nil, fmt.Errorf("redo %s: %w", op.Type, err)
	}
	s.grid.Touch()
	return &op, nil
}

// applySnapshot writes one side of an operation record back onto the grid.
// The snapshot shape follows the operation type: full transform, full crop,
// the panel's layer slice, its annotation slice, or all panels for batches.
func (s *Session) applySnapshot(op domain.Operation, snap json.RawMessage) error {
	if op.Type == domain.OpBatchGeneration {
		var panels []domain.Panel
		if err := json.Unmarshal(snap, &panels); err != nil {
			return fmt.Errorf("decode panels snapshot: %w", err)
		}
		if len(panels) != domain.PanelCount {
			return fmt.Errorf("panels snapshot has %d entries", len(panels))
		}
		s.grid.Panels = panels
		return nil
	}

	p, err := s.panel(op.Data.PanelID)
	if err != nil {
		return err
	}
	switch op.Type {
	case domain.OpTransform:
		var tr domain.Transform
		if err := json.Unmarshal(snap, &tr); err != nil {
			return fmt.Errorf("decode transform snapshot: %w", err)
		}
		p.Transform = tr
	case domain.OpCrop:
		var c *domain.CropRegion
		if len(snap) > 0 {
			if err := json.Unmarshal(snap, &c); err != nil {
				return fmt.Errorf("decode crop snapshot: %w", err)
			}
		}
		p.Crop = c
	case domain.OpLayerAdd, domain.OpLayerRemove, domain.OpLayerReorder, domain.OpLayerModify:
		var layers []domain.Layer
		if len(snap) > 0 {
			if err := json.Unmarshal(snap, &layers); err != nil {
				return fmt.Errorf("decode layers snapshot: %w", err)
			}
		}
		if layers == nil {
			layers = []domain.Layer{}
		}
		p.Layers = layers
	case domain.OpAnnotationAdd, domain.OpAnnotationRemove:
		var anns []domain.Annotation
		if len(snap) > 0 {
			if err := json.Unmarshal(snap, &anns); err != nil {
				return fmt.Errorf("decode annotations snapshot: %w", err)
			}
		}
		p.Annotations = anns
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	return nil
}

// Viewport returns the transient view state. It is never persisted with the
// grid and never enters history.
func (s *Session) Viewport() domain.ViewportState { return s.viewport }

// SetZoom applies a constrained zoom factor.
func (s *Session) SetZoom(z float64) {
	s.viewport.Zoom = geom.ConstrainZoom(z)
}

// SetPan moves the viewport offset. Unconstrained; the view may roam.
func (s *Session) SetPan(p domain.Point) { s.viewport.Pan = p }

// SetViewportBounds records the widget size the view renders into.
func (s *Session) SetViewportBounds(b domain.Size) { s.viewport.Bounds = b }
