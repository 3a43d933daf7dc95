/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps the linear undo/redo log of an editing session.
// The manager stores operation records only; applying their snapshots back
// onto a grid is the editor's job.
package history

import (
	"sync"
	"time"

	"storycore/internal/domain"
)

// DefaultMaxDepth bounds the undo stack when no explicit cap is configured.
const DefaultMaxDepth = 50

// Config controls depth and coalescing behavior.
type Config struct {
	// MaxDepth limits the undo stack; pushing past it evicts the oldest
	// entry (FIFO). 0 means DefaultMaxDepth.
	MaxDepth int
	// MinInterval coalesces successive transform/crop records for the same
	// panel arriving within the window, merging them into one entry so a
	// drag gesture undoes as one step. 0 disables coalescing.
	MinInterval time.Duration
}

// Manager is one grid's linear history: a bounded undo stack plus the redo
// tail. Branching is not modeled; a new record after an undo truncates the
// redo tail. Safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo []domain.Operation
	redo []domain.Operation
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Manager{cfg: cfg}
}

// Push records an operation and invalidates the redo tail. Within the
// coalescing window, a gesture-style record replaces the previous one,
// keeping the earliest before and the newest after snapshot.
func (m *Manager) Push(op domain.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redo = nil
	if n := len(m.undo); n > 0 && m.coalescable(m.undo[n-1], op) {
		merged := op
		merged.Data.Before = m.undo[n-1].Data.Before
		m.undo[n-1] = merged
		return
	}
	m.undo = append(m.undo, op)
	if len(m.undo) > m.cfg.MaxDepth {
		drop := len(m.undo) - m.cfg.MaxDepth
		m.undo = append([]domain.Operation{}, m.undo[drop:]...)
	}
}

// coalescable reports whether two records merge into one history entry:
// same panel, same drag-style type, within the window. Structural edits
// (layer/annotation operations, batches) never coalesce.
func (m *Manager) coalescable(prev, next domain.Operation) bool {
	if m.cfg.MinInterval <= 0 {
		return false
	}
	if next.Type != domain.OpTransform && next.Type != domain.OpCrop {
		return false
	}
	if prev.Type != next.Type || prev.Data.PanelID == "" || prev.Data.PanelID != next.Data.PanelID {
		return false
	}
	return next.Timestamp.Sub(prev.Timestamp) < m.cfg.MinInterval
}

// Undo pops the newest record onto the redo tail and returns it.
func (m *Manager) Undo() (domain.Operation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return domain.Operation{}, false
	}
	op := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, op)
	return op, true
}

// Redo pops the newest undone record back onto the undo stack.
func (m *Manager) Redo() (domain.Operation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return domain.Operation{}, false
	}
	op := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, op)
	return op, true
}

// Peek returns the record Undo would pop, without popping it.
func (m *Manager) Peek() (domain.Operation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return domain.Operation{}, false
	}
	return m.undo[len(m.undo)-1], true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Depths returns the current stack sizes for diagnostics.
func (m *Manager) Depths() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// Clear drops both stacks, e.g. after loading a different grid.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
}
