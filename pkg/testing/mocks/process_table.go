// Playclock
// Copyright (c) 2026 The Playclock Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Playclock.
//
// Playclock is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Playclock is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Playclock.  If not, see <http://www.gnu.org/licenses/>.

package mocks

import (
	"context"
	"maps"
	"slices"

	"github.com/playclock/playclock/pkg/helpers/syncutil"
)

// ProcessTable is an in-memory procinfo.Inspector. Tests flip processes
// alive or dead between monitor ticks.
type ProcessTable struct {
	alive      map[int]bool
	parents    map[int]int
	aliveCalls map[int]int
	childCalls int
	mu         syncutil.Mutex
}

// NewProcessTable creates an empty table.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{
		alive:      make(map[int]bool),
		parents:    make(map[int]int),
		aliveCalls: make(map[int]int),
	}
}

// Spawn adds a live process with the given parent (0 for none).
func (t *ProcessTable) Spawn(pid, parent int) *ProcessTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive[pid] = true
	if parent > 0 {
		t.parents[pid] = parent
	}
	return t
}

// Kill marks pid as dead. It stays in the table so its children can still
// be found by parent id, like an orphaned launcher on Windows.
func (t *ProcessTable) Kill(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive[pid] = false
}

// Remove drops pid entirely.
func (t *ProcessTable) Remove(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.alive, pid)
	delete(t.parents, pid)
}

// SetAlive sets the liveness of pid.
func (t *ProcessTable) SetAlive(pid int, alive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive[pid] = alive
}

// AliveCalls returns how many times IsAlive was asked about pid.
func (t *ProcessTable) AliveCalls(pid int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aliveCalls[pid]
}

// ChildrenCalls returns how many times ChildrenOf was called.
func (t *ProcessTable) ChildrenCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.childCalls
}

// IsAlive implements procinfo.Inspector.
func (t *ProcessTable) IsAlive(_ context.Context, pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aliveCalls[pid]++
	return t.alive[pid]
}

// ChildrenOf implements procinfo.Inspector. Results are sorted so tests
// get a stable fallback choice.
func (t *ProcessTable) ChildrenOf(_ context.Context, parent int) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.childCalls++
	var children []int
	for _, pid := range slices.Sorted(maps.Keys(t.parents)) {
		if t.parents[pid] == parent {
			children = append(children, pid)
		}
	}
	return children
}
