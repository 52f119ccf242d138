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

// Package helpers has filesystem fixtures for tests.
package helpers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
)

// FSHelper builds files on an afero filesystem, usually in memory.
type FSHelper struct {
	Fs afero.Fs
}

func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// ProcEntry is one process in a fake /proc table.
type ProcEntry struct {
	Comm  string
	PID   int
	PPID  int
	State byte
}

// CreateProcEntry writes /<root>/<pid>/stat in the kernel's format. The
// fields after ppid are filler; only pid, comm, state and ppid are read.
func (h *FSHelper) CreateProcEntry(root string, p ProcEntry) error {
	if p.PID <= 0 {
		return errors.New("pid must be positive")
	}
	state := p.State
	if state == 0 {
		state = 'S'
	}

	dir := filepath.Join(root, strconv.Itoa(p.PID))
	if err := h.Fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	stat := fmt.Sprintf("%d (%s) %c %d 1 1 0 -1 4194560 100 0 0 0\n", p.PID, p.Comm, state, p.PPID)
	return h.WriteFile(filepath.Join(dir, "stat"), []byte(stat))
}

// CreateProcTable writes every entry under root.
func (h *FSHelper) CreateProcTable(root string, entries []ProcEntry) error {
	for _, p := range entries {
		if err := h.CreateProcEntry(root, p); err != nil {
			return err
		}
	}
	return nil
}

func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	return err == nil && exists
}

func (h *FSHelper) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(h.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes content to path, creating parent directories.
func (h *FSHelper) WriteFile(path string, content []byte) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(h.Fs, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}
