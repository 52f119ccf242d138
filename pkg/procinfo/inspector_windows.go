//go:build windows

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

package procinfo

import (
	"context"
	"errors"
	"math"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
)

const stillActive = 259 // STILL_ACTIVE exit code for running processes

func newPlatformInspector() Inspector {
	return &WinInspector{}
}

// WinInspector uses the Win32 process and toolhelp APIs.
type WinInspector struct{}

// IsAlive opens pid with query-only access and checks the exit code is
// still STILL_ACTIVE. The handle is closed on every path.
func (*WinInspector) IsAlive(_ context.Context, pid int) bool {
	if pid <= 0 || int64(pid) > math.MaxUint32 {
		return false
	}

	//nolint:gosec // G115: range checked above
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// gone, or we lack rights to look at it
		return false
	}
	defer func() { _ = windows.CloseHandle(handle) }()

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	return exitCode == stillActive
}

// ChildrenOf walks a toolhelp snapshot of the process table.
func (*WinInspector) ChildrenOf(ctx context.Context, parent int) []int {
	if parent <= 0 || int64(parent) > math.MaxUint32 {
		return nil
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		log.Debug().Err(err).Msg("procinfo: CreateToolhelp32Snapshot failed")
		return nil
	}
	defer func() { _ = windows.CloseHandle(snapshot) }()

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		log.Debug().Err(err).Msg("procinfo: Process32First failed")
		return nil
	}

	//nolint:gosec // G115: range checked above
	want := uint32(parent)
	var children []int
	for {
		if ctx.Err() != nil {
			return children
		}
		if entry.ParentProcessID == want && entry.ProcessID != want {
			children = append(children, int(entry.ProcessID))
		}
		err := windows.Process32Next(snapshot, &entry)
		if err != nil {
			if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				log.Debug().Err(err).Msg("procinfo: Process32Next failed")
			}
			break
		}
	}
	return children
}
