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
	"math"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

// PsutilInspector answers through gopsutil. It is the inspector for
// platforms without a procfs or Win32 implementation (macOS, the BSDs).
type PsutilInspector struct{}

func toPID32(pid int) (int32, bool) {
	if pid <= 0 || pid > math.MaxInt32 {
		return 0, false
	}
	return int32(pid), true
}

func (*PsutilInspector) IsAlive(ctx context.Context, pid int) bool {
	pid32, ok := toPID32(pid)
	if !ok {
		return false
	}

	exists, err := process.PidExistsWithContext(ctx, pid32)
	if err != nil || !exists {
		return false
	}

	proc, err := process.NewProcessWithContext(ctx, pid32)
	if err != nil {
		return false
	}
	status, err := proc.StatusWithContext(ctx)
	if err != nil {
		// exists but status is hidden from us, e.g. another user's process
		return true
	}
	return !slices.Contains(status, process.Zombie)
}

func (*PsutilInspector) ChildrenOf(ctx context.Context, parent int) []int {
	parent32, ok := toPID32(parent)
	if !ok {
		return nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("procinfo: cannot list processes")
		return nil
	}

	var children []int
	for _, p := range procs {
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			continue
		}
		if ppid == parent32 && p.Pid != parent32 {
			children = append(children, int(p.Pid))
		}
	}
	return children
}
