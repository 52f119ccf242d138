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

package monitor

import "time"

// State is the lifecycle phase of a monitoring session.
type State int32

const (
	// StateStarting is the phase before the start event has been emitted.
	StateStarting State = iota
	// StateMonitoring polls the tracked process once per tick.
	StateMonitoring
	// StateSearchingChild looks for a live child of the original process
	// after the tracked process was declared dead.
	StateSearchingChild
	// StateEnded is terminal.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateMonitoring:
		return "monitoring"
	case StateSearchingChild:
		return "searchingChild"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of a session's state, published after every
// tick.
type Snapshot struct {
	StartTime       time.Time
	SessionID       string
	State           State
	OriginalPID     int
	TrackedPID      int
	ActiveSeconds   int
	SwitchedToChild bool
}

// FinalMinutes converts active seconds to whole minutes, rounding half up:
// 89 is 1, 90 is 2.
func FinalMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	minutes := seconds / 60
	if seconds%60 >= 30 {
		minutes++
	}
	return minutes
}
