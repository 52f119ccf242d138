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

// Package procinfo answers two questions about OS processes: is a PID still
// alive, and which live processes were spawned by it. Every failure to query
// the OS is folded into a negative answer; callers never see raw errors.
package procinfo

import (
	"context"
	"time"

	"github.com/playclock/playclock/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// Inspector is the platform capability used by the session monitor.
type Inspector interface {
	// IsAlive reports whether pid exists and has not exited. Permission
	// errors, invalid handles and unknown PIDs all report false.
	IsAlive(ctx context.Context, pid int) bool

	// ChildrenOf snapshots the process table and returns every PID whose
	// parent is parent. An unreadable table yields an empty result.
	ChildrenOf(ctx context.Context, parent int) []int
}

// New returns the Inspector for the running platform.
func New() Inspector {
	return newPlatformInspector()
}

type boundedInspector struct {
	inner   Inspector
	timeout time.Duration
}

// WithTimeout bounds every call on inner to d. A call that overruns is
// abandoned and reported as dead (or childless).
func WithTimeout(inner Inspector, d time.Duration) Inspector {
	if d <= 0 {
		return inner
	}
	return &boundedInspector{inner: inner, timeout: d}
}

func (b *boundedInspector) IsAlive(ctx context.Context, pid int) bool {
	alive, ok := helpers.CallWithTimeout(ctx, b.timeout, false, func(ctx context.Context) bool {
		return b.inner.IsAlive(ctx, pid)
	})
	if !ok {
		log.Warn().Int("pid", pid).Dur("timeout", b.timeout).Msg("procinfo: liveness probe timed out")
	}
	return alive
}

func (b *boundedInspector) ChildrenOf(ctx context.Context, parent int) []int {
	children, ok := helpers.CallWithTimeout(ctx, b.timeout, nil, func(ctx context.Context) []int {
		return b.inner.ChildrenOf(ctx, parent)
	})
	if !ok {
		log.Warn().Int("pid", parent).Dur("timeout", b.timeout).Msg("procinfo: process table snapshot timed out")
	}
	return children
}
