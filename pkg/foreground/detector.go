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

// Package foreground decides whether a process currently counts as the
// active, user-focused application.
//
// Two policies exist because neither is right for every game. Strict asks
// the window system which process owns the focused window. Lenient treats a
// live process as focused, which never under-counts full-screen exclusive
// games that hide their window from the usual focus queries.
package foreground

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playclock/playclock/pkg/helpers"
	"github.com/playclock/playclock/pkg/helpers/command"
	"github.com/playclock/playclock/pkg/procinfo"
	"github.com/rs/zerolog/log"
)

// Policy selects a Detector implementation.
type Policy string

const (
	PolicyLenient Policy = "lenient"
	PolicyStrict  Policy = "strict"
	PolicyAlways  Policy = "always"
)

// DefaultPolicy matches the behaviour users of the Windows build expect.
const DefaultPolicy = PolicyLenient

// ParsePolicy parses a config value. Empty means DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultPolicy, nil
	case PolicyLenient, PolicyStrict, PolicyAlways:
		return p, nil
	default:
		return "", fmt.Errorf("unknown foreground policy %q", s)
	}
}

// Detector reports whether pid is the foreground application.
type Detector interface {
	IsForeground(ctx context.Context, pid int) bool
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, pid int) bool

// IsForeground implements Detector.
func (f DetectorFunc) IsForeground(ctx context.Context, pid int) bool {
	return f(ctx, pid)
}

// Options carries the collaborators a policy may need.
type Options struct {
	Inspector procinfo.Inspector
	// Executor runs window-system helpers for the strict policy. Nil means
	// a real executor.
	Executor command.Executor
	// IncludeChildren also credits focus held by direct children of pid.
	IncludeChildren bool
}

// New builds the Detector for policy.
func New(policy Policy, opts Options) (Detector, error) {
	if opts.Inspector == nil {
		opts.Inspector = procinfo.New()
	}
	if opts.Executor == nil {
		opts.Executor = &command.RealExecutor{}
	}

	switch policy {
	case PolicyLenient, "":
		return &Lenient{
			Inspector:       opts.Inspector,
			IncludeChildren: opts.IncludeChildren,
		}, nil
	case PolicyStrict:
		return NewStrict(NewResolver(opts.Executor), opts.Inspector, opts.IncludeChildren), nil
	case PolicyAlways:
		return Always{}, nil
	default:
		return nil, fmt.Errorf("unknown foreground policy %q", policy)
	}
}

// Always treats every process as foreground. It is what a platform without
// any window-manager integration amounts to.
type Always struct{}

// IsForeground implements Detector.
func (Always) IsForeground(context.Context, int) bool {
	return true
}

// Lenient treats a live process as foreground. With IncludeChildren a dead
// pid with a live direct child also counts. A monitoring session only asks
// about a pid it has just seen alive, so there the child scan matters only
// when the process exits between the two probes; lenient_children mostly
// affects the strict policy.
type Lenient struct {
	Inspector       procinfo.Inspector
	IncludeChildren bool
}

// IsForeground implements Detector.
func (l *Lenient) IsForeground(ctx context.Context, pid int) bool {
	if l.Inspector.IsAlive(ctx, pid) {
		return true
	}
	if !l.IncludeChildren {
		return false
	}
	for _, child := range l.Inspector.ChildrenOf(ctx, pid) {
		if l.Inspector.IsAlive(ctx, child) {
			return true
		}
	}
	return false
}

type boundedDetector struct {
	inner   Detector
	timeout time.Duration
}

// WithTimeout bounds each query on inner to d; an overrun counts as not
// foreground.
func WithTimeout(inner Detector, d time.Duration) Detector {
	if d <= 0 {
		return inner
	}
	return &boundedDetector{inner: inner, timeout: d}
}

func (b *boundedDetector) IsForeground(ctx context.Context, pid int) bool {
	fg, ok := helpers.CallWithTimeout(ctx, b.timeout, false, func(ctx context.Context) bool {
		return b.inner.IsForeground(ctx, pid)
	})
	if !ok {
		log.Warn().Int("pid", pid).Dur("timeout", b.timeout).Msg("foreground: probe timed out")
	}
	return fg
}
