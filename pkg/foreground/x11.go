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

package foreground

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/playclock/playclock/pkg/helpers/command"
)

var (
	// _NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007
	activeWindowRe = regexp.MustCompile(`window id # (0x[0-9a-fA-F]+)`)
	// _NET_WM_PID(CARDINAL) = 12345
	wmPIDRe = regexp.MustCompile(`_NET_WM_PID\(CARDINAL\) = (\d+)`)
)

// X11Resolver asks an EWMH-compliant window manager for the focused window
// through xprop.
type X11Resolver struct {
	exec    command.Executor
	display string
}

// NewX11Resolver creates a resolver for display (e.g. ":0").
func NewX11Resolver(exec command.Executor, display string) *X11Resolver {
	return &X11Resolver{exec: exec, display: display}
}

// ActivePID implements WindowResolver.
func (r *X11Resolver) ActivePID(ctx context.Context) (int, error) {
	if r.display == "" {
		return 0, fmt.Errorf("%w: DISPLAY not set", ErrUnsupported)
	}
	if _, err := r.exec.LookPath("xprop"); err != nil {
		return 0, fmt.Errorf("%w: xprop not found", ErrUnsupported)
	}

	out, err := r.exec.Output(ctx, "xprop", "-display", r.display, "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return 0, fmt.Errorf("query active window: %w", err)
	}
	windowID, err := parseActiveWindow(string(out))
	if err != nil {
		return 0, err
	}

	out, err = r.exec.Output(ctx, "xprop", "-display", r.display, "-id", windowID, "_NET_WM_PID")
	if err != nil {
		return 0, fmt.Errorf("query window %s pid: %w", windowID, err)
	}
	return parseWMPID(string(out))
}

func parseActiveWindow(out string) (string, error) {
	m := activeWindowRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("unexpected xprop output: %q", strings.TrimSpace(out))
	}
	id, err := strconv.ParseUint(m[1][2:], 16, 64)
	if err != nil {
		return "", fmt.Errorf("parse window id %s: %w", m[1], err)
	}
	if id == 0 {
		return "", ErrNoFocusedWindow
	}
	return m[1], nil
}

func parseWMPID(out string) (int, error) {
	m := wmPIDRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("window has no _NET_WM_PID: %q", strings.TrimSpace(out))
	}
	pid, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse pid: %w", err)
	}
	return pid, nil
}
