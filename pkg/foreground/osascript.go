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
	"strconv"
	"strings"

	"github.com/playclock/playclock/pkg/helpers/command"
)

const frontmostScript = `tell application "System Events" to get unix id of first application process whose frontmost is true`

// OSAScriptResolver asks System Events for the frontmost application.
type OSAScriptResolver struct {
	exec command.Executor
}

// NewOSAScriptResolver creates a macOS resolver.
func NewOSAScriptResolver(exec command.Executor) *OSAScriptResolver {
	return &OSAScriptResolver{exec: exec}
}

// ActivePID implements WindowResolver.
func (r *OSAScriptResolver) ActivePID(ctx context.Context) (int, error) {
	if _, err := r.exec.LookPath("osascript"); err != nil {
		return 0, fmt.Errorf("%w: osascript not found", ErrUnsupported)
	}

	out, err := r.exec.Output(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return 0, fmt.Errorf("query frontmost application: %w", err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return 0, ErrNoFocusedWindow
	}
	pid, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse frontmost pid %q: %w", text, err)
	}
	return pid, nil
}
