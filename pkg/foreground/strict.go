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
	"errors"
	"slices"
	"sync"

	"github.com/playclock/playclock/pkg/procinfo"
	"github.com/rs/zerolog/log"
)

// ErrUnsupported means the window system cannot be queried at all (no
// display, helper tool missing, unsupported OS).
var ErrUnsupported = errors.New("window system not available")

// ErrNoFocusedWindow means the query worked but nothing holds focus.
var ErrNoFocusedWindow = errors.New("no focused window")

// WindowResolver finds the process that owns the focused top-level window.
type WindowResolver interface {
	ActivePID(ctx context.Context) (int, error)
}

// Strict compares pid to the owner of the focused window.
type Strict struct {
	resolver        WindowResolver
	inspector       procinfo.Inspector
	unsupportedOnce sync.Once
	includeChildren bool
}

// NewStrict creates a strict detector. inspector is only consulted when
// includeChildren is set.
func NewStrict(resolver WindowResolver, inspector procinfo.Inspector, includeChildren bool) *Strict {
	return &Strict{
		resolver:        resolver,
		inspector:       inspector,
		includeChildren: includeChildren,
	}
}

// IsForeground implements Detector. When the window system is unavailable
// the process is assumed to be in the foreground.
func (s *Strict) IsForeground(ctx context.Context, pid int) bool {
	owner, err := s.resolver.ActivePID(ctx)
	if errors.Is(err, ErrUnsupported) {
		s.unsupportedOnce.Do(func() {
			log.Info().Err(err).Msg("foreground: focus queries unavailable, assuming foreground")
		})
		return true
	}
	if err != nil {
		log.Debug().Err(err).Int("pid", pid).Msg("foreground: focus query failed")
		return false
	}

	if owner == pid {
		return true
	}
	if s.includeChildren && s.inspector != nil {
		return slices.Contains(s.inspector.ChildrenOf(ctx, pid), owner)
	}
	return false
}

type unsupportedResolver struct{}

func (unsupportedResolver) ActivePID(context.Context) (int, error) {
	return 0, ErrUnsupported
}
