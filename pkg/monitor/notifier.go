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

import (
	"context"

	"github.com/playclock/playclock/pkg/api/models"
)

// Notifier receives session events. Implementations must be safe for
// concurrent use; an error aborts the session that emitted the event.
type Notifier interface {
	SessionStarted(ctx context.Context, p models.SessionStartedParams) error
	SessionTimeUpdate(ctx context.Context, p models.SessionTimeUpdateParams) error
	SessionEnded(ctx context.Context, p models.SessionEndedParams) error
}
