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

package requests

import (
	"context"
	"encoding/json"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/monitor"
)

// Sessions is the monitor manager as seen by API methods.
type Sessions interface {
	StartMonitoringSession(sessionID string, pid int) (string, error)
	Stop(sessionID string) error
	Sessions() []monitor.Snapshot
}

type RequestEnv struct {
	Context  context.Context
	Config   *config.Instance
	Sessions Sessions
	Params   json.RawMessage
	ID       models.RPCID
	IsLocal  bool
}
