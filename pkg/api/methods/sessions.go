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

package methods

import (
	"errors"
	"fmt"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/api/models/requests"
	"github.com/playclock/playclock/pkg/api/validation"
	"github.com/playclock/playclock/pkg/monitor"
	"github.com/rs/zerolog/log"
)

var ErrNoSessions = errors.New("session monitoring is not available")

// HandleMonitor starts monitoring a process. The session id is optional; a
// UUID is generated when it is missing.
func HandleMonitor(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	if env.Sessions == nil {
		return nil, ErrNoSessions
	}

	var params models.MonitorParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	log.Info().
		Str("sessionId", string(params.SessionID)).
		Int("pid", params.ProcessID).
		Msg("received monitor request")

	id, err := env.Sessions.StartMonitoringSession(string(params.SessionID), params.ProcessID)
	if err != nil {
		return nil, fmt.Errorf("failed to start monitoring: %w", err)
	}
	return models.MonitorResponse{SessionID: id}, nil
}

// HandleStop cancels a running session. The session still emits its
// session.ended notification with reason "cancelled".
func HandleStop(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	if env.Sessions == nil {
		return nil, ErrNoSessions
	}

	var params models.StopParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	log.Info().Str("sessionId", string(params.SessionID)).Msg("received stop request")

	if err := env.Sessions.Stop(string(params.SessionID)); err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}
	return nil, nil //nolint:nilnil // null result on success
}

func HandleSessions(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	resp := models.SessionsResponse{Sessions: make([]models.SessionResponse, 0)}
	if env.Sessions == nil {
		return resp, nil
	}
	for _, snap := range env.Sessions.Sessions() {
		resp.Sessions = append(resp.Sessions, SessionResponse(snap))
	}
	return resp, nil
}

// SessionResponse converts a monitor snapshot to its API form.
func SessionResponse(snap monitor.Snapshot) models.SessionResponse { //nolint:gocritic // snapshots are values
	var start int64
	if !snap.StartTime.IsZero() {
		start = snap.StartTime.Unix()
	}
	return models.SessionResponse{
		SessionID:         snap.SessionID,
		State:             snap.State.String(),
		StartTime:         start,
		OriginalProcessID: snap.OriginalPID,
		ProcessID:         snap.TrackedPID,
		TotalSeconds:      snap.ActiveSeconds,
		SwitchedToChild:   snap.SwitchedToChild,
	}
}
