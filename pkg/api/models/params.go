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

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidSessionID = errors.New("session id must be a string or number")

// SessionID accepts either a JSON string or a JSON number. Numbers are kept
// in their decimal text form.
type SessionID string

func (s *SessionID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}

	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return fmt.Errorf("parse session id: %w", err)
		}
		*s = SessionID(str)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("parse session id: %w", err)
	}
	n, ok := v.(json.Number)
	if !ok {
		return ErrInvalidSessionID
	}
	*s = SessionID(n.String())
	return nil
}

type MonitorParams struct {
	SessionID SessionID `json:"sessionId,omitempty" validate:"max=256"`
	ProcessID int       `json:"processId" validate:"pid"`
}

type StopParams struct {
	SessionID SessionID `json:"sessionId" validate:"required,max=256"`
}

// Reasons a session.ended notification can carry.
const (
	EndReasonExited    = "exited"
	EndReasonCancelled = "cancelled"
)

// SessionStartedParams and the other session notification payloads carry
// times as Unix seconds. ProcessID is the PID being tracked when the event
// was emitted, which may be a child of the launched process.
type SessionStartedParams struct {
	SessionID string `json:"sessionId"`
	ProcessID int    `json:"processId"`
	StartTime int64  `json:"startTime"`
}

type SessionTimeUpdateParams struct {
	SessionID    string `json:"sessionId"`
	TotalMinutes int    `json:"totalMinutes"`
	TotalSeconds int    `json:"totalSeconds"`
	StartTime    int64  `json:"startTime"`
	CurrentTime  int64  `json:"currentTime"`
	ProcessID    int    `json:"processId"`
}

type SessionEndedParams struct {
	SessionID    string `json:"sessionId"`
	Reason       string `json:"reason"`
	StartTime    int64  `json:"startTime"`
	EndTime      int64  `json:"endTime"`
	TotalMinutes int    `json:"totalMinutes"`
	TotalSeconds int    `json:"totalSeconds"`
	ProcessID    int    `json:"processId"`
}
