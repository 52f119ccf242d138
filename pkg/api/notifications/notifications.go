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

// Package notifications turns session events into JSON-RPC notifications on
// a channel.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/rs/zerolog/log"
)

var ErrNotificationTimeout = errors.New("notification delivery timed out")

// ChannelNotifier delivers session events to a notification channel. Sends
// block until the receiver takes the notification, the context ends or the
// timeout passes. It is safe for concurrent use.
type ChannelNotifier struct {
	ns      chan<- models.Notification
	timeout time.Duration
}

// NewChannelNotifier creates a notifier writing to ns. A timeout of zero
// waits as long as the caller's context allows.
func NewChannelNotifier(ns chan<- models.Notification, timeout time.Duration) *ChannelNotifier {
	return &ChannelNotifier{ns: ns, timeout: timeout}
}

func (c *ChannelNotifier) SessionStarted(ctx context.Context, p models.SessionStartedParams) error {
	return c.send(ctx, models.NotificationSessionStarted, p)
}

func (c *ChannelNotifier) SessionTimeUpdate(ctx context.Context, p models.SessionTimeUpdateParams) error {
	return c.send(ctx, models.NotificationSessionTimeUpdate, p)
}

func (c *ChannelNotifier) SessionEnded(ctx context.Context, p models.SessionEndedParams) error {
	return c.send(ctx, models.NotificationSessionEnded, p)
}

func (c *ChannelNotifier) send(ctx context.Context, method string, payload any) error {
	params, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case c.ns <- models.Notification{Method: method, Params: params}:
		log.Debug().Str("method", method).RawJSON("params", params).Msg("sent notification")
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", method, ErrNotificationTimeout)
		}
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}
