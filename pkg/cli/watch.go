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

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/api/notifications"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/monitor"
	"github.com/playclock/playclock/pkg/service"
	"github.com/rs/zerolog/log"
)

// Watch monitors pid in-process, printing each session event to out, and
// returns when the session ends or ctx is cancelled. A cancelled watch
// still prints its ended event.
//
//nolint:gocritic // options copied so defaults can be filled in
func Watch(
	ctx context.Context,
	cfg *config.Instance,
	pid int,
	sessionID string,
	out io.Writer,
	opts service.Options,
) error {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ns := make(chan models.Notification)
	monitorOpts, err := service.MonitorOptions(
		cfg,
		notifications.NewChannelNotifier(ns, cfg.NotifyTimeout()),
		&opts,
	)
	if err != nil {
		return err
	}

	printed := make(chan error, 1)
	go func() {
		var writeErr error
		for n := range ns {
			if writeErr != nil {
				continue
			}
			writeErr = WriteNotification(out, n)
		}
		printed <- writeErr
	}()

	log.Info().Str("sessionId", sessionID).Int("pid", pid).Msg("watching process")
	runErr := monitor.Run(ctx, sessionID, pid, monitorOpts)
	close(ns)
	if writeErr := <-printed; writeErr != nil {
		return writeErr
	}
	if runErr != nil {
		return fmt.Errorf("session %s failed: %w", sessionID, runErr)
	}
	return nil
}
