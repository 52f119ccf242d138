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

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
)

// APIClient abstracts API communication for the CLI.
type APIClient interface {
	Call(ctx context.Context, method, params string) (string, error)
	WaitNotification(ctx context.Context, timeout time.Duration, method string) (string, error)
	Notifications(ctx context.Context, fn func(models.Notification) bool) error
}

// LocalAPIClient implements APIClient against the local service.
type LocalAPIClient struct {
	cfg *config.Instance
}

func NewLocalAPIClient(cfg *config.Instance) *LocalAPIClient {
	return &LocalAPIClient{cfg: cfg}
}

func (c *LocalAPIClient) Call(ctx context.Context, method, params string) (string, error) {
	resp, err := LocalClient(ctx, c.cfg, method, params)
	if err != nil {
		return "", fmt.Errorf("api call failed: %w", err)
	}
	return resp, nil
}

func (c *LocalAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	method string,
) (string, error) {
	resp, err := WaitNotification(ctx, timeout, c.cfg, method)
	if err != nil {
		return "", fmt.Errorf("wait notification failed: %w", err)
	}
	return resp, nil
}

// Notifications streams notifications until fn returns false or ctx ends.
func (c *LocalAPIClient) Notifications(ctx context.Context, fn func(models.Notification) bool) error {
	err := Notifications(ctx, LocalURL(c.cfg), -1, fn)
	if err != nil {
		return fmt.Errorf("notification stream failed: %w", err)
	}
	return nil
}
