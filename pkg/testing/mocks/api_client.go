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

package mocks

import (
	"context"
	"time"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a testify mock for client.APIClient.
type MockAPIClient struct {
	mock.Mock
	// Stream is replayed by Notifications.
	Stream []models.Notification
}

func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) Call(ctx context.Context, method, params string) (string, error) {
	args := m.Called(ctx, method, params)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.String(0), args.Error(1)
}

func (m *MockAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	method string,
) (string, error) {
	args := m.Called(ctx, timeout, method)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.String(0), args.Error(1)
}

// Notifications feeds Stream to fn, then returns the configured error.
func (m *MockAPIClient) Notifications(ctx context.Context, fn func(models.Notification) bool) error {
	args := m.Called(ctx)
	for _, n := range m.Stream {
		if !fn(n) {
			return nil
		}
	}
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.Error(0)
}
