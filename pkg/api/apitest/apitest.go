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

// Package apitest runs the API router against a mock session manager for
// tests of API consumers.
package apitest

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/playclock/playclock/pkg/api"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/monitor"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessions is a testify mock of the session manager.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) StartMonitoringSession(sessionID string, pid int) (string, error) {
	args := m.Called(sessionID, pid)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.String(0), args.Error(1)
}

func (m *MockSessions) Stop(sessionID string) error {
	args := m.Called(sessionID)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return args.Error(0)
}

func (m *MockSessions) Sessions() []monitor.Snapshot {
	args := m.Called()
	if v, ok := args.Get(0).([]monitor.Snapshot); ok {
		return v
	}
	return nil
}

// Server is a running API backed by Sessions.
type Server struct {
	Sessions      *MockSessions
	Config        *config.Instance
	Notifications chan models.Notification
	URL           url.URL
}

// NewServer starts the API router on an httptest server. Everything is shut
// down when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Sessions:      &MockSessions{},
		Config:        cfg,
		Notifications: make(chan models.Notification, 10),
	}
	ts := httptest.NewServer(api.NewRouter(ctx, cfg, s.Sessions, s.Notifications))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	s.URL = url.URL{
		Scheme: "ws",
		Host:   strings.TrimPrefix(ts.URL, "http://"),
		Path:   config.APIPath,
	}
	return s
}
