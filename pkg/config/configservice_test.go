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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscoveryEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		enabled *bool
		name    string
		want    bool
	}{
		{name: "nil returns false (default disabled)", enabled: nil, want: false},
		{name: "true returns true", enabled: boolPtr(true), want: true},
		{name: "false returns false", enabled: boolPtr(false), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst := &Instance{
				vals: Values{
					Service: Service{
						Discovery: Discovery{Enabled: tt.enabled},
					},
				},
			}

			assert.Equal(t, tt.want, inst.DiscoveryEnabled())
		})
	}
}

func TestAPIListen(t *testing.T) {
	t.Parallel()

	port := 8080
	tests := []struct {
		port   *int
		name   string
		listen string
		want   string
	}{
		{name: "defaults", want: "127.0.0.1:7598"},
		{name: "custom port", port: &port, want: "127.0.0.1:8080"},
		{name: "custom host", listen: "0.0.0.0", want: "0.0.0.0:7598"},
		{name: "ipv6 host", listen: "::1", port: &port, want: "[::1]:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst := &Instance{}
			inst.vals.Service.APIPort = tt.port
			inst.vals.Service.APIListen = tt.listen

			assert.Equal(t, tt.want, inst.APIListen())
		})
	}
}

// APIListen must not call APIPort while holding the read lock; with
// -tags=deadlock a recursive RLock panics.
func TestAPIListen_NoRecursiveLock(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}

	done := make(chan struct{})
	go func() {
		_ = cfg.APIListen()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("APIListen() deadlocked")
	}
}

func TestSetAPIPort(t *testing.T) {
	t.Parallel()

	inst := &Instance{}
	inst.SetAPIPort(9000)
	inst.SetAPIListen("localhost")

	assert.Equal(t, 9000, inst.APIPort())
	assert.Equal(t, "localhost:9000", inst.APIListen())
}

func TestMonitorGettersZeroValue(t *testing.T) {
	t.Parallel()

	inst := &Instance{}

	assert.Equal(t, DefaultTickInterval, inst.TickInterval())
	assert.Equal(t, DefaultFailureThreshold, inst.FailureThreshold())
	assert.Equal(t, DefaultUpdateInterval, inst.UpdateInterval())
	assert.Equal(t, DefaultForeground, inst.ForegroundPolicy())
	assert.Equal(t, DefaultProbeTimeout, inst.ProbeTimeout())
	assert.Equal(t, DefaultNotifyTimeout, inst.NotifyTimeout())
	assert.True(t, inst.ChildFallback())
	assert.True(t, inst.LenientChildren())
}
