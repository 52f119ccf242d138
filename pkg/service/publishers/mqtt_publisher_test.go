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

package publishers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedPublisher(t *testing.T, filter []string) (*MQTTPublisher, *mockMQTTClient) {
	t.Helper()
	client := newMockMQTTClient()
	p := NewMQTTPublisher("localhost:1883", "playclock/", filter)
	p.newClient = client.factory()
	require.NoError(t, p.Start())
	return p, client
}

func TestNewMQTTPublisher(t *testing.T) {
	t.Parallel()

	p := NewMQTTPublisher("localhost:1883", "playclock/events/", []string{models.NotificationSessionEnded})
	assert.Equal(t, "localhost:1883", p.broker)
	assert.Equal(t, "playclock/events", p.topic)
	assert.Equal(t, []string{models.NotificationSessionEnded}, p.filter)
}

func TestBrokerURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		broker string
		want   string
	}{
		{broker: "localhost:1883", want: "tcp://localhost:1883"},
		{broker: "ssl://mqtt.example.com:8883", want: "ssl://mqtt.example.com:8883"},
		{broker: "ws://10.0.0.2:9001/mqtt", want: "ws://10.0.0.2:9001/mqtt"},
	}
	for _, tt := range tests {
		t.Run(tt.broker, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, brokerURL(tt.broker))
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		filter []string
		want   bool
	}{
		{name: "nil filter", method: models.NotificationSessionStarted, want: true},
		{name: "empty filter", method: models.NotificationSessionTimeUpdate, filter: []string{}, want: true},
		{
			name:   "listed",
			method: models.NotificationSessionEnded,
			filter: []string{models.NotificationSessionStarted, models.NotificationSessionEnded},
			want:   true,
		},
		{
			name:   "not listed",
			method: models.NotificationSessionTimeUpdate,
			filter: []string{models.NotificationSessionEnded},
			want:   false,
		},
		{
			name:   "case sensitive",
			method: "Session.Ended",
			filter: []string{models.NotificationSessionEnded},
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewMQTTPublisher("localhost:1883", "t", tt.filter)
			assert.Equal(t, tt.want, p.matchesFilter(tt.method))
		})
	}
}

func TestTopic(t *testing.T) {
	t.Parallel()

	p := NewMQTTPublisher("localhost:1883", "home/playclock", nil)
	assert.Equal(t, "home/playclock/session/ended", p.Topic(models.NotificationSessionEnded))
	assert.Equal(t, "home/playclock/session/timeUpdate", p.Topic(models.NotificationSessionTimeUpdate))
}

func TestStart_ConfiguresClient(t *testing.T) {
	t.Parallel()

	_, client := startedPublisher(t, nil)

	require.NotNil(t, client.opts)
	require.Len(t, client.opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", client.opts.Servers[0].String())
	assert.Contains(t, client.opts.ClientID, "playclock-")
	assert.True(t, client.opts.AutoReconnect)
	assert.True(t, client.IsConnected())
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.connectError = errors.New("connection refused")
	p := NewMQTTPublisher("localhost:1883", "t", nil)
	p.newClient = client.factory()

	err := p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStart_SlowBrokerIsNotFatal(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.connectHangs = true
	p := NewMQTTPublisher("localhost:1883", "t", nil)
	p.newClient = client.factory()

	require.NoError(t, p.Start())
}

func TestPublish(t *testing.T) {
	t.Parallel()

	p, client := startedPublisher(t, nil)

	require.NoError(t, p.Publish(models.Notification{
		Method: models.NotificationSessionEnded,
		Params: json.RawMessage(`{"sessionId":"abc","totalMinutes":3}`),
	}))
	require.NoError(t, p.Publish(models.Notification{
		Method: models.NotificationSessionTimeUpdate,
		Params: json.RawMessage(`{"sessionId":"abc","totalSeconds":30}`),
	}))

	msgs := client.messages()
	require.Len(t, msgs, 2)

	assert.Equal(t, "playclock/session/ended", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.False(t, msgs[0].retained)
	var m Message
	require.NoError(t, json.Unmarshal(msgs[0].payload, &m))
	assert.Equal(t, models.NotificationSessionEnded, m.Method)
	assert.JSONEq(t, `{"sessionId":"abc","totalMinutes":3}`, string(m.Params))

	assert.Equal(t, "playclock/session/timeUpdate", msgs[1].topic)
	assert.Equal(t, byte(0), msgs[1].qos)
}

func TestPublish_Filtered(t *testing.T) {
	t.Parallel()

	p, client := startedPublisher(t, []string{models.NotificationSessionEnded})

	require.NoError(t, p.Publish(models.Notification{Method: models.NotificationSessionStarted}))
	require.NoError(t, p.Publish(models.Notification{Method: models.NotificationSessionEnded}))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "playclock/session/ended", msgs[0].topic)
}

func TestPublish_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not started", func(t *testing.T) {
		t.Parallel()
		p := NewMQTTPublisher("localhost:1883", "t", nil)
		require.ErrorIs(t, p.Publish(models.Notification{Method: models.NotificationSessionEnded}), ErrNotStarted)
	})

	t.Run("broker error", func(t *testing.T) {
		t.Parallel()
		p, client := startedPublisher(t, nil)
		client.mu.Lock()
		client.publishError = errors.New("not authorized")
		client.mu.Unlock()

		err := p.Publish(models.Notification{Method: models.NotificationSessionEnded})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not authorized")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		p, client := startedPublisher(t, nil)
		client.mu.Lock()
		client.publishHangs = true
		client.mu.Unlock()

		err := p.Publish(models.Notification{Method: models.NotificationSessionEnded})
		require.ErrorIs(t, err, ErrPublishTimeout)
	})
}

func TestStop(t *testing.T) {
	t.Parallel()

	p, client := startedPublisher(t, nil)
	p.Stop()
	assert.False(t, client.IsConnected())
	assert.Equal(t, 1, client.disconnectCall)

	// already disconnected
	p.Stop()
	assert.Equal(t, 1, client.disconnectCall)

	NewMQTTPublisher("localhost:1883", "t", nil).Stop()
}
