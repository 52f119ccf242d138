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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestFlags() *Flags {
	fs := flag.NewFlagSet("playclock", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return NewFlags(fs)
}

func TestPre_Version(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	var out bytes.Buffer
	exit, err := f.Pre([]string{"-version"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), config.AppName+" v"+config.AppVersion)
}

func TestPre_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		errMsg  string
		args    []string
		wantErr bool
	}{
		{name: "no flags", args: nil},
		{name: "watch pid", args: []string{"-watch", "1234"}},
		{name: "watch zero", args: []string{"-watch", "0"}, wantErr: true, errMsg: "positive process id"},
		{name: "watch negative", args: []string{"-watch", "-5"}, wantErr: true, errMsg: "positive process id"},
		{name: "params without api", args: []string{"-params", "{}"}, wantErr: true, errMsg: "only valid with -api"},
		{name: "api with params", args: []string{"-api", "sessions", "-params", "{}"}},
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: true, errMsg: "parse flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newTestFlags()
			exit, err := f.Pre(tt.args, io.Discard)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.True(t, exit)
				return
			}
			require.NoError(t, err)
			assert.False(t, exit)
		})
	}
}

func TestPost_API(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-api", "sessions.monitor", "-params", `{"processId":42}`}, io.Discard)
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	api.On("Call", mock.Anything, models.MethodSessionsMonitor, `{"processId":42}`).
		Return(`{"sessionId":"abc"}`, nil)

	var out bytes.Buffer
	handled, err := f.Post(context.Background(), api, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "{\"sessionId\":\"abc\"}\n", out.String())
	api.AssertExpectations(t)
}

func TestPost_APIError(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-api", "sessions.stop"}, io.Discard)
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	api.On("Call", mock.Anything, models.MethodSessionsStop, "").
		Return("", errors.New("session not found"))

	handled, err := f.Post(context.Background(), api, io.Discard)
	assert.True(t, handled)
	require.ErrorContains(t, err, "session not found")
}

func TestPost_APIEmpty(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-api", ""}, io.Discard)
	require.NoError(t, err)

	handled, err := f.Post(context.Background(), mocks.NewMockAPIClient(), io.Discard)
	assert.True(t, handled)
	require.ErrorIs(t, err, ErrMissingValue)
}

func TestPost_Events(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-events"}, io.Discard)
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	api.Stream = []models.Notification{
		{Method: models.NotificationSessionStarted, Params: json.RawMessage(`{"sessionId":"a"}`)},
		{Method: models.NotificationSessionEnded, Params: json.RawMessage(`{"sessionId":"a"}`)},
	}
	api.On("Notifications", mock.Anything).Return(nil)

	var out bytes.Buffer
	handled, err := f.Post(context.Background(), api, &out)
	require.NoError(t, err)
	assert.True(t, handled)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","method":"session.started","params":{"sessionId":"a"}}`,
		lines[0])
	assert.Contains(t, lines[1], models.NotificationSessionEnded)
}

func TestPost_EventsStreamError(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-events"}, io.Discard)
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	api.On("Notifications", mock.Anything).Return(errors.New("connection closed"))

	handled, err := f.Post(context.Background(), api, io.Discard)
	assert.True(t, handled)
	require.ErrorContains(t, err, "connection closed")
}

func TestPost_EventsCancelledIsClean(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-events"}, io.Discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := mocks.NewMockAPIClient()
	api.On("Notifications", mock.Anything).Return(context.Canceled)

	handled, err := f.Post(ctx, api, io.Discard)
	assert.True(t, handled)
	require.NoError(t, err)
}

func TestPost_NothingToDo(t *testing.T) {
	t.Parallel()

	f := newTestFlags()
	_, err := f.Pre([]string{"-daemon"}, io.Discard)
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	handled, err := f.Post(context.Background(), api, io.Discard)
	require.NoError(t, err)
	assert.False(t, handled)
	api.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteNotification_WriteError(t *testing.T) {
	t.Parallel()

	err := WriteNotification(failingWriter{}, models.Notification{Method: models.NotificationSessionEnded})
	require.ErrorContains(t, err, "broken pipe")
}
