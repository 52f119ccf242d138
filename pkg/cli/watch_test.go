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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/service"
	"github.com/playclock/playclock/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	//nolint:wrapcheck // test writer
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newWatchConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetTickInterval(10 * time.Millisecond)
	cfg.SetForegroundPolicy("always")
	return cfg
}

func parseLines(t *testing.T, out string) []models.RequestObject {
	t.Helper()
	var objs []models.RequestObject
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var obj models.RequestObject
		require.NoError(t, json.Unmarshal([]byte(line), &obj))
		objs = append(objs, obj)
	}
	return objs
}

func TestWatch_ProcessNeverAlive(t *testing.T) {
	t.Parallel()

	cfg := newWatchConfig(t)
	var out syncBuffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Watch(ctx, cfg, 31337, "watch-1", &out, service.Options{
		Inspector: mocks.NewProcessTable(),
		Executor:  &mocks.MockCommandExecutor{},
	})
	require.NoError(t, err)

	objs := parseLines(t, out.String())
	require.Len(t, objs, 2)
	assert.Equal(t, models.NotificationSessionStarted, objs[0].Method)
	assert.Equal(t, models.NotificationSessionEnded, objs[1].Method)

	var ended models.SessionEndedParams
	require.NoError(t, json.Unmarshal(objs[1].Params, &ended))
	assert.Equal(t, "watch-1", ended.SessionID)
	assert.Equal(t, models.EndReasonExited, ended.Reason)
	assert.Equal(t, 0, ended.TotalSeconds)
}

func TestWatch_CancelPrintsEnded(t *testing.T) {
	t.Parallel()

	cfg := newWatchConfig(t)
	table := mocks.NewProcessTable().Spawn(4000, 1)
	var out syncBuffer

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Watch(ctx, cfg, 4000, "", &out, service.Options{
			Inspector: table,
			Executor:  &mocks.MockCommandExecutor{},
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), models.NotificationSessionStarted)
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}

	objs := parseLines(t, out.String())
	last := objs[len(objs)-1]
	require.Equal(t, models.NotificationSessionEnded, last.Method)

	var ended models.SessionEndedParams
	require.NoError(t, json.Unmarshal(last.Params, &ended))
	assert.Equal(t, models.EndReasonCancelled, ended.Reason)
	assert.NotEmpty(t, ended.SessionID, "generated session id")
	assert.Equal(t, 4000, ended.ProcessID)
}

func TestWatch_InvalidPolicy(t *testing.T) {
	t.Parallel()

	cfg := newWatchConfig(t)
	cfg.SetForegroundPolicy("never")

	err := Watch(context.Background(), cfg, 1, "", &syncBuffer{}, service.Options{
		Inspector: mocks.NewProcessTable(),
	})
	require.ErrorContains(t, err, "foreground policy")
}
