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

package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/foreground"
	"github.com/playclock/playclock/pkg/testing/mocks"
	"github.com/stretchr/testify/require"
)

var (
	testEpoch   = time.Unix(1700000000, 0)
	errEmitFail = errors.New("host went away")
)

// recorder is a Notifier that keeps every event it receives.
type recorder struct {
	failOn  string
	methods []string
	started []models.SessionStartedParams
	updates []models.SessionTimeUpdateParams
	ended   []models.SessionEndedParams
	mu      sync.Mutex
}

func (r *recorder) record(method string) error {
	r.methods = append(r.methods, method)
	if r.failOn == method {
		return errEmitFail
	}
	return nil
}

func (r *recorder) SessionStarted(_ context.Context, p models.SessionStartedParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, p)
	return r.record(models.NotificationSessionStarted)
}

func (r *recorder) SessionTimeUpdate(_ context.Context, p models.SessionTimeUpdateParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, p)
	return r.record(models.NotificationSessionTimeUpdate)
}

func (r *recorder) SessionEnded(_ context.Context, p models.SessionEndedParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, p)
	return r.record(models.NotificationSessionEnded)
}

func (r *recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...)
}

func (r *recorder) Updates() []models.SessionTimeUpdateParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SessionTimeUpdateParams(nil), r.updates...)
}

func (r *recorder) Started() []models.SessionStartedParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SessionStartedParams(nil), r.started...)
}

func (r *recorder) Ended() []models.SessionEndedParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SessionEndedParams(nil), r.ended...)
}

func (r *recorder) EndedFor(sessionID string) (models.SessionEndedParams, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.ended {
		if e.SessionID == sessionID {
			return e, true
		}
	}
	return models.SessionEndedParams{}, false
}

// switchableDetector reports whatever foreground value was last set.
type switchableDetector struct {
	mu sync.Mutex
	fg bool
}

func (d *switchableDetector) Set(fg bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fg = fg
}

func (d *switchableDetector) IsForeground(context.Context, int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fg
}

func testOptions(table *mocks.ProcessTable, rec *recorder, clock clockwork.Clock) Options {
	opts := DefaultOptions()
	opts.Inspector = table
	opts.Detector = foreground.Always{}
	opts.Notifier = rec
	opts.Clock = clock
	opts.ProbeTimeout = 0
	return opts
}

// startedSession builds a session that has already emitted its start event.
//
//nolint:gocritic // test helper
func startedSession(t *testing.T, id string, pid int, opts Options) *session {
	t.Helper()
	resolved, err := opts.withDefaults()
	require.NoError(t, err)
	s := newSession(id, pid, resolved)
	require.NoError(t, s.start(context.Background()))
	return s
}

// tickN runs n ticks and fails the test if the session ends early.
func tickN(t *testing.T, s *session, n int) {
	t.Helper()
	for i := range n {
		done, err := s.tick(context.Background())
		require.NoError(t, err)
		require.False(t, done, "session ended early at tick %d", i+1)
	}
}
