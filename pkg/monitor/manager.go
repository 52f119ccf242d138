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
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/playclock/playclock/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionExists     = errors.New("session already being monitored")
	ErrSessionNotFound   = errors.New("session not found")
	ErrManagerClosed     = errors.New("monitor manager closed")
	ErrSessionIDRequired = errors.New("session id is required")
)

type entry struct {
	session *session
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager runs monitoring sessions in the background, one goroutine each.
type Manager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	sessions map[string]*entry
	opts     Options
	wg       sync.WaitGroup
	mu       syncutil.Mutex
	closed   bool
}

// NewManager creates a Manager. opts must carry a Notifier.
//
//nolint:gocritic // options are copied per session
func NewManager(opts Options) (*Manager, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*entry),
		opts:     resolved,
	}, nil
}

// SetOptions replaces the options used for sessions started from now on.
// Running sessions keep the options they were started with.
//
//nolint:gocritic // options are copied per session
func (m *Manager) SetOptions(opts Options) error {
	resolved, err := opts.withDefaults()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = resolved
	return nil
}

// StartMonitoring begins monitoring pid under sessionID and returns
// immediately.
func (m *Manager) StartMonitoring(sessionID string, pid int) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	_, err := m.StartMonitoringSession(sessionID, pid)
	return err
}

// StartMonitoringSession is StartMonitoring that generates a session ID when
// none is given. A given ID is used verbatim. It returns the ID in use.
func (m *Manager) StartMonitoringSession(sessionID string, pid int) (string, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrManagerClosed
	}
	if _, ok := m.sessions[sessionID]; ok {
		return "", fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	e := &entry{
		session: newSession(sessionID, pid, m.opts),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.sessions[sessionID] = e

	m.wg.Add(1)
	go m.runSession(ctx, e)

	return sessionID, nil
}

func (m *Manager) runSession(ctx context.Context, e *entry) {
	defer m.wg.Done()
	defer close(e.done)
	defer e.cancel()

	id := e.session.id
	if err := e.session.run(ctx); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("monitor: session aborted")
	}

	m.mu.Lock()
	if cur, ok := m.sessions[id]; ok && cur == e {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
}

// Stop cancels one session. The session still emits its ended event.
func (m *Manager) Stop(sessionID string) error {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	e.cancel()
	return nil
}

// Done returns a channel closed when the session's goroutine has finished.
func (m *Manager) Done(sessionID string) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e.done, nil
}

// Sessions lists running sessions, oldest first.
func (m *Manager) Sessions() []Snapshot {
	m.mu.Lock()
	snaps := make([]Snapshot, 0, len(m.sessions))
	for _, e := range m.sessions {
		snaps = append(snaps, e.session.Snapshot())
	}
	m.mu.Unlock()

	slices.SortFunc(snaps, func(a, b Snapshot) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.SessionID, b.SessionID)
	})
	return snaps
}

// Close cancels every session and waits for their goroutines, including
// the delivery of their ended events.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
