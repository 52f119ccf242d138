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
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/foreground"
	"github.com/playclock/playclock/pkg/procinfo"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTickInterval     = time.Second
	DefaultFailureThreshold = 2
	DefaultUpdateInterval   = 30
	DefaultProbeTimeout     = 2 * time.Second
	DefaultNotifyTimeout    = 5 * time.Second
)

var ErrNoNotifier = errors.New("monitor: notifier is required")

// Options configures how sessions are monitored.
type Options struct {
	Inspector procinfo.Inspector
	Detector  foreground.Detector
	Notifier  Notifier
	Clock     clockwork.Clock
	// TickInterval is the polling cadence. Each tick where the process is
	// alive and in the foreground adds one interval of active time.
	TickInterval time.Duration
	// ProbeTimeout bounds each liveness, foreground and child query.
	ProbeTimeout time.Duration
	// NotifyTimeout bounds the final ended event of a cancelled session.
	NotifyTimeout time.Duration
	// FailureThreshold consecutive dead probes end the session (or trigger
	// the child search).
	FailureThreshold int
	// UpdateInterval is the number of active seconds between time updates.
	UpdateInterval int
	// ChildFallback lets a session follow one live child of the original
	// process after the original exits.
	ChildFallback bool
}

// DefaultOptions returns the options used when nothing is configured, minus
// the Notifier.
func DefaultOptions() Options {
	return Options{
		TickInterval:     DefaultTickInterval,
		ProbeTimeout:     DefaultProbeTimeout,
		NotifyTimeout:    DefaultNotifyTimeout,
		FailureThreshold: DefaultFailureThreshold,
		UpdateInterval:   DefaultUpdateInterval,
		ChildFallback:    true,
	}
}

//nolint:gocritic // options are copied per session
func (o Options) withDefaults() (Options, error) {
	if o.Notifier == nil {
		return o, ErrNoNotifier
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	if o.UpdateInterval <= 0 {
		o.UpdateInterval = DefaultUpdateInterval
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = DefaultNotifyTimeout
	}
	if o.Inspector == nil {
		o.Inspector = procinfo.New()
	}
	if o.Detector == nil {
		d, err := foreground.New(foreground.DefaultPolicy, foreground.Options{
			Inspector:       o.Inspector,
			IncludeChildren: true,
		})
		if err != nil {
			return o, fmt.Errorf("default foreground detector: %w", err)
		}
		o.Detector = d
	}
	o.Inspector = procinfo.WithTimeout(o.Inspector, o.ProbeTimeout)
	o.Detector = foreground.WithTimeout(o.Detector, o.ProbeTimeout)
	return o, nil
}

// session is the state machine for one monitored process. All fields below
// snapshot are owned by the goroutine running it.
type session struct {
	startTime           time.Time
	opts                Options
	snapshot            atomic.Pointer[Snapshot]
	id                  string
	state               State
	originalPID         int
	trackedPID          int
	activeTime          time.Duration
	consecutiveFailures int
	switchedToChild     bool
}

//nolint:gocritic // options are copied per session
func newSession(id string, pid int, opts Options) *session {
	s := &session{
		opts:        opts,
		id:          id,
		state:       StateStarting,
		originalPID: pid,
		trackedPID:  pid,
	}
	s.publish()
	return s
}

// Run monitors pid until it and any adopted child have exited, or ctx is
// cancelled. It emits session.started, periodic session.timeUpdate and a
// final session.ended. The returned error is non-nil only when the notifier
// failed.
//
//nolint:gocritic // options are copied per session
func Run(ctx context.Context, sessionID string, pid int, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	return newSession(sessionID, pid, opts).run(ctx)
}

func (s *session) run(ctx context.Context) error {
	// Created before the first tick so the cadence is anchored to the start.
	ticker := s.opts.Clock.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	if err := s.start(ctx); err != nil {
		if ctx.Err() != nil {
			return s.end(ctx, models.EndReasonCancelled)
		}
		s.abort()
		return err
	}

	for {
		done, err := s.tick(ctx)
		if ctx.Err() != nil {
			return s.end(ctx, models.EndReasonCancelled)
		}
		if err != nil {
			s.abort()
			return err
		}
		if done {
			return s.end(ctx, models.EndReasonExited)
		}

		select {
		case <-ctx.Done():
			return s.end(ctx, models.EndReasonCancelled)
		case <-ticker.Chan():
		}
	}
}

func (s *session) start(ctx context.Context) error {
	s.startTime = s.opts.Clock.Now()
	s.state = StateMonitoring
	s.publish()

	log.Info().
		Str("sessionId", s.id).
		Int("pid", s.originalPID).
		Msg("monitor: session started")

	err := s.opts.Notifier.SessionStarted(ctx, models.SessionStartedParams{
		SessionID: s.id,
		ProcessID: s.trackedPID,
		StartTime: s.startTime.Unix(),
	})
	if err != nil {
		return fmt.Errorf("emit session started: %w", err)
	}
	return nil
}

// tick runs one monitoring iteration. It reports true once the session has
// reached the ended state.
func (s *session) tick(ctx context.Context) (bool, error) {
	defer s.publish()

	if s.state != StateMonitoring {
		return s.state == StateEnded, nil
	}

	if s.opts.Inspector.IsAlive(ctx, s.trackedPID) {
		s.consecutiveFailures = 0
		if !s.opts.Detector.IsForeground(ctx, s.trackedPID) {
			return false, nil
		}
		before := s.activeSeconds()
		s.activeTime += s.opts.TickInterval
		after := s.activeSeconds()
		if after/s.opts.UpdateInterval > before/s.opts.UpdateInterval {
			return false, s.emitTimeUpdate(ctx)
		}
		return false, nil
	}

	s.consecutiveFailures++
	log.Debug().
		Str("sessionId", s.id).
		Int("pid", s.trackedPID).
		Int("failures", s.consecutiveFailures).
		Msg("monitor: process not alive")

	if s.consecutiveFailures < s.opts.FailureThreshold {
		return false, nil
	}
	if s.switchedToChild || !s.opts.ChildFallback {
		s.state = StateEnded
		return true, nil
	}

	s.state = StateSearchingChild
	s.publish()
	if s.adoptChild(ctx) {
		s.state = StateMonitoring
		return false, nil
	}
	s.state = StateEnded
	return true, nil
}

// adoptChild switches tracking to the first live child of the original
// process. It runs at most once per session.
func (s *session) adoptChild(ctx context.Context) bool {
	for _, child := range s.opts.Inspector.ChildrenOf(ctx, s.originalPID) {
		if child <= 0 || child == s.trackedPID {
			continue
		}
		if !s.opts.Inspector.IsAlive(ctx, child) {
			continue
		}
		log.Info().
			Str("sessionId", s.id).
			Int("pid", s.originalPID).
			Int("child", child).
			Msg("monitor: original process exited, following child")
		s.trackedPID = child
		s.switchedToChild = true
		s.consecutiveFailures = 0
		return true
	}
	log.Debug().Str("sessionId", s.id).Int("pid", s.originalPID).Msg("monitor: no live child found")
	return false
}

func (s *session) emitTimeUpdate(ctx context.Context) error {
	seconds := s.activeSeconds()
	err := s.opts.Notifier.SessionTimeUpdate(ctx, models.SessionTimeUpdateParams{
		SessionID:    s.id,
		TotalMinutes: seconds / 60,
		TotalSeconds: seconds,
		StartTime:    s.startTime.Unix(),
		CurrentTime:  s.opts.Clock.Now().Unix(),
		ProcessID:    s.trackedPID,
	})
	if err != nil {
		return fmt.Errorf("emit time update: %w", err)
	}
	return nil
}

func (s *session) end(ctx context.Context, reason string) error {
	s.state = StateEnded
	s.publish()

	if reason == models.EndReasonCancelled {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
		defer cancel()
	}

	seconds := s.activeSeconds()
	minutes := FinalMinutes(seconds)
	log.Info().
		Str("sessionId", s.id).
		Int("pid", s.trackedPID).
		Int("seconds", seconds).
		Int("minutes", minutes).
		Str("reason", reason).
		Msg("monitor: session ended")

	err := s.opts.Notifier.SessionEnded(ctx, models.SessionEndedParams{
		SessionID:    s.id,
		Reason:       reason,
		StartTime:    s.startTime.Unix(),
		EndTime:      s.opts.Clock.Now().Unix(),
		TotalMinutes: minutes,
		TotalSeconds: seconds,
		ProcessID:    s.trackedPID,
	})
	if err != nil {
		return fmt.Errorf("emit session ended: %w", err)
	}
	return nil
}

// abort marks the session ended without emitting anything.
func (s *session) abort() {
	s.state = StateEnded
	s.publish()
}

func (s *session) activeSeconds() int {
	return int(s.activeTime / time.Second)
}

func (s *session) publish() {
	s.snapshot.Store(&Snapshot{
		StartTime:       s.startTime,
		SessionID:       s.id,
		State:           s.state,
		OriginalPID:     s.originalPID,
		TrackedPID:      s.trackedPID,
		ActiveSeconds:   s.activeSeconds(),
		SwitchedToChild: s.switchedToChild,
	})
}

// Snapshot returns the state published after the last tick.
func (s *session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}
