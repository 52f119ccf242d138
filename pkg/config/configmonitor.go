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
	"time"
)

const (
	DefaultTickInterval     = time.Second
	DefaultFailureThreshold = 2
	DefaultUpdateInterval   = 30
	DefaultForeground       = "lenient"
	DefaultProbeTimeout     = 2 * time.Second
	DefaultNotifyTimeout    = 5 * time.Second
)

type Monitor struct {
	ChildFallback    *bool  `toml:"child_fallback,omitempty"`
	LenientChildren  *bool  `toml:"lenient_children,omitempty"`
	TickInterval     string `toml:"tick_interval" validate:"omitempty,posduration"`
	Foreground       string `toml:"foreground" validate:"omitempty,oneof=lenient strict always"`
	ProbeTimeout     string `toml:"probe_timeout" validate:"omitempty,posduration"`
	NotifyTimeout    string `toml:"notify_timeout" validate:"omitempty,posduration"`
	FailureThreshold int    `toml:"failure_threshold" validate:"omitempty,gte=1,lte=3600"`
	UpdateInterval   int    `toml:"update_interval" validate:"omitempty,gte=1"`
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TickInterval is the fixed cadence of the monitoring loop.
func (c *Instance) TickInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Monitor.TickInterval, DefaultTickInterval)
}

func (c *Instance) SetTickInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Monitor.TickInterval = d.String()
}

// FailureThreshold is how many consecutive dead probes end a session.
func (c *Instance) FailureThreshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Monitor.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.vals.Monitor.FailureThreshold
}

// UpdateInterval is the number of active seconds between time updates.
func (c *Instance) UpdateInterval() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Monitor.UpdateInterval <= 0 {
		return DefaultUpdateInterval
	}
	return c.vals.Monitor.UpdateInterval
}

func (c *Instance) ChildFallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Monitor.ChildFallback == nil {
		return true
	}
	return *c.vals.Monitor.ChildFallback
}

func (c *Instance) SetChildFallback(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Monitor.ChildFallback = &enabled
}

// ForegroundPolicy returns the configured policy name.
func (c *Instance) ForegroundPolicy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Monitor.Foreground == "" {
		return DefaultForeground
	}
	return c.vals.Monitor.Foreground
}

func (c *Instance) SetForegroundPolicy(policy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Monitor.Foreground = policy
}

func (c *Instance) LenientChildren() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Monitor.LenientChildren == nil {
		return true
	}
	return *c.vals.Monitor.LenientChildren
}

func (c *Instance) ProbeTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Monitor.ProbeTimeout, DefaultProbeTimeout)
}

func (c *Instance) NotifyTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Monitor.NotifyTimeout, DefaultNotifyTimeout)
}
