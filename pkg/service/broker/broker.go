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

// Package broker fans session notifications out to every consumer (API
// clients, publishers, the CLI) without letting one slow consumer stall
// the monitors.
package broker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// DefaultCriticalWait is how long a full subscriber may delay a start or end
// event before it is dropped for that subscriber.
const DefaultCriticalWait = 250 * time.Millisecond

// critical events bracket a session. Losing one leaves a consumer with a
// session that never starts or never ends, so they get a short grace
// period. Time updates are superseded by the next one and drop at once.
var critical = map[string]bool{
	models.NotificationSessionStarted: true,
	models.NotificationSessionEnded:   true,
}

// Broker reads notifications from a single source and copies them to all
// subscribers.
type Broker struct {
	source       <-chan models.Notification
	subscribers  map[int]chan models.Notification
	done         chan struct{}
	nextID       int
	criticalWait time.Duration
	dropped      atomic.Int64
	mu           syncutil.RWMutex
	closed       bool
}

// NewBroker creates a broker for source. Call Start to begin delivery.
func NewBroker(source <-chan models.Notification) *Broker {
	return &Broker{
		source:       source,
		subscribers:  make(map[int]chan models.Notification),
		done:         make(chan struct{}),
		criticalWait: DefaultCriticalWait,
	}
}

// Start runs the broadcast loop until the source is closed or ctx is
// cancelled, then closes every subscriber channel.
func (b *Broker) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		defer b.closeAllSubscribers()
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					return
				}
				b.broadcast(ctx, notif)
			case <-ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited and all subscribers
// have been closed.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(ctx context.Context, notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
			continue
		default:
		}

		if critical[notif.Method] && b.criticalWait > 0 {
			timer := time.NewTimer(b.criticalWait)
			select {
			case ch <- notif:
				timer.Stop()
				continue
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}

		b.dropped.Add(1)
		log.Warn().
			Int("subscriber", id).
			Str("method", notif.Method).
			Msg("broker: subscriber channel full, dropping notification")
	}
}

// Subscribe registers a consumer with a buffer of bufferSize notifications.
// The returned id is passed to Unsubscribe. Subscribing after the broker has
// stopped returns an already closed channel.
func (b *Broker) Subscribe(bufferSize int) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	if b.closed {
		close(ch)
		return ch, id
	}
	b.subscribers[id] = ch

	log.Debug().
		Int("subscriber", id).
		Int("buffer", bufferSize).
		Msg("broker: subscriber registered")
	return ch, id
}

// Unsubscribe removes a subscription and closes its channel. Unknown ids
// are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
		log.Debug().Int("subscriber", id).Msg("broker: subscriber removed")
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many per-subscriber deliveries have been dropped.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		log.Debug().Int("subscriber", id).Msg("broker: closed subscriber on shutdown")
	}
	b.subscribers = make(map[int]chan models.Notification)
	b.closed = true
}
