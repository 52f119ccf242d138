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

package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/playclock/playclock/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func notif(method string) models.Notification {
	return models.Notification{Method: method, Params: []byte(`{}`)}
}

func startBroker(t *testing.T, buffer int) (*Broker, chan models.Notification) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	source := make(chan models.Notification, buffer)
	b := NewBroker(source)
	b.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-b.Done()
	})
	return b, source
}

func receive(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return models.Notification{}
	}
}

func TestBroker_Subscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(make(chan models.Notification))

	ch, id := b.Subscribe(10)
	assert.NotNil(t, ch)
	assert.Equal(t, 0, id)

	_, id2 := b.Subscribe(20)
	assert.Equal(t, 1, id2)
	assert.Equal(t, 2, b.Subscribers())
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(make(chan models.Notification))
	ch, id := b.Subscribe(10)

	b.Unsubscribe(id)
	assert.Equal(t, 0, b.Subscribers())

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	// second call is a no-op
	b.Unsubscribe(id)
}

func TestBroker_BroadcastToMultipleSubscribers(t *testing.T) {
	t.Parallel()

	b, source := startBroker(t, 10)
	subs := make([]<-chan models.Notification, 3)
	for i := range subs {
		subs[i], _ = b.Subscribe(10)
	}

	source <- notif(models.NotificationSessionStarted)

	for _, sub := range subs {
		assert.Equal(t, models.NotificationSessionStarted, receive(t, sub).Method)
	}
}

func TestBroker_PreservesOrder(t *testing.T) {
	t.Parallel()

	b, source := startBroker(t, 10)
	sub, _ := b.Subscribe(10)

	methods := []string{
		models.NotificationSessionStarted,
		models.NotificationSessionTimeUpdate,
		models.NotificationSessionTimeUpdate,
		models.NotificationSessionEnded,
	}
	for _, m := range methods {
		source <- notif(m)
	}
	for i, m := range methods {
		assert.Equal(t, m, receive(t, sub).Method, "notification %d", i)
	}
}

func TestBroker_DropsTimeUpdatesWhenFull(t *testing.T) {
	t.Parallel()

	b, source := startBroker(t, 10)
	full, _ := b.Subscribe(1)
	fast, _ := b.Subscribe(10)

	for range 5 {
		source <- notif(models.NotificationSessionTimeUpdate)
	}
	for range 5 {
		receive(t, fast)
	}

	require.Eventually(t, func() bool { return b.Dropped() == 4 }, time.Second, 5*time.Millisecond)
	assert.Len(t, full, 1)
}

func TestBroker_CriticalEventWaitsForSlowSubscriber(t *testing.T) {
	t.Parallel()

	b, source := startBroker(t, 10)
	b.criticalWait = 5 * time.Second
	sub, _ := b.Subscribe(1)

	source <- notif(models.NotificationSessionTimeUpdate)
	source <- notif(models.NotificationSessionEnded)

	// drain slowly; the ended event must still arrive
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, models.NotificationSessionTimeUpdate, receive(t, sub).Method)
	assert.Equal(t, models.NotificationSessionEnded, receive(t, sub).Method)
	assert.Equal(t, int64(0), b.Dropped())
}

func TestBroker_CriticalEventDroppedAfterWait(t *testing.T) {
	t.Parallel()

	b, source := startBroker(t, 10)
	b.criticalWait = 10 * time.Millisecond
	stuck, _ := b.Subscribe(1)
	other, _ := b.Subscribe(10)

	source <- notif(models.NotificationSessionStarted)
	source <- notif(models.NotificationSessionEnded)

	receive(t, other)
	receive(t, other)
	require.Eventually(t, func() bool { return b.Dropped() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, stuck, 1)
}

func TestBroker_ContextCancellationClosesSubscribers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker(make(chan models.Notification))
	b.Start(ctx)
	sub, _ := b.Subscribe(10)

	cancel()
	<-b.Done()

	_, ok := <-sub
	assert.False(t, ok, "subscriber should be closed on cancellation")

	late, _ := b.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok, "subscribing after shutdown returns a closed channel")
}

func TestBroker_SourceClosureClosesSubscribers(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(source)
	b.Start(context.Background())
	sub, _ := b.Subscribe(10)

	close(source)
	<-b.Done()

	_, ok := <-sub
	assert.False(t, ok)
}

func TestBroker_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	b, source := startBroker(t, 100)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			ch, id := b.Subscribe(5)
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(id)
			for range ch { //nolint:revive // drain until closed
			}
		})
	}
	wg.Go(func() {
		for range 20 {
			source <- notif(models.NotificationSessionTimeUpdate)
		}
	})
	wg.Wait()

	assert.Equal(t, 0, b.Subscribers())
}
