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

package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/playclock/playclock/pkg/api"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/api/notifications"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/foreground"
	"github.com/playclock/playclock/pkg/helpers/command"
	"github.com/playclock/playclock/pkg/monitor"
	"github.com/playclock/playclock/pkg/procinfo"
	"github.com/playclock/playclock/pkg/service/broker"
	"github.com/playclock/playclock/pkg/service/discovery"
	"github.com/playclock/playclock/pkg/service/publishers"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	notificationQueueSize = 100
	subscriberBufferSize  = 100
)

// Options carries the platform hooks the service is built from. Zero values
// select the real implementations.
type Options struct {
	Inspector procinfo.Inspector
	Executor  command.Executor
	// OnAPIReady is called with the bound API address once it is listening.
	OnAPIReady func(net.Addr)
}

// publisher is the part of a notification sink the fan-out needs.
type publisher interface {
	Publish(models.Notification) error
	Stop()
}

// MonitorOptions builds session options from the current config. A nil
// opts.Inspector is replaced by the platform inspector.
func MonitorOptions(
	cfg *config.Instance,
	notifier monitor.Notifier,
	opts *Options,
) (monitor.Options, error) {
	if opts.Inspector == nil {
		opts.Inspector = procinfo.New()
	}
	policy, err := foreground.ParsePolicy(cfg.ForegroundPolicy())
	if err != nil {
		return monitor.Options{}, fmt.Errorf("invalid foreground policy: %w", err)
	}
	detector, err := foreground.New(policy, foreground.Options{
		Inspector:       opts.Inspector,
		Executor:        opts.Executor,
		IncludeChildren: cfg.LenientChildren(),
	})
	if err != nil {
		return monitor.Options{}, fmt.Errorf("failed to create foreground detector: %w", err)
	}

	mo := monitor.DefaultOptions()
	mo.Inspector = opts.Inspector
	mo.Detector = detector
	mo.Notifier = notifier
	mo.TickInterval = cfg.TickInterval()
	mo.FailureThreshold = cfg.FailureThreshold()
	mo.UpdateInterval = cfg.UpdateInterval()
	mo.ChildFallback = cfg.ChildFallback()
	mo.ProbeTimeout = cfg.ProbeTimeout()
	mo.NotifyTimeout = cfg.NotifyTimeout()
	return mo, nil
}

func isLoopbackListen(listen string) bool {
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		host = listen
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// startPublishers starts every enabled MQTT publisher and a fan-out
// goroutine feeding them. The fan-out always runs so the subscription is
// drained even with no publishers configured. The returned channel closes
// when the fan-out exits.
func startPublishers(
	cfg *config.Instance,
	notifChan <-chan models.Notification,
	newMQTT func(broker, topic string, filter []string) (publisher, error),
) ([]publisher, <-chan struct{}) {
	active := make([]publisher, 0)

	for _, mqttCfg := range cfg.GetMQTTPublishers() {
		if mqttCfg.Enabled != nil && !*mqttCfg.Enabled {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)
		pub, err := newMQTT(mqttCfg.Broker, mqttCfg.Topic, mqttCfg.Filter)
		if err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			continue
		}
		active = append(active, pub)
	}

	if len(active) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(active))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for notif := range notifChan {
			for _, pub := range active {
				if err := pub.Publish(notif); err != nil {
					log.Warn().Err(err).Msgf("failed to publish %s notification", notif.Method)
				}
			}
		}
		log.Debug().Msg("publisher fan-out: notification channel closed")
	}()

	return active, done
}

func startMQTT(brokerAddr, topic string, filter []string) (publisher, error) {
	p := publishers.NewMQTTPublisher(brokerAddr, topic, filter)
	if err := p.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

// Start runs the monitoring service with the real platform hooks.
func Start(cfg *config.Instance) (stop func() error, done <-chan struct{}, err error) {
	return StartWith(cfg, Options{})
}

// StartWith wires the session manager, notification broker, API server,
// publishers, discovery and config watcher together. It returns once the API
// is listening. stop shuts everything down in order and returns the first
// error the API server reported; done closes when shutdown has finished,
// including shutdowns caused by the API server failing.
//
//nolint:gocritic // options copied so defaults can be filled in
func StartWith(cfg *config.Instance, opts Options) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if opts.Inspector == nil {
		opts.Inspector = procinfo.New()
	}
	if opts.Executor == nil {
		opts.Executor = &command.RealExecutor{}
	}

	ns := make(chan models.Notification, notificationQueueSize)
	notifier := notifications.NewChannelNotifier(ns, cfg.NotifyTimeout())

	monitorOpts, err := MonitorOptions(cfg, notifier, &opts)
	if err != nil {
		return nil, nil, err
	}
	manager, err := monitor.NewManager(monitorOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	brokerCtx, cancelBroker := context.WithCancel(context.Background())
	notifBroker := broker.NewBroker(ns)
	notifBroker.Start(brokerCtx)

	log.Info().Msg("starting publishers")
	publisherNotifications, _ := notifBroker.Subscribe(subscriberBufferSize)
	activePublishers, fanOutDone := startPublishers(cfg, publisherNotifications, startMQTT)

	log.Info().Msg("starting mDNS discovery service")
	if cfg.DiscoveryEnabled() && isLoopbackListen(cfg.APIListen()) {
		log.Warn().Msg("discovery is enabled but the API only listens on loopback")
	}
	discoveryService := discovery.New(cfg)
	if discoveryErr := discoveryService.Start(); discoveryErr != nil {
		log.Error().Err(discoveryErr).Msg("mDNS discovery failed to start (continuing without discovery)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	log.Info().Msg("starting API service")
	ready := make(chan struct{})
	apiNotifications, _ := notifBroker.Subscribe(subscriberBufferSize)
	g.Go(func() error {
		return api.Start(gctx, cfg, manager, apiNotifications, func(addr net.Addr) {
			if opts.OnAPIReady != nil {
				opts.OnAPIReady(addr)
			}
			close(ready)
		})
	})

	onReload := func() {
		reloaded, reloadErr := MonitorOptions(cfg, notifier, &opts)
		if reloadErr == nil {
			reloadErr = manager.SetOptions(reloaded)
		}
		if reloadErr != nil {
			log.Error().Err(reloadErr).Msg("keeping previous monitor options")
			return
		}
		cfg.SetDebugLogging(cfg.DebugLogging())
		log.Info().Msg("monitor options updated for new sessions")
	}
	if watchErr := config.Watch(gctx, cfg, onReload); watchErr != nil {
		log.Warn().Err(watchErr).Msg("config changes will not be picked up")
	}

	var runErr error
	doneCh := make(chan struct{})
	go func() {
		<-gctx.Done()
		log.Info().Msg("service context cancelled, running cleanup")

		discoveryService.Stop()
		manager.Close()
		cancel()
		apiErr := g.Wait()
		cancelBroker()
		<-notifBroker.Done()
		<-fanOutDone
		for _, pub := range activePublishers {
			pub.Stop()
		}
		if dropped := notifBroker.Dropped(); dropped > 0 {
			log.Warn().Int64("dropped", dropped).Msg("notifications dropped during run")
		}

		runErr = apiErr
		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	select {
	case <-ready:
	case <-doneCh:
		if runErr == nil {
			runErr = errors.New("service stopped before the API was ready")
		}
		return nil, nil, runErr
	}

	stop = func() error {
		cancel()
		<-doneCh
		return runErr
	}
	return stop, doneCh, nil
}
