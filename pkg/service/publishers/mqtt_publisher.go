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

// Package publishers forwards session notifications to external systems.
package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 250
)

var (
	ErrNotStarted     = errors.New("mqtt publisher not started")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

// Message is the payload written to the broker for every notification.
type Message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// MQTTPublisher publishes session notifications to one MQTT broker.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	broker    string
	topic     string
	filter    []string
	timeout   time.Duration
}

// NewMQTTPublisher creates a publisher for broker (host:port or a full
// tcp://, ssl:// or ws:// URL). An empty filter publishes every
// notification; otherwise only the listed methods are sent.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		filter:    filter,
		timeout:   publishTimeout,
		newClient: mqtt.NewClient,
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Start connects to the broker. The client keeps reconnecting in the
// background if the connection later drops.
func (p *MQTTPublisher) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID("playclock-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msgf("mqtt publisher: connection to %s lost", p.broker)
	}

	p.client = p.newClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Msgf("mqtt publisher: %s not reachable yet, retrying in background", p.broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", p.broker, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (p *MQTTPublisher) Stop() {
	if p.client != nil && p.client.IsConnected() {
		log.Debug().Msgf("mqtt publisher: disconnecting from %s", p.broker)
		p.client.Disconnect(disconnectWait)
	}
}

// Topic returns the topic a notification method is published to, for
// example "playclock/session/ended" for session.ended under "playclock".
func (p *MQTTPublisher) Topic(method string) string {
	return p.topic + "/" + strings.ReplaceAll(method, ".", "/")
}

// Publish sends notif if it passes the filter. Start and end events use
// QoS 1; time updates use QoS 0 since the next one supersedes them.
func (p *MQTTPublisher) Publish(notif models.Notification) error {
	if !p.matchesFilter(notif.Method) {
		return nil
	}
	if p.client == nil {
		return ErrNotStarted
	}

	payload, err := json.Marshal(Message{Method: notif.Method, Params: notif.Params})
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", notif.Method, err)
	}

	var qos byte
	if notif.Method != models.NotificationSessionTimeUpdate {
		qos = 1
	}

	token := p.client.Publish(p.Topic(notif.Method), qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, notif.Method)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", notif.Method, err)
	}

	log.Debug().Msgf("mqtt publisher: published %s", notif.Method)
	return nil
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
