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

// Package client talks to a running service over its local WebSocket API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
	ErrConnectionClosed = errors.New("connection closed")
)

// RPCError is an error object returned by the service.
type RPCError struct {
	Message string
	Code    int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// LocalURL is the WebSocket URL of the API configured in cfg. Wildcard
// listen addresses are dialled on loopback.
func LocalURL(cfg *config.Instance) url.URL {
	host, port, err := net.SplitHostPort(cfg.APIListen())
	if err != nil {
		host, port = "127.0.0.1", strconv.Itoa(cfg.APIPort())
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, port),
		Path:   config.APIPath,
	}
}

func dial(ctx context.Context, u url.URL) (*websocket.Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing websocket")
	}
}

// waitFor bounds a read loop running in the background. A zero timeout
// uses the default request timeout, a negative one waits forever.
func waitFor(ctx context.Context, c *websocket.Conn, done <-chan struct{}, timeout time.Duration) error {
	if timeout == 0 {
		timeout = config.APIRequestTimeout
	}
	var timerChan <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}

	select {
	case <-done:
		return nil
	case <-timerChan:
		closeConn(c)
		<-done
		return ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		<-done
		return ErrRequestCancelled
	}
}

// Call sends one request to the API at u and returns the raw JSON result.
func Call(ctx context.Context, u url.URL, method, params string) (string, error) {
	id := models.NewStringID(uuid.NewString())
	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return "", ErrInvalidParams
		}
		req.Params = json.RawMessage(params)
	}

	c, err := dial(ctx, u)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var resp *models.ResponseObject
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				return
			}
			var m models.ResponseObject
			if err := json.Unmarshal(message, &m); err != nil || m.JSONRPC != "2.0" {
				continue
			}
			if !id.Equal(m.ID) {
				continue
			}
			resp = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if err := waitFor(ctx, c, done, 0); err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrConnectionClosed
	}
	if resp.Error != nil {
		return "", &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}

	b, err := json.Marshal(resp.Result)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(b), nil
}

// LocalClient sends a single method call to the locally running service.
func LocalClient(ctx context.Context, cfg *config.Instance, method, params string) (string, error) {
	return Call(ctx, LocalURL(cfg), method, params)
}

// Notifications streams every notification from the API at u to fn until
// fn returns false, the connection drops, ctx is cancelled or timeout
// passes. A negative timeout never expires.
func Notifications(
	ctx context.Context,
	u url.URL,
	timeout time.Duration,
	fn func(models.Notification) bool,
) error {
	c, err := dial(ctx, u)
	if err != nil {
		return err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var readErr error
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				readErr = err
				return
			}
			var m models.RequestObject
			if err := json.Unmarshal(message, &m); err != nil || m.JSONRPC != "2.0" {
				continue
			}
			if !m.ID.IsAbsent() || m.Method == "" {
				continue
			}
			if !fn(models.Notification{Method: m.Method, Params: m.Params}) {
				return
			}
		}
	}()

	if err := waitFor(ctx, c, done, timeout); err != nil {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, readErr)
	}
	return nil
}

// WaitNotification blocks until a notification with the given method
// arrives from the local service and returns its params.
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	method string,
) (string, error) {
	var params string
	err := Notifications(ctx, LocalURL(cfg), timeout, func(n models.Notification) bool {
		if n.Method != method {
			return true
		}
		params = string(n.Params)
		return false
	})
	if err != nil {
		return "", err
	}
	return params, nil
}
