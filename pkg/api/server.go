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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/playclock/playclock/pkg/api/methods"
	apimiddleware "github.com/playclock/playclock/pkg/api/middleware"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/api/models/requests"
	"github.com/playclock/playclock/pkg/api/validation"
	"github.com/playclock/playclock/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    -32700,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    -32600,
		Message: "Invalid Request",
	}
	JSONRPCErrorMethodNotFound = models.ErrorObject{
		Code:    -32601,
		Message: "Method not found",
	}
	JSONRPCErrorInvalidParams = models.ErrorObject{
		Code:    -32602,
		Message: "Invalid params",
	}
	JSONRPCErrorInternalError = models.ErrorObject{
		Code:    -32603,
		Message: "Internal error",
	}
	JSONRPCErrorServerError = models.ErrorObject{
		Code:    -32000,
		Message: "Server error",
	}
)

var (
	ErrMethodNotFound = errors.New("method not found")
	ErrMissingID      = errors.New("missing request id")
)

const shutdownTimeout = 5 * time.Second

var defaultAllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	models.MethodSessionsMonitor: methods.HandleMonitor,
	models.MethodSessionsStop:    methods.HandleStop,
	models.MethodSessions:        methods.HandleSessions,
	models.MethodVersion:         methods.HandleVersion,
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, error) { //nolint:gocritic // env is per request
	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, req.Method)
	}
	if req.ID.IsAbsent() {
		return nil, fmt.Errorf("%w: %s", ErrMissingID, req.Method)
	}

	env.ID = *req.ID
	env.Params = req.Params
	return fn(env)
}

// errorObject maps a method error to the JSON-RPC error sent to the client.
func errorObject(err error) models.ErrorObject {
	var verr *validation.Error
	switch {
	case errors.Is(err, ErrMethodNotFound):
		return JSONRPCErrorMethodNotFound
	case errors.As(err, &verr):
		return models.ErrorObject{Code: JSONRPCErrorInvalidParams.Code, Message: verr.Error()}
	case errors.Is(err, validation.ErrMissingParams), errors.Is(err, validation.ErrInvalidParams):
		return models.ErrorObject{Code: JSONRPCErrorInvalidParams.Code, Message: err.Error()}
	default:
		return models.ErrorObject{Code: JSONRPCErrorServerError.Code, Message: err.Error()}
	}
}

func writeJSON(session *melody.Session, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

func sendResponse(session *melody.Session, id models.RPCID, result any) error {
	log.Debug().Interface("result", result).Msg("sending response")
	return writeJSON(session, models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func sendError(session *melody.Session, id models.RPCID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")
	return writeJSON(session, models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	})
}

func broadcastNotifications(
	ctx context.Context,
	m *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			data, err := json.Marshal(models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}
			if err := m.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func handleWSMessage(
	ctx context.Context,
	cfg *config.Instance,
	sessions requests.Sessions,
) func(*melody.Session, []byte) {
	return func(session *melody.Session, msg []byte) {
		// heartbeat
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		if !json.Valid(msg) {
			log.Warn().Msg("api: message is not valid json")
			if err := sendError(session, models.NullRPCID, JSONRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		var req models.RequestObject
		if err := json.Unmarshal(msg, &req); err != nil || req.JSONRPC != "2.0" || req.Method == "" {
			id := models.NullRPCID
			if err == nil && !req.ID.IsAbsent() {
				id = *req.ID
			}
			log.Warn().Err(err).Str("jsonrpc", req.JSONRPC).Msg("api: invalid request")
			if err := sendError(session, id, JSONRPCErrorInvalidRequest); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if req.ID.IsAbsent() {
			log.Debug().Str("method", req.Method).Msg("api: received notification, ignoring")
			return
		}

		resp, err := handleRequest(requests.RequestEnv{
			Context:  ctx,
			Config:   cfg,
			Sessions: sessions,
			IsLocal:  apimiddleware.IsLoopbackAddr(session.Request.RemoteAddr),
		}, req)
		if err != nil {
			log.Warn().Err(err).Str("method", req.Method).Msg("api: request failed")
			if err := sendError(session, *req.ID, errorObject(err)); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		if err := sendResponse(session, *req.ID, resp); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}
}

// NewRouter builds the HTTP handler: the WebSocket JSON-RPC endpoint at
// config.APIPath and GET /health. Notifications read from notifications are
// broadcast to every connected client until ctx is done.
func NewRouter(
	ctx context.Context,
	cfg *config.Instance,
	sessions requests.Sessions,
	notifications <-chan models.Notification,
) http.Handler {
	limiter := apimiddleware.NewIPRateLimiter()
	limiter.StartCleanup(ctx)

	origins := cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(apimiddleware.HTTPIPFilterMiddleware(apimiddleware.NewIPFilter(cfg.AllowedIPs())))
	r.Use(apimiddleware.HTTPRateLimitMiddleware(limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	m := melody.New()
	m.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	m.HandleMessage(apimiddleware.WebSocketRateLimitHandler(limiter, handleWSMessage(ctx, cfg, sessions)))
	m.HandleConnect(func(s *melody.Session) {
		log.Debug().Str("remote", s.Request.RemoteAddr).Msg("api: client connected")
	})
	m.HandleDisconnect(func(s *melody.Session) {
		log.Debug().Str("remote", s.Request.RemoteAddr).Msg("api: client disconnected")
	})

	go broadcastNotifications(ctx, m, notifications)
	go func() {
		<-ctx.Done()
		if err := m.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
			log.Debug().Err(err).Msg("closing websocket sessions")
		}
	}()

	r.Get(config.APIPath, func(w http.ResponseWriter, r *http.Request) {
		if err := m.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})
	r.With(middleware.Timeout(config.APIRequestTimeout)).Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// Start serves the API on the configured address until ctx is cancelled.
// onReady, if set, is called with the bound address once the listener is up.
func Start(
	ctx context.Context,
	cfg *config.Instance,
	sessions requests.Sessions,
	notifications <-chan models.Notification,
	onReady func(net.Addr),
) error {
	addr := cfg.APIListen()
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           NewRouter(ctx, cfg, sessions, notifications),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("api: listening")
	if onReady != nil {
		onReady(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	log.Info().Msg("api: stopped")
	return nil
}
