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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"

	"github.com/playclock/playclock/internal/telemetry"
	"github.com/playclock/playclock/pkg/api/client"
	"github.com/playclock/playclock/pkg/api/models"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/helpers"
	"github.com/rs/zerolog/log"
)

var ErrMissingValue = errors.New("flag requires a value")

type Flags struct {
	set     *flag.FlagSet
	API     *string
	Params  *string
	Events  *bool
	Watch   *int
	Session *string
	Daemon  *bool
	Service *string
	Version *bool
}

// SetupFlags defines the CLI flags on the default flag set.
func SetupFlags() *Flags {
	return NewFlags(flag.CommandLine)
}

// NewFlags defines the CLI flags on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set: fs,
		API: fs.String(
			"api",
			"",
			"send method to the running service API and print the response",
		),
		Params: fs.String(
			"params",
			"",
			"JSON params for -api",
		),
		Events: fs.Bool(
			"events",
			false,
			"print notifications from the running service until interrupted",
		),
		Watch: fs.Int(
			"watch",
			0,
			"monitor a process in the foreground and print its session events",
		),
		Session: fs.String(
			"session",
			"",
			"session id for -watch (generated when empty)",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run the service in the foreground until interrupted",
		),
		Service: fs.String(
			"service",
			"",
			"manage the service daemon (exec, stop, status)",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no environment. It returns
// true when the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "%s v%s (%s)\n", config.AppName, config.AppVersion, runtime.GOOS)
		return true, nil
	}

	if f.isFlagPassed("watch") && *f.Watch <= 0 {
		return true, fmt.Errorf("-watch: %w: a positive process id", ErrMissingValue)
	}
	if f.isFlagPassed("params") && *f.API == "" {
		return true, errors.New("-params is only valid with -api")
	}

	return false, nil
}

// WriteNotification prints n as one JSON-RPC notification line.
func WriteNotification(out io.Writer, n models.Notification) error {
	b, err := json.Marshal(models.RequestObject{
		JSONRPC: "2.0",
		Method:  n.Method,
		Params:  n.Params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	_, err = fmt.Fprintln(out, string(b))
	if err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Post handles the flags that talk to a running service. It returns true
// when one of them was handled and the program should exit.
func (f *Flags) Post(ctx context.Context, api client.APIClient, out io.Writer) (bool, error) {
	switch {
	case f.isFlagPassed("api"):
		if *f.API == "" {
			return true, fmt.Errorf("-api: %w", ErrMissingValue)
		}

		resp, err := api.Call(ctx, *f.API, *f.Params)
		if err != nil {
			log.Error().Err(err).Msg("error calling API")
			return true, fmt.Errorf("error calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	case *f.Events:
		var writeErr error
		err := api.Notifications(ctx, func(n models.Notification) bool {
			writeErr = WriteNotification(out, n)
			return writeErr == nil
		})
		if writeErr != nil {
			return true, writeErr
		}
		if err != nil && ctx.Err() == nil {
			return true, fmt.Errorf("error streaming notifications: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// Setup creates the app directories, starts logging and loads the user
// config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	err := helpers.EnsureDirectories()
	if err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	err = helpers.InitLogging(helpers.LogDir(), writers)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	// applies the global log level
	cfg.SetDebugLogging(cfg.DebugLogging())

	if err := telemetry.Init(telemetry.OptionsFromConfig(cfg)); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
