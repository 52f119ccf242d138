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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/playclock/playclock/internal/telemetry"
	"github.com/playclock/playclock/pkg/api/client"
	"github.com/playclock/playclock/pkg/cli"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/helpers"
	"github.com/playclock/playclock/pkg/service"
	"github.com/playclock/playclock/pkg/service/daemon"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()

	exit, err := flags.Pre(os.Args[1:], os.Stdout)
	if exit || err != nil {
		return err
	}

	serviceCmd := *flags.Service
	if *flags.Daemon {
		serviceCmd = "exec"
	}

	var logWriters []io.Writer
	if serviceCmd == "exec" || *flags.Watch > 0 {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handled, err := flags.Post(ctx, client.NewLocalAPIClient(cfg), os.Stdout)
	if handled {
		return err
	}

	if *flags.Watch > 0 {
		return cli.Watch(ctx, cfg, *flags.Watch, *flags.Session, os.Stdout, service.Options{})
	}

	if serviceCmd == "" {
		flag.Usage()
		return nil
	}

	svc, err := daemon.NewService(daemon.ServiceArgs{
		RunDir: helpers.RunDir(),
		Entry: func() (func() error, <-chan struct{}, error) {
			return service.Start(cfg)
		},
	})
	if err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}

	out, err := svc.ServiceHandler(ctx, serviceCmd)
	if out != "" {
		_, _ = fmt.Println(out)
	}
	return err
}
