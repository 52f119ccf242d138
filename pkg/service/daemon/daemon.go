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

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/procinfo"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
)

const stopPollInterval = 100 * time.Millisecond

type ServiceEntry func() (stop func() error, done <-chan struct{}, err error)

// Service guards a single running instance of the service with a PID file
// in runDir.
type Service struct {
	inspector procinfo.Inspector
	start     ServiceEntry
	// signal delivers SIGTERM to a running instance.
	signal func(pid int) error
	runDir string
}

type ServiceArgs struct {
	Entry ServiceEntry
	// Inspector checks whether a recorded PID is still alive. Nil means
	// the platform inspector.
	Inspector procinfo.Inspector
	RunDir    string
}

func NewService(args ServiceArgs) (*Service, error) {
	err := os.MkdirAll(args.RunDir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	inspector := args.Inspector
	if inspector == nil {
		inspector = procinfo.New()
	}

	return &Service{
		inspector: inspector,
		start:     args.Entry,
		signal:    terminate,
		runDir:    args.RunDir,
	}, nil
}

func terminate(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process: %w", err)
	}
	return nil
}

func (s *Service) pidPath() string {
	return filepath.Join(s.runDir, config.PidFile)
}

// Create new PID file using current process PID.
func (s *Service) createPidFile() error {
	pid := os.Getpid()
	err := os.WriteFile(s.pidPath(), []byte(strconv.Itoa(pid)), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (s *Service) removePidFile() error {
	err := os.Remove(s.pidPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Pid returns the process ID recorded by the running service, or 0 when
// there is no PID file.
func (s *Service) Pid() (int, error) {
	//nolint:gosec // Safe: reads PID file from the service run directory
	pidFile, err := os.ReadFile(s.pidPath())
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidFile)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// Running returns true if the PID file names a live process.
func (s *Service) Running(ctx context.Context) bool {
	pid, err := s.Pid()
	if err != nil || pid == 0 {
		return false
	}
	return s.inspector.IsAlive(ctx, pid)
}

// Run starts the service and blocks until ctx is cancelled or the service
// shuts down by itself. A stale PID file left by a crashed instance is
// replaced.
func (s *Service) Run(ctx context.Context) error {
	if s.Running(ctx) {
		return ErrAlreadyRunning
	}

	log.Info().Msg("starting service")

	if err := s.createPidFile(); err != nil {
		return err
	}
	defer func() {
		if err := s.removePidFile(); err != nil {
			log.Error().Err(err).Msg("error removing pid file")
		}
	}()

	stop, done, err := s.start()
	if err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("stopping service")
		if err := stop(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
			return err
		}
	case <-done:
		log.Info().Msg("service shut down internally")
		// stop is safe after done and reports why it shut down
		if err := stop(); err != nil {
			return err
		}
	}

	return nil
}

// Stop asks the running service to shut down and waits up to timeout for
// it to exit.
func (s *Service) Stop(ctx context.Context, timeout time.Duration) error {
	if !s.Running(ctx) {
		return ErrNotRunning
	}

	pid, err := s.Pid()
	if err != nil {
		return err
	}
	if err := s.signal(pid); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for s.inspector.IsAlive(ctx, pid) {
		if time.Now().After(deadline) {
			return errors.New("timeout waiting for service to stop")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stopPollInterval):
		}
	}
	return nil
}

// ServiceHandler runs one -service subcommand and returns the text to show
// the user.
func (s *Service) ServiceHandler(ctx context.Context, cmd string) (string, error) {
	switch cmd {
	case "exec":
		return "", s.Run(ctx)
	case "stop":
		if err := s.Stop(ctx, 10*time.Second); err != nil {
			return "", err
		}
		return "stopped", nil
	case "status":
		if s.Running(ctx) {
			pid, _ := s.Pid()
			return fmt.Sprintf("running (pid %d)", pid), nil
		}
		return "stopped", nil
	default:
		return "", fmt.Errorf("unknown service argument: %s", cmd)
	}
}
