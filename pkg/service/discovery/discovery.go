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

// Package discovery advertises the monitor's API over mDNS so launchers on
// the local network can find it without knowing its address.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/playclock/playclock/pkg/config"
	"github.com/playclock/playclock/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type of the API.
const ServiceType = "_playclock._tcp"

const (
	domain           = "local."
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

var errNoInterfaces = errors.New("no suitable network interfaces")

var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

// Settings is the part of the configuration discovery reads.
type Settings interface {
	DiscoveryEnabled() bool
	DiscoveryInstanceName() string
	APIPort() int
	DeviceID() string
}

// server is the part of *zeroconf.Server the service uses.
type server interface {
	Shutdown()
}

type registerFunc func(instance string, port int, txt []string, ifaces []net.Interface) (server, error)

func zeroconfRegister(instance string, port int, txt []string, ifaces []net.Interface) (server, error) {
	s, err := zeroconf.Register(instance, ServiceType, domain, port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("zeroconf register: %w", err)
	}
	return s, nil
}

// filterInterfaces keeps interfaces that are up, multicast capable, not
// loopback and not a container or VPN bridge.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if isVirtualInterface(iface.Name) {
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Service manages mDNS advertising.
type Service struct {
	clock        clockwork.Clock
	server       server
	cfg          Settings
	register     registerFunc
	interfaces   func() ([]net.Interface, error)
	hostname     func() (string, error)
	cancelFunc   context.CancelFunc
	instanceName string
	wg           sync.WaitGroup
	mu           syncutil.Mutex
	stopped      bool
}

// New creates a discovery service. Nothing is advertised until Start.
func New(cfg Settings) *Service {
	return &Service{
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
		hostname:   os.Hostname,
	}
}

// Start advertises the API if discovery is enabled. When the network is
// not ready yet, registration is retried in the background for a few
// minutes. Only configuration problems are returned as errors.
func (s *Service) Start() error {
	if !s.cfg.DiscoveryEnabled() {
		log.Info().Msg("discovery: mDNS disabled by configuration")
		return nil
	}

	s.instanceName = s.resolveInstanceName()
	err := s.tryRegister()
	if err == nil {
		return nil
	}
	log.Info().
		Err(err).
		Dur("retryInterval", retryInterval).
		Msg("discovery: registration failed, retrying in background")

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancelFunc = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.retryLoop(ctx)
	}()
	return nil
}

func (s *Service) txtRecords() []string {
	return []string{
		"id=" + s.cfg.DeviceID(),
		"version=" + config.AppVersion,
		"platform=" + runtime.GOOS,
		"path=" + config.APIPath,
	}
}

func (s *Service) tryRegister() error {
	all, err := s.interfaces()
	if err != nil {
		return fmt.Errorf("list network interfaces: %w", err)
	}
	ifaces := filterInterfaces(all)
	if len(ifaces) == 0 {
		return errNoInterfaces
	}

	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}

	port := s.cfg.APIPort()
	srv, err := s.register(s.instanceName, port, s.txtRecords(), ifaces)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		srv.Shutdown()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	log.Info().
		Str("instance", s.instanceName).
		Int("port", port).
		Strs("interfaces", names).
		Msg("discovery: mDNS advertising started")
	return nil
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := s.clock.After(maxRetryDuration)

	for {
		select {
		case <-ticker.Chan():
			err := s.tryRegister()
			if err == nil {
				return
			}
			log.Debug().Err(err).Msg("discovery: retry failed")
		case <-deadline:
			log.Warn().Msg("discovery: registration retries exhausted, mDNS unavailable")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Advertising reports whether an mDNS registration is live.
func (s *Service) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Stop withdraws the advertisement and ends any retry loop. It is safe to
// call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	s.wg.Wait()
	if srv != nil {
		log.Debug().Msg("discovery: stopping mDNS advertising")
		srv.Shutdown()
	}
}

// InstanceName returns the advertised name, empty before Start.
func (s *Service) InstanceName() string {
	return s.instanceName
}

// resolveInstanceName prefers the configured name, then the hostname, then
// a name derived from the device id.
func (s *Service) resolveInstanceName() string {
	if name := s.cfg.DiscoveryInstanceName(); name != "" {
		return name
	}
	hostname, err := s.hostname()
	if err == nil && hostname != "" {
		return hostname
	}
	log.Warn().Err(err).Msg("discovery: no hostname, using fallback name")
	if id := s.cfg.DeviceID(); len(id) >= 8 {
		return config.AppName + "-" + id[:8]
	}
	return config.AppName
}
