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

package procinfo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultProcPath is the mount point of the Linux process filesystem.
const DefaultProcPath = "/proc"

var errMalformedStat = errors.New("malformed stat line")

// ProcFS inspects processes through a procfs mount.
type ProcFS struct {
	fs   afero.Fs
	root string
}

// ProcFSOption configures a ProcFS.
type ProcFSOption func(*ProcFS)

// WithFs swaps the filesystem (afero.NewMemMapFs in tests).
func WithFs(fs afero.Fs) ProcFSOption {
	return func(p *ProcFS) {
		p.fs = fs
	}
}

// WithProcPath sets a custom /proc path.
func WithProcPath(path string) ProcFSOption {
	return func(p *ProcFS) {
		p.root = path
	}
}

// NewProcFS creates a procfs-backed Inspector.
func NewProcFS(opts ...ProcFSOption) *ProcFS {
	p := &ProcFS{
		fs:   afero.NewOsFs(),
		root: DefaultProcPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// procStat is the subset of /proc/<pid>/stat the monitor cares about.
type procStat struct {
	comm  string
	state byte
	pid   int
	ppid  int
}

// parseStat parses a /proc/<pid>/stat line. comm is wrapped in parentheses
// and may itself contain spaces or parentheses, so fields are located from
// the last closing paren.
func parseStat(line string) (procStat, error) {
	open := strings.IndexByte(line, '(')
	closing := strings.LastIndexByte(line, ')')
	if open < 0 || closing < open {
		return procStat{}, errMalformedStat
	}

	pid, err := strconv.Atoi(strings.TrimSpace(line[:open]))
	if err != nil {
		return procStat{}, fmt.Errorf("parse pid: %w", err)
	}

	rest := strings.Fields(line[closing+1:])
	if len(rest) < 2 || len(rest[0]) != 1 {
		return procStat{}, errMalformedStat
	}

	ppid, err := strconv.Atoi(rest[1])
	if err != nil {
		return procStat{}, fmt.Errorf("parse ppid: %w", err)
	}

	return procStat{
		pid:   pid,
		comm:  line[open+1 : closing],
		state: rest[0][0],
		ppid:  ppid,
	}, nil
}

func (p *ProcFS) readStat(pid int) (procStat, error) {
	path := filepath.Join(p.root, strconv.Itoa(pid), "stat")
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return procStat{}, fmt.Errorf("read %s: %w", path, err)
	}
	return parseStat(string(data))
}

// IsAlive reports true while /proc/<pid> exists. Zombies (state Z) have
// exited and are only waiting to be reaped, so they count as dead. If the
// directory exists but stat cannot be parsed the entry's existence wins.
func (p *ProcFS) IsAlive(_ context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}

	info, err := p.fs.Stat(filepath.Join(p.root, strconv.Itoa(pid)))
	if err != nil || !info.IsDir() {
		return false
	}

	st, err := p.readStat(pid)
	if err != nil {
		log.Debug().Err(err).Int("pid", pid).Msg("procinfo: unreadable stat, trusting proc entry")
		return true
	}
	return st.state != 'Z' && st.state != 'X'
}

// ChildrenOf scans every numeric entry under the proc root.
func (p *ProcFS) ChildrenOf(ctx context.Context, parent int) []int {
	if parent <= 0 {
		return nil
	}

	entries, err := afero.ReadDir(p.fs, p.root)
	if err != nil {
		log.Debug().Err(err).Str("root", p.root).Msg("procinfo: cannot read process table")
		return nil
	}

	var children []int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return children
		}
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == parent {
			continue
		}
		st, err := p.readStat(pid)
		if err != nil {
			// raced with process exit
			continue
		}
		if st.ppid == parent {
			children = append(children, pid)
		}
	}
	return children
}
