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
	"testing"

	testhelpers "github.com/playclock/playclock/pkg/testing/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProc builds an in-memory /proc with one entry per process.
type fakeProc struct {
	*testhelpers.FSHelper
}

func newFakeProc() *fakeProc {
	return &fakeProc{testhelpers.NewMemoryFS()}
}

func (f *fakeProc) add(t *testing.T, pid, ppid int, comm string, state byte) {
	t.Helper()
	require.NoError(t, f.CreateProcEntry("/proc", testhelpers.ProcEntry{
		PID: pid, PPID: ppid, Comm: comm, State: state,
	}))
}

func (f *fakeProc) inspector() *ProcFS {
	return NewProcFS(WithFs(f.Fs), WithProcPath("/proc"))
}

func TestNewProcFS_Defaults(t *testing.T) {
	t.Parallel()

	p := NewProcFS()

	assert.Equal(t, DefaultProcPath, p.root)
	assert.NotNil(t, p.fs)
}

func TestParseStat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		want    procStat
		wantErr bool
	}{
		{
			name: "simple",
			line: "1234 (game.exe) S 1200 1234 1234 0 -1",
			want: procStat{pid: 1234, comm: "game.exe", state: 'S', ppid: 1200},
		},
		{
			name: "comm with spaces and parens",
			line: "42 (My Game (x64)) R 7 42 42 0 -1",
			want: procStat{pid: 42, comm: "My Game (x64)", state: 'R', ppid: 7},
		},
		{
			name: "zombie",
			line: "99 (launcher) Z 1 99 99",
			want: procStat{pid: 99, comm: "launcher", state: 'Z', ppid: 1},
		},
		{
			name:    "missing parens",
			line:    "99 launcher Z 1",
			wantErr: true,
		},
		{
			name:    "truncated",
			line:    "99 (launcher) Z",
			wantErr: true,
		},
		{
			name:    "non numeric ppid",
			line:    "99 (launcher) S abc",
			wantErr: true,
		},
		{
			name:    "empty",
			line:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseStat(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcFS_IsAlive(t *testing.T) {
	t.Parallel()

	proc := newFakeProc()
	proc.add(t, 100, 1, "launcher", 'S')
	proc.add(t, 101, 100, "zombie", 'Z')
	proc.add(t, 102, 100, "dead", 'X')
	require.NoError(t, proc.Fs.MkdirAll("/proc/103", 0o755)) // no stat file
	require.NoError(t, afero.WriteFile(proc.Fs, "/proc/104", []byte{}, 0o644))

	insp := proc.inspector()
	ctx := context.Background()

	assert.True(t, insp.IsAlive(ctx, 100), "sleeping process is alive")
	assert.False(t, insp.IsAlive(ctx, 101), "zombie is not alive")
	assert.False(t, insp.IsAlive(ctx, 102), "dead process is not alive")
	assert.True(t, insp.IsAlive(ctx, 103), "entry without stat is trusted")
	assert.False(t, insp.IsAlive(ctx, 104), "non-directory entry is ignored")
	assert.False(t, insp.IsAlive(ctx, 999), "missing pid is not alive")
	assert.False(t, insp.IsAlive(ctx, 0))
	assert.False(t, insp.IsAlive(ctx, -5))
}

func TestProcFS_ChildrenOf(t *testing.T) {
	t.Parallel()

	proc := newFakeProc()
	proc.add(t, 1, 0, "init", 'S')
	proc.add(t, 100, 1, "launcher", 'S')
	proc.add(t, 200, 100, "game", 'R')
	proc.add(t, 201, 100, "crash-handler", 'S')
	proc.add(t, 300, 200, "grandchild", 'S')
	require.NoError(t, afero.WriteFile(proc.Fs, "/proc/uptime", []byte("1 1"), 0o644))
	require.NoError(t, proc.Fs.MkdirAll("/proc/self", 0o755))

	insp := proc.inspector()

	children := insp.ChildrenOf(context.Background(), 100)

	assert.ElementsMatch(t, []int{200, 201}, children)
	assert.Empty(t, insp.ChildrenOf(context.Background(), 300))
	assert.Empty(t, insp.ChildrenOf(context.Background(), 0))
}

func TestProcFS_ChildrenOf_MissingTable(t *testing.T) {
	t.Parallel()

	insp := NewProcFS(WithFs(afero.NewMemMapFs()), WithProcPath("/nonexistent"))

	assert.Empty(t, insp.ChildrenOf(context.Background(), 1))
}

func TestProcFS_ChildrenOf_Cancelled(t *testing.T) {
	t.Parallel()

	proc := newFakeProc()
	proc.add(t, 100, 1, "launcher", 'S')
	proc.add(t, 200, 100, "game", 'R')

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, proc.inspector().ChildrenOf(ctx, 100))
}
