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

package helpers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/playclock/playclock/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // replaces the global logger
func TestInitLogging(t *testing.T) {
	prev, prevWriter := log.Logger, logWriter
	t.Cleanup(func() {
		log.Logger = prev
		logWriter = prevWriter
	})

	logDir := filepath.Join(t.TempDir(), "logs", "nested")
	var extra bytes.Buffer

	require.NoError(t, InitLogging(logDir, []io.Writer{&extra}))
	log.Info().Str("sessionId", "abc").Msg("hello")

	data, err := os.ReadFile(filepath.Join(logDir, config.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sessionId":"abc"`)
	assert.Contains(t, string(data), `"caller"`)
	assert.Contains(t, extra.String(), "hello")

	_, err = LogWriter().Write([]byte("direct\n"))
	require.NoError(t, err)
	assert.Contains(t, extra.String(), "direct")
}
