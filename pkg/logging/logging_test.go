// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Init mutates the global logger, so these tests do not run in parallel.

func TestInit_WritesFileAndExtraWriter(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logs", "cat.log")
	var buf bytes.Buffer

	require.NoError(t, Init(Options{File: file, Debug: true}, &buf))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Str("frames", "KS;").Msg("cat send")

	assert.Contains(t, buf.String(), `"frames":"KS;"`)
	assert.Contains(t, buf.String(), `"caller"`)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cat send")
}

func TestInit_InfoLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{}, &buf))

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDefaultFile(t *testing.T) {
	assert.Equal(t, "cat.log", filepath.Base(DefaultFile("cat.log")))
}
