// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"testing"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/engine"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cfgPath = "/home/op/.config/keybow2040-cat/config.toml"

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	vals, err := Load(afero.NewMemMapFs(), cfgPath)
	require.NoError(t, err)
	assert.Equal(t, BaseDefaults, vals)
	assert.Equal(t, 50*time.Millisecond, vals.ReadTimeout())
	assert.Equal(t, 500*time.Millisecond, vals.HoldThreshold())
	assert.Equal(t, time.Second, vals.PollInterval())
	assert.Equal(t, 500*time.Millisecond, vals.FastInterval())
	assert.Equal(t, 10*time.Millisecond, vals.InputInterval())
	assert.Equal(t, time.Second, vals.HandshakeBackoff())
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := `
config_schema = 1
debug_logging = true

[radio]
port = "/dev/ttyUSB0"

[poll]
fast_interval_ms = 250
verify_toggles = true

[colors]
on = "#ff8800"
`
	require.NoError(t, afero.WriteFile(fs, cfgPath, []byte(data), 0o600))

	vals, err := Load(fs, cfgPath)
	require.NoError(t, err)
	assert.True(t, vals.DebugLogging)
	assert.Equal(t, "/dev/ttyUSB0", vals.Radio.Port)
	assert.Equal(t, 38400, vals.Radio.Baud)
	assert.Equal(t, 250*time.Millisecond, vals.FastInterval())
	assert.Equal(t, time.Second, vals.PollInterval())
	assert.True(t, vals.Poll.VerifyToggles)

	p, err := vals.Colors.Palette()
	require.NoError(t, err)
	assert.Equal(t, "#ff8800", p.On.Hex())
	assert.Equal(t, engine.DefaultPalette().Off, p.Off)
}

func TestLoad_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "schema", data: "config_schema = 2\n"},
		{name: "syntax", data: "config_schema = \n"},
		{name: "interval", data: "config_schema = 1\n[poll]\ninterval_ms = 0\n"},
		{name: "color", data: "config_schema = 1\n[colors]\npressed = \"yellow\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, cfgPath, []byte(tt.data), 0o600))

			vals, err := Load(fs, cfgPath)
			require.Error(t, err)
			assert.Equal(t, BaseDefaults, vals)
		})
	}

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, cfgPath, []byte("config_schema = 7\n"), 0o600))
	_, err := Load(fs, cfgPath)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	vals := BaseDefaults
	vals.Radio.URL = "wss://bridge.local/cat"
	vals.Keypad.Port = "/dev/ttyACM0"
	vals.ConfigSchema = 0

	require.NoError(t, Save(fs, cfgPath, vals))

	loaded, err := Load(fs, cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "wss://bridge.local/cat", loaded.Radio.URL)
	assert.Equal(t, "/dev/ttyACM0", loaded.Keypad.Port)
	assert.Equal(t, SchemaVersion, loaded.ConfigSchema)
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(CfgEnv, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", DefaultPath())
}
