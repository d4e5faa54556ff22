// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the runtime settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/engine"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "KEYBOW_CAT_CFG"
	CfgFile       = "config.toml"
	LogFile       = "keybow2040-cat.log"
	AppDir        = "keybow2040-cat"
)

// ErrSchemaMismatch is returned for a file written by an incompatible version
var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Radio        Radio  `toml:"radio"`
	Keypad       Keypad `toml:"keypad"`
	Poll         Poll   `toml:"poll"`
	Colors       Colors `toml:"colors"`
	LogFile      string `toml:"log_file,omitempty"`
	ConfigSchema int    `toml:"config_schema"`
	DebugLogging bool   `toml:"debug_logging"`
}

type Radio struct {
	Port          string `toml:"port,omitempty"`
	URL           string `toml:"url,omitempty"`
	Username      string `toml:"username,omitempty"`
	Baud          int    `toml:"baud"`
	ReadTimeoutMs int    `toml:"read_timeout_ms"`
	NoSSLVerify   bool   `toml:"no_ssl_verify"`
}

type Keypad struct {
	Port            string `toml:"port,omitempty"`
	Baud            int    `toml:"baud"`
	HoldThresholdMs int    `toml:"hold_threshold_ms"`
}

type Poll struct {
	IntervalMs         int  `toml:"interval_ms"`
	FastIntervalMs     int  `toml:"fast_interval_ms"`
	InputIntervalMs    int  `toml:"input_interval_ms"`
	HandshakeBackoffMs int  `toml:"handshake_backoff_ms"`
	VerifyToggles      bool `toml:"verify_toggles"`
}

type Colors struct {
	On      string `toml:"on"`
	Off     string `toml:"off"`
	Range   string `toml:"range"`
	Preset  string `toml:"preset"`
	Pressed string `toml:"pressed"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Radio: Radio{
		Baud:          38400,
		ReadTimeoutMs: 50,
	},
	Keypad: Keypad{
		Baud:            keypad.DefaultBaudRate,
		HoldThresholdMs: 500,
	},
	Poll: Poll{
		IntervalMs:         1000,
		FastIntervalMs:     500,
		InputIntervalMs:    10,
		HandshakeBackoffMs: 1000,
	},
	Colors: Colors{
		On:      "#ff0000",
		Off:     "#00ff00",
		Range:   "#0000ff",
		Preset:  "#003232",
		Pressed: "#ffff00",
	},
}

// DefaultPath returns the config file location, honoring KEYBOW_CAT_CFG
func DefaultPath() string {
	if p := os.Getenv(CfgEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppDir, CfgFile)
}

// Load reads path from fs over the defaults. A missing file yields the
// defaults.
func Load(fs afero.Fs, path string) (Values, error) {
	vals := BaseDefaults

	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("no config file, using defaults")
		return vals, nil
	}
	if err != nil {
		return vals, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their default values
	if err := toml.Unmarshal(data, &vals); err != nil {
		return BaseDefaults, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if vals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			vals.ConfigSchema,
			SchemaVersion,
		)
		return BaseDefaults, ErrSchemaMismatch
	}

	if err := vals.Validate(); err != nil {
		return BaseDefaults, err
	}
	return vals, nil
}

// Save writes vals to path on fs, creating the directory if needed
func Save(fs afero.Fs, path string, vals Values) error {
	vals.ConfigSchema = SchemaVersion

	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(&vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges and colors
func (v Values) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"radio.baud", v.Radio.Baud},
		{"radio.read_timeout_ms", v.Radio.ReadTimeoutMs},
		{"keypad.baud", v.Keypad.Baud},
		{"keypad.hold_threshold_ms", v.Keypad.HoldThresholdMs},
		{"poll.interval_ms", v.Poll.IntervalMs},
		{"poll.fast_interval_ms", v.Poll.FastIntervalMs},
		{"poll.input_interval_ms", v.Poll.InputIntervalMs},
		{"poll.handshake_backoff_ms", v.Poll.HandshakeBackoffMs},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	if _, err := v.Colors.Palette(); err != nil {
		return err
	}
	return nil
}

// ReadTimeout is how long a CAT read waits for the radio to go quiet
func (v Values) ReadTimeout() time.Duration {
	return time.Duration(v.Radio.ReadTimeoutMs) * time.Millisecond
}

// HoldThreshold is how long a key must be down to count as held
func (v Values) HoldThreshold() time.Duration {
	return time.Duration(v.Keypad.HoldThresholdMs) * time.Millisecond
}

// PollInterval is the background refresh period
func (v Values) PollInterval() time.Duration {
	return time.Duration(v.Poll.IntervalMs) * time.Millisecond
}

// FastInterval is the repeat period while a key is held
func (v Values) FastInterval() time.Duration {
	return time.Duration(v.Poll.FastIntervalMs) * time.Millisecond
}

// InputInterval is the keypad polling period
func (v Values) InputInterval() time.Duration {
	return time.Duration(v.Poll.InputIntervalMs) * time.Millisecond
}

// HandshakeBackoff is the pause between identification attempts
func (v Values) HandshakeBackoff() time.Duration {
	return time.Duration(v.Poll.HandshakeBackoffMs) * time.Millisecond
}

// Palette parses the configured colors
func (c Colors) Palette() (engine.Palette, error) {
	var p engine.Palette
	fields := []struct {
		name string
		src  string
		dst  *keypad.Color
	}{
		{"colors.on", c.On, &p.On},
		{"colors.off", c.Off, &p.Off},
		{"colors.range", c.Range, &p.Range},
		{"colors.preset", c.Preset, &p.Preset},
		{"colors.pressed", c.Pressed, &p.Pressed},
	}
	for _, f := range fields {
		color, err := keypad.ParseColor(f.src)
		if err != nil {
			return engine.Palette{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = color
	}
	return p, nil
}
