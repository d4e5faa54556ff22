// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"

	"github.com/git1k2/keybow2040-cat/pkg/config"
	"github.com/git1k2/keybow2040-cat/pkg/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// Radio serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Keypad flags
	keypadPort string
	keypadBaud int

	// Settings
	cfgPath  string
	debugLog bool
	logFile  string
)

// settings is the effective configuration after flags are applied
var settings = config.BaseDefaults

var rootCmd = &cobra.Command{
	Use:   "keybow2040-cat",
	Short: "Keybow 2040 CAT controller for the Yaesu FTdx10",
	Long: `keybow2040-cat - drive a Yaesu FTdx10 over CAT from a Keybow 2040 keypad.

Each key is bound to a CAT command: switches toggle, range keys step a value
(faster while held) and preset keys send a fixed value. Key LEDs follow the
radio state, including changes made on the front panel.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 38400]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the KEYBOW_CAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Settings are read from the config file (see "config") and overridden by flags.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Radio serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Radio CAT serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 38400, "Radio baud rate (serial only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket serial bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Keypad flags
	rootCmd.PersistentFlags().StringVarP(&keypadPort, "keypad", "k", "", "Keybow 2040 serial port device")
	rootCmd.PersistentFlags().IntVar(&keypadBaud, "keypad-baud", 115200, "Keypad baud rate")

	// Settings
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log every CAT frame")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file (default in the user cache directory)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads the config file and applies the flags that were set
func loadSettings(cmd *cobra.Command, _ []string) error {
	vals, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		vals.Radio.Port = portName
	}
	if flags.Changed("baud") {
		vals.Radio.Baud = baudRate
	}
	if flags.Changed("url") {
		vals.Radio.URL = wsURL
	}
	if flags.Changed("username") {
		vals.Radio.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		vals.Radio.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("keypad") {
		vals.Keypad.Port = keypadPort
	}
	if flags.Changed("keypad-baud") {
		vals.Keypad.Baud = keypadBaud
	}
	if flags.Changed("debug") {
		vals.DebugLogging = debugLog
	}
	if flags.Changed("log-file") {
		vals.LogFile = logFile
	}
	if vals.LogFile == "" {
		vals.LogFile = logging.DefaultFile(config.LogFile)
	}

	settings = vals
	return nil
}

// initLogging starts file logging plus the given writers
func initLogging(writers ...io.Writer) error {
	return logging.Init(logging.Options{
		File:  settings.LogFile,
		Debug: settings.DebugLogging,
	}, writers...)
}
