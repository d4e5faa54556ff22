// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/git1k2/keybow2040-cat/pkg/controller"
	"github.com/git1k2/keybow2040-cat/pkg/engine"
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/git1k2/keybow2040-cat/pkg/logging"
	"github.com/git1k2/keybow2040-cat/pkg/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Control the radio from the Keybow 2040",
	Long: `Connect to the radio and the keypad and run the controller.

The radio is identified first (retrying every second until it answers), then
its state is read and the key LEDs are painted. After that the keypad is
polled continuously; the radio state is refreshed every second, or a held key
is repeated every half second.

The keypad must run the line firmware: it reports "P03" / "R03" for key 3
going down / up and accepts "L03FF0000" to set an LED.

Press Ctrl+C to exit.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := initLogging(logging.Console()); err != nil {
		return err
	}

	if settings.Keypad.Port == "" {
		return fmt.Errorf("--keypad must be specified")
	}

	sess, conn, err := openSession()
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Msgf("radio: %s", conn)

	pad, err := keypad.OpenSerial(settings.Keypad.Port, settings.Keypad.Baud,
		keypad.WithHoldThreshold(settings.HoldThreshold()))
	if err != nil {
		return err
	}
	defer pad.Close()

	ctrl, err := newController(sess, pad, controller.Options{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ctrl.Run(ctx)
}

// newController builds the engine and controller from the effective settings
func newController(sess *session.Session, pad keypad.Device, opts controller.Options) (*controller.Controller, error) {
	palette, err := settings.Colors.Palette()
	if err != nil {
		return nil, err
	}

	var engineOpts []engine.Option
	if settings.Poll.VerifyToggles {
		engineOpts = append(engineOpts, engine.WithToggleVerify())
	}
	eng := engine.New(sess, keymap.Default(sess.Registry()), engineOpts...)

	opts.Palette = palette
	opts.PollInterval = settings.PollInterval()
	opts.FastInterval = settings.FastInterval()
	opts.InputInterval = settings.InputInterval()

	return controller.New(sess, eng, pad, opts), nil
}
