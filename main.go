// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// keybow2040-cat - Keybow 2040 CAT controller for the Yaesu FTdx10
//
// Turns key presses on a 16-key keypad into CAT commands and paints the
// key LEDs from the radio state.

package main

import (
	"os"

	"github.com/git1k2/keybow2040-cat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
