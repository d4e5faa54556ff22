// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/engine"
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the key map and LED colors",
	Long: `Print every bound key with its command, operation and LED color.

Switch keys show both their on and off colors; the color actually shown
follows the radio. No connection is needed.`,
	RunE: runKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, args []string) error {
	palette, err := settings.Colors.Palette()
	if err != nil {
		return err
	}

	table := keymap.Default(cat.FTdx10())
	fmt.Print(renderKeyTable(table, palette))
	return nil
}

func swatch(c keypad.Color) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ")
}

// renderKeyTable lists the bindings in key order
func renderKeyTable(table *keymap.Table, palette engine.Palette) string {
	var s strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	s.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-5s %-14s %-10s %s", "KEY", "CODE", "COMMAND", "OPERATION", "LED")))
	s.WriteString("\n")

	for _, key := range table.Keys() {
		e, _ := table.Lookup(key)

		op := e.Op.String()
		if e.Op == keymap.SendPreset {
			op = fmt.Sprintf("%s %s", op, e.Preset)
		}

		var led string
		switch e.Op {
		case keymap.Toggle:
			led = fmt.Sprintf("%s on  %s off", swatch(palette.On), swatch(palette.Off))
		default:
			c, _ := palette.ColorFor(e, "", false)
			led = fmt.Sprintf("%s %s", swatch(c), c.Hex())
		}

		s.WriteString(fmt.Sprintf("%-4d %-5s %-14s %-10s %s\n", key, e.Command, e.Spec.Description(), op, led))
	}

	s.WriteString(fmt.Sprintf("\nPressed: %s %s\n", swatch(palette.Pressed), palette.Pressed.Hex()))
	return s.String()
}
