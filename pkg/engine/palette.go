// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package engine

import (
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
)

// Palette holds the key colors
type Palette struct {
	On      keypad.Color
	Off     keypad.Color
	Range   keypad.Color
	Preset  keypad.Color
	Pressed keypad.Color
}

// DefaultPalette returns the stock colors
func DefaultPalette() Palette {
	return Palette{
		On:      keypad.Color{R: 0xff},
		Off:     keypad.Color{G: 0xff},
		Range:   keypad.Color{B: 0xff},
		Preset:  keypad.Color{G: 0x32, B: 0x32},
		Pressed: keypad.Color{R: 0xff, G: 0xff},
	}
}

// ColorFor returns the color of a key given its command's cached value.
// The second result is false when no color should be shown, which happens
// for a switch whose state is unknown.
func (p Palette) ColorFor(entry *keymap.Entry, value string, ok bool) (keypad.Color, bool) {
	switch entry.Op {
	case keymap.Toggle:
		if !ok {
			return keypad.Black, false
		}
		b, _ := entry.Spec.Boolean()
		switch value {
		case entry.Spec.Pad(b.On):
			return p.On, true
		case entry.Spec.Pad(b.Off):
			return p.Off, true
		}
		return keypad.Black, false
	case keymap.StepUp, keymap.StepDown:
		return p.Range, true
	case keymap.SendPreset:
		return p.Preset, true
	}
	return keypad.Black, false
}
