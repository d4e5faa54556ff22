// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package keymap binds keypad keys to CAT command operations.
package keymap

import (
	"fmt"
	"sort"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
)

// Operation is what a key does to its command
type Operation int

const (
	// Toggle flips a boolean command between its on and off encodings
	Toggle Operation = iota
	// StepUp increments a range command
	StepUp
	// StepDown decrements a range command
	StepDown
	// SendPreset sends a fixed literal value
	SendPreset
)

func (o Operation) String() string {
	switch o {
	case Toggle:
		return "toggle"
	case StepUp:
		return "step-up"
	case StepDown:
		return "step-down"
	case SendPreset:
		return "preset"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// Direction returns +1 for StepUp, -1 for StepDown and 0 otherwise
func (o Operation) Direction() int {
	switch o {
	case StepUp:
		return 1
	case StepDown:
		return -1
	default:
		return 0
	}
}

// IsStep reports whether the operation changes a range command
func (o Operation) IsStep() bool {
	return o == StepUp || o == StepDown
}

// Binding assigns one key to a command operation
type Binding struct {
	Key     int
	Command string
	Op      Operation
	Preset  string // only for SendPreset
}

// Entry is a validated binding with its command resolved
type Entry struct {
	Binding
	Spec *cat.Command
}

// Table is an immutable key-to-entry map
type Table struct {
	entries map[int]*Entry
	keys    []int
}

// NewTable validates bindings against reg
func NewTable(reg *cat.Registry, bindings ...Binding) (*Table, error) {
	t := &Table{entries: make(map[int]*Entry, len(bindings))}

	for _, b := range bindings {
		if b.Key < 0 {
			return nil, fmt.Errorf("key %d: negative key id", b.Key)
		}
		if _, dup := t.entries[b.Key]; dup {
			return nil, fmt.Errorf("key %d: bound twice", b.Key)
		}

		spec, ok := reg.Lookup(b.Command)
		if !ok {
			return nil, fmt.Errorf("key %d: unknown command %q", b.Key, b.Command)
		}

		switch b.Op {
		case Toggle:
			if spec.Kind() != cat.KindBoolean {
				return nil, fmt.Errorf("key %d: toggle needs a boolean command, %s is %s", b.Key, b.Command, spec.Kind())
			}
		case StepUp, StepDown:
			if spec.Kind() != cat.KindRange {
				return nil, fmt.Errorf("key %d: %s needs a range command, %s is %s", b.Key, b.Op, b.Command, spec.Kind())
			}
		case SendPreset:
			if b.Preset == "" {
				return nil, fmt.Errorf("key %d: preset for %s is empty", b.Key, b.Command)
			}
			for i := 0; i < len(b.Preset); i++ {
				if b.Preset[i] < '0' || b.Preset[i] > '9' {
					return nil, fmt.Errorf("key %d: preset %q for %s is not numeric", b.Key, b.Preset, b.Command)
				}
			}
		default:
			return nil, fmt.Errorf("key %d: unknown operation %s", b.Key, b.Op)
		}

		t.entries[b.Key] = &Entry{Binding: b, Spec: spec}
		t.keys = append(t.keys, b.Key)
	}

	sort.Ints(t.keys)
	return t, nil
}

// MustNewTable is like NewTable but panics on error
func MustNewTable(reg *cat.Registry, bindings ...Binding) *Table {
	t, err := NewTable(reg, bindings...)
	if err != nil {
		panic(fmt.Sprintf("keymap: %v", err))
	}
	return t
}

// Lookup returns the entry for key
func (t *Table) Lookup(key int) (*Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Keys returns the bound keys in ascending order
func (t *Table) Keys() []int {
	out := make([]int, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of bound keys
func (t *Table) Len() int {
	return len(t.keys)
}

// Keybow2040 is the default layout for the 4x4 keypad
func Keybow2040() []Binding {
	return []Binding{
		{Key: 0, Command: "ZI", Op: SendPreset, Preset: "0"},
		{Key: 1, Command: "KR", Op: Toggle},
		{Key: 3, Command: "BS", Op: SendPreset, Preset: "01"},
		{Key: 4, Command: "CO02", Op: Toggle},
		{Key: 5, Command: "BI", Op: Toggle},
		{Key: 7, Command: "BS", Op: SendPreset, Preset: "03"},
		{Key: 8, Command: "KS", Op: StepDown},
		{Key: 9, Command: "KS", Op: StepUp},
		{Key: 11, Command: "BS", Op: SendPreset, Preset: "05"},
		{Key: 12, Command: "PC", Op: StepDown},
		{Key: 13, Command: "PC", Op: StepUp},
		{Key: 15, Command: "BS", Op: SendPreset, Preset: "09"},
	}
}

// Default returns the validated default table for reg
func Default(reg *cat.Registry) *Table {
	return MustNewTable(reg, Keybow2040()...)
}
