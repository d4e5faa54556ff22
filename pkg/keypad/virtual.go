// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package keypad

import (
	"fmt"

	"github.com/git1k2/keybow2040-cat/pkg/syncutil"
)

type transition struct {
	key  int
	down bool
}

// VirtualKeypad is an on-screen keypad. Another goroutine (the TUI) presses
// and releases keys and reads back the LED colors; the controller polls it
// like real hardware.
type VirtualKeypad struct {
	tracker  *Tracker
	pending  []transition
	latched  []bool
	colors   []Color
	lit      []bool
	onChange func()
	keys     int
	mu       syncutil.Mutex
}

// NewVirtual creates a virtual keypad
func NewVirtual(opts ...Option) *VirtualKeypad {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &VirtualKeypad{
		tracker: NewTracker(o.clock, o.threshold),
		latched: make([]bool, o.keys),
		colors:  make([]Color, o.keys),
		lit:     make([]bool, o.keys),
		keys:    o.keys,
	}
}

// OnChange registers a callback run after every LED change. It is called
// without the keypad lock held.
func (v *VirtualKeypad) OnChange(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

func (v *VirtualKeypad) check(key int) error {
	if key < 0 || key >= v.keys {
		return fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	return nil
}

// Press puts key down
func (v *VirtualKeypad) Press(key int) error {
	return v.set(key, true)
}

// Release lets key up
func (v *VirtualKeypad) Release(key int) error {
	return v.set(key, false)
}

// Toggle latches key down, or releases it if it is already latched.
// Terminals do not report key-up, so the TUI holds keys this way.
func (v *VirtualKeypad) Toggle(key int) (bool, error) {
	if err := v.check(key); err != nil {
		return false, err
	}
	v.mu.Lock()
	down := !v.latched[key]
	v.mu.Unlock()
	return down, v.set(key, down)
}

func (v *VirtualKeypad) set(key int, down bool) error {
	if err := v.check(key); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latched[key] = down
	v.pending = append(v.pending, transition{key: key, down: down})
	return nil
}

// IsDown reports whether key is latched down
func (v *VirtualKeypad) IsDown(key int) bool {
	if v.check(key) != nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latched[key]
}

// Color returns the LED color of key and whether it is lit
func (v *VirtualKeypad) Color(key int) (Color, bool) {
	if v.check(key) != nil {
		return Black, false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.colors[key], v.lit[key]
}

// Keys implements Device
func (v *VirtualKeypad) Keys() []int {
	return keyRange(v.keys)
}

// Poll implements Device
func (v *VirtualKeypad) Poll() []Event {
	v.mu.Lock()
	defer v.mu.Unlock()

	var events []Event
	for _, tr := range v.pending {
		var ev Event
		var ok bool
		if tr.down {
			ev, ok = v.tracker.Down(tr.key)
		} else {
			ev, ok = v.tracker.Up(tr.key)
		}
		if ok {
			events = append(events, ev)
		}
	}
	v.pending = v.pending[:0]

	return append(events, v.tracker.Tick()...)
}

// Held implements Device
func (v *VirtualKeypad) Held(key int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tracker.Held(key)
}

// SetColor implements Device
func (v *VirtualKeypad) SetColor(key int, c Color) error {
	return v.paint(key, c, true)
}

// ClearColor implements Device
func (v *VirtualKeypad) ClearColor(key int) error {
	return v.paint(key, Black, false)
}

func (v *VirtualKeypad) paint(key int, c Color, lit bool) error {
	if err := v.check(key); err != nil {
		return err
	}
	v.mu.Lock()
	changed := v.colors[key] != c || v.lit[key] != lit
	v.colors[key] = c
	v.lit[key] = lit
	fn := v.onChange
	v.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
	return nil
}

// Close implements Device
func (*VirtualKeypad) Close() error {
	return nil
}
