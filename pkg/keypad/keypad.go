// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package keypad is the boundary to the key input device: key events in,
// per-key LED colors out.
package keypad

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// KeyCount is the number of keys on a Keybow 2040
const KeyCount = 16

// DefaultHoldThreshold is how long a key must stay down to count as held
const DefaultHoldThreshold = 500 * time.Millisecond

// ErrUnknownKey is returned for a key id the device does not have
var ErrUnknownKey = errors.New("unknown key")

// EventKind is the kind of key transition
type EventKind int

const (
	// Press is sent when a key goes down
	Press EventKind = iota
	// Hold is sent once when a key has been down past the hold threshold
	Hold
	// Release is sent when a key comes up
	Release
)

func (k EventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Hold:
		return "hold"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one key transition
type Event struct {
	Key  int
	Kind EventKind
}

func (e Event) String() string {
	return fmt.Sprintf("key %d %s", e.Key, e.Kind)
}

// Device is a keypad with one LED per key
type Device interface {
	// Keys returns the key ids in ascending order
	Keys() []int
	// Poll returns the events since the last call without blocking
	Poll() []Event
	// Held reports whether key has been down past the hold threshold
	Held(key int) bool
	SetColor(key int, c Color) error
	ClearColor(key int) error
	Close() error
}

// Option configures a keypad
type Option func(*options)

type options struct {
	clock       clockwork.Clock
	threshold   time.Duration
	portFactory PortFactory
	keys        int
}

func defaultOptions() options {
	return options{
		clock:       clockwork.NewRealClock(),
		threshold:   DefaultHoldThreshold,
		portFactory: DefaultPortFactory,
		keys:        KeyCount,
	}
}

// WithClock sets the clock used for hold timing
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithHoldThreshold sets the hold threshold
func WithHoldThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.threshold = d
		}
	}
}

// WithPortFactory replaces the serial port opener, for tests
func WithPortFactory(f PortFactory) Option {
	return func(o *options) {
		o.portFactory = f
	}
}

// WithKeyCount sets the number of keys
func WithKeyCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.keys = n
		}
	}
}

func keyRange(n int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	return keys
}
