// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package keypad

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

// Tracker turns raw key down/up transitions into Press, Hold and Release
// events. It is not safe for concurrent use.
type Tracker struct {
	clock     clockwork.Clock
	down      map[int]time.Time
	held      map[int]bool
	threshold time.Duration
}

// NewTracker creates a tracker with the given hold threshold
func NewTracker(clock clockwork.Clock, threshold time.Duration) *Tracker {
	return &Tracker{
		clock:     clock,
		threshold: threshold,
		down:      make(map[int]time.Time),
		held:      make(map[int]bool),
	}
}

// Down records a key going down. A key that is already down yields nothing.
func (t *Tracker) Down(key int) (Event, bool) {
	if _, ok := t.down[key]; ok {
		return Event{}, false
	}
	t.down[key] = t.clock.Now()
	return Event{Key: key, Kind: Press}, true
}

// Up records a key coming up. A key that is not down yields nothing.
func (t *Tracker) Up(key int) (Event, bool) {
	if _, ok := t.down[key]; !ok {
		return Event{}, false
	}
	delete(t.down, key)
	delete(t.held, key)
	return Event{Key: key, Kind: Release}, true
}

// Tick emits a Hold event for every key that crossed the threshold since
// the last call
func (t *Tracker) Tick() []Event {
	var events []Event
	now := t.clock.Now()
	for key, since := range t.down {
		if t.held[key] || now.Sub(since) < t.threshold {
			continue
		}
		t.held[key] = true
		events = append(events, Event{Key: key, Kind: Hold})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Key < events[j].Key })
	return events
}

// IsDown reports whether key is down
func (t *Tracker) IsDown(key int) bool {
	_, ok := t.down[key]
	return ok
}

// Held reports whether key has crossed the hold threshold
func (t *Tracker) Held(key int) bool {
	return t.held[key]
}
