// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package engine turns key events into CAT commands and cached state into key
// colors.
package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownKey is returned for events on keys without a binding
	ErrUnknownKey = errors.New("no binding for key")
	// ErrUnknownState is returned when the cached value of a command is
	// missing or cannot be acted on
	ErrUnknownState = errors.New("command state unknown")
)

// Radio is the part of the CAT session the engine drives
type Radio interface {
	Send(invs ...cat.Invocation) ([]byte, error)
	Refresh(codes ...string) error
	Store(code, value string)
	Value(code string) (string, bool)
}

// Result describes what an event did
type Result struct {
	Key  int
	Op   keymap.Operation
	Sent cat.Invocation // zero when nothing was sent
}

// Option configures an Engine
type Option func(*Engine)

// WithToggleVerify re-queries a boolean command after every toggle so the
// cache follows the radio instead of the value that was sent
func WithToggleVerify() Option {
	return func(e *Engine) {
		e.verify = true
	}
}

// Engine dispatches key events to their bound operation
type Engine struct {
	radio  Radio
	table  *keymap.Table
	verify bool
}

// New creates an engine
func New(radio Radio, table *keymap.Table, opts ...Option) *Engine {
	e := &Engine{radio: radio, table: table}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the key map
func (e *Engine) Table() *keymap.Table {
	return e.table
}

// Handle dispatches one key event
func (e *Engine) Handle(ev keypad.Event) (Result, error) {
	entry, ok := e.table.Lookup(ev.Key)
	if !ok {
		return Result{Key: ev.Key}, fmt.Errorf("%w: %d", ErrUnknownKey, ev.Key)
	}

	switch ev.Kind {
	case keypad.Press:
		return e.press(entry)
	case keypad.Hold:
		return e.hold(entry)
	case keypad.Release:
		return e.release(entry)
	default:
		return Result{Key: ev.Key}, fmt.Errorf("key %d: unsupported event %s", ev.Key, ev.Kind)
	}
}

// Repeat re-runs the action of a held key. Presets are not repeated.
func (e *Engine) Repeat(key int) (Result, error) {
	entry, ok := e.table.Lookup(key)
	if !ok {
		return Result{Key: key}, fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	if entry.Op == keymap.SendPreset {
		return Result{Key: key, Op: entry.Op}, nil
	}
	return e.apply(entry, true)
}

func (e *Engine) press(entry *keymap.Entry) (Result, error) {
	if entry.Op == keymap.SendPreset {
		return e.sendPreset(entry)
	}
	return e.apply(entry, false)
}

// hold marks the switch to coarse steps; the repeats come from Repeat on
// the controller's fast tick
func (*Engine) hold(entry *keymap.Entry) (Result, error) {
	log.Debug().Int("key", entry.Key).Str("code", entry.Command).Msg("key held")
	return Result{Key: entry.Key, Op: entry.Op}, nil
}

func (*Engine) release(entry *keymap.Entry) (Result, error) {
	return Result{Key: entry.Key, Op: entry.Op}, nil
}

func (e *Engine) apply(entry *keymap.Entry, held bool) (Result, error) {
	switch entry.Op {
	case keymap.Toggle:
		return e.toggle(entry)
	case keymap.StepUp, keymap.StepDown:
		return e.step(entry, held)
	default:
		return Result{Key: entry.Key, Op: entry.Op}, nil
	}
}

func (e *Engine) toggle(entry *keymap.Entry) (Result, error) {
	res := Result{Key: entry.Key, Op: entry.Op}
	spec := entry.Spec
	b, _ := spec.Boolean()

	cur, ok := e.radio.Value(spec.Code())
	if !ok {
		return res, fmt.Errorf("%w: %s not cached", ErrUnknownState, spec.Code())
	}

	var next string
	switch cur {
	case spec.Pad(b.On):
		next = spec.Pad(b.Off)
	case spec.Pad(b.Off):
		next = spec.Pad(b.On)
	default:
		return res, fmt.Errorf("%w: %s is %q", ErrUnknownState, spec.Code(), cur)
	}

	inv := spec.Set(next)
	if _, err := e.radio.Send(inv); err != nil {
		return res, fmt.Errorf("toggle %s: %w", spec.Code(), err)
	}
	res.Sent = inv
	e.radio.Store(spec.Code(), next)

	if e.verify {
		if err := e.radio.Refresh(spec.Code()); err != nil {
			return res, fmt.Errorf("verify %s: %w", spec.Code(), err)
		}
	}
	return res, nil
}

func (e *Engine) step(entry *keymap.Entry, held bool) (Result, error) {
	res := Result{Key: entry.Key, Op: entry.Op}
	spec := entry.Spec
	r, _ := spec.Range()

	raw, ok := e.radio.Value(spec.Code())
	if !ok {
		return res, fmt.Errorf("%w: %s not cached", ErrUnknownState, spec.Code())
	}
	cur, err := strconv.Atoi(raw)
	if err != nil {
		return res, fmt.Errorf("%w: %s is %q", ErrUnknownState, spec.Code(), raw)
	}

	next := spec.FormatInt(NextValue(cur, r.Min, r.Max, entry.Op.Direction(), held))
	inv := spec.Set(next)
	if _, err := e.radio.Send(inv); err != nil {
		return res, fmt.Errorf("step %s: %w", spec.Code(), err)
	}
	res.Sent = inv
	e.radio.Store(spec.Code(), next)
	return res, nil
}

func (e *Engine) sendPreset(entry *keymap.Entry) (Result, error) {
	res := Result{Key: entry.Key, Op: entry.Op}
	inv := entry.Spec.Set(entry.Preset)
	if _, err := e.radio.Send(inv); err != nil {
		return res, fmt.Errorf("preset %s: %w", entry.Spec.Code(), err)
	}
	res.Sent = inv
	return res, nil
}
