// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package controller runs the single loop that owns the CAT session: it polls
// the keypad, dispatches key events, refreshes radio state and keeps the key
// LEDs in step with it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/engine"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/git1k2/keybow2040-cat/pkg/session"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPollInterval  = time.Second
	DefaultFastInterval  = 500 * time.Millisecond
	DefaultInputInterval = 10 * time.Millisecond
)

// Update is a view of the loop state handed to observers
type Update struct {
	Values map[string]string
	Stats  cat.Statistics
	Held   []int
}

// Action reports one dispatched key event
type Action struct {
	Err    error
	Result engine.Result
	Event  keypad.Event
}

// Options configures a Controller
type Options struct {
	Clock         clockwork.Clock
	OnUpdate      func(Update)
	OnAction      func(Action)
	Palette       engine.Palette
	PollInterval  time.Duration
	FastInterval  time.Duration
	InputInterval time.Duration
}

// Controller wires a session, an engine and a keypad together
type Controller struct {
	session *session.Session
	engine  *engine.Engine
	device  keypad.Device
	pressed map[int]bool
	opts    Options
}

// New creates a controller. Zero option fields take their defaults.
func New(s *session.Session, e *engine.Engine, device keypad.Device, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FastInterval <= 0 {
		opts.FastInterval = DefaultFastInterval
	}
	if opts.InputInterval <= 0 {
		opts.InputInterval = DefaultInputInterval
	}
	if opts.Palette == (engine.Palette{}) {
		opts.Palette = engine.DefaultPalette()
	}

	return &Controller{
		session: s,
		engine:  e,
		device:  device,
		pressed: make(map[int]bool),
		opts:    opts,
	}
}

// Run identifies the radio, loads its state and then loops until ctx is
// cancelled. Only transport and keypad failures end it with an error.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer c.clearAll()

	ticker := c.opts.Clock.NewTicker(c.opts.InputInterval)
	defer ticker.Stop()

	next := c.opts.Clock.Now().Add(c.opts.PollInterval)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("controller stopping")
			return nil
		case now := <-ticker.Chan():
			holdStarted, err := c.pollInput()
			if err != nil {
				return err
			}
			if holdStarted {
				next = now
			}
			if now.Before(next) {
				continue
			}
			wait, err := c.tick()
			if err != nil {
				return err
			}
			next = now.Add(wait)
		}
	}
}

// start performs the handshake and the first full refresh
func (c *Controller) start(ctx context.Context) error {
	log.Info().Msg("waiting for radio")
	if _, err := c.session.Handshake(ctx); err != nil {
		return err
	}

	if err := c.session.RefreshAll(); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	c.report()

	for _, key := range c.device.Keys() {
		if err := c.paintKey(key); err != nil {
			return err
		}
	}
	c.notify()
	return nil
}

// report logs the value of every command read at startup
func (c *Controller) report() {
	for _, cmd := range c.session.Registry().Commands() {
		value, ok := c.session.Value(cmd.Code())
		if !ok {
			continue
		}
		log.Info().Msgf("%s %s", cmd.Description(), cat.FormatValue(cmd, value))
	}
}

// pollInput dispatches pending key events. It reports whether a key just
// crossed the hold threshold.
func (c *Controller) pollInput() (bool, error) {
	holdStarted := false
	for _, ev := range c.device.Poll() {
		res, err := c.engine.Handle(ev)
		c.action(ev, res, err)
		if err != nil && !recoverable(err) {
			return holdStarted, err
		}

		switch ev.Kind {
		case keypad.Press:
			c.pressed[ev.Key] = true
		case keypad.Release:
			delete(c.pressed, ev.Key)
		case keypad.Hold:
			holdStarted = true
		}

		if ev.Kind != keypad.Hold {
			if err := c.paintKey(ev.Key); err != nil {
				return holdStarted, err
			}
			c.notify()
		}
	}
	return holdStarted, nil
}

// tick repeats held keys, or refreshes everything when no key is held. It
// returns the time until the next tick.
func (c *Controller) tick() (time.Duration, error) {
	held := c.heldKeys()
	if len(held) > 0 {
		for _, key := range held {
			res, err := c.engine.Repeat(key)
			c.action(keypad.Event{Key: key, Kind: keypad.Hold}, res, err)
			if err != nil && !recoverable(err) {
				return 0, err
			}
		}
		c.notify()
		return c.opts.FastInterval, nil
	}

	if err := c.session.RefreshAll(); err != nil {
		return 0, fmt.Errorf("refresh: %w", err)
	}
	for _, key := range c.engine.Table().Keys() {
		if err := c.paintKey(key); err != nil {
			return 0, err
		}
	}
	c.notify()
	return c.opts.PollInterval, nil
}

func (c *Controller) heldKeys() []int {
	var held []int
	for _, key := range c.engine.Table().Keys() {
		if c.device.Held(key) {
			held = append(held, key)
		}
	}
	return held
}

// paintKey sets one LED from the key's binding and cached state
func (c *Controller) paintKey(key int) error {
	entry, ok := c.engine.Table().Lookup(key)
	if !ok {
		return c.device.ClearColor(key)
	}
	if c.pressed[key] {
		return c.device.SetColor(key, c.opts.Palette.Pressed)
	}

	value, cached := c.session.Value(entry.Command)
	color, show := c.opts.Palette.ColorFor(entry, value, cached)
	if !show {
		return c.device.ClearColor(key)
	}
	return c.device.SetColor(key, color)
}

func (c *Controller) clearAll() {
	for _, key := range c.device.Keys() {
		if err := c.device.ClearColor(key); err != nil {
			log.Debug().Err(err).Int("key", key).Msg("failed to clear key")
		}
	}
}

func (c *Controller) action(ev keypad.Event, res engine.Result, err error) {
	switch {
	case err == nil:
		if res.Sent.Code != "" {
			log.Debug().Stringer("event", ev).Str("sent", res.Sent.Frame()).Msg("key action")
		}
	case recoverable(err):
		log.Warn().Err(err).Stringer("event", ev).Msg("dropping key event")
	default:
		log.Error().Err(err).Stringer("event", ev).Msg("key action failed")
	}

	if c.opts.OnAction != nil {
		c.opts.OnAction(Action{Event: ev, Result: res, Err: err})
	}
}

func (c *Controller) notify() {
	if c.opts.OnUpdate == nil {
		return
	}
	c.opts.OnUpdate(Update{
		Values: c.session.Snapshot(),
		Stats:  c.session.Stats(),
		Held:   c.heldKeys(),
	})
}

func recoverable(err error) bool {
	return errors.Is(err, engine.ErrUnknownKey) || errors.Is(err, engine.ErrUnknownState)
}
