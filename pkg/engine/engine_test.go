// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package engine

import (
	"errors"
	"testing"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fakeRadio records sends and serves a plain map as the cache
type fakeRadio struct {
	cache     map[string]string
	sent      []string
	refreshed []string
	sendErr   error
}

func newFakeRadio(cache map[string]string) *fakeRadio {
	if cache == nil {
		cache = make(map[string]string)
	}
	return &fakeRadio{cache: cache}
}

func (f *fakeRadio) Send(invs ...cat.Invocation) ([]byte, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	data := cat.MustEncode(invs...)
	f.sent = append(f.sent, string(data))
	return []byte{}, nil
}

func (f *fakeRadio) Refresh(codes ...string) error {
	f.refreshed = append(f.refreshed, codes...)
	return nil
}

func (f *fakeRadio) Store(code, value string) {
	f.cache[code] = value
}

func (f *fakeRadio) Value(code string) (string, bool) {
	v, ok := f.cache[code]
	return v, ok
}

func newTestEngine(cache map[string]string, opts ...Option) (*Engine, *fakeRadio) {
	radio := newFakeRadio(cache)
	return New(radio, keymap.Default(cat.FTdx10()), opts...), radio
}

func press(key int) keypad.Event {
	return keypad.Event{Key: key, Kind: keypad.Press}
}

// ============================================================
// NextValue
// ============================================================

func TestNextValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cur  int
		dir  int
		held bool
		want int
	}{
		{name: "press up", cur: 20, dir: 1, want: 21},
		{name: "press down", cur: 20, dir: -1, want: 19},
		{name: "press up at max", cur: 60, dir: 1, want: 60},
		{name: "press down at min", cur: 4, dir: -1, want: 4},
		{name: "held snaps up", cur: 42, dir: 1, held: true, want: 50},
		{name: "held multiple up", cur: 40, dir: 1, held: true, want: 50},
		{name: "held near max", cur: 53, dir: 1, held: true, want: 60},
		{name: "held exactly ten from max", cur: 50, dir: 1, held: true, want: 60},
		{name: "held snaps down", cur: 37, dir: -1, held: true, want: 30},
		{name: "held multiple down", cur: 30, dir: -1, held: true, want: 20},
		{name: "held near min", cur: 12, dir: -1, held: true, want: 4},
		{name: "held at max", cur: 60, dir: 1, held: true, want: 60},
		{name: "held at min", cur: 4, dir: -1, held: true, want: 4},
		{name: "out of range clamps", cur: 75, dir: -1, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NextValue(tt.cur, 4, 60, tt.dir, tt.held))
		})
	}
}

func TestNextValue_Properties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(0, 50).Draw(t, "lo")
		hi := rapid.IntRange(lo, 200).Draw(t, "hi")
		cur := rapid.IntRange(lo, hi).Draw(t, "cur")
		dir := rapid.SampledFrom([]int{-1, 1}).Draw(t, "dir")
		held := rapid.Bool().Draw(t, "held")

		next := NextValue(cur, lo, hi, dir, held)
		if next < lo || next > hi {
			t.Fatalf("NextValue(%d) = %d outside [%d, %d]", cur, next, lo, hi)
		}
		if dir > 0 && next < cur || dir < 0 && next > cur {
			t.Fatalf("NextValue(%d, dir %d) = %d moved backwards", cur, dir, next)
		}

		// Repeated steps always reach the bound
		bound := hi
		if dir < 0 {
			bound = lo
		}
		v := cur
		for range hi - lo + 1 {
			v = NextValue(v, lo, hi, dir, held)
		}
		if v != bound {
			t.Fatalf("stepping from %d never reached %d, stuck at %d", cur, bound, v)
		}
	})
}

// ============================================================
// Toggle
// ============================================================

func TestToggle_FlipsAndStores(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KR": "1", "CO02": "0000"})

	res, err := e.Handle(press(1))
	require.NoError(t, err)
	assert.Equal(t, "KR0;", res.Sent.Frame())
	assert.Equal(t, "0", radio.cache["KR"])

	_, err = e.Handle(press(4))
	require.NoError(t, err)
	assert.Equal(t, "0001", radio.cache["CO02"])

	assert.Equal(t, []string{"KR0;", "CO020001;"}, radio.sent)
}

func TestToggle_TwiceRestores(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"BI": "0"})

	_, err := e.Handle(press(5))
	require.NoError(t, err)
	_, err = e.Handle(press(5))
	require.NoError(t, err)

	assert.Equal(t, "0", radio.cache["BI"])
	assert.Equal(t, []string{"BI1;", "BI0;"}, radio.sent)
}

func TestToggle_UnknownState(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KR": "7"})

	_, err := e.Handle(press(1))
	require.ErrorIs(t, err, ErrUnknownState)

	_, err = e.Handle(press(5))
	require.ErrorIs(t, err, ErrUnknownState)

	assert.Empty(t, radio.sent)
	assert.Equal(t, "7", radio.cache["KR"])
}

func TestToggle_Verify(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KR": "0"}, WithToggleVerify())
	_, err := e.Handle(press(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"KR"}, radio.refreshed)
}

// ============================================================
// Step
// ============================================================

func TestStep_PressAndClamp(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KS": "060", "PC": "005"})

	res, err := e.Handle(press(9))
	require.NoError(t, err)
	assert.Equal(t, "KS060;", res.Sent.Frame(), "bound is re-sent")

	_, err = e.Handle(press(8))
	require.NoError(t, err)
	assert.Equal(t, "059", radio.cache["KS"])

	_, err = e.Handle(press(12))
	require.NoError(t, err)
	assert.Equal(t, "005", radio.cache["PC"])

	assert.Equal(t, []string{"KS060;", "KS059;", "PC005;"}, radio.sent)
}

func TestStep_HeldRepeat(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KS": "042"})

	_, err := e.Handle(keypad.Event{Key: 9, Kind: keypad.Hold})
	require.NoError(t, err)
	assert.Empty(t, radio.sent, "hold itself sends nothing")

	for range 3 {
		_, err = e.Repeat(9)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"KS050;", "KS060;", "KS060;"}, radio.sent)
	assert.Equal(t, "060", radio.cache["KS"])
}

func TestStep_UnknownState(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"PC": "abc"})

	_, err := e.Handle(press(9))
	require.ErrorIs(t, err, ErrUnknownState)
	_, err = e.Handle(press(13))
	require.ErrorIs(t, err, ErrUnknownState)
	assert.Empty(t, radio.sent)
}

func TestStep_SendFailure(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KS": "020"})
	boom := errors.New("write failed")
	radio.sendErr = boom

	_, err := e.Handle(press(9))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "020", radio.cache["KS"])
}

// ============================================================
// Preset, release, unknown keys
// ============================================================

func TestPreset_NoCacheChange(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KS": "020"})

	res, err := e.Handle(press(11))
	require.NoError(t, err)
	assert.Equal(t, "BS05;", res.Sent.Frame())
	assert.Equal(t, map[string]string{"KS": "020"}, radio.cache)

	_, err = e.Handle(press(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"BS05;", "ZI0;"}, radio.sent)
}

func TestPreset_NotRepeated(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(nil)
	_, err := e.Repeat(15)
	require.NoError(t, err)
	assert.Empty(t, radio.sent)
}

func TestRelease_SendsNothing(t *testing.T) {
	t.Parallel()

	e, radio := newTestEngine(map[string]string{"KS": "020"})
	res, err := e.Handle(keypad.Event{Key: 9, Kind: keypad.Release})
	require.NoError(t, err)
	assert.Equal(t, cat.Invocation{}, res.Sent)
	assert.Empty(t, radio.sent)
}

func TestUnknownKey(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(nil)

	_, err := e.Handle(press(2))
	require.ErrorIs(t, err, ErrUnknownKey)
	_, err = e.Repeat(14)
	require.ErrorIs(t, err, ErrUnknownKey)
}

// ============================================================
// Palette
// ============================================================

func TestPalette_ColorFor(t *testing.T) {
	t.Parallel()

	table := keymap.Default(cat.FTdx10())
	p := DefaultPalette()
	entry := func(key int) *keymap.Entry {
		e, ok := table.Lookup(key)
		require.True(t, ok)
		return e
	}

	c, ok := p.ColorFor(entry(4), "0001", true)
	assert.True(t, ok)
	assert.Equal(t, "#ff0000", c.Hex())

	c, ok = p.ColorFor(entry(4), "0000", true)
	assert.True(t, ok)
	assert.Equal(t, "#00ff00", c.Hex())

	_, ok = p.ColorFor(entry(4), "", false)
	assert.False(t, ok)
	_, ok = p.ColorFor(entry(1), "5", true)
	assert.False(t, ok)

	c, ok = p.ColorFor(entry(9), "", false)
	assert.True(t, ok)
	assert.Equal(t, "#0000ff", c.Hex())

	c, ok = p.ColorFor(entry(15), "", false)
	assert.True(t, ok)
	assert.Equal(t, "#003232", c.Hex())

	assert.Equal(t, "#ffff00", p.Pressed.Hex())
}
