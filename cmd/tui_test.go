// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/controller"
	"github.com/git1k2/keybow2040-cat/pkg/engine"
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{90 * time.Second, "1 minute and 30 seconds"},
		{2 * time.Hour, "2 hours"},
		{26*time.Hour + 61*time.Second, "1 day, 2 hours, 1 minute, and 1 second"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.d))
		})
	}
}

func TestKeyIndex(t *testing.T) {
	i, ok := keyIndex("1")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = keyIndex("r")
	assert.True(t, ok)
	assert.Equal(t, 7, i)

	i, ok = keyIndex("v")
	assert.True(t, ok)
	assert.Equal(t, 15, i)

	_, ok = keyIndex("p")
	assert.False(t, ok)
	_, ok = keyIndex("ctrl+c")
	assert.False(t, ok)
}

func newTestTUIModel() (tuiModel, *keypad.VirtualKeypad) {
	reg := cat.FTdx10()
	pad := keypad.NewVirtual()
	return initialTUIModel(pad, keymap.Default(reg), reg, "test"), pad
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestTUILatchesVirtualKeys(t *testing.T) {
	m, pad := newTestTUIModel()

	next, _ := m.Update(runeKey('a'))
	m = next.(tuiModel)
	assert.True(t, pad.IsDown(8))

	events := pad.Poll()
	require.Len(t, events, 1)
	assert.Equal(t, keypad.Event{Key: 8, Kind: keypad.Press}, events[0])

	next, _ = m.Update(runeKey('a'))
	m = next.(tuiModel)
	assert.False(t, pad.IsDown(8))
	require.NotEmpty(t, m.eventLog)
	assert.Contains(t, m.eventLog[len(m.eventLog)-1].message, "Key 8 released")
}

func TestTUIQuit(t *testing.T) {
	m, _ := newTestTUIModel()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, next.(tuiModel).quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTUIUpdateAndActions(t *testing.T) {
	m, _ := newTestTUIModel()

	next, _ := m.Update(tuiUpdateMsg(controller.Update{
		Values: map[string]string{"KS": "045"},
		Held:   []int{9},
	}))
	m = next.(tuiModel)
	assert.True(t, m.online)
	assert.True(t, m.held[9])
	assert.Equal(t, "045", m.values["KS"])

	next, _ = m.Update(tuiActionMsg(controller.Action{
		Event:  keypad.Event{Key: 9, Kind: keypad.Press},
		Result: engine.Result{Key: 9, Op: keymap.StepUp, Sent: cat.Set("KS", "046")},
	}))
	m = next.(tuiModel)
	assert.Contains(t, m.eventLog[len(m.eventLog)-1].message, "KS046;")

	next, _ = m.Update(tuiActionMsg(controller.Action{
		Event: keypad.Event{Key: 1, Kind: keypad.Press},
		Err:   errors.New("boom"),
	}))
	m = next.(tuiModel)
	last := m.eventLog[len(m.eventLog)-1]
	assert.True(t, last.isError)
	assert.Contains(t, last.message, "boom")

	view := m.View()
	assert.Contains(t, view, "KEYBOW 2040 CAT")
	assert.Contains(t, view, "Uptime:")
}

func TestTUIEventLogIsBounded(t *testing.T) {
	m, _ := newTestTUIModel()
	for i := 0; i < maxLogEntries+10; i++ {
		m.addLogEntry("entry", false)
	}
	assert.Len(t, m.eventLog, maxLogEntries)
}

func TestRenderKeyTable(t *testing.T) {
	reg := cat.FTdx10()
	out := renderKeyTable(keymap.Default(reg), engine.DefaultPalette())

	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "preset 01")
	assert.Contains(t, out, "step-up")
	assert.Contains(t, out, "Pressed:")
}
