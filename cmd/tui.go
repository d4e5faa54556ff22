// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/controller"
	"github.com/git1k2/keybow2040-cat/pkg/keymap"
	"github.com/git1k2/keybow2040-cat/pkg/keypad"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Control the radio from an on-screen keypad",
	Long: `Run the controller with a virtual 4x4 keypad in the terminal.

The keypad rows map to the keyboard rows 1234 / qwer / asdf / zxcv. A terminal
cannot report key releases, so a key press latches the virtual key down and a
second press releases it; a key latched for longer than the hold threshold
repeats like a held hardware key.

Logs go to the log file only. Supports both serial and WebSocket connections.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// keyboardLayout maps keypad keys 0-15 to keyboard keys
const keyboardLayout = "1234qwerasdfzxcv"

const (
	gridColumns   = 4
	maxLogEntries = 100
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// logEntry is one line in the event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// tuiKeyMap holds the bubbles key bindings
type tuiKeyMap struct {
	Keys []key.Binding
	Help key.Binding
	Quit key.Binding
}

func newTUIKeyMap() tuiKeyMap {
	km := tuiKeyMap{
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
	for i, r := range keyboardLayout {
		km.Keys = append(km.Keys, key.NewBinding(
			key.WithKeys(string(r)),
			key.WithHelp(string(r), fmt.Sprintf("key %d", i)),
		))
	}
	return km
}

// ShortHelp implements help.KeyMap
func (k tuiKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys(keyboardLayout[:1]), key.WithHelp("1-v", "latch key")),
		k.Help,
		k.Quit,
	}
}

// FullHelp implements help.KeyMap
func (k tuiKeyMap) FullHelp() [][]key.Binding {
	rows := make([][]key.Binding, 0, len(k.Keys)/gridColumns+1)
	for i := 0; i < len(k.Keys); i += gridColumns {
		rows = append(rows, k.Keys[i:i+gridColumns])
	}
	return append(rows, []key.Binding{k.Help, k.Quit})
}

// keyIndex returns the keypad key for a keyboard key
func keyIndex(s string) (int, bool) {
	if len(s) != 1 {
		return 0, false
	}
	i := strings.IndexByte(keyboardLayout, s[0])
	return i, i >= 0
}

// tuiModel is the Bubble Tea model for the virtual keypad
type tuiModel struct {
	pad      *keypad.VirtualKeypad
	table    *keymap.Table
	registry *cat.Registry
	keys     tuiKeyMap
	help     help.Model
	connInfo string

	// Radio state from the controller
	values  map[string]string
	stats   cat.Statistics
	held    map[int]bool
	online  bool
	started time.Time

	eventLog []logEntry

	width    int
	height   int
	quitting bool
	err      error
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type tuiTickMsg time.Time

type tuiUpdateMsg controller.Update

type tuiActionMsg controller.Action

type tuiLEDMsg struct{}

type tuiDoneMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialTUIModel(pad *keypad.VirtualKeypad, table *keymap.Table, reg *cat.Registry, connInfo string) tuiModel {
	return tuiModel{
		pad:      pad,
		table:    table,
		registry: reg,
		keys:     newTUIKeyMap(),
		help:     help.New(),
		connInfo: connInfo,
		values:   make(map[string]string),
		held:     make(map[int]bool),
		eventLog: make([]logEntry, 0),
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m tuiModel) Init() tea.Cmd {
	return tuiTickCmd()
}

func tuiTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tuiTickMsg:
		return m, tuiTickCmd()

	case tuiUpdateMsg:
		if !m.online {
			m.online = true
			m.started = time.Now()
			m.addLogEntry("Radio identified", false)
		}
		m.values = msg.Values
		m.stats = msg.Stats
		m.held = make(map[int]bool, len(msg.Held))
		for _, k := range msg.Held {
			m.held[k] = true
		}

	case tuiActionMsg:
		m.logAction(controller.Action(msg))

	case tuiLEDMsg:
		// Repaint only

	case tuiDoneMsg:
		m.err = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Controller stopped: %v", msg.err), true)
		}
	}

	return m, nil
}

func (m tuiModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if i, ok := keyIndex(msg.String()); ok {
		down, err := m.pad.Toggle(i)
		if err != nil {
			m.addLogEntry(err.Error(), true)
		} else if !down {
			m.addLogEntry(fmt.Sprintf("Key %d released", i), false)
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("KEYBOW 2040 CAT"))
	s.WriteString(" ")
	status := m.connInfo
	if !m.online {
		status = warningStyle.Render("Waiting for radio...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s", status)))
	s.WriteString("\n\n")

	// Keypad next to the radio values
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderKeypad(),
		"  ",
		m.renderValues(statsLabelStyle, statsValueStyle, headerStyle, boxStyle),
	))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, headerStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.help.View(m.keys))
	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m tuiModel) renderKeypad() string {
	rows := make([]string, 0, len(keyboardLayout)/gridColumns)
	for r := 0; r < len(keyboardLayout); r += gridColumns {
		cells := make([]string, 0, gridColumns)
		for k := r; k < r+gridColumns; k++ {
			cells = append(cells, m.renderKey(k))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m tuiModel) renderKey(k int) string {
	color, lit := m.pad.Color(k)

	style := lipgloss.NewStyle().
		Width(8).
		Height(2).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Align(lipgloss.Center)

	if lit {
		fg := "15"
		if int(color.R)+int(color.G) > 0x1c0 {
			fg = "0"
		}
		style = style.
			Background(lipgloss.Color(color.Blend(keypad.Black, 0.2).Hex())).
			Foreground(lipgloss.Color(fg))
	}
	if m.pad.IsDown(k) {
		style = style.BorderForeground(lipgloss.Color("11"))
	}
	if m.held[k] {
		style = style.BorderStyle(lipgloss.DoubleBorder())
	}

	label := string(keyboardLayout[k])
	if e, ok := m.table.Lookup(k); ok {
		label = fmt.Sprintf("%s %s\n%s", label, e.Command, opSymbol(e))
	}
	return style.Render(label)
}

func opSymbol(e *keymap.Entry) string {
	switch e.Op {
	case keymap.Toggle:
		return "on/off"
	case keymap.StepUp:
		return "+"
	case keymap.StepDown:
		return "-"
	case keymap.SendPreset:
		return "=" + e.Preset
	}
	return ""
}

func (m tuiModel) renderValues(labelStyle, valueStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("RADIO"))
	s.WriteString("\n")

	for _, c := range m.registry.Commands() {
		if !c.Queryable() {
			continue
		}
		value, ok := m.values[c.Code()]
		rendered := headerStyle.Render("?")
		if ok {
			rendered = valueStyle.Render(cat.FormatValue(c, value))
		}
		s.WriteString(fmt.Sprintf("%-14s %s\n", c.Description(), rendered))
	}

	if m.online {
		s.WriteString(fmt.Sprintf("\n%s %s", labelStyle.Render("Uptime:"),
			valueStyle.Render(formatUptime(time.Since(m.started)))))
	}
	return boxStyle.Width(30).Render(s.String())
}

func (m tuiModel) renderStatisticsBar(labelStyle, valueStyle, boxStyle lipgloss.Style) string {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	mismatched := valueStyle.Render("0")
	if m.stats.RepliesMismatched > 0 {
		mismatched = errorStyle.Render(fmt.Sprintf("%d", m.stats.RepliesMismatched))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Requests:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Requests)),
		labelStyle.Render("Matched:"), valueStyle.Render(fmt.Sprintf("%.1f%%", m.stats.MatchPercent())),
		labelStyle.Render("Mismatched:"), mismatched,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f req/s", m.stats.RequestRate)),
	)
	return boxStyle.Width(max(m.width-4, 20)).Render(content)
}

func (m tuiModel) renderEventLog(labelStyle, warningStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := min(8, len(m.eventLog))
	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.eventLog[len(m.eventLog)-logHeight:] {
		icon := "i"
		style := warningStyle
		if entry.isError {
			icon = "x"
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(max(m.width-4, 20)).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *tuiModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

func (m *tuiModel) logAction(a controller.Action) {
	switch {
	case a.Err != nil:
		m.addLogEntry(fmt.Sprintf("Key %d %s: %v", a.Event.Key, a.Event.Kind, a.Err), true)
	case a.Result.Sent.Code != "":
		m.addLogEntry(fmt.Sprintf("Key %d %s: sent %s", a.Event.Key, a.Event.Kind, a.Result.Sent), false)
	}
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the TUI, so log to the file only
	if err := initLogging(); err != nil {
		return err
	}

	sess, conn, err := openSession()
	if err != nil {
		return err
	}
	defer conn.Close()

	pad := keypad.NewVirtual(keypad.WithHoldThreshold(settings.HoldThreshold()))

	m := initialTUIModel(pad, keymap.Default(sess.Registry()), sess.Registry(), conn.String())
	p := tea.NewProgram(m, tea.WithAltScreen())

	pad.OnChange(func() { p.Send(tuiLEDMsg{}) })

	ctrl, err := newController(sess, pad, controller.Options{
		OnUpdate: func(u controller.Update) { p.Send(tuiUpdateMsg(u)) },
		OnAction: func(a controller.Action) { p.Send(tuiActionMsg(a)) },
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		err := ctrl.Run(ctx)
		p.Send(tuiDoneMsg{err: err})
		done <- err
	}()

	_, runErr := p.Run()
	cancel()
	ctrlErr := <-done

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return ctrlErr
}
