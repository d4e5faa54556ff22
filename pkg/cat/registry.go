// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import "fmt"

// Registry is the static table of supported commands. It is immutable after
// construction and safe to share.
type Registry struct {
	commands []*Command
	byCode   map[string]*Command
}

// NewRegistry validates the definitions and builds a registry. Codes must be
// unique; commands with state must carry a reply pattern.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		commands: make([]*Command, 0, len(defs)),
		byCode:   make(map[string]*Command, len(defs)),
	}

	for _, def := range defs {
		cmd, err := newCommand(def)
		if err != nil {
			return nil, fmt.Errorf("invalid command definition: %w", err)
		}
		if _, dup := r.byCode[cmd.code]; dup {
			return nil, fmt.Errorf("duplicate command code %s", cmd.code)
		}
		r.commands = append(r.commands, cmd)
		r.byCode[cmd.code] = cmd
	}

	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error
func MustNewRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}
	return r
}

// Lookup returns the command for code
func (r *Registry) Lookup(code string) (*Command, bool) {
	cmd, ok := r.byCode[code]
	return cmd, ok
}

// Commands returns all commands in definition order
func (r *Registry) Commands() []*Command {
	out := make([]*Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Queryable returns the codes of every command that takes part in polling,
// in definition order
func (r *Registry) Queryable() []string {
	codes := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Queryable() {
			codes = append(codes, cmd.code)
		}
	}
	return codes
}

// Identify returns the registry command whose reply pattern matches frame
// exactly, if any
func (r *Registry) Identify(frame []byte) (*Command, bool) {
	for _, cmd := range r.commands {
		if cmd.reply != nil && cmd.reply.Match(frame) {
			return cmd, true
		}
	}
	return nil, false
}

// FTdx10Definitions is the command set exercised by the default key map
func FTdx10Definitions() []Definition {
	return []Definition{
		BooleanCommand("BI", "Break-in", "1", "0", 0, "BI[0-9];"),
		ActionCommand("BS", "Band select"),
		BooleanCommand("CO02", "APF", "0001", "0000", 4, "CO02000[0-1];"),
		BooleanCommand("KR", "Keyer", "1", "0", 0, "KR[0-9];"),
		RangeCommand("KS", "Keyer speed", 4, 60, 3, "KS0[0-6][0-9];"),
		RangeCommand("PC", "Power control", 5, 100, 3, "PC[0-1][0-9][0-9];"),
		ActionCommand("ZI", "Zero in"),
	}
}

// FTdx10 returns the compiled-in registry for the Yaesu FTdx10
func FTdx10() *Registry {
	return MustNewRegistry(FTdx10Definitions()...)
}
