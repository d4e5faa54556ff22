// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"fmt"
	"strconv"
)

// ValueKind identifies the shape of the state a command carries
type ValueKind int

const (
	// KindNone commands are pure actions or presets and cannot be queried
	KindNone ValueKind = iota
	// KindBoolean commands switch between two literal encodings
	KindBoolean
	// KindRange commands carry a bounded integer
	KindRange
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBoolean:
		return "boolean"
	case KindRange:
		return "range"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is the tagged value domain of a command: Boolean or Range. A command
// without state has a nil Value.
type Value interface {
	Kind() ValueKind
}

// Boolean holds the on/off literal encodings of a switch
type Boolean struct {
	On  string
	Off string
}

// Kind implements Value
func (Boolean) Kind() ValueKind { return KindBoolean }

// Range holds the inclusive bounds of a numeric setting
type Range struct {
	Min int
	Max int
}

// Kind implements Value
func (Range) Kind() ValueKind { return KindRange }

// Contains reports whether v is within the bounds
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp limits v to the bounds
func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Definition is the raw, unvalidated description of a command as written in
// a registry table. NewRegistry turns definitions into Commands.
type Definition struct {
	Code        string
	Description string
	Value       Value
	Width       int    // zero-pad width for values, 0 = no padding
	Reply       string // reply pattern source, empty for KindNone
}

// BooleanCommand defines a switch command
func BooleanCommand(code, description, on, off string, width int, reply string) Definition {
	return Definition{
		Code:        code,
		Description: description,
		Value:       Boolean{On: on, Off: off},
		Width:       width,
		Reply:       reply,
	}
}

// RangeCommand defines a bounded numeric command
func RangeCommand(code, description string, lo, hi, width int, reply string) Definition {
	return Definition{
		Code:        code,
		Description: description,
		Value:       Range{Min: lo, Max: hi},
		Width:       width,
		Reply:       reply,
	}
}

// ActionCommand defines a command without queryable state
func ActionCommand(code, description string) Definition {
	return Definition{Code: code, Description: description}
}

// Command is a validated, immutable command specification
type Command struct {
	code        string
	description string
	value       Value
	width       int
	reply       *ReplyPattern
}

// Code returns the command mnemonic
func (c *Command) Code() string {
	return c.code
}

// Description returns the human label
func (c *Command) Description() string {
	return c.description
}

// Kind returns the value kind
func (c *Command) Kind() ValueKind {
	if c.value == nil {
		return KindNone
	}
	return c.value.Kind()
}

// Boolean returns the switch encodings if this is a boolean command
func (c *Command) Boolean() (Boolean, bool) {
	b, ok := c.value.(Boolean)
	return b, ok
}

// Range returns the bounds if this is a range command
func (c *Command) Range() (Range, bool) {
	r, ok := c.value.(Range)
	return r, ok
}

// Width returns the zero-pad width for values
func (c *Command) Width() int {
	return c.width
}

// Reply returns the reply pattern, nil for KindNone
func (c *Command) Reply() *ReplyPattern {
	return c.reply
}

// Queryable reports whether the command takes part in state polling
func (c *Command) Queryable() bool {
	return c.Kind() != KindNone && c.reply != nil
}

// Pad zero-pads a numeric literal to the command width. Non-numeric literals
// and commands without a width are returned unchanged.
func (c *Command) Pad(literal string) string {
	if c.width == 0 {
		return literal
	}
	v, err := strconv.Atoi(literal)
	if err != nil {
		return literal
	}
	return c.FormatInt(v)
}

// FormatInt encodes v zero-padded to the command width
func (c *Command) FormatInt(v int) string {
	return fmt.Sprintf("%0*d", c.width, v)
}

// ParseReply searches data for this command's reply and returns the value
// part (the frame minus the code and the terminator).
func (c *Command) ParseReply(data []byte) (string, bool) {
	if c.reply == nil {
		return "", false
	}
	frame, ok := c.reply.Find(data)
	if !ok {
		return "", false
	}
	return string(frame[len(c.code) : len(frame)-1]), true
}

// Query returns the query invocation for this command
func (c *Command) Query() Invocation {
	return Invocation{Code: c.code}
}

// Set returns an invocation carrying value
func (c *Command) Set(value string) Invocation {
	return Invocation{Code: c.code, Value: value}
}

func newCommand(def Definition) (*Command, error) {
	if err := validateCode(def.Code); err != nil {
		return nil, err
	}
	if def.Width < 0 {
		return nil, fmt.Errorf("%s: negative width %d", def.Code, def.Width)
	}

	cmd := &Command{
		code:        def.Code,
		description: def.Description,
		value:       def.Value,
		width:       def.Width,
	}

	switch v := def.Value.(type) {
	case nil:
		if def.Reply != "" {
			return nil, fmt.Errorf("%s: action command cannot have a reply pattern", def.Code)
		}
		return cmd, nil

	case Boolean:
		if v.On == "" || v.Off == "" {
			return nil, fmt.Errorf("%s: boolean command needs both on and off encodings", def.Code)
		}
		if cmd.Pad(v.On) == cmd.Pad(v.Off) {
			return nil, fmt.Errorf("%s: on and off encodings are identical (%q)", def.Code, v.On)
		}

	case Range:
		if v.Min > v.Max {
			return nil, fmt.Errorf("%s: range min %d exceeds max %d", def.Code, v.Min, v.Max)
		}
		if v.Min < 0 {
			return nil, fmt.Errorf("%s: negative range min %d", def.Code, v.Min)
		}
		if def.Width == 0 {
			return nil, fmt.Errorf("%s: range command needs a width", def.Code)
		}
		if len(strconv.Itoa(v.Max)) > def.Width {
			return nil, fmt.Errorf("%s: max %d does not fit width %d", def.Code, v.Max, def.Width)
		}

	default:
		return nil, fmt.Errorf("%s: unsupported value kind %T", def.Code, def.Value)
	}

	if def.Reply == "" {
		return nil, fmt.Errorf("%s: %s command needs a reply pattern", def.Code, cmd.Kind())
	}
	reply, err := CompilePattern(def.Reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Code, err)
	}
	if len(reply.Prefix()) < len(def.Code) || reply.Prefix()[:len(def.Code)] != def.Code {
		return nil, fmt.Errorf("%s: reply pattern %q does not start with the command code", def.Code, def.Reply)
	}
	cmd.reply = reply

	return cmd, nil
}

func validateCode(code string) error {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return fmt.Errorf("command code %q must be %d-%d characters", code, MinCodeLength, MaxCodeLength)
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z') && !isDigit(c) {
			return fmt.Errorf("command code %q contains %q", code, c)
		}
	}
	return nil
}
