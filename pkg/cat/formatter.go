// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"fmt"
	"strconv"
)

// FormatFrame formats a frame into a human-readable line
func FormatFrame(f *Frame, reg *Registry) string {
	timestamp := f.timestamp.Format("15:04:05.000")

	if reg != nil {
		if string(f.data) == IdentityReply {
			return fmt.Sprintf("[%s] %-4s Identification = %s\n", timestamp, IdentityCode, f.data[len(IdentityCode):len(f.data)-1])
		}
		if cmd, ok := reg.Identify(f.data); ok {
			value := string(f.data[len(cmd.code) : len(f.data)-1])
			return fmt.Sprintf("[%s] %-4s %s = %s\n", timestamp, cmd.code, cmd.description, FormatValue(cmd, value))
		}
	}

	return fmt.Sprintf("[%s] %-4s %s (unrecognized)\n", timestamp, f.Mnemonic(), f.data)
}

// FormatValue renders a cached value for display: ON/OFF for switches, the
// plain number for ranges
func FormatValue(cmd *Command, value string) string {
	switch v := cmd.value.(type) {
	case Boolean:
		switch value {
		case cmd.Pad(v.On):
			return "ON"
		case cmd.Pad(v.Off):
			return "OFF"
		}
	case Range:
		if n, err := strconv.Atoi(value); err == nil {
			return strconv.Itoa(n)
		}
	}
	return value
}
