// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package cat implements the subset of the Yaesu CAT protocol used to drive a
// transceiver from a keypad.
//
// CAT is an ASCII command/response protocol. Every frame is a 2-5 character
// command code, an optional zero-padded numeric value and a ';' terminator.
// A frame without a value is a query; the radio answers it with the same code
// followed by the current value. Several frames may be written in one go.
//
// This package holds the command registry, reply pattern matching, frame
// encoding, a streaming frame decoder and a human-readable formatter.
package cat

// Framing
const (
	Terminator = ';'

	MinCodeLength = 2
	MaxCodeLength = 5

	// MaxFrameSize bounds a single frame in the decoder. The longest reply in
	// the FTdx10 command set (information/memory reads) is well under this.
	MaxFrameSize = 64
)

// Identification handshake
const (
	IdentityCode  = "ID"
	IdentityReply = "ID0761;" // FTdx10
)

// Default link settings for the FTdx10 CAT port
const (
	DefaultBaudRate    = 38400
	DefaultReadTimeout = 50 // milliseconds
)
