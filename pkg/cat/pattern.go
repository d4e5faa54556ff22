// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned when a reply pattern cannot be compiled
var ErrInvalidPattern = errors.New("invalid reply pattern")

// position is one fixed-width slot of a reply frame. Literals have lo == hi.
type position struct {
	lo, hi byte
}

func (p position) accepts(b byte) bool {
	return b >= p.lo && b <= p.hi
}

// ReplyPattern matches the exact shape of a reply frame: a literal prefix,
// digit positions constrained to a range, and the ';' terminator. The
// notation is a tiny subset of regular expressions, e.g. "KS0[0-6][0-9];".
type ReplyPattern struct {
	source    string
	positions []position
	prefixLen int
}

// CompilePattern parses a reply pattern.
//
// Supported elements:
//   - a printable ASCII literal (anything but '[', ']' and ';')
//   - a digit class "[a-b]" or a single digit "[a]"
//   - a final ';' (required, and only at the end)
func CompilePattern(src string) (*ReplyPattern, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	if src[len(src)-1] != Terminator {
		return nil, fmt.Errorf("%w: %q must end with %q", ErrInvalidPattern, src, Terminator)
	}

	p := &ReplyPattern{source: src}
	literalRun := true

	for i := 0; i < len(src)-1; i++ {
		c := src[i]
		switch {
		case c == '[':
			end := strings.IndexByte(src[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated class at offset %d in %q", ErrInvalidPattern, i, src)
			}
			pos, err := parseClass(src[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w: %v in %q", ErrInvalidPattern, err, src)
			}
			p.positions = append(p.positions, pos)
			literalRun = false
			i += end

		case c == ']' || c == Terminator:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d in %q", ErrInvalidPattern, c, i, src)

		case c < 0x21 || c > 0x7E:
			return nil, fmt.Errorf("%w: non-printable byte 0x%02X in %q", ErrInvalidPattern, c, src)

		default:
			p.positions = append(p.positions, position{lo: c, hi: c})
			if literalRun {
				p.prefixLen++
			}
		}
	}

	if len(p.positions) == 0 {
		return nil, fmt.Errorf("%w: %q has no body", ErrInvalidPattern, src)
	}

	p.positions = append(p.positions, position{lo: Terminator, hi: Terminator})
	return p, nil
}

// MustCompilePattern is like CompilePattern but panics on error. Intended for
// compiled-in registries.
func MustCompilePattern(src string) *ReplyPattern {
	p, err := CompilePattern(src)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}
	return p
}

func parseClass(body string) (position, error) {
	switch len(body) {
	case 1:
		if !isDigit(body[0]) {
			return position{}, fmt.Errorf("class [%s] is not a digit", body)
		}
		return position{lo: body[0], hi: body[0]}, nil
	case 3:
		lo, dash, hi := body[0], body[1], body[2]
		if dash != '-' || !isDigit(lo) || !isDigit(hi) {
			return position{}, fmt.Errorf("class [%s] is not a digit range", body)
		}
		if lo > hi {
			return position{}, fmt.Errorf("class [%s] is reversed", body)
		}
		return position{lo: lo, hi: hi}, nil
	default:
		return position{}, fmt.Errorf("class [%s] is not supported", body)
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// String returns the pattern source
func (p *ReplyPattern) String() string {
	return p.source
}

// Len returns the width of a matching frame, terminator included
func (p *ReplyPattern) Len() int {
	return len(p.positions)
}

// Prefix returns the leading literal part of the pattern
func (p *ReplyPattern) Prefix() string {
	return p.source[:p.prefixLen]
}

// Match reports whether frame is exactly one reply of this shape
func (p *ReplyPattern) Match(frame []byte) bool {
	if len(frame) != len(p.positions) {
		return false
	}
	return p.matchAt(frame, 0)
}

// Find returns the first frame in data that matches the pattern. Replies to
// batched queries arrive concatenated, so the search is over the whole
// buffer rather than anchored at the start.
func (p *ReplyPattern) Find(data []byte) ([]byte, bool) {
	n := len(p.positions)
	for i := 0; i+n <= len(data); i++ {
		if p.matchAt(data, i) {
			return data[i : i+n], true
		}
	}
	return nil, false
}

func (p *ReplyPattern) matchAt(data []byte, off int) bool {
	for j, pos := range p.positions {
		if !pos.accepts(data[off+j]) {
			return false
		}
	}
	return true
}
