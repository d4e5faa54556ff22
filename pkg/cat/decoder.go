// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"fmt"
	"time"
)

// Frame is one ';'-terminated CAT frame, terminator included
type Frame struct {
	data      []byte
	timestamp time.Time
}

// NewFrame wraps raw frame bytes
func NewFrame(data []byte) *Frame {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Frame{data: buf, timestamp: time.Now()}
}

// Bytes returns the raw frame
func (f *Frame) Bytes() []byte {
	return f.data
}

func (f *Frame) String() string {
	return string(f.data)
}

// Timestamp returns the decode time
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Mnemonic returns the two-letter command family of the frame
func (f *Frame) Mnemonic() string {
	if len(f.data) < MinCodeLength {
		return ""
	}
	return string(f.data[:MinCodeLength])
}

// Decoder splits a byte stream into frames
type Decoder struct {
	buffer []byte
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{buffer: make([]byte, 0, MaxFrameSize)}
}

// Reset drops any partial frame
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
}

// Pending returns the bytes of the partial frame seen so far
func (d *Decoder) Pending() []byte {
	return d.buffer
}

// DecodeByte feeds one byte to the decoder.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns an error if the byte cannot be part of a frame; the partial frame
// is dropped and decoding resumes with the next byte.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch {
	case b == '\r' || b == '\n':
		// Line endings from terminal bridges between frames
		if len(d.buffer) == 0 {
			return nil, nil
		}
		d.Reset()
		return nil, fmt.Errorf("line break inside frame")

	case b == Terminator:
		if len(d.buffer) < MinCodeLength {
			n := len(d.buffer)
			d.Reset()
			return nil, fmt.Errorf("runt frame: %d bytes before terminator", n)
		}
		d.buffer = append(d.buffer, b)
		frame := NewFrame(d.buffer)
		d.Reset()
		return frame, nil

	case b < 0x20 || b > 0x7E:
		d.Reset()
		return nil, fmt.Errorf("non-printable byte 0x%02X", b)
	}

	if len(d.buffer) >= MaxFrameSize-1 {
		d.Reset()
		return nil, fmt.Errorf("frame exceeds %d bytes", MaxFrameSize)
	}

	d.buffer = append(d.buffer, b)
	return nil, nil
}

// Split decodes a complete buffer, such as one read result, into frames.
// Decode errors are returned alongside whatever frames were recovered; a
// trailing partial frame is left in the decoder.
func (d *Decoder) Split(data []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range data {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errs
}
