// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the FTdx10's default CAT rate
const DefaultBaudRate = 38400

// Port is the subset of serial.Port the transport uses
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens real serial ports
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// SerialTransport is a CAT link over a local serial port
type SerialTransport struct {
	port Port
	path string
	baud int
}

// OpenSerial opens path at baud, 8N1
func OpenSerial(path string, baud int, readTimeout time.Duration) (*SerialTransport, error) {
	return OpenSerialWith(DefaultPortFactory, path, baud, readTimeout)
}

// OpenSerialWith is OpenSerial with a custom port factory
func OpenSerialWith(factory PortFactory, path string, baud int, readTimeout time.Duration) (*SerialTransport, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := factory(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	return &SerialTransport{port: port, path: path, baud: baud}, nil
}

// Write sends all of data
func (s *SerialTransport) Write(data []byte) error {
	for len(data) > 0 {
		n, err := s.port.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Read collects bytes until a read times out with nothing
func (s *SerialTransport) Read() ([]byte, error) {
	out := make([]byte, 0, 64)
	buf := make([]byte, 256)
	for len(out) < maxReadSize {
		n, err := s.port.Read(buf)
		if err != nil {
			return out, err
		}
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

// Close closes the port
func (s *SerialTransport) Close() error {
	return s.port.Close()
}

func (s *SerialTransport) String() string {
	return fmt.Sprintf("Serial: %s @ %d baud", s.path, s.baud)
}
