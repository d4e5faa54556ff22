// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package keypad

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaudRate is the keypad firmware's line speed
const DefaultBaudRate = 115200

const portReadTimeout = 100 * time.Millisecond

// Port is the subset of serial.Port the keypad uses
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
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// SerialKeypad talks to a Keybow 2040 running the line firmware. The device
// sends "P03\n" when key 3 goes down and "R03\n" when it comes up; the host
// sets an LED with "L03FF0000\n".
type SerialKeypad struct {
	port    Port
	tracker *Tracker
	lines   chan Event
	done    chan struct{}
	path    string
	keys    int
	wg      sync.WaitGroup
	once    sync.Once
}

// OpenSerial opens the keypad on path
func OpenSerial(path string, baud int, opts ...Option) (*SerialKeypad, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := o.portFactory(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("keypad %s: %w", path, err)
	}
	if err := port.SetReadTimeout(portReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("keypad %s: failed to set read timeout: %w", path, err)
	}

	k := &SerialKeypad{
		port:    port,
		tracker: NewTracker(o.clock, o.threshold),
		lines:   make(chan Event, 64),
		done:    make(chan struct{}),
		path:    path,
		keys:    o.keys,
	}

	k.wg.Add(1)
	go k.readerLoop()

	log.Info().Str("port", path).Int("baud", baud).Msg("keypad connected")
	return k, nil
}

// readerLoop reads lines from the device and hands key transitions to Poll
func (k *SerialKeypad) readerLoop() {
	defer k.wg.Done()

	var lineBuf []byte
	buf := make([]byte, 256)
	for {
		select {
		case <-k.done:
			return
		default:
		}

		n, err := k.port.Read(buf)
		if err != nil {
			select {
			case <-k.done:
			default:
				log.Error().Err(err).Str("port", k.path).Msg("keypad read failed")
			}
			return
		}

		for i := range n {
			if buf[i] != '\n' {
				lineBuf = append(lineBuf, buf[i])
				continue
			}
			line := string(lineBuf)
			lineBuf = lineBuf[:0]

			ev, ok := parseLine(line, k.keys)
			if !ok {
				if strings.TrimSpace(line) != "" {
					log.Debug().Str("line", line).Msg("ignoring keypad line")
				}
				continue
			}
			select {
			case k.lines <- ev:
			case <-k.done:
				return
			}
		}
	}
}

// parseLine decodes "P03" / "R03" into a Press or Release event
func parseLine(line string, keys int) (Event, bool) {
	line = strings.TrimSpace(line)
	if len(line) != 3 {
		return Event{}, false
	}

	var kind EventKind
	switch line[0] {
	case 'P':
		kind = Press
	case 'R':
		kind = Release
	default:
		return Event{}, false
	}

	key, err := strconv.Atoi(line[1:])
	if err != nil || key < 0 || key >= keys {
		return Event{}, false
	}
	return Event{Key: key, Kind: kind}, true
}

// Keys implements Device
func (k *SerialKeypad) Keys() []int {
	return keyRange(k.keys)
}

// Poll implements Device
func (k *SerialKeypad) Poll() []Event {
	var events []Event
	for {
		select {
		case raw := <-k.lines:
			var ev Event
			var ok bool
			if raw.Kind == Press {
				ev, ok = k.tracker.Down(raw.Key)
			} else {
				ev, ok = k.tracker.Up(raw.Key)
			}
			if ok {
				events = append(events, ev)
			}
		default:
			return append(events, k.tracker.Tick()...)
		}
	}
}

// Held implements Device
func (k *SerialKeypad) Held(key int) bool {
	return k.tracker.Held(key)
}

// SetColor implements Device
func (k *SerialKeypad) SetColor(key int, c Color) error {
	if key < 0 || key >= k.keys {
		return fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	line := fmt.Sprintf("L%02d%02X%02X%02X\n", key, c.R, c.G, c.B)
	if _, err := k.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("keypad %s: set color: %w", k.path, err)
	}
	return nil
}

// ClearColor implements Device
func (k *SerialKeypad) ClearColor(key int) error {
	return k.SetColor(key, Black)
}

// Close implements Device
func (k *SerialKeypad) Close() error {
	var err error
	k.once.Do(func() {
		close(k.done)
		if cerr := k.port.Close(); cerr != nil {
			err = fmt.Errorf("keypad %s: close: %w", k.path, cerr)
		}
		k.wg.Wait()
	})
	return err
}
