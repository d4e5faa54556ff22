// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link provides the byte transports that carry CAT traffic: a local
// serial port or a websocket serial bridge.
package link

import (
	"errors"
	"fmt"
	"time"
)

// DefaultReadTimeout bounds how long Read waits for the radio to go quiet
const DefaultReadTimeout = 50 * time.Millisecond

// maxReadSize caps one Read result
const maxReadSize = 4096

// ErrConnectionClosed is returned when reading from a closed connection
var ErrConnectionClosed = errors.New("connection closed")

// Transport is a CAT byte link. Read returns whatever arrived before the
// line went quiet for the read timeout; an empty slice means nothing did.
type Transport interface {
	Write(data []byte) error
	Read() ([]byte, error)
	Close() error
	String() string
}

// Options selects and configures a transport
type Options struct {
	Port        string
	Baud        int
	URL         string
	Username    string
	Password    string
	NoSSLVerify bool
	ReadTimeout time.Duration
}

// Open opens a websocket transport when URL is set, otherwise a serial one
func Open(opts Options) (Transport, error) {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	if opts.URL != "" {
		t, err := OpenWebSocket(opts.URL, opts.Username, opts.Password, opts.NoSSLVerify, opts.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	if opts.Port != "" {
		t, err := OpenSerial(opts.Port, opts.Baud, opts.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("either a serial port or a websocket URL must be specified")
}
