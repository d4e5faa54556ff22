// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/syncutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketTransport is a CAT link over a websocket serial bridge.
//
// Gorilla connections are unusable after a read deadline expires, so a
// background goroutine owns ReadMessage and Read waits on its channel.
type WebSocketTransport struct {
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{}
	url      string
	err      error
	timeout  time.Duration
	wg       sync.WaitGroup
	once     sync.Once
	mu       syncutil.Mutex // protects err and conn writes
}

// OpenWebSocket dials a bridge with optional HTTP Basic auth
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool, readTimeout time.Duration) (*WebSocketTransport, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify, //nolint:gosec // opt-in for self-signed bridges
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	w := &WebSocketTransport{
		conn:     conn,
		messages: make(chan []byte, 16),
		done:     make(chan struct{}),
		url:      wsURL,
		timeout:  readTimeout,
	}
	w.wg.Add(1)
	go w.readerLoop()

	return w, nil
}

func (w *WebSocketTransport) readerLoop() {
	defer w.wg.Done()
	defer close(w.messages)

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				log.Warn().Err(err).Str("url", w.url).Msg("websocket read failed")
			}
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			return
		}

		// Bridges send either frame type; CAT is plain ASCII
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}

		select {
		case w.messages <- data:
		case <-w.done:
			return
		}
	}
}

// Write sends data as one binary message
func (w *WebSocketTransport) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, w.err)
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Read collects messages until none arrives for the read timeout
func (w *WebSocketTransport) Read() ([]byte, error) {
	out := make([]byte, 0, 64)
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for len(out) < maxReadSize {
		select {
		case data, ok := <-w.messages:
			if !ok {
				if len(out) > 0 {
					return out, nil
				}
				return out, ErrConnectionClosed
			}
			out = append(out, data...)
			timer.Reset(w.timeout)
		case <-timer.C:
			return out, nil
		}
	}
	return out, nil
}

// Close closes the connection and waits for the reader to stop
func (w *WebSocketTransport) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.mu.Unlock()
		err = w.conn.Close()
		w.wg.Wait()
	})
	return err
}

func (w *WebSocketTransport) String() string {
	return fmt.Sprintf("WebSocket: %s", w.url)
}
