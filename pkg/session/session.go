// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session owns the CAT link to the radio and the cache of last-known
// command values.
package session

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultHandshakeBackoff is the pause between identification attempts
const DefaultHandshakeBackoff = time.Second

// Transport is a byte link to the radio. Read returns whatever arrived within
// the transport's read timeout; an empty slice means nothing did.
type Transport interface {
	Write(data []byte) error
	Read() ([]byte, error)
}

// Option configures a Session
type Option func(*Session)

// WithClock sets the clock used for handshake backoff
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithHandshakeBackoff sets the pause between identification attempts
func WithHandshakeBackoff(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// Session sends commands, parses replies and keeps the state cache. It is
// driven by a single loop; the lock only guards readers of the cache and
// counters on other goroutines.
type Session struct {
	transport Transport
	registry  *cat.Registry
	clock     clockwork.Clock
	stats     *cat.Statistics
	cache     map[string]string
	backoff   time.Duration
	mu        syncutil.RWMutex
}

// New creates a session over transport for the commands in reg
func New(transport Transport, reg *cat.Registry, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		registry:  reg,
		clock:     clockwork.NewRealClock(),
		stats:     cat.NewStatistics(),
		cache:     make(map[string]string),
		backoff:   DefaultHandshakeBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the command registry
func (s *Session) Registry() *cat.Registry {
	return s.registry
}

// Send writes all invocations in one batch and returns whatever came back
// within a single bounded read. An empty reply is not an error.
func (s *Session) Send(invs ...cat.Invocation) ([]byte, error) {
	data, err := cat.Encode(invs...)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("frames", string(data)).Msg("cat send")
	if err := s.transport.Write(data); err != nil {
		return nil, fmt.Errorf("write %q: %w", data, err)
	}

	reply, err := s.transport.Read()
	if err != nil {
		return nil, fmt.Errorf("read after %q: %w", data, err)
	}

	s.mu.Lock()
	s.stats.RecordRequest(len(invs), len(data))
	s.stats.RecordRead(len(reply))
	s.mu.Unlock()

	if len(reply) > 0 {
		log.Debug().Str("frames", string(reply)).Msg("cat recv")
	}
	return reply, nil
}

// Refresh queries exactly the given codes in one batch and updates the cache
// for every reply found. A code without a matching reply keeps its previous
// value.
func (s *Session) Refresh(codes ...string) error {
	cmds := make([]*cat.Command, 0, len(codes))
	invs := make([]cat.Invocation, 0, len(codes))
	for _, code := range codes {
		cmd, ok := s.registry.Lookup(code)
		if !ok || !cmd.Queryable() {
			log.Warn().Str("code", code).Msg("skipping refresh of non-queryable command")
			continue
		}
		cmds = append(cmds, cmd)
		invs = append(invs, cmd.Query())
	}
	if len(invs) == 0 {
		return nil
	}

	reply, err := s.Send(invs...)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range cmds {
		value, ok := cmd.ParseReply(reply)
		s.stats.RecordReply(ok)
		if !ok {
			log.Debug().
				Str("code", cmd.Code()).
				Str("pattern", cmd.Reply().String()).
				Str("reply", string(reply)).
				Msg("no matching reply, keeping cached value")
			continue
		}
		s.cache[cmd.Code()] = value
	}
	return nil
}

// RefreshAll refreshes every queryable command in registry order
func (s *Session) RefreshAll() error {
	return s.Refresh(s.registry.Queryable()...)
}

// Handshake identifies the radio, retrying with a fixed backoff until it
// answers. It only gives up when ctx is cancelled.
func (s *Session) Handshake(ctx context.Context) (int, error) {
	attempts := 0
	for {
		attempts++
		s.mu.Lock()
		s.stats.RecordHandshake()
		s.mu.Unlock()

		reply, err := s.Send(cat.Query(cat.IdentityCode))
		switch {
		case err != nil:
			log.Info().Err(err).Int("attempt", attempts).Msg("radio identification failed")
		case bytes.Contains(reply, []byte(cat.IdentityReply)):
			log.Info().Int("attempts", attempts).Msg("radio identified")
			return attempts, nil
		default:
			log.Info().Int("attempt", attempts).Str("reply", string(reply)).Msg("radio not responding, retrying")
		}

		select {
		case <-ctx.Done():
			return attempts, fmt.Errorf("handshake: %w", ctx.Err())
		case <-s.clock.After(s.backoff):
		}
	}
}

// Store writes a value straight into the cache
func (s *Session) Store(code, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[code] = value
}

// Value returns the last-known value of code
func (s *Session) Value(code string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[code]
	return v, ok
}

// Snapshot returns a copy of the cache
func (s *Session) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

// Stats returns a copy of the link counters with rates calculated
func (s *Session) Stats() cat.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := *s.stats
	st.CalculateRates()
	return st
}
