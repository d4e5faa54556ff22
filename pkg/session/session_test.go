// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport replays scripted replies, one per Read, and records writes
type mockTransport struct {
	mu       sync.Mutex
	writes   []string
	replies  []string
	writeErr error
}

func (m *mockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, string(data))
	return nil
}

func (m *mockTransport) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return []byte{}, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return []byte(r), nil
}

func (m *mockTransport) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

// ============================================================
// Send
// ============================================================

func TestSend_BatchesInOneWrite(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{replies: []string{"BS05;"}}
	s := New(tr, cat.FTdx10())

	reply, err := s.Send(cat.Set("BS", "05"), cat.Query("KS"))
	require.NoError(t, err)
	assert.Equal(t, "BS05;", string(reply))
	assert.Equal(t, []string{"BS05;KS;"}, tr.Writes())

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Requests)
	assert.Equal(t, uint64(2), st.FramesSent)
}

func TestSend_EmptyReadIsNotAnError(t *testing.T) {
	t.Parallel()

	s := New(&mockTransport{}, cat.FTdx10())
	reply, err := s.Send(cat.Set("ZI", "0"))
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Equal(t, uint64(1), s.Stats().EmptyReads)
}

func TestSend_WriteFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("port gone")
	s := New(&mockTransport{writeErr: boom}, cat.FTdx10())
	_, err := s.Send(cat.Query("KS"))
	require.ErrorIs(t, err, boom)
}

// ============================================================
// Refresh
// ============================================================

func TestRefresh_StoresMatchedValue(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{replies: []string{"KS045;"}}
	s := New(tr, cat.FTdx10())

	require.NoError(t, s.Refresh("KS"))
	assert.Equal(t, []string{"KS;"}, tr.Writes())

	v, ok := s.Value("KS")
	require.True(t, ok)
	assert.Equal(t, "045", v)
}

func TestRefresh_MismatchKeepsCache(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{replies: []string{"KS999;"}}
	s := New(tr, cat.FTdx10())
	s.Store("KS", "020")

	require.NoError(t, s.Refresh("KS"))

	v, _ := s.Value("KS")
	assert.Equal(t, "020", v)
	assert.Equal(t, uint64(1), s.Stats().RepliesMismatched)
}

func TestRefresh_MismatchLeavesAbsentEntry(t *testing.T) {
	t.Parallel()

	s := New(&mockTransport{replies: []string{"KS999;"}}, cat.FTdx10())
	require.NoError(t, s.Refresh("KS"))

	_, ok := s.Value("KS")
	assert.False(t, ok)
}

func TestRefresh_SkipsNonQueryable(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{}
	s := New(tr, cat.FTdx10())

	require.NoError(t, s.Refresh("BS", "FA"))
	assert.Empty(t, tr.Writes())
}

func TestRefreshAll(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{replies: []string{"BI1;CO020000;KR0;KS025;PC050;"}}
	s := New(tr, cat.FTdx10())

	require.NoError(t, s.RefreshAll())
	assert.Equal(t, []string{"BI;CO02;KR;KS;PC;"}, tr.Writes())
	assert.Equal(t, map[string]string{
		"BI":   "1",
		"CO02": "0000",
		"KR":   "0",
		"KS":   "025",
		"PC":   "050",
	}, s.Snapshot())
	assert.Equal(t, uint64(5), s.Stats().RepliesMatched)
}

func TestRefreshAll_PartialReply(t *testing.T) {
	t.Parallel()

	s := New(&mockTransport{replies: []string{"KR1;PC100;"}}, cat.FTdx10())
	s.Store("BI", "0")

	require.NoError(t, s.RefreshAll())

	snap := s.Snapshot()
	assert.Equal(t, "1", snap["KR"])
	assert.Equal(t, "100", snap["PC"])
	assert.Equal(t, "0", snap["BI"])
	assert.NotContains(t, snap, "KS")
	assert.Equal(t, uint64(3), s.Stats().RepliesMismatched)
}

// ============================================================
// Handshake
// ============================================================

func TestHandshake_SucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tr := &mockTransport{replies: []string{"", "?;", cat.IdentityReply}}
	s := New(tr, cat.FTdx10(), WithClock(clock), WithHandshakeBackoff(time.Second))

	type result struct {
		attempts int
		err      error
	}
	done := make(chan result, 1)
	go func() {
		n, err := s.Handshake(context.Background())
		done <- result{n, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for range 2 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 3, r.attempts)
	case <-ctx.Done():
		t.Fatal("handshake did not finish")
	}

	assert.Equal(t, []string{"ID;", "ID;", "ID;"}, tr.Writes())
	assert.Equal(t, uint64(3), s.Stats().HandshakeAttempts)
}

func TestHandshake_StopsOnCancel(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	s := New(&mockTransport{}, cat.FTdx10(), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Handshake(ctx)
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-waitCtx.Done():
		t.Fatal("handshake ignored cancellation")
	}
}

func TestHandshake_ImmediateReply(t *testing.T) {
	t.Parallel()

	s := New(&mockTransport{replies: []string{"ID0761;"}}, cat.FTdx10())
	n, err := s.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
