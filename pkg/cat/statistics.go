// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cat

import (
	"fmt"
	"time"
)

// Statistics tracks link traffic and reply quality
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Requests          uint64 // writes
	FramesSent        uint64
	BytesSent         uint64
	BytesReceived     uint64
	EmptyReads        uint64 // read timeouts with no data
	RepliesMatched    uint64
	RepliesMismatched uint64
	HandshakeAttempts uint64

	// Rates (calculated)
	RequestRate  float64 // requests/sec
	MismatchRate float64 // mismatches/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordRequest counts one write carrying frames frames and n bytes
func (s *Statistics) RecordRequest(frames, n int) {
	s.Requests++
	s.FramesSent += uint64(frames)
	s.BytesSent += uint64(n)
	s.LastUpdateTime = time.Now()
}

// RecordRead counts one read result; n == 0 is a timeout
func (s *Statistics) RecordRead(n int) {
	if n == 0 {
		s.EmptyReads++
		return
	}
	s.BytesReceived += uint64(n)
	s.LastUpdateTime = time.Now()
}

// RecordReply counts one expected reply, found or not
func (s *Statistics) RecordReply(matched bool) {
	if matched {
		s.RepliesMatched++
	} else {
		s.RepliesMismatched++
	}
}

// RecordHandshake counts one identification attempt
func (s *Statistics) RecordHandshake() {
	s.HandshakeAttempts++
}

// CalculateRates calculates request and mismatch rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.RequestRate = float64(s.Requests) / elapsed
		s.MismatchRate = float64(s.RepliesMismatched) / elapsed
	}
}

// MatchPercent returns the share of expected replies that were matched
func (s *Statistics) MatchPercent() float64 {
	total := s.RepliesMatched + s.RepliesMismatched
	if total == 0 {
		return 0
	}
	return float64(s.RepliesMatched) * 100.0 / float64(total)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Requests:        %8d\n", s.Requests)
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Bytes Sent:      %8d\n", s.BytesSent)
	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	if s.EmptyReads > 0 {
		result += fmt.Sprintf("Empty Reads:     %8d\n", s.EmptyReads)
	}
	result += fmt.Sprintf("Replies Matched: %8d (%.1f%%)\n", s.RepliesMatched, s.MatchPercent())
	if s.RepliesMismatched > 0 {
		result += fmt.Sprintf("Mismatched:      %8d\n", s.RepliesMismatched)
	}
	if s.HandshakeAttempts > 0 {
		result += fmt.Sprintf("Handshakes:      %8d\n", s.HandshakeAttempts)
	}
	result += fmt.Sprintf("Request Rate:    %8.1f req/sec\n", s.RequestRate)
	result += fmt.Sprintf("Mismatch Rate:   %8.1f /sec\n", s.MismatchRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
