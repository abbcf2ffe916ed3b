// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package muxer implements the Ouroboros segment multiplexer: the single writer
// that frames outbound payloads into segments, the single reader that routes
// inbound segments to per-protocol queues, and the per-protocol channels that
// reassemble whole messages from those queues.
package muxer

import (
	"bufio"
	"context"
	"io"
	"log/slog"
)

const (
	// DefaultMuxerQueueSize is the number of outbound requests that may be waiting
	// for the writer before Enqueue blocks
	DefaultMuxerQueueSize = 64
)

type muxerRequest struct {
	segments []*Segment
	// written is closed once the segments are on the bearer
	written chan struct{}
}

// Muxer owns the write side of the bearer. Payloads submitted by any number of
// protocols are written as segments in the order they were accepted
type Muxer struct {
	writer    *bufio.Writer
	teardown  *Teardown
	logger    *slog.Logger
	queueSize int
	queue     chan muxerRequest
}

// MuxerOptionFunc is used to configure a Muxer
type MuxerOptionFunc func(*Muxer)

// WithMuxerLogger sets the logger used by the muxer
func WithMuxerLogger(logger *slog.Logger) MuxerOptionFunc {
	return func(m *Muxer) {
		m.logger = logger
	}
}

// WithMuxerQueueSize sets the number of accepted requests that may wait to be written
func WithMuxerQueueSize(size int) MuxerOptionFunc {
	return func(m *Muxer) {
		m.queueSize = size
	}
}

// NewMuxer returns a Muxer that writes to w. The teardown is shared with the
// demuxer and all channels of the same connection
func NewMuxer(w io.Writer, teardown *Teardown, opts ...MuxerOptionFunc) *Muxer {
	m := &Muxer{
		writer:    bufio.NewWriterSize(w, SegmentHeaderLength+SegmentMaxPayloadLength),
		teardown:  teardown,
		queueSize: DefaultMuxerQueueSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m.queueSize < 0 {
		m.queueSize = 0
	}
	m.queue = make(chan muxerRequest, m.queueSize)
	return m
}

// Enqueue submits payload for protocolId. Payloads larger than a single segment are
// split, and all of their segments are written back to back. Enqueue returns once the
// payload has been accepted by the writer; a cancelled context before that point
// means nothing of the payload was written
func (m *Muxer) Enqueue(
	ctx context.Context,
	protocolId uint16,
	role ProtocolRole,
	payload []byte,
) error {
	// Fail fast on a dead connection, even if the queue has room
	if err := m.teardown.Err(); err != nil {
		return err
	}
	req := muxerRequest{
		segments: splitPayload(protocolId, role, payload),
	}
	select {
	case m.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.teardown.Done():
		return m.teardown.Err()
	}
}

// Flush waits until every payload accepted before the call has been written to the
// bearer
func (m *Muxer) Flush(ctx context.Context) error {
	if err := m.teardown.Err(); err != nil {
		return err
	}
	req := muxerRequest{written: make(chan struct{})}
	select {
	case m.queue <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.teardown.Done():
		return m.teardown.Err()
	}
	select {
	case <-req.written:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.teardown.Done():
		return m.teardown.Err()
	}
}

// Run services submitted payloads until the context is cancelled or the connection
// fails. Either way the connection is torn down when Run returns
func (m *Muxer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.teardown.Fail(ctx.Err())
			return m.teardown.Err()
		case <-m.teardown.Done():
			return m.teardown.Err()
		case req := <-m.queue:
			for _, segment := range req.segments {
				if err := m.writeSegment(segment); err != nil {
					m.logger.Debug(
						"segment write failed",
						"component", "network",
						"error", err,
					)
					m.teardown.Fail(err)
					return m.teardown.Err()
				}
			}
			if req.written != nil {
				close(req.written)
			}
		}
	}
}

func (m *Muxer) writeSegment(segment *Segment) error {
	segment.Timestamp = timestampNow()
	header := EncodeHeader(
		segment.GetProtocolId(),
		segment.Role(),
		segment.PayloadLength,
		segment.Timestamp,
	)
	if _, err := m.writer.Write(header[:]); err != nil {
		return err
	}
	if _, err := m.writer.Write(segment.Payload); err != nil {
		return err
	}
	return m.writer.Flush()
}

// splitPayload breaks payload into segments of at most SegmentMaxPayloadLength bytes.
// An empty payload still produces one (empty) segment
func splitPayload(protocolId uint16, role ProtocolRole, payload []byte) []*Segment {
	count := (len(payload) + SegmentMaxPayloadLength - 1) / SegmentMaxPayloadLength
	if count == 0 {
		count = 1
	}
	ret := make([]*Segment, 0, count)
	for {
		chunkLen := min(len(payload), SegmentMaxPayloadLength)
		chunk := make([]byte, chunkLen)
		copy(chunk, payload[:chunkLen])
		ret = append(ret, &Segment{
			SegmentHeader: SegmentHeader{
				ProtocolId:    wireProtocolId(protocolId, role),
				PayloadLength: uint16(chunkLen), // #nosec G115
			},
			Payload: chunk,
		})
		payload = payload[chunkLen:]
		if len(payload) == 0 {
			break
		}
	}
	return ret
}
