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

package muxer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	// DefaultDemuxerQueueSize is the number of segment payloads buffered per protocol
	// before the demuxer stops reading from the bearer
	DefaultDemuxerQueueSize = 32

	demuxerReadSize = 64 * 1024
)

// Demuxer owns the read side of the bearer and routes each inbound segment payload
// to the queue of the protocol it belongs to
type Demuxer struct {
	reader      io.Reader
	teardown    *Teardown
	logger      *slog.Logger
	queueSize   int
	mu          sync.Mutex
	subscribers map[uint16]chan []byte
}

// DemuxerOptionFunc is used to configure a Demuxer
type DemuxerOptionFunc func(*Demuxer)

// WithDemuxerLogger sets the logger used by the demuxer
func WithDemuxerLogger(logger *slog.Logger) DemuxerOptionFunc {
	return func(d *Demuxer) {
		d.logger = logger
	}
}

// WithDemuxerQueueSize sets the number of payloads queued per protocol
func WithDemuxerQueueSize(size int) DemuxerOptionFunc {
	return func(d *Demuxer) {
		d.queueSize = size
	}
}

// NewDemuxer returns a Demuxer that reads from r
func NewDemuxer(r io.Reader, teardown *Teardown, opts ...DemuxerOptionFunc) *Demuxer {
	d := &Demuxer{
		reader:      r,
		teardown:    teardown,
		queueSize:   DefaultDemuxerQueueSize,
		subscribers: make(map[uint16]chan []byte),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.queueSize < 1 {
		d.queueSize = 1
	}
	return d
}

// Subscribe registers the inbound queue for protocolId, where role is the local role
// for that protocol. Segments are expected from the opposite role. Subscribing must
// happen before the remote side sends anything on the protocol, since a segment for
// an unregistered protocol is fatal to the connection. Subscribing after teardown
// still succeeds, and reads from the queue report the teardown error
func (d *Demuxer) Subscribe(protocolId uint16, role ProtocolRole) (<-chan []byte, error) {
	key := wireProtocolId(protocolId, role.Opposite())
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[key]; ok {
		return nil, fmt.Errorf("%w: protocol ID %d", ErrAlreadySubscribed, protocolId)
	}
	ch := make(chan []byte, d.queueSize)
	d.subscribers[key] = ch
	return ch, nil
}

// Run reads from the bearer until the context is cancelled or the connection fails.
// The connection is torn down when Run returns
func (d *Demuxer) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		d.teardown.Fail(ctx.Err())
	})
	defer stop()
	// Room for the largest possible partial segment plus one full read, so the
	// buffer never has to grow
	base := make([]byte, 0, SegmentHeaderLength+SegmentMaxPayloadLength+demuxerReadSize)
	buf := base
	for {
		var err error
		if buf, err = d.deliverAll(buf); err != nil {
			d.teardown.Fail(err)
			return d.teardown.Err()
		}
		// Move any partial segment to the front of the buffer
		buf = base[:copy(base[:len(buf)], buf)]
		n, err := d.reader.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err != nil {
			if d.teardown.Err() == nil {
				d.logger.Debug(
					"bearer read failed",
					"component", "network",
					"error", err,
				)
			}
			// The last read may have completed segments alongside the error
			if rest, deliverErr := d.deliverAll(buf); deliverErr != nil {
				err = deliverErr
			} else if len(rest) > 0 {
				err = fmt.Errorf(
					"%w: %d bytes of an incomplete segment left at end of stream: %w",
					ErrPayloadLength,
					len(rest),
					err,
				)
			}
			d.teardown.Fail(err)
			return d.teardown.Err()
		}
	}
}

// deliverAll hands every complete segment at the front of buf to its subscriber and
// returns what is left
func (d *Demuxer) deliverAll(buf []byte) ([]byte, error) {
	for {
		segment, consumed, ok := TryDecodeSegment(buf)
		if !ok {
			return buf, nil
		}
		buf = buf[consumed:]
		if err := d.deliver(segment); err != nil {
			return buf, err
		}
	}
}

func (d *Demuxer) deliver(segment *Segment) error {
	d.mu.Lock()
	ch, ok := d.subscribers[segment.ProtocolId]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf(
			"%w: protocol ID %d (%s)",
			ErrUnknownProtocol,
			segment.GetProtocolId(),
			segment.Role(),
		)
	}
	// Blocking here throttles the whole connection until the slow consumer catches up
	select {
	case ch <- segment.Payload:
		return nil
	case <-d.teardown.Done():
		return d.teardown.Err()
	}
}
