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
	"sync/atomic"

	"github.com/blinklabs-io/ouroboros-client/cbor"
)

// FrameFunc reports the length of the first complete message in data, or 0 when
// data only holds part of a message
type FrameFunc func(data []byte) (int, error)

// Channel is the message oriented view of a single mini-protocol over the shared
// muxer and demuxer. It has exactly one owner, which is the only sender and the
// only receiver
type Channel struct {
	protocolId uint16
	role       ProtocolRole
	muxer      *Muxer
	teardown   *Teardown
	inbound    <-chan []byte
	frameFunc  FrameFunc
	buf        []byte
	examined   int
	reading    atomic.Bool
}

// ChannelOptionFunc is used to configure a Channel
type ChannelOptionFunc func(*Channel)

// WithFrameFunc overrides how message boundaries are found. The default treats each
// message as a single CBOR item
func WithFrameFunc(frameFunc FrameFunc) ChannelOptionFunc {
	return func(c *Channel) {
		c.frameFunc = frameFunc
	}
}

// NewChannel subscribes to protocolId on the demuxer and returns a channel that
// sends through the muxer. role is the local role for the protocol
func NewChannel(
	muxer *Muxer,
	demuxer *Demuxer,
	protocolId uint16,
	role ProtocolRole,
	opts ...ChannelOptionFunc,
) (*Channel, error) {
	inbound, err := demuxer.Subscribe(protocolId, role)
	if err != nil {
		return nil, err
	}
	c := &Channel{
		protocolId: protocolId,
		role:       role,
		muxer:      muxer,
		teardown:   muxer.teardown,
		inbound:    inbound,
		frameFunc:  cbor.MessageLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProtocolId returns the protocol ID of the channel
func (c *Channel) ProtocolId() uint16 {
	return c.protocolId
}

// Err returns the connection failure, if any
func (c *Channel) Err() error {
	return c.teardown.Err()
}

// SendMessage hands a fully encoded message to the muxer
func (c *Channel) SendMessage(ctx context.Context, data []byte) error {
	return c.muxer.Enqueue(ctx, c.protocolId, c.role, data)
}

// Read returns the buffered bytes that have not been consumed yet. If all of them
// were already examined, it first waits for more bytes to arrive. The returned
// slice is only valid until the next call to Advance
func (c *Channel) Read(ctx context.Context) ([]byte, error) {
	if !c.reading.CompareAndSwap(false, true) {
		return nil, ErrConcurrentReceive
	}
	defer c.reading.Store(false)
	return c.read(ctx)
}

func (c *Channel) read(ctx context.Context) ([]byte, error) {
	// Anything the demuxer delivered before the connection failed is still returned
	if len(c.buf) > c.examined {
		return c.buf, nil
	}
	if c.takeQueued() {
		return c.buf, nil
	}
	if err := c.teardown.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.teardown.Done():
		if c.takeQueued() {
			return c.buf, nil
		}
		return nil, c.teardown.Err()
	case data := <-c.inbound:
		c.buf = append(c.buf, data...)
		return c.buf, nil
	}
}

// takeQueued appends a payload that is already waiting in the inbound queue, without
// blocking
func (c *Channel) takeQueued() bool {
	select {
	case data := <-c.inbound:
		c.buf = append(c.buf, data...)
		return true
	default:
		return false
	}
}

// Advance releases the first consumed bytes of the buffer and records that the
// caller has looked at the first examined bytes. examined is clamped to at least
// consumed
func (c *Channel) Advance(consumed int, examined int) {
	consumed = min(max(consumed, 0), len(c.buf))
	examined = min(max(examined, consumed), len(c.buf))
	if consumed == len(c.buf) {
		c.buf = c.buf[:0]
	} else if consumed > 0 {
		c.buf = append(c.buf[:0], c.buf[consumed:]...)
	}
	c.examined = examined - consumed
}

// ReceiveMessage returns exactly one whole message. Bytes that belong to the next
// message stay buffered for the next call. A cancelled context leaves the buffer
// as it was
func (c *Channel) ReceiveMessage(ctx context.Context) ([]byte, error) {
	if !c.reading.CompareAndSwap(false, true) {
		return nil, ErrConcurrentReceive
	}
	defer c.reading.Store(false)
	for {
		data, err := c.read(ctx)
		if err != nil {
			return nil, err
		}
		msgLen, err := c.frameFunc(data)
		if err != nil {
			return nil, fmt.Errorf("%w: protocol ID %d: %w", ErrInvalidFrame, c.protocolId, err)
		}
		if msgLen == 0 {
			c.Advance(0, len(data))
			continue
		}
		msg := make([]byte, msgLen)
		copy(msg, data[:msgLen])
		c.Advance(msgLen, msgLen)
		return msg, nil
	}
}
