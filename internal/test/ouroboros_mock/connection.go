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

// Package ouroboros_mock provides a scripted peer for testing Ouroboros clients
package ouroboros_mock

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/muxer"
)

// ProtocolRole is an enum of the protocol roles
type ProtocolRole uint

// Protocol roles
const (
	ProtocolRoleNone   ProtocolRole = 0 // Default (invalid) protocol role
	ProtocolRoleClient ProtocolRole = 1 // Client protocol role
	ProtocolRoleServer ProtocolRole = 2 // Server protocol role
)

// Connection mocks an Ouroboros connection. The conversation is played from the
// perspective of the mocked peer
type Connection struct {
	conn       net.Conn
	mockConn   net.Conn
	teardown   *muxer.Teardown
	muxer      *muxer.Muxer
	demuxer    *muxer.Demuxer
	muxerRole  muxer.ProtocolRole
	channels   map[uint16]*muxer.Channel
	errorChan  chan error
	closed     atomic.Bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConnection returns a new Connection with the provided conversation entries.
// protocolRole is the role of the side under test
func NewConnection(
	protocolRole ProtocolRole,
	conversation []ConversationEntry,
) net.Conn {
	c := &Connection{
		channels:  make(map[uint16]*muxer.Channel),
		errorChan: make(chan error, 1),
	}
	c.conn, c.mockConn = net.Pipe()
	c.teardown = muxer.NewTeardown(c.mockConn)
	c.muxer = muxer.NewMuxer(c.mockConn, c.teardown)
	c.demuxer = muxer.NewDemuxer(c.mockConn, c.teardown)
	// The mock is the opposite end of the connection, so we flip the protocol role
	c.muxerRole = muxer.ProtocolRoleResponder
	if protocolRole == ProtocolRoleServer {
		c.muxerRole = muxer.ProtocolRoleInitiator
	}
	// Register every protocol used in the conversation up front
	for _, entry := range conversation {
		var protocolId uint16
		switch e := entry.(type) {
		case ConversationEntryInput:
			protocolId = e.ProtocolId
		case ConversationEntryOutput:
			protocolId = e.ProtocolId
		default:
			continue
		}
		if _, ok := c.channels[protocolId]; ok {
			continue
		}
		channel, err := muxer.NewChannel(c.muxer, c.demuxer, protocolId, c.muxerRole)
		if err != nil {
			panic(fmt.Sprintf("mock channel setup failed: %s", err))
		}
		c.channels[protocolId] = channel
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		_ = c.muxer.Run(ctx)
	}()
	go func() {
		defer c.wg.Done()
		_ = c.demuxer.Run(ctx)
	}()
	// Start async conversation handler
	go c.asyncLoop(ctx, conversation)
	return c
}

// ErrorChan returns a channel that receives the first conversation error. It is
// closed once the conversation has finished
func (c *Connection) ErrorChan() <-chan error {
	return c.errorChan
}

// Read provides a proxy to the client-side connection's Read function. This is needed to satisfy the net.Conn interface
func (c *Connection) Read(b []byte) (n int, err error) {
	return c.conn.Read(b)
}

// Write provides a proxy to the client-side connection's Write function. This is needed to satisfy the net.Conn interface
func (c *Connection) Write(b []byte) (n int, err error) {
	return c.conn.Write(b)
}

// Close closes both sides of the connection. This is needed to satisfy the net.Conn interface
func (c *Connection) Close() error {
	c.closed.Store(true)
	c.teardown.Fail(muxer.ErrConnectionClosed)
	c.cancelFunc()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// LocalAddr provides a proxy to the client-side connection's LocalAddr function. This is needed to satisfy the net.Conn interface
func (c *Connection) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr provides a proxy to the client-side connection's RemoteAddr function. This is needed to satisfy the net.Conn interface
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline provides a proxy to the client-side connection's SetDeadline function. This is needed to satisfy the net.Conn interface
func (c *Connection) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline provides a proxy to the client-side connection's SetReadDeadline function. This is needed to satisfy the net.Conn interface
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline provides a proxy to the client-side connection's SetWriteDeadline function. This is needed to satisfy the net.Conn interface
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Connection) asyncLoop(ctx context.Context, conversation []ConversationEntry) {
	defer close(c.errorChan)
	for idx, entry := range conversation {
		var err error
		switch e := entry.(type) {
		case ConversationEntryInput:
			err = c.processInputEntry(ctx, e)
		case ConversationEntryOutput:
			err = c.processOutputEntry(ctx, e)
		case ConversationEntryClose:
			// Everything sent so far reaches the client before the close does
			_ = c.muxer.Flush(ctx)
			c.closed.Store(true)
			c.teardown.Fail(muxer.ErrConnectionClosed)
		case ConversationEntrySleep:
			select {
			case <-time.After(e.Duration):
			case <-c.teardown.Done():
			}
		default:
			err = fmt.Errorf("unknown conversation entry type: %T", entry)
		}
		if err != nil {
			// Errors caused by closing the connection are expected
			if c.closed.Load() {
				return
			}
			c.errorChan <- fmt.Errorf("conversation entry %d: %w", idx, err)
			return
		}
	}
}

func (c *Connection) processInputEntry(ctx context.Context, entry ConversationEntryInput) error {
	data, err := c.channels[entry.ProtocolId].ReceiveMessage(ctx)
	if err != nil {
		return err
	}
	// Determine message type
	msgType, err := cbor.DecodeIdFromList(data)
	if err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	if entry.Message == nil {
		if entry.MessageType != uint(msgType) {
			return fmt.Errorf(
				"input message is not of expected type: expected %d, got %d",
				entry.MessageType,
				msgType,
			)
		}
		return nil
	}
	expected, err := messageCbor(entry.Message)
	if err != nil {
		return err
	}
	if !bytes.Equal(data, expected) {
		return fmt.Errorf(
			"input message does not match expected value: got %x, expected %x",
			data,
			expected,
		)
	}
	return nil
}

func (c *Connection) processOutputEntry(ctx context.Context, entry ConversationEntryOutput) error {
	payloadBuf := bytes.NewBuffer(nil)
	for _, msg := range entry.Messages {
		data, err := messageCbor(msg)
		if err != nil {
			return err
		}
		payloadBuf.Write(data)
	}
	payloadBuf.Write(entry.Payload)
	return c.muxer.Enqueue(ctx, entry.ProtocolId, c.muxerRole, payloadBuf.Bytes())
}

func messageCbor(msg interface{ Cbor() []byte }) ([]byte, error) {
	// Get raw CBOR from message
	if data := msg.Cbor(); data != nil {
		return data, nil
	}
	// If message has no raw CBOR, encode the message
	return cbor.Encode(msg)
}
