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

package ouroboros

import (
	"context"
	"net"

	"github.com/blinklabs-io/ouroboros-client/muxer"
)

// Dial will establish a connection using the specified protocol and address. These
// parameters are passed to [net.Dial]. The handshake is performed once the connection
// is established, and an error is returned if the connection or the handshake fails
func (c *Connection) Dial(proto string, address string) error {
	return c.DialContext(context.Background(), proto, address)
}

// DialContext is like Dial, but the context bounds both connecting and the handshake
func (c *Connection) DialContext(ctx context.Context, proto string, address string) error {
	if c.conn != nil {
		return ErrAlreadyConnected
	}
	select {
	case <-c.doneChan:
		return muxer.ErrConnectionClosed
	default:
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, proto, address)
	if err != nil {
		return err
	}
	c.conn = conn
	return c.setupConnection(ctx)
}

// Dial creates a Connection with the provided options and dials the given address. The
// network is "tcp" for a node-to-node address or "unix" for a node socket
func Dial(
	ctx context.Context,
	network string,
	address string,
	options ...ConnectionOptionFunc,
) (*Connection, error) {
	c, err := NewConnection(options...)
	if err != nil {
		return nil, err
	}
	if err := c.DialContext(ctx, network, address); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
