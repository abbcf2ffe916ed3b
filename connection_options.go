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
	"io"
	"log/slog"

	"github.com/blinklabs-io/ouroboros-client/protocol/blockfetch"
	"github.com/blinklabs-io/ouroboros-client/protocol/chainsync"
	"github.com/blinklabs-io/ouroboros-client/protocol/handshake"
	"github.com/blinklabs-io/ouroboros-client/protocol/keepalive"
	"github.com/blinklabs-io/ouroboros-client/protocol/localstatequery"
	"github.com/blinklabs-io/ouroboros-client/protocol/localtxmonitor"
	"github.com/blinklabs-io/ouroboros-client/protocol/localtxsubmission"
	"github.com/blinklabs-io/ouroboros-client/protocol/peersharing"
)

// ConnectionOptionFunc is a type that represents functions that modify the Connection config
type ConnectionOptionFunc func(*Connection)

// WithConnection specifies an existing connection to use. This is usually a net.Conn
func WithConnection(conn io.ReadWriteCloser) ConnectionOptionFunc {
	return func(c *Connection) {
		c.conn = conn
	}
}

// WithNetwork specifies the network
func WithNetwork(network Network) ConnectionOptionFunc {
	return func(c *Connection) {
		c.networkMagic = network.NetworkMagic
	}
}

// WithNetworkMagic specifies the network magic value
func WithNetworkMagic(networkMagic uint32) ConnectionOptionFunc {
	return func(c *Connection) {
		c.networkMagic = networkMagic
	}
}

// WithLogger specifies the logger used by the connection and all of its mini-protocols
func WithLogger(logger *slog.Logger) ConnectionOptionFunc {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithNodeToNode specifies whether to use the node-to-node protocol. The default is to use node-to-client
func WithNodeToNode(nodeToNode bool) ConnectionOptionFunc {
	return func(c *Connection) {
		c.nodeToNode = nodeToNode
	}
}

// WithKeepAlive specifies whether to send periodic keep-alives on node-to-node
// connections. This is enabled by default
func WithKeepAlive(keepAlive bool) ConnectionOptionFunc {
	return func(c *Connection) {
		c.sendKeepAlives = keepAlive
	}
}

// WithPeerSharing specifies whether to offer peer sharing during a node-to-node
// handshake. The peer-sharing protocol is only available when the peer agrees
func WithPeerSharing(peerSharing bool) ConnectionOptionFunc {
	return func(c *Connection) {
		c.peerSharingEnabled = peerSharing
	}
}

// WithHandshakeConfig specifies the handshake config. Only the timeout is used, since
// the proposed versions follow from the other options
func WithHandshakeConfig(cfg handshake.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.handshakeConfig = &cfg
	}
}

// WithBlockFetchConfig specifies BlockFetch protocol config
func WithBlockFetchConfig(cfg blockfetch.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.blockFetchConfig = &cfg
	}
}

// WithChainSyncConfig specifies the ChainSync protocol config
func WithChainSyncConfig(cfg chainsync.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.chainSyncConfig = &cfg
	}
}

// WithKeepAliveConfig specifies KeepAlive protocol config
func WithKeepAliveConfig(cfg keepalive.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.keepAliveConfig = &cfg
	}
}

// WithLocalStateQueryConfig specifies LocalStateQuery protocol config
func WithLocalStateQueryConfig(
	cfg localstatequery.Config,
) ConnectionOptionFunc {
	return func(c *Connection) {
		c.localStateQueryConfig = &cfg
	}
}

// WithLocalTxMonitorConfig specifies LocalTxMonitor protocol config
func WithLocalTxMonitorConfig(
	cfg localtxmonitor.Config,
) ConnectionOptionFunc {
	return func(c *Connection) {
		c.localTxMonitorConfig = &cfg
	}
}

// WithLocalTxSubmissionConfig specifies LocalTxSubmission protocol config
func WithLocalTxSubmissionConfig(
	cfg localtxsubmission.Config,
) ConnectionOptionFunc {
	return func(c *Connection) {
		c.localTxSubmissionConfig = &cfg
	}
}

// WithPeerSharingConfig specifies PeerSharing protocol config
func WithPeerSharingConfig(cfg peersharing.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.peerSharingConfig = &cfg
	}
}
