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

// Package ouroboros implements a client for the Ouroboros network protocol used by
// Cardano nodes.
//
// A single connection to a node carries several independent mini-protocols that are
// multiplexed over one byte stream. The handshake picks a protocol version, and the
// negotiated version decides which mini-protocols are available on the connection.
//
// This package is the main entry point into this library. The other packages can
// be used outside of this one, but it's not a primary design goal.
package ouroboros

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/ouroboros-client/muxer"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/blockfetch"
	"github.com/blinklabs-io/ouroboros-client/protocol/chainsync"
	"github.com/blinklabs-io/ouroboros-client/protocol/handshake"
	"github.com/blinklabs-io/ouroboros-client/protocol/keepalive"
	"github.com/blinklabs-io/ouroboros-client/protocol/localstatequery"
	"github.com/blinklabs-io/ouroboros-client/protocol/localtxmonitor"
	"github.com/blinklabs-io/ouroboros-client/protocol/localtxsubmission"
	"github.com/blinklabs-io/ouroboros-client/protocol/peersharing"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

var (
	// ErrInvalidNetworkMagic is returned when no network magic was configured
	ErrInvalidNetworkMagic = errors.New("invalid network magic value provided")
	// ErrAlreadyConnected is returned when dialing on a connection that already has a bearer
	ErrAlreadyConnected = errors.New("a connection was already established")
)

// The Connection type is a wrapper around a bearer (usually a net.Conn) that handles
// communication using the Ouroboros network protocol over that bearer
type Connection struct {
	id                 uuid.UUID
	conn               io.ReadWriteCloser
	logger             *slog.Logger
	networkMagic       uint32
	nodeToNode         bool
	sendKeepAlives     bool
	peerSharingEnabled bool
	teardown           *muxer.Teardown
	muxer              *muxer.Muxer
	demuxer            *muxer.Demuxer
	errorChan          chan error
	doneChan           chan struct{}
	cancelFunc         context.CancelFunc
	waitGroup          sync.WaitGroup
	onceClose          sync.Once
	protocolVersion    uint16
	versionData        protocol.VersionData
	// Mini-protocols
	blockFetch              *blockfetch.BlockFetch
	blockFetchConfig        *blockfetch.Config
	chainSync               *chainsync.ChainSync
	chainSyncConfig         *chainsync.Config
	handshakeConfig         *handshake.Config
	keepAlive               *keepalive.KeepAlive
	keepAliveConfig         *keepalive.Config
	localStateQuery         *localstatequery.LocalStateQuery
	localStateQueryConfig   *localstatequery.Config
	localTxMonitor          *localtxmonitor.LocalTxMonitor
	localTxMonitorConfig    *localtxmonitor.Config
	localTxSubmission       *localtxsubmission.LocalTxSubmission
	localTxSubmissionConfig *localtxsubmission.Config
	peerSharing             *peersharing.PeerSharing
	peerSharingConfig       *peersharing.Config
}

// NewConnection returns a new Connection object with the specified options. If a
// connection is provided, the handshake is performed before returning, and an error is
// returned if it fails
func NewConnection(options ...ConnectionOptionFunc) (*Connection, error) {
	c := &Connection{
		id:             uuid.New(),
		sendKeepAlives: true,
		errorChan:      make(chan error, 1),
		doneChan:       make(chan struct{}),
	}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if c.conn != nil {
		if err := c.setupConnection(context.Background()); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// New is an alias to NewConnection
func New(options ...ConnectionOptionFunc) (*Connection, error) {
	return NewConnection(options...)
}

// Id returns the unique ID of the connection, which is included in all log output
func (c *Connection) Id() uuid.UUID {
	return c.id
}

// ErrorChan returns the channel for asynchronous errors. It receives at most one error,
// when the connection fails for any reason other than a call to Close, and is closed
// once the connection has shut down
func (c *Connection) ErrorChan() <-chan error {
	return c.errorChan
}

// ProtocolVersion returns the negotiated protocol version and the version data of the peer
func (c *Connection) ProtocolVersion() (uint16, protocol.VersionData) {
	return c.protocolVersion, c.versionData
}

// Close shuts down the Ouroboros connection. Every pending and later mini-protocol
// operation fails with muxer.ErrConnectionClosed
func (c *Connection) Close() error {
	c.onceClose.Do(func() {
		// Close doneChan to signify that we're shutting down
		close(c.doneChan)
		if c.teardown == nil {
			close(c.errorChan)
			return
		}
		c.cancelFunc()
		c.teardown.Fail(muxer.ErrConnectionClosed)
		// Wait for other goroutines to finish
		c.waitGroup.Wait()
	})
	return nil
}

// BlockFetch returns the block-fetch protocol handler
func (c *Connection) BlockFetch() *blockfetch.BlockFetch {
	return c.blockFetch
}

// ChainSync returns the chain-sync protocol handler
func (c *Connection) ChainSync() *chainsync.ChainSync {
	return c.chainSync
}

// KeepAlive returns the keep-alive protocol handler
func (c *Connection) KeepAlive() *keepalive.KeepAlive {
	return c.keepAlive
}

// LocalStateQuery returns the local-state-query protocol handler
func (c *Connection) LocalStateQuery() *localstatequery.LocalStateQuery {
	return c.localStateQuery
}

// LocalTxMonitor returns the local-tx-monitor protocol handler
func (c *Connection) LocalTxMonitor() *localtxmonitor.LocalTxMonitor {
	return c.localTxMonitor
}

// LocalTxSubmission returns the local-tx-submission protocol handler
func (c *Connection) LocalTxSubmission() *localtxsubmission.LocalTxSubmission {
	return c.localTxSubmission
}

// PeerSharing returns the peer-sharing protocol handler. It is only available when both
// sides agreed to share peers during the handshake
func (c *Connection) PeerSharing() *peersharing.PeerSharing {
	return c.peerSharing
}

// setupConnection starts the muxer and demuxer, performs the handshake, and initializes
// the mini-protocols for the negotiated version
func (c *Connection) setupConnection(ctx context.Context) error {
	if c.networkMagic == 0 {
		_ = c.conn.Close()
		return fmt.Errorf("%w: %d", ErrInvalidNetworkMagic, c.networkMagic)
	}
	c.teardown = muxer.NewTeardown(c.conn)
	c.muxer = muxer.NewMuxer(c.conn, c.teardown, muxer.WithMuxerLogger(c.logger))
	c.demuxer = muxer.NewDemuxer(c.conn, c.teardown, muxer.WithDemuxerLogger(c.logger))
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel
	protoOptions := protocol.ProtocolOptions{
		ConnectionId: c.id,
		Muxer:        c.muxer,
		Demuxer:      c.demuxer,
		Logger:       c.logger,
		Mode:         protocol.ProtocolModeNodeToClient,
	}
	if c.nodeToNode {
		protoOptions.Mode = protocol.ProtocolModeNodeToNode
	}
	// The handshake must be subscribed before the demuxer sees the peer's reply
	handshakeConfig := handshake.NewConfig(
		handshake.WithProtocolVersionMap(
			protocol.GetProtocolVersionMap(
				protoOptions.Mode,
				c.networkMagic,
				protocol.DiffusionModeInitiatorOnly,
				c.peerSharingEnabled,
				false,
			),
		),
	)
	if c.handshakeConfig != nil && c.handshakeConfig.Timeout > 0 {
		handshakeConfig.Timeout = c.handshakeConfig.Timeout
	}
	handshakeClient, err := handshake.NewClient(protoOptions, &handshakeConfig)
	if err != nil {
		cancel()
		c.teardown.Fail(err)
		return err
	}
	c.waitGroup.Add(3)
	go func() {
		defer c.waitGroup.Done()
		_ = c.muxer.Run(runCtx)
	}()
	go func() {
		defer c.waitGroup.Done()
		_ = c.demuxer.Run(runCtx)
	}()
	// Report connection failures that weren't caused by Close
	go func() {
		defer c.waitGroup.Done()
		defer close(c.errorChan)
		<-c.teardown.Done()
		select {
		case <-c.doneChan:
			return
		default:
		}
		err := c.teardown.Err()
		c.logger.Debug(
			"connection failed",
			"component", "network",
			"connection_id", c.id.String(),
			"error", err,
		)
		c.errorChan <- err
	}()
	version, versionData, err := handshakeClient.ProposeVersions(ctx)
	if err != nil {
		_ = c.Close()
		return err
	}
	c.protocolVersion = version
	c.versionData = versionData
	protoOptions.Version = version
	if err := c.setupProtocols(runCtx, protoOptions); err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

// setupProtocols creates the mini-protocols that the negotiated version provides
func (c *Connection) setupProtocols(
	runCtx context.Context,
	protoOptions protocol.ProtocolOptions,
) error {
	protoVersion, _ := protocol.GetProtocolVersion(protoOptions.Version)
	chainSyncConfig, err := withDefaults(chainsync.NewConfig(), c.chainSyncConfig)
	if err != nil {
		return err
	}
	if c.chainSync, err = chainsync.New(protoOptions, chainSyncConfig); err != nil {
		return err
	}
	if c.nodeToNode {
		blockFetchConfig, err := withDefaults(blockfetch.NewConfig(), c.blockFetchConfig)
		if err != nil {
			return err
		}
		if c.blockFetch, err = blockfetch.New(protoOptions, blockFetchConfig); err != nil {
			return err
		}
		if protoVersion.EnableKeepAliveProtocol {
			keepAliveConfig, err := withDefaults(keepalive.NewConfig(), c.keepAliveConfig)
			if err != nil {
				return err
			}
			if c.keepAlive, err = keepalive.New(protoOptions, keepAliveConfig); err != nil {
				return err
			}
			if c.sendKeepAlives {
				c.startKeepAlive(runCtx)
			}
		}
		if protoVersion.EnablePeerSharingProtocol && c.versionData.PeerSharing() {
			peerSharingConfig, err := withDefaults(peersharing.NewConfig(), c.peerSharingConfig)
			if err != nil {
				return err
			}
			if c.peerSharing, err = peersharing.New(protoOptions, peerSharingConfig); err != nil {
				return err
			}
		}
		return nil
	}
	localTxSubmissionConfig, err := withDefaults(
		localtxsubmission.NewConfig(),
		c.localTxSubmissionConfig,
	)
	if err != nil {
		return err
	}
	if c.localTxSubmission, err = localtxsubmission.New(protoOptions, localTxSubmissionConfig); err != nil {
		return err
	}
	if protoVersion.EnableLocalQueryProtocol {
		localStateQueryConfig, err := withDefaults(
			localstatequery.NewConfig(),
			c.localStateQueryConfig,
		)
		if err != nil {
			return err
		}
		if c.localStateQuery, err = localstatequery.New(protoOptions, localStateQueryConfig); err != nil {
			return err
		}
	}
	if protoVersion.EnableLocalTxMonitorProtocol {
		localTxMonitorConfig, err := withDefaults(
			localtxmonitor.NewConfig(),
			c.localTxMonitorConfig,
		)
		if err != nil {
			return err
		}
		if c.localTxMonitor, err = localtxmonitor.New(protoOptions, localTxMonitorConfig); err != nil {
			return err
		}
	}
	return nil
}

// startKeepAlive runs the periodic keep-alive loop. A failed round trip tears down the
// connection
func (c *Connection) startKeepAlive(runCtx context.Context) {
	c.waitGroup.Add(1)
	go func() {
		defer c.waitGroup.Done()
		if err := c.keepAlive.Client.Run(runCtx); err != nil {
			c.teardown.Fail(fmt.Errorf("keep-alive: %w", err))
		}
	}()
}

// withDefaults fills the zero-valued fields of cfg from defaults
func withDefaults[T any](defaults T, cfg *T) (*T, error) {
	if cfg == nil {
		return &defaults, nil
	}
	if err := copier.CopyWithOption(&defaults, cfg, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}
	return &defaults, nil
}
