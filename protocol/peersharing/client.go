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

package peersharing

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Client implements the PeerSharing client
type Client struct {
	*protocol.Protocol
	config *Config
}

// NewClient returns a new PeerSharing client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) (*Client, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	// Update state map with timeout
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateBusy]; ok {
		entry.Timeout = cfg.Timeout
		stateMap[StateBusy] = entry
	}
	p, err := protocol.New(protocol.ProtocolConfig{
		Name:                ProtocolName,
		ProtocolId:          ProtocolId,
		ConnectionId:        protoOptions.ConnectionId,
		Muxer:               protoOptions.Muxer,
		Demuxer:             protoOptions.Demuxer,
		Logger:              protoOptions.Logger,
		Mode:                protoOptions.Mode,
		Role:                protocol.ProtocolRoleClient,
		MessageFromCborFunc: NewMsgFromCbor,
		StateMap:            stateMap,
		InitialState:        StateIdle,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		Protocol: p,
		config:   cfg,
	}, nil
}

// GetPeers asks the peer for up to amount peer addresses. The peer may return fewer
func (c *Client) GetPeers(ctx context.Context, amount uint8) ([]PeerAddress, error) {
	c.Logger().Debug(
		"calling GetPeers()",
		"amount", amount,
	)
	if err := c.SendMessage(ctx, NewMsgShareRequest(amount)); err != nil {
		return nil, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgSharePeers, ok := msg.(*MsgSharePeers)
	if !ok {
		return nil, c.Abort(
			fmt.Errorf(
				"%w: %s: unexpected message type %T",
				protocol.ErrProtocolViolationInvalidMessage,
				ProtocolName,
				msg,
			),
		)
	}
	if len(msgSharePeers.PeerAddresses) > int(amount) {
		return nil, c.Abort(
			fmt.Errorf(
				"%w: %s: asked for %d peers, got %d",
				protocol.ErrProtocolViolationInvalidMessage,
				ProtocolName,
				amount,
				len(msgSharePeers.PeerAddresses),
			),
		)
	}
	return msgSharePeers.PeerAddresses, nil
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgDone())
}
