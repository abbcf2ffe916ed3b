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

package handshake

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Client implements the Handshake client
type Client struct {
	*protocol.Protocol
	config *Config
}

// NewClient returns a new Handshake client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) (*Client, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	if len(cfg.ProtocolVersionMap) == 0 {
		return nil, errors.New("handshake: no protocol versions configured")
	}
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateConfirm]; ok {
		entry.Timeout = cfg.Timeout
		stateMap[StateConfirm] = entry
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
		InitialState:        StatePropose,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		Protocol: p,
		config:   cfg,
	}
	return c, nil
}

// ProposeVersions sends our supported versions to the peer and waits for its answer.
// It returns the negotiated version and the decoded version data
func (c *Client) ProposeVersions(
	ctx context.Context,
) (uint16, protocol.VersionData, error) {
	c.Logger().Debug("calling ProposeVersions()")
	msg, err := NewMsgProposeVersions(c.config.ProtocolVersionMap)
	if err != nil {
		return 0, nil, err
	}
	if err := c.SendMessage(ctx, msg); err != nil {
		return 0, nil, err
	}
	reply, err := c.RecvMessage(ctx)
	if err != nil {
		return 0, nil, err
	}
	switch msg := reply.(type) {
	case *MsgAcceptVersion:
		return c.handleAcceptVersion(msg)
	case *MsgRefuse:
		refuseErr, err := newRefuseError(msg.Reason)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %s: refuse: %w", protocol.ErrDecode, ProtocolName, err)
		}
		return 0, nil, refuseErr
	case *MsgQueryReply:
		return 0, nil, ErrQueryReply
	default:
		return 0, nil, fmt.Errorf(
			"%w: %s: unexpected message %T",
			protocol.ErrProtocolViolationInvalidMessage,
			ProtocolName,
			reply,
		)
	}
}

func (c *Client) handleAcceptVersion(
	msg *MsgAcceptVersion,
) (uint16, protocol.VersionData, error) {
	if _, ok := c.config.ProtocolVersionMap[msg.Version]; !ok {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, msg.Version)
	}
	protoVersion, ok := protocol.GetProtocolVersion(msg.Version)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, msg.Version)
	}
	versionData, err := protoVersion.NewVersionDataFromCborFunc(msg.VersionData)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"%w: %s: version data: %w",
			protocol.ErrDecode,
			ProtocolName,
			err,
		)
	}
	c.Logger().Debug(
		"negotiated protocol version",
		"version", msg.Version,
		"network_magic", versionData.NetworkMagic(),
	)
	return msg.Version, versionData, nil
}
