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

package chainsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/common"
)

// NextResponseType identifies the kind of reply to RequestNext
type NextResponseType uint

const (
	NextResponseAwaitReply   NextResponseType = 1
	NextResponseRollForward  NextResponseType = 2
	NextResponseRollBackward NextResponseType = 3
)

func (t NextResponseType) String() string {
	switch t {
	case NextResponseAwaitReply:
		return "AwaitReply"
	case NextResponseRollForward:
		return "RollForward"
	case NextResponseRollBackward:
		return "RollBackward"
	default:
		return "Unknown"
	}
}

// NextResponse is the reply to RequestNext. For RollForward, Content holds the block
// (node-to-client) or block header (node-to-node) CBOR. For RollBackward, Point is the
// point to roll back to
type NextResponse struct {
	Type    NextResponseType
	Era     uint
	Content []byte
	Header  *WrappedHeader
	Point   common.Point
	Tip     common.Tip
}

// Client implements the ChainSync client
type Client struct {
	*protocol.Protocol
	config *Config
}

// NewClient returns a new ChainSync client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) (*Client, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	// Use node-to-client protocol ID
	protocolId := ProtocolIdNtC
	msgFromCborFunc := NewMsgFromCborNtC
	if protoOptions.Mode == protocol.ProtocolModeNodeToNode {
		// Use node-to-node protocol ID
		protocolId = ProtocolIdNtN
		msgFromCborFunc = NewMsgFromCborNtN
	}
	// Update state map with timeouts
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateIntersect]; ok {
		entry.Timeout = cfg.IntersectTimeout
		stateMap[StateIntersect] = entry
	}
	for _, state := range []protocol.State{StateCanAwait, StateMustReply} {
		if entry, ok := stateMap[state]; ok {
			entry.Timeout = cfg.BlockTimeout
			stateMap[state] = entry
		}
	}
	p, err := protocol.New(protocol.ProtocolConfig{
		Name:                ProtocolName,
		ProtocolId:          protocolId,
		ConnectionId:        protoOptions.ConnectionId,
		Muxer:               protoOptions.Muxer,
		Demuxer:             protoOptions.Demuxer,
		Logger:              protoOptions.Logger,
		Mode:                protoOptions.Mode,
		Role:                protocol.ProtocolRoleClient,
		MessageFromCborFunc: msgFromCborFunc,
		StateMap:            stateMap,
		InitialState:        StateIdle,
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

// FindIntersect asks the server for the newest of the provided points that is on its
// chain. It returns ErrIntersectNotFound, along with the server tip, when there is none
func (c *Client) FindIntersect(
	ctx context.Context,
	points []common.Point,
) (common.Point, common.Tip, error) {
	c.Logger().Debug(
		"calling FindIntersect()",
		"points", len(points),
	)
	if err := c.SendMessage(ctx, NewMsgFindIntersect(points)); err != nil {
		return common.Point{}, common.Tip{}, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return common.Point{}, common.Tip{}, err
	}
	switch msg := msg.(type) {
	case *MsgIntersectFound:
		c.Logger().Debug(
			"intersect found",
			"point", msg.Point.String(),
		)
		return msg.Point, msg.Tip, nil
	case *MsgIntersectNotFound:
		return common.Point{}, msg.Tip, ErrIntersectNotFound
	default:
		return common.Point{}, common.Tip{}, unexpectedMessage(msg)
	}
}

// GetCurrentTip returns the current chain tip of the server
func (c *Client) GetCurrentTip(ctx context.Context) (common.Tip, error) {
	c.Logger().Debug("calling GetCurrentTip()")
	// An empty intersect request never matches, but the reply carries the tip
	_, tip, err := c.FindIntersect(ctx, []common.Point{})
	if err == nil || errors.Is(err, ErrIntersectNotFound) {
		c.Logger().Debug(
			"received tip",
			"slot", tip.Point.Slot,
			"block_number", tip.BlockNumber,
		)
		return tip, nil
	}
	return common.Tip{}, err
}

// RequestNext returns the next update from the server. In the Idle state it sends a
// request. If a previous call was answered with AwaitReply, or was cancelled while
// waiting, it only waits for the pending reply
func (c *Client) RequestNext(ctx context.Context) (NextResponse, error) {
	if c.CurrentState() == StateIdle {
		c.Logger().Debug("calling RequestNext()")
		if err := c.SendMessage(ctx, NewMsgRequestNext()); err != nil {
			return NextResponse{}, err
		}
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return NextResponse{}, err
	}
	switch msg := msg.(type) {
	case *MsgAwaitReply:
		c.Logger().Debug("await reply")
		return NextResponse{Type: NextResponseAwaitReply}, nil
	case *MsgRollForwardNtC:
		c.Logger().Debug(
			"roll forward",
			"era", msg.WrappedBlock.Era,
			"tip_slot", msg.Tip.Point.Slot,
		)
		return NextResponse{
			Type:    NextResponseRollForward,
			Era:     msg.WrappedBlock.Era,
			Content: msg.WrappedBlock.BlockCbor,
			Tip:     msg.Tip,
		}, nil
	case *MsgRollForwardNtN:
		c.Logger().Debug(
			"roll forward",
			"era", msg.WrappedHeader.Era,
			"tip_slot", msg.Tip.Point.Slot,
		)
		header := msg.WrappedHeader
		return NextResponse{
			Type:    NextResponseRollForward,
			Era:     header.Era,
			Content: header.HeaderCbor,
			Header:  &header,
			Tip:     msg.Tip,
		}, nil
	case *MsgRollBackward:
		c.Logger().Debug(
			"roll backward",
			"point", msg.Point.String(),
		)
		return NextResponse{
			Type:  NextResponseRollBackward,
			Point: msg.Point,
			Tip:   msg.Tip,
		}, nil
	default:
		return NextResponse{}, unexpectedMessage(msg)
	}
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgDone())
}

func unexpectedMessage(msg protocol.Message) error {
	return fmt.Errorf(
		"%w: %s: unexpected message type %T",
		protocol.ErrProtocolViolationInvalidMessage,
		ProtocolName,
		msg,
	)
}
