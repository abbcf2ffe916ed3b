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

package blockfetch

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/common"
)

// Client implements the Block Fetch protocol client, which requests blocks from a server.
type Client struct {
	*protocol.Protocol
	config *Config
}

// NewClient creates a new Block Fetch protocol client with the given options and configuration.
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) (*Client, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	// Update state map with timeouts
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateBusy]; ok {
		entry.Timeout = cfg.BatchStartTimeout
		stateMap[StateBusy] = entry
	}
	if entry, ok := stateMap[StateStreaming]; ok {
		entry.Timeout = cfg.BlockTimeout
		stateMap[StateStreaming] = entry
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
	c := &Client{
		Protocol: p,
		config:   cfg,
	}
	return c, nil
}

// RequestRange asks the server for the blocks from start to end, inclusive. The
// reply is read with ReceiveBlocks
func (c *Client) RequestRange(ctx context.Context, start common.Point, end common.Point) error {
	c.Logger().Debug(
		"calling RequestRange()",
		"start", start.String(),
		"end", end.String(),
	)
	return c.SendMessage(ctx, NewMsgRequestRange(start, end))
}

// ReceiveBlocks returns the blocks of the requested range as they arrive. The
// sequence ends after the last block, or right away if the server has none of them.
// An error ends the sequence. The sequence can only be ranged over once. Stopping
// early leaves the protocol streaming, and the rest of the batch has to be drained
// with a new ReceiveBlocks call before Done or another request
func (c *Client) ReceiveBlocks(ctx context.Context) iter.Seq2[[]byte, error] {
	var used atomic.Bool
	return func(yield func([]byte, error) bool) {
		if used.Swap(true) {
			return
		}
		for {
			msg, err := c.RecvMessage(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			switch msg := msg.(type) {
			case *MsgStartBatch:
				c.Logger().Debug("batch started")
			case *MsgNoBlocks:
				c.Logger().Debug("no blocks in range")
				return
			case *MsgBlock:
				block, err := UnwrapBlock(msg.WrappedBlock)
				if err != nil {
					yield(nil, fmt.Errorf("%w: %s: %w", protocol.ErrDecode, ProtocolName, err))
					return
				}
				if !yield(block, nil) {
					return
				}
			case *MsgBatchDone:
				c.Logger().Debug("batch done")
				return
			default:
				yield(
					nil,
					fmt.Errorf(
						"%w: %s: unexpected message type %T",
						protocol.ErrProtocolViolationInvalidMessage,
						ProtocolName,
						msg,
					),
				)
				return
			}
		}
	}
}

// FetchRange requests the blocks from start to end and collects all of them
func (c *Client) FetchRange(
	ctx context.Context,
	start common.Point,
	end common.Point,
) ([][]byte, error) {
	if err := c.RequestRange(ctx, start, end); err != nil {
		return nil, err
	}
	var ret [][]byte
	for block, err := range c.ReceiveBlocks(ctx) {
		if err != nil {
			return nil, err
		}
		ret = append(ret, block)
	}
	return ret, nil
}

// FetchSingle returns the block at the provided point
func (c *Client) FetchSingle(ctx context.Context, point common.Point) ([]byte, error) {
	blocks, err := c.FetchRange(ctx, point, point)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, point.String())
	}
	return blocks[0], nil
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgClientDone())
}
