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

package localtxmonitor

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Client implements the LocalTxMonitor client
type Client struct {
	*protocol.Protocol
	config *Config
	// Negotiated node-to-client version, without the NtC offset. Zero means unknown
	version uint16
}

// NewClient returns a new LocalTxMonitor client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) (*Client, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	// Update state map with timeouts
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateAcquiring]; ok {
		entry.Timeout = cfg.AcquireTimeout
		stateMap[StateAcquiring] = entry
	}
	if entry, ok := stateMap[StateBusy]; ok {
		entry.Timeout = cfg.QueryTimeout
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
	c := &Client{
		Protocol: p,
		config:   cfg,
	}
	if protoOptions.Version > protocol.ProtocolVersionNtCOffset {
		c.version = protoOptions.Version - protocol.ProtocolVersionNtCOffset
	}
	return c, nil
}

// Acquire takes a snapshot of the mempool and returns the slot it was taken at.
// Calling it again while acquired blocks until the mempool differs from the
// current snapshot
func (c *Client) Acquire(ctx context.Context) (uint64, error) {
	c.Logger().Debug("calling Acquire()")
	if err := c.SendMessage(ctx, NewMsgAcquire()); err != nil {
		return 0, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return 0, err
	}
	msgAcquired, ok := msg.(*MsgAcquired)
	if !ok {
		return 0, unexpectedMessage(msg)
	}
	c.Logger().Debug(
		"acquired",
		"slot", msgAcquired.SlotNo,
	)
	return msgAcquired.SlotNo, nil
}

// Release releases the current mempool snapshot
func (c *Client) Release(ctx context.Context) error {
	c.Logger().Debug("calling Release()")
	return c.SendMessage(ctx, NewMsgRelease())
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgDone())
}

// NextTx returns the era and CBOR of the next transaction in the snapshot. A nil
// transaction means the snapshot has been drained
func (c *Client) NextTx(ctx context.Context) (uint8, []byte, error) {
	c.Logger().Debug("calling NextTx()")
	if err := c.SendMessage(ctx, NewMsgNextTx()); err != nil {
		return 0, nil, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return 0, nil, err
	}
	msgReply, ok := msg.(*MsgReplyNextTx)
	if !ok {
		return 0, nil, unexpectedMessage(msg)
	}
	if msgReply.Transaction == nil {
		return 0, nil, nil
	}
	return msgReply.Transaction.EraId, []byte(msgReply.Transaction.Tx), nil
}

// HasTx reports whether the snapshot contains the transaction with the given ID
func (c *Client) HasTx(ctx context.Context, txId []byte) (bool, error) {
	c.Logger().Debug(
		"calling HasTx()",
		"tx_id", hex.EncodeToString(txId),
	)
	if err := c.SendMessage(ctx, NewMsgHasTx(txId)); err != nil {
		return false, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return false, err
	}
	msgReply, ok := msg.(*MsgReplyHasTx)
	if !ok {
		return false, unexpectedMessage(msg)
	}
	return msgReply.Result, nil
}

// GetSizes returns the capacity and usage of the snapshot
func (c *Client) GetSizes(ctx context.Context) (MempoolSizes, error) {
	c.Logger().Debug("calling GetSizes()")
	if err := c.SendMessage(ctx, NewMsgGetSizes()); err != nil {
		return MempoolSizes{}, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return MempoolSizes{}, err
	}
	msgReply, ok := msg.(*MsgReplyGetSizes)
	if !ok {
		return MempoolSizes{}, unexpectedMessage(msg)
	}
	return msgReply.Result, nil
}

// GetMeasures returns the transaction count of the snapshot along with its usage
// per named measure
func (c *Client) GetMeasures(
	ctx context.Context,
) (uint32, map[string]MeasureValue, error) {
	c.Logger().Debug("calling GetMeasures()")
	if c.version > 0 && c.version < 20 {
		return 0, nil, ErrMeasuresNotSupported
	}
	if err := c.SendMessage(ctx, NewMsgGetMeasures()); err != nil {
		return 0, nil, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return 0, nil, err
	}
	msgReply, ok := msg.(*MsgReplyGetMeasures)
	if !ok {
		return 0, nil, unexpectedMessage(msg)
	}
	return msgReply.TxCount, msgReply.Measures, nil
}

func unexpectedMessage(msg protocol.Message) error {
	return fmt.Errorf(
		"%w: %s: unexpected message type %T",
		protocol.ErrProtocolViolationInvalidMessage,
		ProtocolName,
		msg,
	)
}
