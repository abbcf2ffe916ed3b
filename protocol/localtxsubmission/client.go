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

package localtxsubmission

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Client implements the LocalTxSubmission client
type Client struct {
	*protocol.Protocol
	config *Config
}

// NewClient returns a new LocalTxSubmission client object
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
	c := &Client{
		Protocol: p,
		config:   cfg,
	}
	return c, nil
}

// SubmitTx submits a transaction for the given era and waits for the node to accept
// or reject it. A rejection is returned as *TransactionRejectedError
func (c *Client) SubmitTx(ctx context.Context, eraId uint16, tx []byte) error {
	txId, err := ledger.TransactionId(tx)
	if err != nil {
		return err
	}
	c.Logger().Debug(
		"calling SubmitTx()",
		"era", ledger.EraName(uint(eraId)),
		"tx_id", txId.String(),
		"size", len(tx),
	)
	if err := c.SendMessage(ctx, NewMsgSubmitTx(eraId, tx)); err != nil {
		return err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return err
	}
	switch msg := msg.(type) {
	case *MsgAcceptTx:
		c.Logger().Debug(
			"transaction accepted",
			"tx_id", txId.String(),
		)
		return nil
	case *MsgRejectTx:
		rejectErr := newTransactionRejectedError(msg.Reason)
		c.Logger().Debug(
			"transaction rejected",
			"tx_id", txId.String(),
			"reason", rejectErr.Error(),
		)
		return rejectErr
	default:
		return fmt.Errorf(
			"%w: %s: unexpected message type %T",
			protocol.ErrProtocolViolationInvalidMessage,
			ProtocolName,
			msg,
		)
	}
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgDone())
}
