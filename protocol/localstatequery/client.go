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

package localstatequery

import (
	"context"
	"fmt"
	"sync"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/common"
)

// AcquireTarget selects the ledger state to acquire
type AcquireTarget interface {
	isAcquireTarget()
}

// AcquireSpecificPoint acquires the ledger state at the given point
type AcquireSpecificPoint struct {
	Point common.Point
}

func (AcquireSpecificPoint) isAcquireTarget() {}

// AcquireVolatileTip acquires the ledger state at the current tip
type AcquireVolatileTip struct{}

func (AcquireVolatileTip) isAcquireTarget() {}

// AcquireImmutableTip acquires the ledger state at the tip of the immutable chain
type AcquireImmutableTip struct{}

func (AcquireImmutableTip) isAcquireTarget() {}

// Client implements the LocalStateQuery client
type Client struct {
	*protocol.Protocol
	config *Config
	// Negotiated node-to-client version, without the NtC offset. Zero means unknown
	version    uint16
	eraMutex   sync.Mutex
	currentEra int
}

// NewClient returns a new LocalStateQuery client object
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
	if entry, ok := stateMap[StateQuerying]; ok {
		entry.Timeout = cfg.QueryTimeout
		stateMap[StateQuerying] = entry
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
		Protocol:   p,
		config:     cfg,
		currentEra: -1,
	}
	if protoOptions.Version > protocol.ProtocolVersionNtCOffset {
		c.version = protoOptions.Version - protocol.ProtocolVersionNtCOffset
	}
	return c, nil
}

// Acquire acquires the requested ledger state. A Failure reply returns
// ErrAcquireFailurePointTooOld or ErrAcquireFailurePointNotOnChain and leaves the
// client in the Idle state
func (c *Client) Acquire(ctx context.Context, target AcquireTarget) error {
	c.Logger().Debug(
		"calling Acquire()",
		"target", fmt.Sprintf("%T", target),
	)
	msg, err := c.acquireMessage(target, false)
	if err != nil {
		return err
	}
	if err := c.SendMessage(ctx, msg); err != nil {
		return err
	}
	return c.waitAcquired(ctx)
}

// ReAcquire moves an acquired client to a different ledger state without a Release
func (c *Client) ReAcquire(ctx context.Context, target AcquireTarget) error {
	c.Logger().Debug(
		"calling ReAcquire()",
		"target", fmt.Sprintf("%T", target),
	)
	msg, err := c.acquireMessage(target, true)
	if err != nil {
		return err
	}
	if err := c.SendMessage(ctx, msg); err != nil {
		return err
	}
	return c.waitAcquired(ctx)
}

// Query sends a query against the acquired ledger state and returns the raw result
func (c *Client) Query(ctx context.Context, query any) (cbor.RawMessage, error) {
	c.Logger().Debug("calling Query()")
	if err := c.SendMessage(ctx, NewMsgQuery(query)); err != nil {
		return nil, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgResult, ok := msg.(*MsgResult)
	if !ok {
		return nil, unexpectedMessage(msg)
	}
	return msgResult.Result, nil
}

// Release releases the acquired ledger state
func (c *Client) Release(ctx context.Context) error {
	c.Logger().Debug("calling Release()")
	if err := c.SendMessage(ctx, NewMsgRelease()); err != nil {
		return err
	}
	c.resetEra()
	return nil
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgDone())
}

// QueryAt acquires the target state, runs a single query, releases the state and
// decodes the query result into result. A nil result discards the reply
func (c *Client) QueryAt(
	ctx context.Context,
	target AcquireTarget,
	query any,
	result any,
) error {
	if err := c.Acquire(ctx, target); err != nil {
		return err
	}
	resultCbor, err := c.Query(ctx, query)
	if err != nil {
		if c.CurrentState() == StateAcquired {
			_ = c.Release(ctx)
		}
		return err
	}
	if err := c.Release(ctx); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if _, err := cbor.Decode(resultCbor, result); err != nil {
		return fmt.Errorf("decode query result: %w", err)
	}
	return nil
}

func (c *Client) acquireMessage(
	target AcquireTarget,
	reacquire bool,
) (protocol.Message, error) {
	switch t := target.(type) {
	case AcquireSpecificPoint:
		if reacquire {
			return NewMsgReAcquire(t.Point), nil
		}
		return NewMsgAcquire(t.Point), nil
	case AcquireVolatileTip, nil:
		if reacquire {
			return NewMsgReAcquireVolatileTip(), nil
		}
		return NewMsgAcquireVolatileTip(), nil
	case AcquireImmutableTip:
		if c.version > 0 && c.version < 16 {
			return nil, ErrImmutableTipNotSupported
		}
		if reacquire {
			return NewMsgReAcquireImmutableTip(), nil
		}
		return NewMsgAcquireImmutableTip(), nil
	default:
		return nil, fmt.Errorf("invalid acquire target: %T", target)
	}
}

func (c *Client) waitAcquired(ctx context.Context) error {
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return err
	}
	// Any previously cached era belongs to the old state
	c.resetEra()
	switch msg := msg.(type) {
	case *MsgAcquired:
		c.Logger().Debug("acquired")
		return nil
	case *MsgFailure:
		c.Logger().Debug(
			"acquire failed",
			"failure", msg.Failure,
		)
		switch msg.Failure {
		case AcquireFailurePointTooOld:
			return ErrAcquireFailurePointTooOld
		case AcquireFailurePointNotOnChain:
			return ErrAcquireFailurePointNotOnChain
		default:
			return c.Abort(
				fmt.Errorf(
					"%w: %s: unknown acquire failure reason %d",
					protocol.ErrProtocolViolationInvalidMessage,
					ProtocolName,
					msg.Failure,
				),
			)
		}
	default:
		return unexpectedMessage(msg)
	}
}

func (c *Client) resetEra() {
	c.eraMutex.Lock()
	c.currentEra = -1
	c.eraMutex.Unlock()
}

func unexpectedMessage(msg protocol.Message) error {
	return fmt.Errorf(
		"%w: %s: unexpected message type %T",
		protocol.ErrProtocolViolationInvalidMessage,
		ProtocolName,
		msg,
	)
}
