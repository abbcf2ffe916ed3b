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

package keepalive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

var (
	// ErrCookieMismatch is returned when the server echoes a different cookie
	ErrCookieMismatch = errors.New("keep-alive: cookie mismatch")
	// ErrCookieOutOfRange is returned when the server echoes a cookie that doesn't fit in 16 bits
	ErrCookieOutOfRange = errors.New("keep-alive: cookie out of range")
	// ErrServerDone is returned when the server ends the protocol instead of responding
	ErrServerDone = errors.New("keep-alive: server terminated the protocol")
)

// Client implements the keep-alive client.
type Client struct {
	*protocol.Protocol
	config *Config
}

// NewClient creates and returns a new keep-alive protocol client with the given options and configuration.
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) (*Client, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateServer]; ok {
		entry.Timeout = cfg.Timeout
		stateMap[StateServer] = entry
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
		InitialState:        StateClient,
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

// KeepAlive performs a single round trip and returns how long it took. A cookie
// mismatch or an out of range cookie is fatal to the protocol instance
func (c *Client) KeepAlive(ctx context.Context) (time.Duration, error) {
	cookie := c.config.Cookie
	if cookie == 0 {
		// #nosec G404
		cookie = uint16(rand.IntN(math.MaxUint16) + 1)
	}
	c.Logger().Debug(
		"sending keep-alive",
		"cookie", cookie,
	)
	start := time.Now()
	if err := c.SendMessage(ctx, NewMsgKeepAlive(cookie)); err != nil {
		return 0, err
	}
	msg, err := c.RecvMessage(ctx)
	if err != nil {
		return 0, err
	}
	switch msg := msg.(type) {
	case *MsgKeepAliveResponse:
		if msg.Cookie > math.MaxUint16 {
			return 0, c.Abort(fmt.Errorf("%w: %d", ErrCookieOutOfRange, msg.Cookie))
		}
		if msg.Cookie != uint64(cookie) {
			return 0, c.Abort(
				fmt.Errorf(
					"%w: expected %d, got %d",
					ErrCookieMismatch,
					cookie,
					msg.Cookie,
				),
			)
		}
		rtt := time.Since(start)
		c.Logger().Debug(
			"received keep-alive response",
			"cookie", msg.Cookie,
			"rtt", rtt,
		)
		return rtt, nil
	case *MsgDone:
		return 0, ErrServerDone
	default:
		return 0, c.Abort(
			fmt.Errorf(
				"%w: %s: unexpected message type %T",
				protocol.ErrProtocolViolationInvalidMessage,
				ProtocolName,
				msg,
			),
		)
	}
}

// Run sends a keep-alive every configured period until the context is cancelled or a
// round trip fails. It returns nil on cancellation
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.config.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.KeepAlive(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Done ends the protocol
func (c *Client) Done(ctx context.Context) error {
	c.Logger().Debug("calling Done()")
	return c.SendMessage(ctx, NewMsgDone())
}
