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

// Package chainsync implements the Ouroboros chain-sync protocol
package chainsync

import (
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Protocol identifiers
const (
	ProtocolName         = "chain-sync"
	ProtocolIdNtN uint16 = 2
	ProtocolIdNtC uint16 = 5
)

var (
	StateIdle      = protocol.NewState(1, "Idle")
	StateCanAwait  = protocol.NewState(2, "CanAwait")
	StateMustReply = protocol.NewState(3, "MustReply")
	StateIntersect = protocol.NewState(4, "Intersect")
	StateDone      = protocol.NewState(5, "Done")
)

// ChainSync protocol state machine
var StateMap = protocol.StateMap{
	StateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeRequestNext,
				NewState: StateCanAwait,
			},
			{
				MsgType:  MessageTypeFindIntersect,
				NewState: StateIntersect,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: StateDone,
			},
		},
	},
	StateCanAwait: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeAwaitReply,
				NewState: StateMustReply,
			},
			{
				MsgType:  MessageTypeRollForward,
				NewState: StateIdle,
			},
			{
				MsgType:  MessageTypeRollBackward,
				NewState: StateIdle,
			},
		},
	},
	StateIntersect: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeIntersectFound,
				NewState: StateIdle,
			},
			{
				MsgType:  MessageTypeIntersectNotFound,
				NewState: StateIdle,
			},
		},
	},
	StateMustReply: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeRollForward,
				NewState: StateIdle,
			},
			{
				MsgType:  MessageTypeRollBackward,
				NewState: StateIdle,
			},
		},
	},
	StateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// ChainSync is a wrapper object that holds the client instance
type ChainSync struct {
	Client *Client
}

// Config is used to configure the ChainSync protocol instance
type Config struct {
	IntersectTimeout time.Duration
	BlockTimeout     time.Duration
}

// New returns a new ChainSync object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) (*ChainSync, error) {
	client, err := NewClient(protoOptions, cfg)
	if err != nil {
		return nil, err
	}
	c := &ChainSync{
		Client: client,
	}
	return c, nil
}

// ChainSyncOptionFunc represents a function used to modify the ChainSync protocol config
type ChainSyncOptionFunc func(*Config)

// NewConfig returns a new ChainSync config object with the provided options
func NewConfig(options ...ChainSyncOptionFunc) Config {
	c := Config{
		IntersectTimeout: 5 * time.Second,
		// We've seen close to a minute between blocks on the preview network
		BlockTimeout: 180 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithIntersectTimeout specifies the timeout for intersect operations
func WithIntersectTimeout(timeout time.Duration) ChainSyncOptionFunc {
	return func(c *Config) {
		c.IntersectTimeout = timeout
	}
}

// WithBlockTimeout specifies how long to wait for the next block. A zero value waits forever
func WithBlockTimeout(timeout time.Duration) ChainSyncOptionFunc {
	return func(c *Config) {
		c.BlockTimeout = timeout
	}
}
