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
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Protocol identifiers
const (
	ProtocolName        = "local-state-query"
	ProtocolId   uint16 = 7
)

var (
	StateIdle      = protocol.NewState(1, "Idle")
	StateAcquiring = protocol.NewState(2, "Acquiring")
	StateAcquired  = protocol.NewState(3, "Acquired")
	StateQuerying  = protocol.NewState(4, "Querying")
	StateDone      = protocol.NewState(5, "Done")
)

// LocalStateQuery protocol state machine
var StateMap = protocol.StateMap{
	StateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeAcquire,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeAcquireVolatileTip,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeAcquireImmutableTip,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: StateDone,
			},
		},
	},
	StateAcquiring: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeFailure,
				NewState: StateIdle,
			},
			{
				MsgType:  MessageTypeAcquired,
				NewState: StateAcquired,
			},
		},
	},
	StateAcquired: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeQuery,
				NewState: StateQuerying,
			},
			{
				MsgType:  MessageTypeReAcquire,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeReAcquireVolatileTip,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeReAcquireImmutableTip,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeRelease,
				NewState: StateIdle,
			},
		},
	},
	StateQuerying: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeResult,
				NewState: StateAcquired,
			},
		},
	},
	StateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// LocalStateQuery is a wrapper object that holds the client instance
type LocalStateQuery struct {
	Client *Client
}

// Config is used to configure the LocalStateQuery protocol instance
type Config struct {
	AcquireTimeout time.Duration
	QueryTimeout   time.Duration
}

// New returns a new LocalStateQuery object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) (*LocalStateQuery, error) {
	client, err := NewClient(protoOptions, cfg)
	if err != nil {
		return nil, err
	}
	l := &LocalStateQuery{
		Client: client,
	}
	return l, nil
}

// LocalStateQueryOptionFunc represents a function used to modify the LocalStateQuery protocol config
type LocalStateQueryOptionFunc func(*Config)

// NewConfig returns a new LocalStateQuery config object with the provided options
func NewConfig(options ...LocalStateQueryOptionFunc) Config {
	c := Config{
		AcquireTimeout: 5 * time.Second,
		// Some queries, like the whole UTxO set, take a long time on mainnet
		QueryTimeout: 180 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithAcquireTimeout specifies the timeout for the Acquire operation
func WithAcquireTimeout(timeout time.Duration) LocalStateQueryOptionFunc {
	return func(c *Config) {
		c.AcquireTimeout = timeout
	}
}

// WithQueryTimeout specifies the timeout for the Query operation
func WithQueryTimeout(timeout time.Duration) LocalStateQueryOptionFunc {
	return func(c *Config) {
		c.QueryTimeout = timeout
	}
}
