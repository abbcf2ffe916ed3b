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

// Package localtxmonitor implements the Ouroboros local-tx-monitor protocol, which
// inspects the mempool of the local node
package localtxmonitor

import (
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Protocol identifiers
const (
	ProtocolName        = "local-tx-monitor"
	ProtocolId   uint16 = 9
)

var (
	StateIdle      = protocol.NewState(1, "Idle")
	StateAcquiring = protocol.NewState(2, "Acquiring")
	StateAcquired  = protocol.NewState(3, "Acquired")
	StateBusy      = protocol.NewState(4, "Busy")
	StateDone      = protocol.NewState(5, "Done")
)

// LocalTxMonitor protocol state machine
var StateMap = protocol.StateMap{
	StateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeAcquire,
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
				MsgType:  MessageTypeAcquired,
				NewState: StateAcquired,
			},
		},
	},
	StateAcquired: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeAcquire,
				NewState: StateAcquiring,
			},
			{
				MsgType:  MessageTypeRelease,
				NewState: StateIdle,
			},
			{
				MsgType:  MessageTypeHasTx,
				NewState: StateBusy,
			},
			{
				MsgType:  MessageTypeNextTx,
				NewState: StateBusy,
			},
			{
				MsgType:  MessageTypeGetSizes,
				NewState: StateBusy,
			},
			{
				MsgType:  MessageTypeGetMeasures,
				NewState: StateBusy,
			},
		},
	},
	StateBusy: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeReplyHasTx,
				NewState: StateAcquired,
			},
			{
				MsgType:  MessageTypeReplyNextTx,
				NewState: StateAcquired,
			},
			{
				MsgType:  MessageTypeReplyGetSizes,
				NewState: StateAcquired,
			},
			{
				MsgType:  MessageTypeReplyGetMeasures,
				NewState: StateAcquired,
			},
		},
	},
	StateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// LocalTxMonitor is a wrapper object that holds the client instance
type LocalTxMonitor struct {
	Client *Client
}

// Config is used to configure the LocalTxMonitor protocol instance
type Config struct {
	AcquireTimeout time.Duration
	QueryTimeout   time.Duration
}

// New returns a new LocalTxMonitor object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) (*LocalTxMonitor, error) {
	client, err := NewClient(protoOptions, cfg)
	if err != nil {
		return nil, err
	}
	l := &LocalTxMonitor{
		Client: client,
	}
	return l, nil
}

// LocalTxMonitorOptionFunc represents a function used to modify the LocalTxMonitor protocol config
type LocalTxMonitorOptionFunc func(*Config)

// NewConfig returns a new LocalTxMonitor config object with the provided options
func NewConfig(options ...LocalTxMonitorOptionFunc) Config {
	c := Config{
		AcquireTimeout: 5 * time.Second,
		QueryTimeout:   30 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithAcquireTimeout specifies the timeout for acquire operations. Re-acquiring waits
// for the mempool to change, so this also bounds how long Acquire waits for a new snapshot
func WithAcquireTimeout(timeout time.Duration) LocalTxMonitorOptionFunc {
	return func(c *Config) {
		c.AcquireTimeout = timeout
	}
}

// WithQueryTimeout specifies the timeout for query operations
func WithQueryTimeout(timeout time.Duration) LocalTxMonitorOptionFunc {
	return func(c *Config) {
		c.QueryTimeout = timeout
	}
}
