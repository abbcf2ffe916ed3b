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

// Package peersharing implements the client side of the Ouroboros PeerSharing protocol,
// which asks a node-to-node peer for addresses of other peers
package peersharing

import (
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Protocol identifiers
const (
	ProtocolName        = "peer-sharing"
	ProtocolId   uint16 = 10
)

var (
	StateIdle = protocol.NewState(1, "Idle")
	StateBusy = protocol.NewState(2, "Busy")
	StateDone = protocol.NewState(3, "Done")
)

// PeerSharing protocol state machine
var StateMap = protocol.StateMap{
	StateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeShareRequest,
				NewState: StateBusy,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: StateDone,
			},
		},
	},
	StateBusy: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeSharePeers,
				NewState: StateIdle,
			},
		},
	},
	StateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// PeerSharing is a wrapper object that holds the client instance
type PeerSharing struct {
	Client *Client
}

// Config is used to configure the PeerSharing protocol instance
type Config struct {
	Timeout time.Duration
}

// New returns a new PeerSharing object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) (*PeerSharing, error) {
	client, err := NewClient(protoOptions, cfg)
	if err != nil {
		return nil, err
	}
	return &PeerSharing{
		Client: client,
	}, nil
}

// PeerSharingOptionFunc represents a function used to modify the PeerSharing protocol config
type PeerSharingOptionFunc func(*Config)

// NewConfig returns a new PeerSharing config object with the provided options
func NewConfig(options ...PeerSharingOptionFunc) Config {
	c := Config{
		Timeout: 60 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithTimeout specifies how long to wait for the peer to share its peers
func WithTimeout(timeout time.Duration) PeerSharingOptionFunc {
	return func(c *Config) {
		c.Timeout = timeout
	}
}
