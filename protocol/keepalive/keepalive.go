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

// Package keepalive implements the Ouroboros KeepAlive mini-protocol, which is used to detect and maintain liveness between nodes in a network.
package keepalive

import (
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
)

const (
	// ProtocolName is the name of the keep-alive protocol.
	ProtocolName = "keep-alive"
	// ProtocolId is the unique protocol identifier for the keep-alive protocol.
	ProtocolId uint16 = 8
	// DefaultKeepAlivePeriod is the default interval between keep-alive probes, in seconds.
	DefaultKeepAlivePeriod = 60
	// DefaultKeepAliveTimeout is the default timeout for keep-alive responses, in seconds.
	DefaultKeepAliveTimeout = 10
)

var (
	// StateClient is the protocol state for the client.
	StateClient = protocol.NewState(1, "Client")
	// StateServer is the protocol state for the server.
	StateServer = protocol.NewState(2, "Server")
	// StateDone is the protocol state indicating completion.
	StateDone = protocol.NewState(3, "Done")
)

// StateMap defines the valid state transitions for the keep-alive protocol.
var StateMap = protocol.StateMap{
	StateClient: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeKeepAlive,
				NewState: StateServer,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: StateDone,
			},
		},
	},
	StateServer: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeKeepAliveResponse,
				NewState: StateClient,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: StateDone,
			},
		},
	},
	StateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// KeepAlive holds the client implementation of the keep-alive protocol.
type KeepAlive struct {
	Client *Client
}

// Config contains configuration options for the keep-alive protocol.
type Config struct {
	// Timeout is how long the client waits for a keep-alive response
	Timeout time.Duration
	// Period is the interval between probes sent by Run
	Period time.Duration
	// Cookie is sent with every probe. A zero value picks a random cookie for each probe
	Cookie uint16
}

// New creates and returns a new KeepAlive protocol instance using the provided protocol options and configuration.
func New(protoOptions protocol.ProtocolOptions, cfg *Config) (*KeepAlive, error) {
	client, err := NewClient(protoOptions, cfg)
	if err != nil {
		return nil, err
	}
	k := &KeepAlive{
		Client: client,
	}
	return k, nil
}

// KeepAliveOptionFunc is a function that modifies a Config.
type KeepAliveOptionFunc func(*Config)

// NewConfig creates a new Config with default values, applying any provided option functions.
func NewConfig(options ...KeepAliveOptionFunc) Config {
	c := Config{
		Period:  DefaultKeepAlivePeriod * time.Second,
		Timeout: DefaultKeepAliveTimeout * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithTimeout sets the timeout duration in the Config.
func WithTimeout(timeout time.Duration) KeepAliveOptionFunc {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithPeriod sets the keep-alive period duration in the Config.
func WithPeriod(period time.Duration) KeepAliveOptionFunc {
	return func(c *Config) {
		c.Period = period
	}
}

// WithCookie sets the cookie value in the Config.
func WithCookie(cookie uint16) KeepAliveOptionFunc {
	return func(c *Config) {
		c.Cookie = cookie
	}
}
