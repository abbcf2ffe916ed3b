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

// Package protocol provides the common functionality for mini-protocols
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/muxer"
	"github.com/google/uuid"
)

// ProtocolRole is an enum of the protocol roles
type ProtocolRole uint

// Protocol roles
const (
	ProtocolRoleNone   ProtocolRole = 0 // Default (invalid) protocol role
	ProtocolRoleClient ProtocolRole = 1 // Client protocol role
	ProtocolRoleServer ProtocolRole = 2 // Server protocol role
)

func (r ProtocolRole) String() string {
	switch r {
	case ProtocolRoleClient:
		return "client"
	case ProtocolRoleServer:
		return "server"
	default:
		return "none"
	}
}

// ProtocolMode is an enum of the protocol modes
type ProtocolMode uint

// Protocol modes
const (
	ProtocolModeNone         ProtocolMode = 0 // Default (invalid) protocol mode
	ProtocolModeNodeToClient ProtocolMode = 1 // Node-to-client protocol mode
	ProtocolModeNodeToNode   ProtocolMode = 2 // Node-to-node protocol mode
)

// ProtocolOptions provides common arguments for all mini-protocols
type ProtocolOptions struct {
	ConnectionId uuid.UUID
	Muxer        *muxer.Muxer
	Demuxer      *muxer.Demuxer
	Logger       *slog.Logger
	Mode         ProtocolMode
	Version      uint16
}

// ProtocolConfig provides the configuration for Protocol
type ProtocolConfig struct {
	Name                string
	ProtocolId          uint16
	ConnectionId        uuid.UUID
	Muxer               *muxer.Muxer
	Demuxer             *muxer.Demuxer
	Logger              *slog.Logger
	Mode                ProtocolMode
	Role                ProtocolRole
	MessageFromCborFunc MessageFromCborFunc
	StateMap            StateMap
	InitialState        State
}

// Protocol implements the agency rules shared by all mini-protocols on top of a
// single muxer channel
type Protocol struct {
	config       ProtocolConfig
	channel      *muxer.Channel
	logger       *slog.Logger
	stateMutex   sync.Mutex
	currentState State
	fatalErr     error
}

// New returns a new Protocol object and subscribes its channel on the demuxer
func New(config ProtocolConfig) (*Protocol, error) {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	muxerRole := muxer.ProtocolRoleInitiator
	if config.Role == ProtocolRoleServer {
		muxerRole = muxer.ProtocolRoleResponder
	}
	channel, err := muxer.NewChannel(
		config.Muxer,
		config.Demuxer,
		config.ProtocolId,
		muxerRole,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.Name, err)
	}
	p := &Protocol{
		config:       config,
		channel:      channel,
		currentState: config.InitialState,
		logger: config.Logger.With(
			"component", "network",
			"protocol", config.Name,
			"role", config.Role.String(),
			"connection_id", config.ConnectionId.String(),
		),
	}
	return p, nil
}

// Logger returns the protocol logger, which carries the common protocol attributes
func (p *Protocol) Logger() *slog.Logger {
	return p.logger
}

// Mode returns the protocol mode
func (p *Protocol) Mode() ProtocolMode {
	return p.config.Mode
}

// Role returns the protocol role
func (p *Protocol) Role() ProtocolRole {
	return p.config.Role
}

// CurrentState returns the current protocol state
func (p *Protocol) CurrentState() State {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	return p.currentState
}

// IsDone returns true once the protocol has reached a state where nobody has agency
func (p *Protocol) IsDone() bool {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	return p.config.StateMap[p.currentState].Agency == AgencyNone
}

func (p *Protocol) localAgency() ProtocolStateAgency {
	if p.config.Role == ProtocolRoleServer {
		return AgencyServer
	}
	return AgencyClient
}

func (p *Protocol) remoteAgency() ProtocolStateAgency {
	if p.config.Role == ProtocolRoleServer {
		return AgencyClient
	}
	return AgencyServer
}

// SendMessage encodes and sends msg. It fails immediately if we don't have agency in
// the current state or msg has no transition from it
func (p *Protocol) SendMessage(ctx context.Context, msg Message) error {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	if err := p.checkErr(); err != nil {
		return err
	}
	agency := p.config.StateMap[p.currentState].Agency
	if agency != p.localAgency() {
		return fmt.Errorf(
			"%w: %s: cannot send %T in state %s (agency: %s)",
			ErrAgencyViolation,
			p.config.Name,
			msg,
			p.currentState,
			agency,
		)
	}
	newState, ok := p.config.StateMap.transition(p.currentState, msg)
	if !ok {
		return fmt.Errorf(
			"%w: %s: message %T not allowed in state %s",
			ErrAgencyViolation,
			p.config.Name,
			msg,
			p.currentState,
		)
	}
	data := msg.Cbor()
	if data == nil {
		var err error
		data, err = cbor.Encode(msg)
		if err != nil {
			return fmt.Errorf("%s: encode error: %w", p.config.Name, err)
		}
	}
	p.logger.Debug(
		fmt.Sprintf("sending message %T", msg),
		"state", p.currentState.String(),
		"new_state", newState.String(),
	)
	if err := p.channel.SendMessage(ctx, data); err != nil {
		return err
	}
	p.currentState = newState
	return nil
}

// RecvMessage waits for the next message from the peer. It fails immediately if the
// peer doesn't have agency in the current state. An unexpected message is fatal to
// this protocol instance
func (p *Protocol) RecvMessage(ctx context.Context) (Message, error) {
	p.stateMutex.Lock()
	// Replies delivered before a connection failure are still returned
	if err := p.fatalErr; err != nil {
		p.stateMutex.Unlock()
		return nil, err
	}
	state := p.currentState
	entry := p.config.StateMap[state]
	p.stateMutex.Unlock()
	if entry.Agency != p.remoteAgency() {
		if err := p.channel.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf(
			"%w: %s: cannot receive in state %s (agency: %s)",
			ErrAgencyViolation,
			p.config.Name,
			state,
			entry.Agency,
		)
	}
	if entry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(
			ctx,
			entry.Timeout,
			fmt.Errorf(
				"%w from protocol state %s",
				ErrTimeout,
				state,
			),
		)
		defer cancel()
	}
	data, err := p.channel.ReceiveMessage(ctx)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrTimeout) {
			err = fmt.Errorf("%s: %w", p.config.Name, cause)
			p.setFatal(err)
		} else if errors.Is(err, muxer.ErrInvalidFrame) {
			err = fmt.Errorf("%w: %s: %w", ErrDecode, p.config.Name, err)
			p.setFatal(err)
		}
		return nil, err
	}
	msgType, err := cbor.DecodeIdFromList(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, p.config.Name, err)
	}
	msg, err := p.config.MessageFromCborFunc(uint(msgType), data) // #nosec G115
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, p.config.Name, err)
	}
	if msg == nil {
		err := fmt.Errorf(
			"%w: %s: message type %d",
			ErrProtocolViolationUnknownMessage,
			p.config.Name,
			msgType,
		)
		p.setFatal(err)
		return nil, err
	}
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	newState, ok := p.config.StateMap.transition(p.currentState, msg)
	if !ok {
		p.fatalErr = fmt.Errorf(
			"%w: %s: received %T in state %s",
			ErrProtocolViolationInvalidMessage,
			p.config.Name,
			msg,
			p.currentState,
		)
		return nil, p.fatalErr
	}
	p.logger.Debug(
		fmt.Sprintf("received message %T", msg),
		"state", p.currentState.String(),
		"new_state", newState.String(),
	)
	p.currentState = newState
	return msg, nil
}

// Abort marks the protocol instance as failed. Every later operation returns err
func (p *Protocol) Abort(err error) error {
	p.setFatal(err)
	return err
}

// checkErr must be called with the state mutex held
func (p *Protocol) checkErr() error {
	// A dead connection takes precedence over the protocol state
	if err := p.channel.Err(); err != nil {
		return err
	}
	return p.fatalErr
}

func (p *Protocol) setFatal(err error) {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	if p.fatalErr == nil {
		p.fatalErr = err
	}
}
