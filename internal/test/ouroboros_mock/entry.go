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

package ouroboros_mock

import (
	"time"

	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/handshake"
)

const (
	MockNetworkMagic       uint32 = 999999
	MockProtocolVersionNtC uint16 = 14
	MockProtocolVersionNtN uint16 = 13
)

// ConversationEntry is a single step of a mocked conversation
type ConversationEntry interface {
	isConversationEntry()
}

// ConversationEntryInput expects the next message on ProtocolId from the other side. If
// Message is set, the received CBOR must match its encoding. Otherwise only the message
// type is checked
type ConversationEntryInput struct {
	ProtocolId  uint16
	MessageType uint
	Message     protocol.Message
}

func (ConversationEntryInput) isConversationEntry() {}

// ConversationEntryOutput sends Messages on ProtocolId as a single payload, followed by
// any extra raw bytes in Payload
type ConversationEntryOutput struct {
	ProtocolId uint16
	Messages   []protocol.Message
	Payload    []byte
}

func (ConversationEntryOutput) isConversationEntry() {}

// ConversationEntryClose closes the connection
type ConversationEntryClose struct{}

func (ConversationEntryClose) isConversationEntry() {}

// ConversationEntrySleep pauses the conversation
type ConversationEntrySleep struct {
	Duration time.Duration
}

func (ConversationEntrySleep) isConversationEntry() {}

// ConversationEntryHandshakeRequestGeneric is a pre-defined conversation event that matches a generic
// handshake request from a client
var ConversationEntryHandshakeRequestGeneric = ConversationEntryInput{
	ProtocolId:  handshake.ProtocolId,
	MessageType: handshake.MessageTypeProposeVersions,
}

// ConversationEntryHandshakeNtCResponse is a pre-defined conversation entry for a server NtC handshake response
var ConversationEntryHandshakeNtCResponse = ConversationEntryOutput{
	ProtocolId: handshake.ProtocolId,
	Messages: []protocol.Message{
		mustAcceptVersion(
			MockProtocolVersionNtC+protocol.ProtocolVersionNtCOffset,
			protocol.VersionDataNtC9to14(MockNetworkMagic),
		),
	},
}

// ConversationEntryHandshakeNtNResponse is a pre-defined conversation entry for a server NtN handshake response
var ConversationEntryHandshakeNtNResponse = ConversationEntryOutput{
	ProtocolId: handshake.ProtocolId,
	Messages: []protocol.Message{
		mustAcceptVersion(
			MockProtocolVersionNtN,
			protocol.VersionDataNtN13andUp{
				VersionDataNtN11to12: protocol.VersionDataNtN11to12{
					CborNetworkMagic:                       MockNetworkMagic,
					CborInitiatorAndResponderDiffusionMode: protocol.DiffusionModeInitiatorOnly,
					CborPeerSharing:                        protocol.PeerSharingModeNoPeerSharing,
					CborQuery:                              protocol.QueryModeDisabled,
				},
			},
		),
	},
}

func mustAcceptVersion(version uint16, versionData protocol.VersionData) protocol.Message {
	msg, err := handshake.NewMsgAcceptVersion(version, versionData)
	if err != nil {
		panic(err)
	}
	return msg
}
