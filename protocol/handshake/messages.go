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

package handshake

import (
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Message types
const (
	MessageTypeProposeVersions = 0
	MessageTypeAcceptVersion   = 1
	MessageTypeRefuse          = 2
	MessageTypeQueryReply      = 3
)

// Refusal reasons
const (
	RefuseReasonVersionMismatch uint64 = 0
	RefuseReasonDecodeError     uint64 = 1
	RefuseReasonRefused         uint64 = 2
)

// NewMsgFromCbor parses a Handshake message from CBOR
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	var ret protocol.Message
	switch msgType {
	case MessageTypeProposeVersions:
		ret = &MsgProposeVersions{}
	case MessageTypeAcceptVersion:
		ret = &MsgAcceptVersion{}
	case MessageTypeRefuse:
		ret = &MsgRefuse{}
	case MessageTypeQueryReply:
		ret = &MsgQueryReply{}
	default:
		return nil, nil
	}
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, fmt.Errorf("%s: decode error: %w", ProtocolName, err)
	}
	// Store the raw message CBOR
	ret.SetCbor(data)
	return ret, nil
}

type MsgProposeVersions struct {
	protocol.MessageBase
	VersionMap map[uint16]cbor.RawMessage
}

// NewMsgProposeVersions returns a ProposeVersions message with the version data of each
// version pre-encoded
func NewMsgProposeVersions(
	versionMap protocol.ProtocolVersionMap,
) (*MsgProposeVersions, error) {
	rawVersionMap := make(map[uint16]cbor.RawMessage, len(versionMap))
	for version, versionData := range versionMap {
		data, err := cbor.Encode(versionData)
		if err != nil {
			return nil, fmt.Errorf("%s: encode version data: %w", ProtocolName, err)
		}
		rawVersionMap[version] = data
	}
	m := &MsgProposeVersions{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeProposeVersions,
		},
		VersionMap: rawVersionMap,
	}
	return m, nil
}

type MsgAcceptVersion struct {
	protocol.MessageBase
	Version     uint16
	VersionData cbor.RawMessage
}

func NewMsgAcceptVersion(
	version uint16,
	versionData protocol.VersionData,
) (*MsgAcceptVersion, error) {
	data, err := cbor.Encode(versionData)
	if err != nil {
		return nil, err
	}
	m := &MsgAcceptVersion{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeAcceptVersion,
		},
		Version:     version,
		VersionData: data,
	}
	return m, nil
}

type MsgRefuse struct {
	protocol.MessageBase
	Reason []cbor.RawMessage
}

func NewMsgRefuse(reason []any) (*MsgRefuse, error) {
	m := &MsgRefuse{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeRefuse,
		},
	}
	for _, item := range reason {
		data, err := cbor.Encode(item)
		if err != nil {
			return nil, err
		}
		m.Reason = append(m.Reason, data)
	}
	return m, nil
}

type MsgQueryReply struct {
	protocol.MessageBase
	VersionMap map[uint16]cbor.RawMessage
}
