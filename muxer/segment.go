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

package muxer

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// SegmentHeaderLength is the size of the fixed segment header on the wire
	SegmentHeaderLength = 8
	// SegmentMaxPayloadLength is the largest payload a single segment can carry
	SegmentMaxPayloadLength = 65535
	// SegmentProtocolIdResponseFlag marks segments sent by the responder side
	SegmentProtocolIdResponseFlag = 0x8000
)

// ProtocolRole is the side of a mini-protocol that a segment was sent by
type ProtocolRole uint

const (
	ProtocolRoleNone      ProtocolRole = 0
	ProtocolRoleInitiator ProtocolRole = 1
	ProtocolRoleResponder ProtocolRole = 2
)

func (r ProtocolRole) String() string {
	switch r {
	case ProtocolRoleInitiator:
		return "initiator"
	case ProtocolRoleResponder:
		return "responder"
	default:
		return "none"
	}
}

// Opposite returns the role of the remote side
func (r ProtocolRole) Opposite() ProtocolRole {
	switch r {
	case ProtocolRoleInitiator:
		return ProtocolRoleResponder
	case ProtocolRoleResponder:
		return ProtocolRoleInitiator
	default:
		return ProtocolRoleNone
	}
}

// SegmentHeader is the fixed 8-byte header that precedes each segment payload
type SegmentHeader struct {
	Timestamp     uint32
	ProtocolId    uint16
	PayloadLength uint16
}

// Segment is a single mux segment
type Segment struct {
	SegmentHeader
	Payload []byte
}

// wireProtocolId returns the protocol ID field as sent on the wire for the given role
func wireProtocolId(protocolId uint16, role ProtocolRole) uint16 {
	if role == ProtocolRoleResponder {
		return protocolId | SegmentProtocolIdResponseFlag
	}
	return protocolId &^ SegmentProtocolIdResponseFlag
}

// EncodeHeader packs a segment header in network byte order
func EncodeHeader(
	protocolId uint16,
	role ProtocolRole,
	payloadLength uint16,
	timestamp uint32,
) [SegmentHeaderLength]byte {
	var ret [SegmentHeaderLength]byte
	binary.BigEndian.PutUint32(ret[0:4], timestamp)
	binary.BigEndian.PutUint16(ret[4:6], wireProtocolId(protocolId, role))
	binary.BigEndian.PutUint16(ret[6:8], payloadLength)
	return ret
}

// TryDecodeHeader decodes a segment header from the start of buf. It returns false
// when fewer than SegmentHeaderLength bytes are available
func TryDecodeHeader(buf []byte) (SegmentHeader, bool) {
	if len(buf) < SegmentHeaderLength {
		return SegmentHeader{}, false
	}
	return SegmentHeader{
		Timestamp:     binary.BigEndian.Uint32(buf[0:4]),
		ProtocolId:    binary.BigEndian.Uint16(buf[4:6]),
		PayloadLength: binary.BigEndian.Uint16(buf[6:8]),
	}, true
}

// TryDecodeSegment decodes a full segment from the start of buf. It returns the
// segment and the number of bytes it occupied, or false when the header or the
// payload is not complete yet. The returned payload does not alias buf
func TryDecodeSegment(buf []byte) (*Segment, int, bool) {
	header, ok := TryDecodeHeader(buf)
	if !ok {
		return nil, 0, false
	}
	total := SegmentHeaderLength + int(header.PayloadLength)
	if len(buf) < total {
		return nil, 0, false
	}
	payload := make([]byte, header.PayloadLength)
	copy(payload, buf[SegmentHeaderLength:total])
	return &Segment{
		SegmentHeader: header,
		Payload:       payload,
	}, total, true
}

// NewSegment returns a segment for the given protocol, stamped with the current time.
// A payload that does not fit in a single segment is rejected
func NewSegment(protocolId uint16, payload []byte, isResponse bool) (*Segment, error) {
	if len(payload) > SegmentMaxPayloadLength {
		return nil, fmt.Errorf(
			"%w: %d bytes (max %d)",
			ErrSegmentTooLarge,
			len(payload),
			SegmentMaxPayloadLength,
		)
	}
	role := ProtocolRoleInitiator
	if isResponse {
		role = ProtocolRoleResponder
	}
	return &Segment{
		SegmentHeader: SegmentHeader{
			Timestamp:     timestampNow(),
			ProtocolId:    wireProtocolId(protocolId, role),
			PayloadLength: uint16(len(payload)), // #nosec G115
		},
		Payload: payload,
	}, nil
}

// Bytes returns the wire encoding of the segment
func (s *Segment) Bytes() []byte {
	ret := make([]byte, 0, SegmentHeaderLength+len(s.Payload))
	header := EncodeHeader(
		s.GetProtocolId(),
		s.Role(),
		s.PayloadLength,
		s.Timestamp,
	)
	ret = append(ret, header[:]...)
	return append(ret, s.Payload...)
}

func (s *SegmentHeader) IsRequest() bool {
	return (s.ProtocolId & SegmentProtocolIdResponseFlag) == 0
}

func (s *SegmentHeader) IsResponse() bool {
	return (s.ProtocolId & SegmentProtocolIdResponseFlag) > 0
}

// Role returns the role of the side that sent the segment
func (s *SegmentHeader) Role() ProtocolRole {
	if s.IsResponse() {
		return ProtocolRoleResponder
	}
	return ProtocolRoleInitiator
}

// GetProtocolId returns the protocol ID with the mode bit removed
func (s *SegmentHeader) GetProtocolId() uint16 {
	return s.ProtocolId &^ SegmentProtocolIdResponseFlag
}

// timestampNow returns the current time in milliseconds, truncated to 32 bits
func timestampNow() uint32 {
	return uint32(time.Now().UnixMilli() & 0xffffffff) // #nosec G115
}
