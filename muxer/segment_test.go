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

package muxer_test

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/ouroboros-client/muxer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	testDefs := []struct {
		protocolId    uint16
		role          muxer.ProtocolRole
		payloadLength uint16
		timestamp     uint32
		expected      []byte
	}{
		{
			protocolId:    2,
			role:          muxer.ProtocolRoleInitiator,
			payloadLength: 3,
			timestamp:     0x01020304,
			expected:      []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x02, 0x00, 0x03},
		},
		{
			protocolId:    7,
			role:          muxer.ProtocolRoleResponder,
			payloadLength: 0xffff,
			timestamp:     0xdeadbeef,
			expected:      []byte{0xde, 0xad, 0xbe, 0xef, 0x80, 0x07, 0xff, 0xff},
		},
	}
	for _, test := range testDefs {
		header := muxer.EncodeHeader(
			test.protocolId,
			test.role,
			test.payloadLength,
			test.timestamp,
		)
		assert.Equal(t, test.expected, header[:])
	}
}

func TestTryDecodeHeaderShortBuffer(t *testing.T) {
	full := muxer.EncodeHeader(5, muxer.ProtocolRoleResponder, 10, 1234)
	for i := 0; i < muxer.SegmentHeaderLength; i++ {
		_, ok := muxer.TryDecodeHeader(full[:i])
		assert.False(t, ok, "header decoded from %d bytes", i)
	}
	header, ok := muxer.TryDecodeHeader(full[:])
	require.True(t, ok)
	assert.Equal(t, uint16(5), header.GetProtocolId())
	assert.True(t, header.IsResponse())
	assert.Equal(t, muxer.ProtocolRoleResponder, header.Role())
	assert.Equal(t, uint16(10), header.PayloadLength)
	assert.Equal(t, uint32(1234), header.Timestamp)
}

func TestTryDecodeSegmentPartialPayload(t *testing.T) {
	segment, err := muxer.NewSegment(3, []byte{1, 2, 3, 4}, true)
	require.NoError(t, err)
	data := segment.Bytes()
	for i := 0; i < len(data); i++ {
		_, _, ok := muxer.TryDecodeSegment(data[:i])
		assert.False(t, ok, "segment decoded from %d bytes", i)
	}
	// Trailing bytes of the next segment must not be consumed
	decoded, consumed, ok := muxer.TryDecodeSegment(append(data, 0x00, 0x01))
	require.True(t, ok)
	assert.Equal(t, len(data), consumed)
	assert.Equal(t, segment.Payload, decoded.Payload)
}

func TestNewSegmentTooLarge(t *testing.T) {
	payload := make([]byte, muxer.SegmentMaxPayloadLength+1)
	segment, err := muxer.NewSegment(2, payload, false)
	require.ErrorIs(t, err, muxer.ErrSegmentTooLarge)
	assert.Nil(t, segment)
}

func TestSegmentRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0xab},
		bytes.Repeat([]byte{0x5a}, 1024),
		bytes.Repeat([]byte{0xa5}, muxer.SegmentMaxPayloadLength),
	}
	for _, protocolId := range []uint16{0, 2, 3, 5, 6, 7, 8, 9} {
		for _, isResponse := range []bool{false, true} {
			for _, payload := range payloads {
				segment, err := muxer.NewSegment(protocolId, payload, isResponse)
				require.NoError(t, err)
				decoded, consumed, ok := muxer.TryDecodeSegment(segment.Bytes())
				require.True(t, ok)
				assert.Equal(t, muxer.SegmentHeaderLength+len(payload), consumed)
				assert.Equal(t, segment.SegmentHeader, decoded.SegmentHeader)
				assert.Equal(t, protocolId, decoded.GetProtocolId())
				assert.Equal(t, isResponse, decoded.IsResponse())
				assert.Equal(t, len(payload), len(decoded.Payload))
				assert.True(t, bytes.Equal(payload, decoded.Payload))
			}
		}
	}
}
