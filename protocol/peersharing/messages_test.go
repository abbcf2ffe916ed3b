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

package peersharing

import (
	"encoding/hex"
	"net"
	"testing"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/internal/test"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDefinition struct {
	CborHex     string
	Message     protocol.Message
	MessageType uint
}

var tests = []testDefinition{
	{
		CborHex:     "82000a",
		Message:     NewMsgShareRequest(10),
		MessageType: MessageTypeShareRequest,
	},
	{
		CborHex:     "820180",
		Message:     NewMsgSharePeers([]PeerAddress{}),
		MessageType: MessageTypeSharePeers,
	},
	{
		CborHex: "82018283001a04030201190bb98601000000" + "1a01000000190bb9",
		Message: NewMsgSharePeers(
			[]PeerAddress{
				{IP: net.IP{1, 2, 3, 4}, Port: 3001},
				{IP: net.ParseIP("::1"), Port: 3001},
			},
		),
		MessageType: MessageTypeSharePeers,
	},
	{
		CborHex:     "8102",
		Message:     NewMsgDone(),
		MessageType: MessageTypeDone,
	},
}

func TestDecode(t *testing.T) {
	for _, testDef := range tests {
		cborData := test.DecodeHexString(testDef.CborHex)
		msg, err := NewMsgFromCbor(testDef.MessageType, cborData)
		require.NoError(t, err)
		// Set the raw CBOR so the comparison should succeed
		testDef.Message.SetCbor(cborData)
		assert.Equal(t, testDef.Message, msg)
	}
}

func TestEncode(t *testing.T) {
	for _, testDef := range tests {
		testDef.Message.SetCbor(nil)
		cborData, err := cbor.Encode(testDef.Message)
		require.NoError(t, err)
		assert.Equal(t, testDef.CborHex, hex.EncodeToString(cborData), "%T", testDef.Message)
	}
}

func TestDecodePeerAddressV11IPv6(t *testing.T) {
	// [1, 0, 0, 0, 16777216, 0, 0, 3001]
	var peer PeerAddress
	_, err := cbor.Decode(test.DecodeHexString("8801000000"+"1a010000000000190bb9"), &peer)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:3001", peer.String())
}

func TestDecodePeerAddressInvalid(t *testing.T) {
	testDefs := map[string]string{
		"unknown type":   "8302001901bb",
		"ipv6 too short": "83010019",
	}
	for name, cborHex := range testDefs {
		t.Run(name, func(t *testing.T) {
			var peer PeerAddress
			_, err := cbor.Decode(test.DecodeHexString(cborHex), &peer)
			assert.Error(t, err)
		})
	}
}

func TestPeerAddressString(t *testing.T) {
	peer := PeerAddress{IP: net.IP{1, 2, 3, 4}, Port: 3001}
	assert.Equal(t, "1.2.3.4:3001", peer.String())
}
