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

package localtxmonitor

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/internal/test"
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDefinition struct {
	CborHex     string
	Message     protocol.Message
	MessageType uint
}

// [{}, {}, true, null]
var placeholderTx = test.DecodeHexString("84a0a0f5f6")

var tests = []testDefinition{
	{
		CborHex:     "8100",
		Message:     NewMsgDone(),
		MessageType: MessageTypeDone,
	},
	{
		CborHex:     "8101",
		Message:     NewMsgAcquire(),
		MessageType: MessageTypeAcquire,
	},
	{
		CborHex:     "8202193039",
		Message:     NewMsgAcquired(12345),
		MessageType: MessageTypeAcquired,
	},
	{
		CborHex:     "8103",
		Message:     NewMsgRelease(),
		MessageType: MessageTypeRelease,
	},
	{
		CborHex:     "8105",
		Message:     NewMsgNextTx(),
		MessageType: MessageTypeNextTx,
	},
	{
		CborHex:     "8106",
		Message:     NewMsgReplyNextTx(0, nil),
		MessageType: MessageTypeReplyNextTx,
	},
	{
		CborHex:     fmt.Sprintf("82068206d81845%x", placeholderTx),
		Message:     NewMsgReplyNextTx(ledger.EraIdConway, placeholderTx),
		MessageType: MessageTypeReplyNextTx,
	},
	{
		CborHex:     "820742abcd",
		Message:     NewMsgHasTx([]byte{0xab, 0xcd}),
		MessageType: MessageTypeHasTx,
	},
	{
		CborHex:     "8208f5",
		Message:     NewMsgReplyHasTx(true),
		MessageType: MessageTypeReplyHasTx,
	},
	{
		CborHex:     "8109",
		Message:     NewMsgGetSizes(),
		MessageType: MessageTypeGetSizes,
	},
	{
		CborHex:     "820a831903e818c803",
		Message:     NewMsgReplyGetSizes(1000, 200, 3),
		MessageType: MessageTypeReplyGetSizes,
	},
	{
		CborHex:     "810b",
		Message:     NewMsgGetMeasures(),
		MessageType: MessageTypeGetMeasures,
	},
	{
		CborHex: "830c03a1717472616e73616374696f6e5f627974657382" + "18c81903e8",
		Message: NewMsgReplyGetMeasures(
			3,
			map[string]MeasureValue{
				"transaction_bytes": {Size: 200, Capacity: 1000},
			},
		),
		MessageType: MessageTypeReplyGetMeasures,
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

func TestDecodeReplyNextTxInvalid(t *testing.T) {
	// [6, 1, 2]
	_, err := NewMsgFromCbor(MessageTypeReplyNextTx, test.DecodeHexString("83060102"))
	require.Error(t, err)
}

func TestDecodeUnknownMessageType(t *testing.T) {
	msg, err := NewMsgFromCbor(4, test.DecodeHexString("8104"))
	require.NoError(t, err)
	assert.Nil(t, msg)
}
