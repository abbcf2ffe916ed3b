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

package localtxsubmission

import (
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Message types
const (
	MessageTypeSubmitTx = 0
	MessageTypeAcceptTx = 1
	MessageTypeRejectTx = 2
	MessageTypeDone     = 3
)

var messageFactories = map[uint]func() protocol.Message{
	MessageTypeSubmitTx: func() protocol.Message { return &MsgSubmitTx{} },
	MessageTypeAcceptTx: func() protocol.Message { return &MsgAcceptTx{} },
	MessageTypeRejectTx: func() protocol.Message { return &MsgRejectTx{} },
	MessageTypeDone:     func() protocol.Message { return &MsgDone{} },
}

// NewMsgFromCbor parses a LocalTxSubmission message from CBOR. Unknown message types
// return a nil message
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	factory, ok := messageFactories[msgType]
	if !ok {
		return nil, nil
	}
	msg := factory()
	if _, err := cbor.Decode(data, msg); err != nil {
		return nil, fmt.Errorf("%s: decode error: %w", ProtocolName, err)
	}
	msg.SetCbor(data)
	return msg, nil
}

func newBase(msgType uint8) protocol.MessageBase {
	return protocol.MessageBase{MessageType: msgType}
}

// EraTx is a transaction tagged with the era it was built for: [eraId, 24(tx CBOR)]
type EraTx struct {
	cbor.StructAsArray
	EraId uint16
	Tx    cbor.WrappedCbor
}

// MsgSubmitTx carries one transaction to the node
type MsgSubmitTx struct {
	protocol.MessageBase
	Transaction EraTx
}

func NewMsgSubmitTx(eraId uint16, tx []byte) *MsgSubmitTx {
	return &MsgSubmitTx{
		MessageBase: newBase(MessageTypeSubmitTx),
		Transaction: EraTx{EraId: eraId, Tx: cbor.WrappedCbor(tx)},
	}
}

// MsgAcceptTx means the node added the transaction to its mempool
type MsgAcceptTx struct {
	protocol.MessageBase
}

func NewMsgAcceptTx() *MsgAcceptTx {
	return &MsgAcceptTx{MessageBase: newBase(MessageTypeAcceptTx)}
}

// MsgRejectTx carries the ledger's reason for rejecting the transaction, kept as raw
// CBOR since its shape depends on the era
type MsgRejectTx struct {
	protocol.MessageBase
	Reason cbor.RawMessage
}

func NewMsgRejectTx(reasonCbor []byte) *MsgRejectTx {
	return &MsgRejectTx{
		MessageBase: newBase(MessageTypeRejectTx),
		Reason:      cbor.RawMessage(reasonCbor),
	}
}

// MsgDone ends the protocol
type MsgDone struct {
	protocol.MessageBase
}

func NewMsgDone() *MsgDone {
	return &MsgDone{MessageBase: newBase(MessageTypeDone)}
}
