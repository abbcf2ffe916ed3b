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
	"errors"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/protocol"
)

// Message types
const (
	MessageTypeDone             = 0
	MessageTypeAcquire          = 1
	MessageTypeAcquired         = 2
	MessageTypeRelease          = 3
	MessageTypeNextTx           = 5
	MessageTypeReplyNextTx      = 6
	MessageTypeHasTx            = 7
	MessageTypeReplyHasTx       = 8
	MessageTypeGetSizes         = 9
	MessageTypeReplyGetSizes    = 10
	MessageTypeGetMeasures      = 11
	MessageTypeReplyGetMeasures = 12
)

// NewMsgFromCbor parses a LocalTxMonitor message from CBOR
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	var ret protocol.Message
	switch msgType {
	case MessageTypeDone:
		ret = &MsgDone{}
	case MessageTypeAcquire:
		ret = &MsgAcquire{}
	case MessageTypeAcquired:
		ret = &MsgAcquired{}
	case MessageTypeRelease:
		ret = &MsgRelease{}
	case MessageTypeNextTx:
		ret = &MsgNextTx{}
	case MessageTypeReplyNextTx:
		ret = &MsgReplyNextTx{}
	case MessageTypeHasTx:
		ret = &MsgHasTx{}
	case MessageTypeReplyHasTx:
		ret = &MsgReplyHasTx{}
	case MessageTypeGetSizes:
		ret = &MsgGetSizes{}
	case MessageTypeReplyGetSizes:
		ret = &MsgReplyGetSizes{}
	case MessageTypeGetMeasures:
		ret = &MsgGetMeasures{}
	case MessageTypeReplyGetMeasures:
		ret = &MsgReplyGetMeasures{}
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

type MsgDone struct {
	protocol.MessageBase
}

func NewMsgDone() *MsgDone {
	m := &MsgDone{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeDone,
		},
	}
	return m
}

type MsgAcquire struct {
	protocol.MessageBase
}

func NewMsgAcquire() *MsgAcquire {
	m := &MsgAcquire{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeAcquire,
		},
	}
	return m
}

type MsgAcquired struct {
	protocol.MessageBase
	SlotNo uint64
}

func NewMsgAcquired(slotNo uint64) *MsgAcquired {
	m := &MsgAcquired{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeAcquired,
		},
		SlotNo: slotNo,
	}
	return m
}

type MsgRelease struct {
	protocol.MessageBase
}

func NewMsgRelease() *MsgRelease {
	m := &MsgRelease{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeRelease,
		},
	}
	return m
}

type MsgNextTx struct {
	protocol.MessageBase
}

func NewMsgNextTx() *MsgNextTx {
	m := &MsgNextTx{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeNextTx,
		},
	}
	return m
}

// MsgReplyNextTx carries the next mempool transaction, or nothing once the snapshot
// has been drained
type MsgReplyNextTx struct {
	protocol.MessageBase
	Transaction *MsgReplyNextTxTransaction
}

// MsgReplyNextTxTransaction is an era-tagged transaction: [eraId, 24(tx CBOR)]
type MsgReplyNextTxTransaction struct {
	cbor.StructAsArray
	EraId uint8
	Tx    cbor.WrappedCbor
}

func NewMsgReplyNextTx(eraId uint8, tx []byte) *MsgReplyNextTx {
	m := &MsgReplyNextTx{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeReplyNextTx,
		},
	}
	if tx != nil {
		m.Transaction = &MsgReplyNextTxTransaction{
			EraId: eraId,
			Tx:    cbor.WrappedCbor(tx),
		}
	}
	return m
}

func (m *MsgReplyNextTx) UnmarshalCBOR(data []byte) error {
	var tmp []cbor.RawMessage
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	// The transaction is omitted entirely once the snapshot is drained
	switch len(tmp) {
	case 1:
	case 2:
		var tx MsgReplyNextTxTransaction
		if _, err := cbor.Decode(tmp[1], &tx); err != nil {
			return err
		}
		m.Transaction = &tx
	default:
		return errors.New("invalid ReplyNextTx: expected 1 or 2 items")
	}
	_, err := cbor.Decode(tmp[0], &m.MessageType)
	return err
}

func (m *MsgReplyNextTx) MarshalCBOR() ([]byte, error) {
	tmp := []any{m.MessageType}
	if m.Transaction != nil {
		tmp = append(tmp, m.Transaction)
	}
	return cbor.Encode(tmp)
}

type MsgHasTx struct {
	protocol.MessageBase
	TxId []byte
}

func NewMsgHasTx(txId []byte) *MsgHasTx {
	m := &MsgHasTx{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeHasTx,
		},
		TxId: txId,
	}
	return m
}

type MsgReplyHasTx struct {
	protocol.MessageBase
	Result bool
}

func NewMsgReplyHasTx(result bool) *MsgReplyHasTx {
	m := &MsgReplyHasTx{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeReplyHasTx,
		},
		Result: result,
	}
	return m
}

type MsgGetSizes struct {
	protocol.MessageBase
}

func NewMsgGetSizes() *MsgGetSizes {
	m := &MsgGetSizes{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeGetSizes,
		},
	}
	return m
}

type MsgReplyGetSizes struct {
	protocol.MessageBase
	Result MempoolSizes
}

// MempoolSizes describes the capacity and usage of the mempool snapshot, in bytes
type MempoolSizes struct {
	cbor.StructAsArray
	Capacity    uint32
	Size        uint32
	NumberOfTxs uint32
}

func NewMsgReplyGetSizes(
	capacity uint32,
	size uint32,
	numberOfTxs uint32,
) *MsgReplyGetSizes {
	m := &MsgReplyGetSizes{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeReplyGetSizes,
		},
		Result: MempoolSizes{
			Capacity:    capacity,
			Size:        size,
			NumberOfTxs: numberOfTxs,
		},
	}
	return m
}

type MsgGetMeasures struct {
	protocol.MessageBase
}

func NewMsgGetMeasures() *MsgGetMeasures {
	m := &MsgGetMeasures{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeGetMeasures,
		},
	}
	return m
}

// MeasureValue is the current usage and capacity of a single mempool measure
type MeasureValue struct {
	cbor.StructAsArray
	Size     uint64
	Capacity uint64
}

type MsgReplyGetMeasures struct {
	protocol.MessageBase
	TxCount  uint32
	Measures map[string]MeasureValue
}

func NewMsgReplyGetMeasures(
	txCount uint32,
	measures map[string]MeasureValue,
) *MsgReplyGetMeasures {
	m := &MsgReplyGetMeasures{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeReplyGetMeasures,
		},
		TxCount:  txCount,
		Measures: measures,
	}
	return m
}
