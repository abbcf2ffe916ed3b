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

// Package block decodes the parts of blocks and block headers that a client needs to
// follow the chain: the block hash, its position in the chain and its size.
// Transactions are left undecoded
package block

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"golang.org/x/crypto/blake2b"
)

// Byron block types. Byron blocks and headers are tagged with one of these
const (
	BlockTypeByronEbb  = 0
	BlockTypeByronMain = 1
)

// ByronSlotsPerEpoch is the Byron epoch length, which is the same on every network
const ByronSlotsPerEpoch = 21600

var ErrInvalidBlock = errors.New("invalid block")

// Summary describes a block or block header
type Summary struct {
	Era         uint
	Hash        ledger.Blake2b256
	PrevHash    []byte
	Slot        uint64
	BlockNumber uint64
	// TxCount is the number of transactions, or -1 when only the header was decoded
	TxCount int
	// Size is the size of the block or header CBOR
	Size int
}

// NewHeaderSummaryFromCbor decodes a block header as delivered by node-to-node
// chain-sync. The Byron block type is only used for Byron headers
func NewHeaderSummaryFromCbor(era uint, byronType uint, headerCbor []byte) (*Summary, error) {
	s := &Summary{
		Era:     era,
		TxCount: -1,
		Size:    len(headerCbor),
	}
	var err error
	if era == ledger.EraIdByron {
		err = s.decodeByronHeader(byronType, headerCbor)
	} else {
		err = s.decodeHeader(headerCbor)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}
	return s, nil
}

// NewBlockSummaryFromCbor decodes a block as delivered by node-to-client chain-sync or
// by block-fetch. Byron blocks are expected to carry their block type tag
func NewBlockSummaryFromCbor(era uint, blockCbor []byte) (*Summary, error) {
	s := &Summary{
		Era:  era,
		Size: len(blockCbor),
	}
	if err := s.decodeBlock(blockCbor); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}
	return s, nil
}

func (s *Summary) decodeBlock(blockCbor []byte) error {
	byronType := uint(0)
	if s.Era == ledger.EraIdByron {
		var tagged struct {
			cbor.StructAsArray
			Type  uint
			Block cbor.RawMessage
		}
		if _, err := cbor.Decode(blockCbor, &tagged); err != nil {
			return err
		}
		byronType = tagged.Type
		blockCbor = tagged.Block
	}
	var items []cbor.RawMessage
	if _, err := cbor.Decode(blockCbor, &items); err != nil {
		return err
	}
	if len(items) < 2 {
		return fmt.Errorf("expected at least 2 items, got %d", len(items))
	}
	if s.Era == ledger.EraIdByron {
		if err := s.decodeByronHeader(byronType, items[0]); err != nil {
			return err
		}
		return s.decodeByronTxCount(byronType, items[1])
	}
	if err := s.decodeHeader(items[0]); err != nil {
		return err
	}
	// The transaction bodies follow the header
	txCount, err := cbor.ListLength(items[1])
	if err != nil {
		return err
	}
	s.TxCount = txCount
	return nil
}

// decodeHeader decodes a header of a Shelley-based era: [header body, signature]. Every
// era starts the header body with the block number, slot and previous hash
func (s *Summary) decodeHeader(headerCbor []byte) error {
	var header []cbor.RawMessage
	if _, err := cbor.Decode(headerCbor, &header); err != nil {
		return err
	}
	if len(header) != 2 {
		return fmt.Errorf("expected header with 2 items, got %d", len(header))
	}
	var body []cbor.RawMessage
	if _, err := cbor.Decode(header[0], &body); err != nil {
		return err
	}
	if len(body) < 3 {
		return fmt.Errorf("header body too short: %d items", len(body))
	}
	if _, err := cbor.Decode(body[0], &s.BlockNumber); err != nil {
		return err
	}
	if _, err := cbor.Decode(body[1], &s.Slot); err != nil {
		return err
	}
	// The previous hash is null for the first block after genesis
	if _, err := cbor.Decode(body[2], &s.PrevHash); err != nil {
		return err
	}
	s.Hash = ledger.Blake2b256Hash(headerCbor)
	return nil
}

type byronHeader struct {
	cbor.StructAsArray
	ProtocolMagic uint32
	PrevBlock     []byte
	BodyProof     cbor.RawMessage
	ConsensusData cbor.RawMessage
	ExtraData     cbor.RawMessage
}

type byronDifficulty struct {
	cbor.StructAsArray
	Value uint64
}

type byronMainConsensusData struct {
	cbor.StructAsArray
	SlotId struct {
		cbor.StructAsArray
		Epoch uint64
		Slot  uint64
	}
	PubKey     []byte
	Difficulty byronDifficulty
	BlockSig   cbor.RawMessage
}

type byronEbbConsensusData struct {
	cbor.StructAsArray
	Epoch      uint64
	Difficulty byronDifficulty
}

func (s *Summary) decodeByronHeader(byronType uint, headerCbor []byte) error {
	var header byronHeader
	if _, err := cbor.Decode(headerCbor, &header); err != nil {
		return err
	}
	s.PrevHash = header.PrevBlock
	switch byronType {
	case BlockTypeByronEbb:
		var consensus byronEbbConsensusData
		if _, err := cbor.Decode(header.ConsensusData, &consensus); err != nil {
			return err
		}
		s.Slot = consensus.Epoch * ByronSlotsPerEpoch
		s.BlockNumber = consensus.Difficulty.Value
	case BlockTypeByronMain:
		var consensus byronMainConsensusData
		if _, err := cbor.Decode(header.ConsensusData, &consensus); err != nil {
			return err
		}
		s.Slot = consensus.SlotId.Epoch*ByronSlotsPerEpoch + consensus.SlotId.Slot
		s.BlockNumber = consensus.Difficulty.Value
	default:
		return fmt.Errorf("unknown Byron block type %d", byronType)
	}
	// The hash covers the header wrapped in a [type, header] list
	s.Hash = blake2b.Sum256(append([]byte{0x82, byte(byronType)}, headerCbor...))
	return nil
}

// decodeByronTxCount counts the transactions in a Byron block body. Boundary blocks
// have none, while a main block body starts with the transaction payload
func (s *Summary) decodeByronTxCount(byronType uint, bodyCbor []byte) error {
	if byronType == BlockTypeByronEbb {
		return nil
	}
	var body []cbor.RawMessage
	if _, err := cbor.Decode(bodyCbor, &body); err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty Byron block body")
	}
	var txPayload []cbor.RawMessage
	if _, err := cbor.Decode(body[0], &txPayload); err != nil {
		return err
	}
	s.TxCount = len(txPayload)
	return nil
}
