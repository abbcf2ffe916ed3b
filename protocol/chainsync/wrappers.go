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

package chainsync

import (
	"github.com/blinklabs-io/ouroboros-client/cbor"
)

// EraByron is the hard-fork era index for Byron, whose headers carry extra metadata
const EraByron = 0

// WrappedBlock represents a block returned via a NtC RollForward message. On the wire it
// is tag 24 around the encoded [era, block] pair
type WrappedBlock struct {
	Era       uint
	BlockCbor []byte
}

type wrappedBlockContent struct {
	cbor.StructAsArray
	Era   uint
	Block cbor.RawMessage
}

func (w *WrappedBlock) UnmarshalCBOR(data []byte) error {
	var wrapped cbor.WrappedCbor
	if _, err := cbor.Decode(data, &wrapped); err != nil {
		return err
	}
	var tmp wrappedBlockContent
	if _, err := cbor.Decode(wrapped.Bytes(), &tmp); err != nil {
		return err
	}
	w.Era = tmp.Era
	w.BlockCbor = []byte(tmp.Block)
	return nil
}

func (w WrappedBlock) MarshalCBOR() ([]byte, error) {
	content, err := cbor.Encode(
		wrappedBlockContent{
			Era:   w.Era,
			Block: cbor.RawMessage(w.BlockCbor),
		},
	)
	if err != nil {
		return nil, err
	}
	return cbor.Encode(cbor.WrappedCbor(content))
}

// WrappedHeader represents a block header returned via a NtN RollForward message
type WrappedHeader struct {
	Era        uint
	HeaderCbor []byte
	// Byron only
	ByronType uint
	ByronSize uint
}

type wrappedHeaderOuter struct {
	cbor.StructAsArray
	Era     uint
	Content cbor.RawMessage
}

type wrappedHeaderByron struct {
	cbor.StructAsArray
	Metadata struct {
		cbor.StructAsArray
		Type uint
		Size uint
	}
	Header cbor.WrappedCbor
}

func (w *WrappedHeader) UnmarshalCBOR(data []byte) error {
	var tmp wrappedHeaderOuter
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	w.Era = tmp.Era
	if w.Era == EraByron {
		var byron wrappedHeaderByron
		if _, err := cbor.Decode(tmp.Content, &byron); err != nil {
			return err
		}
		w.ByronType = byron.Metadata.Type
		w.ByronSize = byron.Metadata.Size
		w.HeaderCbor = byron.Header.Bytes()
		return nil
	}
	var header cbor.WrappedCbor
	if _, err := cbor.Decode(tmp.Content, &header); err != nil {
		return err
	}
	w.HeaderCbor = header.Bytes()
	return nil
}

func (w WrappedHeader) MarshalCBOR() ([]byte, error) {
	var content any = cbor.WrappedCbor(w.HeaderCbor)
	if w.Era == EraByron {
		byron := wrappedHeaderByron{
			Header: cbor.WrappedCbor(w.HeaderCbor),
		}
		byron.Metadata.Type = w.ByronType
		byron.Metadata.Size = w.ByronSize
		content = byron
	}
	contentCbor, err := cbor.Encode(content)
	if err != nil {
		return nil, err
	}
	return cbor.Encode(
		wrappedHeaderOuter{
			Era:     w.Era,
			Content: contentCbor,
		},
	)
}
