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

package ledger

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/cbor"
)

// TransactionOutput is the era-independent view of a transaction output. It covers
// the legacy list format ([address, value, ...]) and the map format used from Babbage on
type TransactionOutput struct {
	Address Address
	// Amount is the lovelace amount
	Amount uint64
	// HasAssets is set when the value also carries native assets
	HasAssets bool
	cborData  []byte
}

func (o *TransactionOutput) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return errors.New("decode output: empty data")
	}
	var addrCbor, valueCbor cbor.RawMessage
	switch data[0] & cbor.CborTypeMask {
	case cbor.CborTypeArray:
		var items []cbor.RawMessage
		if _, err := cbor.Decode(data, &items); err != nil {
			return fmt.Errorf("decode output: %w", err)
		}
		if len(items) < 2 {
			return fmt.Errorf("decode output: expected at least 2 items, got %d", len(items))
		}
		addrCbor, valueCbor = items[0], items[1]
	case cbor.CborTypeMap:
		var fields map[uint]cbor.RawMessage
		if _, err := cbor.Decode(data, &fields); err != nil {
			return fmt.Errorf("decode output: %w", err)
		}
		var ok bool
		if addrCbor, ok = fields[0]; !ok {
			return errors.New("decode output: missing address")
		}
		if valueCbor, ok = fields[1]; !ok {
			return errors.New("decode output: missing value")
		}
	default:
		return fmt.Errorf("decode output: unexpected CBOR type 0x%x", data[0])
	}
	if err := o.Address.UnmarshalCBOR(addrCbor); err != nil {
		return fmt.Errorf("decode output address: %w", err)
	}
	if err := o.decodeValue(valueCbor); err != nil {
		return fmt.Errorf("decode output value: %w", err)
	}
	o.cborData = make([]byte, len(data))
	copy(o.cborData, data)
	return nil
}

// Value is either a plain coin amount or [coin, multiasset]
func (o *TransactionOutput) decodeValue(data []byte) error {
	if len(data) > 0 && data[0]&cbor.CborTypeMask == cbor.CborTypeArray {
		var items []cbor.RawMessage
		if _, err := cbor.Decode(data, &items); err != nil {
			return err
		}
		if len(items) != 2 {
			return fmt.Errorf("expected 2 items, got %d", len(items))
		}
		if _, err := cbor.Decode(items[0], &o.Amount); err != nil {
			return err
		}
		o.HasAssets = true
		return nil
	}
	_, err := cbor.Decode(data, &o.Amount)
	return err
}

// Cbor returns the original CBOR of the output
func (o TransactionOutput) Cbor() []byte {
	return o.cborData
}

func (o TransactionOutput) MarshalCBOR() ([]byte, error) {
	if o.cborData != nil {
		return o.cborData, nil
	}
	return cbor.Encode([]any{o.Address, o.Amount})
}
