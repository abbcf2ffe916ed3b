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
	"strings"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	AddressHeaderTypeMask    = 0xf0
	AddressHeaderNetworkMask = 0x0f

	AddressNetworkTestnet = 0
	AddressNetworkMainnet = 1

	AddressTypeKeyKey        = 0b0000
	AddressTypeScriptKey     = 0b0001
	AddressTypeKeyScript     = 0b0010
	AddressTypeScriptScript  = 0b0011
	AddressTypeKeyPointer    = 0b0100
	AddressTypeScriptPointer = 0b0101
	AddressTypeKeyNone       = 0b0110
	AddressTypeScriptNone    = 0b0111
	AddressTypeByron         = 0b1000
	AddressTypeNoneKey       = 0b1110
	AddressTypeNoneScript    = 0b1111
)

var ErrInvalidAddress = errors.New("invalid address")

// Address holds the raw bytes of a Cardano address
type Address struct {
	data []byte
}

// NewAddress returns an Address based on the provided bech32/base58 address string
// It detects if the string has mixed case assumes it is a base58 encoded address
// otherwise, it assumes it is bech32 encoded
func NewAddress(addr string) (Address, error) {
	var decoded []byte
	if strings.ToLower(addr) != addr {
		// Mixed case detected: Assume Base58 encoding (e.g., Byron addresses)
		decoded = base58.Decode(addr)
	} else {
		_, data, err := bech32.DecodeNoLimit(addr)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		decoded, err = bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
	}
	return NewAddressFromBytes(decoded)
}

// NewAddressFromBytes returns an Address based on the raw bytes provided
func NewAddressFromBytes(addrBytes []byte) (Address, error) {
	if len(addrBytes) == 0 {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	a := Address{
		data: make([]byte, len(addrBytes)),
	}
	copy(a.data, addrBytes)
	if a.Type() == AddressTypeByron {
		// Byron addresses are CBOR: [tag24 payload, crc32]
		var tmp []cbor.RawMessage
		if _, err := cbor.Decode(a.data, &tmp); err != nil {
			return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		if len(tmp) != 2 {
			return Address{}, fmt.Errorf("%w: malformed Byron address", ErrInvalidAddress)
		}
	}
	return a, nil
}

// Type returns the address type from the header. Byron addresses start with a CBOR
// list header, which always maps to the Byron type
func (a Address) Type() uint8 {
	if len(a.data) == 0 {
		return 0
	}
	return (a.data[0] & AddressHeaderTypeMask) >> 4
}

// NetworkId returns the network ID from the header. Byron addresses don't carry one
// in the header, so mainnet is assumed
func (a Address) NetworkId() uint {
	if a.Type() == AddressTypeByron || len(a.data) == 0 {
		return AddressNetworkMainnet
	}
	return uint(a.data[0] & AddressHeaderNetworkMask)
}

// Bytes returns the underlying bytes for the address
func (a Address) Bytes() []byte {
	return a.data
}

func (a Address) generateHRP() string {
	var ret string
	if a.Type() == AddressTypeNoneKey ||
		a.Type() == AddressTypeNoneScript {
		ret = "stake"
	} else {
		ret = "addr"
	}
	// Add test_ suffix if not mainnet
	if a.NetworkId() != AddressNetworkMainnet {
		ret += "_test"
	}
	return ret
}

// String returns the bech32-encoded version of the address, or base58 for Byron addresses
func (a Address) String() string {
	if len(a.data) == 0 {
		return ""
	}
	if a.Type() == AddressTypeByron {
		return base58.Encode(a.data)
	}
	// Convert data to base32 and encode as bech32
	convData, err := bech32.ConvertBits(a.data, 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("unexpected error converting data to base32: %s", err))
	}
	encoded, err := bech32.Encode(a.generateHRP(), convData)
	if err != nil {
		panic(fmt.Sprintf("unexpected error encoding data as bech32: %s", err))
	}
	return encoded
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// MarshalCBOR encodes the address the way the ledger does: a bytestring for Shelley
// addresses and the raw CBOR structure for Byron addresses
func (a Address) MarshalCBOR() ([]byte, error) {
	if a.Type() == AddressTypeByron {
		return a.data, nil
	}
	return cbor.Encode(a.data)
}

func (a *Address) UnmarshalCBOR(data []byte) error {
	if len(data) > 0 && data[0]&cbor.CborTypeMask == cbor.CborTypeArray {
		tmp, err := NewAddressFromBytes(data)
		if err != nil {
			return err
		}
		*a = tmp
		return nil
	}
	var addrBytes []byte
	if _, err := cbor.Decode(data, &addrBytes); err != nil {
		return err
	}
	tmp, err := NewAddressFromBytes(addrBytes)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}
