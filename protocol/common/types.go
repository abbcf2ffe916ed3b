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

// The common package contains types used by multiple mini-protocols
package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/ouroboros-client/cbor"
)

// The Point type represents a point on the blockchain. It consists of a slot number and block hash
type Point struct {
	// Tells the CBOR decoder to convert to/from a struct and a CBOR array
	_    struct{} `cbor:",toarray"`
	Slot uint64
	Hash []byte
}

// NewPoint returns a Point object with the specified slot number and block hash
func NewPoint(slot uint64, blockHash []byte) Point {
	return Point{
		Slot: slot,
		Hash: blockHash,
	}
}

// NewPointOrigin returns an "empty" Point object which represents the origin of the blockchain
func NewPointOrigin() Point {
	return Point{}
}

// IsOrigin returns true for the origin of the blockchain
func (p Point) IsOrigin() bool {
	return p.Slot == 0 && len(p.Hash) == 0
}

func (p Point) String() string {
	if p.IsOrigin() {
		return "origin"
	}
	return fmt.Sprintf("%d.%s", p.Slot, hex.EncodeToString(p.Hash))
}

// ParsePoint parses a point in the format produced by Point.String: "origin" or
// "<slot>.<block hash hex>"
func ParsePoint(s string) (Point, error) {
	if s == "origin" {
		return NewPointOrigin(), nil
	}
	slotStr, hashStr, ok := strings.Cut(s, ".")
	if !ok {
		return Point{}, fmt.Errorf("invalid point %q: expected <slot>.<hash>", s)
	}
	slot, err := strconv.ParseUint(slotStr, 10, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	hash, err := hex.DecodeString(hashStr)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	if len(hash) != 32 {
		return Point{}, fmt.Errorf("invalid point %q: hash must be 32 bytes", s)
	}
	return NewPoint(slot, hash), nil
}

// UnmarshalCBOR is a helper function for decoding a Point object from CBOR. The object content can vary,
// so we need to do some special handling when decoding. It is not intended to be called directly.
func (p *Point) UnmarshalCBOR(data []byte) error {
	var tmp []cbor.RawMessage
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	switch len(tmp) {
	case 0:
		*p = NewPointOrigin()
	case 2:
		if _, err := cbor.Decode(tmp[0], &p.Slot); err != nil {
			return fmt.Errorf("decode point slot: %w", err)
		}
		if _, err := cbor.Decode(tmp[1], &p.Hash); err != nil {
			return fmt.Errorf("decode point hash: %w", err)
		}
	default:
		return errors.New("invalid point: expected 0 or 2 items")
	}
	return nil
}

// MarshalCBOR is a helper function for encoding a Point object to CBOR. The origin is
// encoded as an empty list. It is not intended to be called directly.
func (p Point) MarshalCBOR() ([]byte, error) {
	if p.IsOrigin() {
		return cbor.Encode([]any{})
	}
	return cbor.Encode([]any{p.Slot, p.Hash})
}

// Tip represents a Point combined with a block number
type Tip struct {
	cbor.StructAsArray
	Point       Point
	BlockNumber uint64
}
