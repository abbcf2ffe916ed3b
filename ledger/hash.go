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
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"golang.org/x/crypto/blake2b"
)

const Blake2b256Size = 32

type Blake2b256 [Blake2b256Size]byte

func NewBlake2b256(data []byte) Blake2b256 {
	b := Blake2b256{}
	copy(b[:], data)
	return b
}

func (b Blake2b256) String() string {
	return hex.EncodeToString(b[:])
}

func (b Blake2b256) Bytes() []byte {
	return b[:]
}

func (b Blake2b256) MarshalCBOR() ([]byte, error) {
	// Ensure we always encode a full-sized bytestring, even if the hash is zero-valued
	hashBytes := make([]byte, Blake2b256Size)
	copy(hashBytes, b[:])
	return cbor.Encode(hashBytes)
}

// Blake2b256Hash generates a Blake2b-256 hash from the provided data
func Blake2b256Hash(data []byte) Blake2b256 {
	return Blake2b256(blake2b.Sum256(data))
}

// ErrInvalidTransaction is returned when transaction CBOR doesn't have the expected shape
var ErrInvalidTransaction = errors.New("invalid transaction")

// TransactionId returns the ID of a transaction, which is the hash of the original
// CBOR of its body. This holds for every era: the body is the first item of the
// top-level list
func TransactionId(txCbor []byte) (Blake2b256, error) {
	var items []cbor.RawMessage
	if _, err := cbor.Decode(txCbor, &items); err != nil {
		return Blake2b256{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if len(items) < 2 {
		return Blake2b256{}, fmt.Errorf(
			"%w: expected at least 2 items, got %d",
			ErrInvalidTransaction,
			len(items),
		)
	}
	return Blake2b256Hash(items[0]), nil
}
