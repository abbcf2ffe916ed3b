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

package ledger_test

import (
	"testing"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/internal/test"
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlake2b256Hash(t *testing.T) {
	// Well-known hash of empty input
	assert.Equal(
		t,
		"0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		ledger.Blake2b256Hash(nil).String(),
	)
}

func TestTransactionId(t *testing.T) {
	// The body is hashed as it appears in the transaction, including its
	// non-canonical length encoding
	bodyCbor := test.DecodeHexString("b90000")
	txCbor := append([]byte{0x84}, bodyCbor...)
	txCbor = append(txCbor, 0xa0, 0xf5, 0xf6)
	txId, err := ledger.TransactionId(txCbor)
	require.NoError(t, err)
	assert.Equal(t, ledger.Blake2b256Hash(bodyCbor), txId)
	assert.NotEqual(t, ledger.Blake2b256Hash(test.DecodeHexString("a0")), txId)
}

func TestTransactionIdInvalid(t *testing.T) {
	for _, data := range []any{
		uint64(1),
		[]any{map[uint]uint{}},
	} {
		txCbor, err := cbor.Encode(data)
		require.NoError(t, err)
		_, err = ledger.TransactionId(txCbor)
		assert.ErrorIs(t, err, ledger.ErrInvalidTransaction)
	}
}

func TestEraName(t *testing.T) {
	assert.Equal(t, "Conway", ledger.EraName(ledger.EraIdConway))
	assert.Equal(t, "Byron", ledger.EraName(ledger.EraIdByron))
	assert.Equal(t, "era 42", ledger.EraName(42))
	assert.Nil(t, ledger.GetEraById(42))
}
