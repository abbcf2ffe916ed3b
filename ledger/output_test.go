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
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOutputAddress = "addr_test1vrk294czhxhglflvxla7vxj2cjz7wyrdpxl3fj0vych5wws77xuc7"

func TestTransactionOutputFormats(t *testing.T) {
	addr, err := ledger.NewAddress(testOutputAddress)
	require.NoError(t, err)
	testDefs := []struct {
		name      string
		output    any
		amount    uint64
		hasAssets bool
	}{
		{
			name:   "legacy coin",
			output: []any{addr.Bytes(), uint64(1_000_000)},
			amount: 1_000_000,
		},
		{
			name: "legacy with datum hash",
			output: []any{
				addr.Bytes(),
				uint64(2_500_000),
				make([]byte, 32),
			},
			amount: 2_500_000,
		},
		{
			name: "map with assets",
			output: map[uint]any{
				0: addr.Bytes(),
				1: []any{
					uint64(1_234_567),
					map[string]map[string]uint64{
						"policy": {"token": 1},
					},
				},
			},
			amount:    1_234_567,
			hasAssets: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			outputCbor, err := cbor.Encode(testDef.output)
			require.NoError(t, err)
			var output ledger.TransactionOutput
			_, err = cbor.Decode(outputCbor, &output)
			require.NoError(t, err)
			assert.Equal(t, testOutputAddress, output.Address.String())
			assert.Equal(t, testDef.amount, output.Amount)
			assert.Equal(t, testDef.hasAssets, output.HasAssets)
			assert.Equal(t, outputCbor, output.Cbor())
		})
	}
}

func TestTransactionOutputInvalid(t *testing.T) {
	for _, output := range []any{
		uint64(1),
		[]any{uint64(1)},
		map[uint]any{1: uint64(5)},
	} {
		outputCbor, err := cbor.Encode(output)
		require.NoError(t, err)
		var decoded ledger.TransactionOutput
		_, err = cbor.Decode(outputCbor, &decoded)
		assert.Error(t, err)
	}
}
