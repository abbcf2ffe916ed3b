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

package ouroboros_test

import (
	"testing"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkLookup(t *testing.T) {
	testDefs := []struct {
		name         string
		networkMagic uint32
	}{
		{name: "mainnet", networkMagic: 764824073},
		{name: "preprod", networkMagic: 1},
		{name: "preview", networkMagic: 2},
		{name: "sanchonet", networkMagic: 4},
		{name: "testnet", networkMagic: 1097911063},
	}
	for _, testDef := range testDefs {
		network, ok := ouroboros.NetworkByName(testDef.name)
		require.True(t, ok, testDef.name)
		assert.Equal(t, testDef.networkMagic, network.NetworkMagic)
		network, ok = ouroboros.NetworkByNetworkMagic(testDef.networkMagic)
		require.True(t, ok, testDef.name)
		assert.Equal(t, testDef.name, network.String())
	}
	_, ok := ouroboros.NetworkByName("nonexistent")
	assert.False(t, ok)
	_, ok = ouroboros.NetworkByNetworkMagic(12345)
	assert.False(t, ok)
}

func TestResolveNetworkMagic(t *testing.T) {
	magic, err := ouroboros.ResolveNetworkMagic("preview", 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), magic)
	// An explicit magic wins over the name
	magic, err = ouroboros.ResolveNetworkMagic("preview", 42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), magic)
	_, err = ouroboros.ResolveNetworkMagic("nonexistent", 0)
	require.Error(t, err)
}
