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
	"strings"
	"testing"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopologyLegacy(t *testing.T) {
	topology, err := ouroboros.NewTopologyConfigFromReader(strings.NewReader(`
{
  "Producers": [
    {
      "addr": "backbone.cardano.iog.io",
      "port": 3001,
      "valency": 2
    }
  ]
}
`))
	require.NoError(t, err)
	assert.Equal(
		t,
		[]ouroboros.TopologyConfigLegacyProducer{
			{Address: "backbone.cardano.iog.io", Port: 3001, Valency: 2},
		},
		topology.Producers,
	)
	assert.Equal(t, []string{"backbone.cardano.iog.io:3001"}, topology.Peers())
}

func TestParseTopologyP2P(t *testing.T) {
	topology, err := ouroboros.NewTopologyConfigFromReader(strings.NewReader(`
{
  "bootstrapPeers": [
    {"address": "backbone.cardano.iog.io", "port": 3001},
    {"address": "backbone.mainnet.emurgornd.com", "port": 3001}
  ],
  "localRoots": [
    {
      "accessPoints": [{"address": "10.0.0.1", "port": 6000}],
      "advertise": false,
      "valency": 1
    }
  ],
  "publicRoots": [
    {
      "accessPoints": [
        {"address": "backbone.cardano.iog.io", "port": 3001},
        {"address": "2001:db8::1", "port": 3001}
      ],
      "advertise": false
    }
  ],
  "useLedgerAfterSlot": 128908821
}
`))
	require.NoError(t, err)
	assert.Equal(t, int64(128908821), topology.UseLedgerAfterSlot)
	require.Len(t, topology.LocalRoots, 1)
	assert.Equal(t, uint(1), topology.LocalRoots[0].Valency)
	assert.Equal(
		t,
		[]string{
			"10.0.0.1:6000",
			"backbone.cardano.iog.io:3001",
			"[2001:db8::1]:3001",
			"backbone.mainnet.emurgornd.com:3001",
		},
		topology.Peers(),
	)
}

func TestParseTopologyInvalid(t *testing.T) {
	_, err := ouroboros.NewTopologyConfigFromReader(strings.NewReader(`{"Producers": 1}`))
	assert.Error(t, err)
	_, err = ouroboros.NewTopologyConfigFromFile("testdata/does-not-exist.json")
	assert.Error(t, err)
}
