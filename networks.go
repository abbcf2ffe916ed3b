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

package ouroboros

import (
	"fmt"

	"github.com/blinklabs-io/ouroboros-client/ledger"
)

// Network represents a Cardano network
type Network struct {
	Id           uint8 // network ID used for addresses
	Name         string
	NetworkMagic uint32
}

func (n Network) String() string {
	return n.Name
}

// Network definitions
var (
	NetworkMainnet = Network{
		Id:           ledger.AddressNetworkMainnet,
		Name:         "mainnet",
		NetworkMagic: 764824073,
	}
	NetworkPreprod = Network{
		Id:           ledger.AddressNetworkTestnet,
		Name:         "preprod",
		NetworkMagic: 1,
	}
	NetworkPreview = Network{
		Id:           ledger.AddressNetworkTestnet,
		Name:         "preview",
		NetworkMagic: 2,
	}
	NetworkSancho = Network{
		Id:           ledger.AddressNetworkTestnet,
		Name:         "sanchonet",
		NetworkMagic: 4,
	}
	// The legacy testnet, kept so its magic still resolves to a name
	NetworkTestnet = Network{
		Id:           ledger.AddressNetworkTestnet,
		Name:         "testnet",
		NetworkMagic: 1097911063,
	}
)

var networks = []Network{
	NetworkMainnet,
	NetworkPreprod,
	NetworkPreview,
	NetworkSancho,
	NetworkTestnet,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) (Network, bool) {
	for _, network := range networks {
		if network.Name == name {
			return network, true
		}
	}
	return Network{}, false
}

// NetworkByNetworkMagic returns a predefined network by network magic
func NetworkByNetworkMagic(networkMagic uint32) (Network, bool) {
	for _, network := range networks {
		if network.NetworkMagic == networkMagic {
			return network, true
		}
	}
	return Network{}, false
}

// ResolveNetworkMagic returns the network magic for a named network, unless an explicit
// non-zero magic is given
func ResolveNetworkMagic(name string, networkMagic uint32) (uint32, error) {
	if networkMagic != 0 {
		return networkMagic, nil
	}
	network, ok := NetworkByName(name)
	if !ok {
		return 0, fmt.Errorf("unknown network: %s", name)
	}
	return network.NetworkMagic, nil
}
