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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
)

// TopologyConfig represents a Cardano node topology file. It is used to find node-to-node
// peers to connect to
type TopologyConfig struct {
	Producers          []TopologyConfigLegacyProducer `json:"Producers"`
	BootstrapPeers     []TopologyConfigAccessPoint    `json:"bootstrapPeers"`
	LocalRoots         []TopologyConfigRootGroup      `json:"localRoots"`
	PublicRoots        []TopologyConfigRootGroup      `json:"publicRoots"`
	UseLedgerAfterSlot int64                          `json:"useLedgerAfterSlot"`
}

// TopologyConfigLegacyProducer is a peer in the pre-P2P topology format
type TopologyConfigLegacyProducer struct {
	Address string `json:"addr"`
	Port    uint16 `json:"port"`
	Valency uint   `json:"valency"`
}

type TopologyConfigAccessPoint struct {
	Address string `json:"address"`
	Port    uint16 `json:"port"`
}

type TopologyConfigRootGroup struct {
	AccessPoints []TopologyConfigAccessPoint `json:"accessPoints"`
	Advertise    bool                        `json:"advertise"`
	Valency      uint                        `json:"valency"`
}

func NewTopologyConfigFromFile(path string) (*TopologyConfig, error) {
	dataFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer dataFile.Close()
	return NewTopologyConfigFromReader(dataFile)
}

func NewTopologyConfigFromReader(r io.Reader) (*TopologyConfig, error) {
	t := &TopologyConfig{}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	return t, nil
}

// Peers returns the address of every peer in the topology in host:port form. Local
// roots come first, followed by public roots, bootstrap peers and legacy producers.
// Duplicates are dropped
func (t *TopologyConfig) Peers() []string {
	var ret []string
	seen := make(map[string]struct{})
	add := func(host string, port uint16) {
		addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		ret = append(ret, addr)
	}
	for _, groups := range [][]TopologyConfigRootGroup{t.LocalRoots, t.PublicRoots} {
		for _, group := range groups {
			for _, ap := range group.AccessPoints {
				add(ap.Address, ap.Port)
			}
		}
	}
	for _, ap := range t.BootstrapPeers {
		add(ap.Address, ap.Port)
	}
	for _, producer := range t.Producers {
		add(producer.Address, producer.Port)
	}
	return ret
}
