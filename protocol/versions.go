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

package protocol

import "slices"

// The NtC protocol versions have the 15th bit set in the handshake
const ProtocolVersionNtCOffset = 0x8000

// Supported version ranges. We don't bother with versions from before Alonzo
const (
	ProtocolVersionNtCMin uint16 = 9
	ProtocolVersionNtCMax uint16 = 20
	ProtocolVersionNtNMin uint16 = 7
	ProtocolVersionNtNMax uint16 = 14
)

type NewVersionDataFromCborFunc func([]byte) (VersionData, error)

// ProtocolVersionMap maps a protocol version to the version data proposed for it
type ProtocolVersionMap map[uint16]VersionData

// ProtocolVersion describes what a negotiated protocol version allows
type ProtocolVersion struct {
	NewVersionDataFromCborFunc NewVersionDataFromCborFunc
	// NtC only
	EnableLocalQueryProtocol     bool
	EnableLocalTxMonitorProtocol bool
	EnableAcquireImmutableTip    bool
	EnableTxMonitorMeasures      bool
	// NtN only
	EnableKeepAliveProtocol   bool
	EnableFullDuplex          bool
	EnablePeerSharingProtocol bool
}

var protocolVersions = buildProtocolVersions()

func buildProtocolVersions() map[uint16]ProtocolVersion {
	ret := map[uint16]ProtocolVersion{}
	for v := ProtocolVersionNtCMin; v <= ProtocolVersionNtCMax; v++ {
		pv := ProtocolVersion{
			NewVersionDataFromCborFunc: NewVersionDataNtC9to14FromCbor,
			EnableLocalQueryProtocol:   true,
			// LocalTxMonitor arrived in NtC v12
			EnableLocalTxMonitorProtocol: v >= 12,
			EnableAcquireImmutableTip:    v >= 16,
			EnableTxMonitorMeasures:      v >= 20,
		}
		// v15 added the query flag to the handshake
		if v >= 15 {
			pv.NewVersionDataFromCborFunc = NewVersionDataNtC15andUpFromCbor
		}
		ret[v+ProtocolVersionNtCOffset] = pv
	}
	for v := ProtocolVersionNtNMin; v <= ProtocolVersionNtNMax; v++ {
		pv := ProtocolVersion{
			NewVersionDataFromCborFunc: NewVersionDataNtN7to10FromCbor,
			EnableKeepAliveProtocol:    true,
			EnableFullDuplex:           v >= 10,
			EnablePeerSharingProtocol:  v >= 11,
		}
		switch {
		case v >= 13:
			pv.NewVersionDataFromCborFunc = NewVersionDataNtN13andUpFromCbor
		case v >= 11:
			pv.NewVersionDataFromCborFunc = NewVersionDataNtN11to12FromCbor
		}
		ret[v] = pv
	}
	return ret
}

// GetProtocolVersionMap returns a data structure suitable for use with the protocol handshake
func GetProtocolVersionMap(
	protocolMode ProtocolMode,
	networkMagic uint32,
	diffusionMode bool,
	peerSharing bool,
	queryMode bool,
) ProtocolVersionMap {
	ret := ProtocolVersionMap{}
	if protocolMode == ProtocolModeNodeToClient {
		for _, version := range GetProtocolVersionsNtC() {
			if version >= (15 + ProtocolVersionNtCOffset) {
				ret[version] = VersionDataNtC15andUp{
					CborNetworkMagic: networkMagic,
					CborQuery:        queryMode,
				}
			} else {
				ret[version] = VersionDataNtC9to14(networkMagic)
			}
		}
		return ret
	}
	for _, version := range GetProtocolVersionsNtN() {
		switch {
		case version >= 13:
			var tmpPeerSharing uint = PeerSharingModeNoPeerSharing
			if peerSharing {
				tmpPeerSharing = PeerSharingModePeerSharingPublic
			}
			ret[version] = VersionDataNtN13andUp{
				VersionDataNtN11to12{
					CborNetworkMagic:                       networkMagic,
					CborInitiatorAndResponderDiffusionMode: diffusionMode,
					CborPeerSharing:                        tmpPeerSharing,
					CborQuery:                              queryMode,
				},
			}
		case version >= 11:
			var tmpPeerSharing uint = PeerSharingModeV11NoPeerSharing
			if peerSharing {
				tmpPeerSharing = PeerSharingModeV11PeerSharingPublic
			}
			ret[version] = VersionDataNtN11to12{
				CborNetworkMagic:                       networkMagic,
				CborInitiatorAndResponderDiffusionMode: diffusionMode,
				CborPeerSharing:                        tmpPeerSharing,
				CborQuery:                              queryMode,
			}
		default:
			ret[version] = VersionDataNtN7to10{
				CborNetworkMagic:                       networkMagic,
				CborInitiatorAndResponderDiffusionMode: diffusionMode,
			}
		}
	}
	return ret
}

// GetProtocolVersionsNtC returns a sorted list of supported NtC protocol versions
func GetProtocolVersionsNtC() []uint16 {
	ret := make([]uint16, 0, ProtocolVersionNtCMax-ProtocolVersionNtCMin+1)
	for key := range protocolVersions {
		if key >= ProtocolVersionNtCOffset {
			ret = append(ret, key)
		}
	}
	slices.Sort(ret)
	return ret
}

// GetProtocolVersionsNtN returns a sorted list of supported NtN protocol versions
func GetProtocolVersionsNtN() []uint16 {
	ret := make([]uint16, 0, ProtocolVersionNtNMax-ProtocolVersionNtNMin+1)
	for key := range protocolVersions {
		if key < ProtocolVersionNtCOffset {
			ret = append(ret, key)
		}
	}
	slices.Sort(ret)
	return ret
}

// GetProtocolVersion returns the protocol version config for the specified protocol version
func GetProtocolVersion(version uint16) (ProtocolVersion, bool) {
	ret, ok := protocolVersions[version]
	return ret, ok
}
