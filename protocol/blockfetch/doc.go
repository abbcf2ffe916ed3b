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

// Package blockfetch implements the Ouroboros block-fetch mini-protocol.
//
// The client requests a range of blocks between two points and then pulls the
// reply as a lazy sequence:
//
//	if err := client.RequestRange(ctx, start, end); err != nil {
//		return err
//	}
//	for block, err := range client.ReceiveBlocks(ctx) {
//		if err != nil {
//			return err
//		}
//		// block holds the CBOR of [era, block]
//	}
//
// A range the server doesn't have ends the sequence without yielding anything.
//
// # Key Files
//
//   - blockfetch.go: ProtocolName, ProtocolId, StateMap and Config
//   - client.go: Client implementation for requesting blocks
//   - messages.go: Message types with CBOR encoding
//   - block.go: tag 24 envelope handling for received blocks
package blockfetch
