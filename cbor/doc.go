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

// Package cbor provides the CBOR encoding and decoding helpers used by the
// Ouroboros mini-protocol message codecs.
//
// It wraps github.com/fxamacker/cbor/v2 with a shared decode mode (deep nesting
// allowed, tag 24 registered), deterministic encoding, and a few helpers that
// the network layer needs without decoding a whole message:
//
//   - MessageLength: length of the first complete CBOR item in a buffer, or 0
//     when more bytes are required. Used for message reassembly.
//   - DecodeIdFromList: the leading integer of a CBOR list (the message type).
//   - ListLength: the number of items in a CBOR list.
package cbor
