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

package cbor

import (
	"encoding/hex"

	_cbor "github.com/fxamacker/cbor/v2"
)

// ByteString is a CBOR bytestring that is comparable, so decoded map keys can hold it.
// Encoding and decoding come from the embedded library type
type ByteString struct {
	_cbor.ByteString
}

// NewByteString copies data into a ByteString
func NewByteString(data []byte) ByteString {
	return ByteString{ByteString: _cbor.ByteString(data)}
}

// Len returns the number of bytes
func (bs ByteString) Len() int {
	return len(bs.ByteString)
}

// String renders the bytes as hex
func (bs ByteString) String() string {
	return hex.EncodeToString(bs.Bytes())
}
