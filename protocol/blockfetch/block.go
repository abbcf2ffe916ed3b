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

package blockfetch

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrInvalidBlockEnvelope = errors.New("invalid block envelope")

// ErrBlockNotFound is returned by FetchSingle when the server doesn't have the block
var ErrBlockNotFound = errors.New("block not found")

const (
	cborTag24Byte0 = 0xd8
	cborTag24Byte1 = 0x18

	cborMajorTypeMask       = 0xe0
	cborMajorTypeByteString = 0x40
	cborAdditionalInfoMask  = 0x1f
)

// UnwrapBlock strips the tag 24 envelope from a received block and returns the
// enclosed bytes, which are the CBOR of [era, block]. It only parses the envelope
// header and doesn't decode or copy the block itself
func UnwrapBlock(payload []byte) ([]byte, error) {
	if len(payload) < 3 || payload[0] != cborTag24Byte0 || payload[1] != cborTag24Byte1 {
		return nil, fmt.Errorf("%w: missing tag 24", ErrInvalidBlockEnvelope)
	}
	initial := payload[2]
	if initial&cborMajorTypeMask != cborMajorTypeByteString {
		return nil, fmt.Errorf("%w: expected byte string", ErrInvalidBlockEnvelope)
	}
	rest := payload[3:]
	var length uint64
	switch info := initial & cborAdditionalInfoMask; {
	case info < 24:
		length = uint64(info)
	case info == 24 && len(rest) >= 1:
		length = uint64(rest[0])
		rest = rest[1:]
	case info == 25 && len(rest) >= 2:
		length = uint64(binary.BigEndian.Uint16(rest))
		rest = rest[2:]
	case info == 26 && len(rest) >= 4:
		length = uint64(binary.BigEndian.Uint32(rest))
		rest = rest[4:]
	case info == 27 && len(rest) >= 8:
		length = binary.BigEndian.Uint64(rest)
		rest = rest[8:]
	default:
		return nil, fmt.Errorf("%w: bad byte string header", ErrInvalidBlockEnvelope)
	}
	if uint64(len(rest)) != length {
		return nil, fmt.Errorf(
			"%w: byte string length %d, have %d bytes",
			ErrInvalidBlockEnvelope,
			length,
			len(rest),
		)
	}
	return rest, nil
}
